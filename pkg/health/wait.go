package health

import (
	"time"
)

// WaitForPortFree polls the prober until it reports nothing listening or
// the timeout elapses. Blocking, fixed interval, no cancellation mid-poll.
func WaitForPortFree(prober Prober, timeout, interval time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if prober.Probe() == nil {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// WaitForReady polls the prober until it reports a live server or the
// timeout elapses. Returns whether readiness was observed; the caller
// decides whether a timeout is fatal (it is not, for startup readiness).
func WaitForReady(prober Prober, timeout, interval time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if prober.Probe() != nil {
			return true
		}
		time.Sleep(interval)
	}
	return false
}
