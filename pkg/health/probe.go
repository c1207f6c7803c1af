package health

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/slate-tools/slate-shell-go/pkg/logging"
)

// maxBodySize bounds the health response body read; the fingerprint is a
// few dozen bytes, anything bigger is not ours.
const maxBodySize = 64 * 1024

// HealthResponse is the identity fingerprint self-reported by whatever
// process is listening on the server port.
type HealthResponse struct {
	Status string `json:"status"`
	App    string `json:"app"`
	Owner  string `json:"owner"`
	Env    string `json:"env"`
	PID    int    `json:"pid"`
}

// Prober performs a single bounded health probe. A nil result means
// unreachable or invalid: connection failure, timeout, non-success status
// and malformed body all collapse into nil, never an error.
type Prober interface {
	Probe() *HealthResponse
}

type HTTPProber struct {
	url    string
	client *http.Client
	logger logging.Logger
}

// NewHTTPProber creates a prober for the given health endpoint URL with a
// bounded per-request timeout.
func NewHTTPProber(url string, timeout time.Duration, logger logging.Logger) *HTTPProber {
	return &HTTPProber{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (p *HTTPProber) Probe() *HealthResponse {
	resp, err := p.client.Get(p.url)
	if err != nil {
		p.logger.Debugf("Health probe request failed, url: %s, error: %v", p.url, err)
		return nil
	}
	defer resp.Body.Close()

	// Only 2xx responses count as a valid health answer
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Debugf("Health probe returned non-success status, url: %s, status: %d", p.url, resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		p.logger.Debugf("Health probe body read failed, url: %s, error: %v", p.url, err)
		return nil
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		p.logger.Debugf("Health probe body is not a valid fingerprint, url: %s, error: %v", p.url, err)
		return nil
	}

	return &health
}

// RawPortConnectable reports whether anything at all accepts a TCP
// connection on the address. It is the weaker, second-tier evidence used
// only when the structured probe fails: success here means the port is
// occupied by something that does not speak the health protocol.
func RawPortConnectable(address string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
