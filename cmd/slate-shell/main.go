package main

import (
	"context"
	"fmt"
	"os"

	"github.com/slate-tools/slate-shell-go/pkg/lifecycle"
	"github.com/slate-tools/slate-shell-go/pkg/logging"
	"github.com/slate-tools/slate-shell-go/pkg/tray"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Config   string `long:"config" description:"path to YAML configuration file"`
	Sidecar  string `long:"sidecar" description:"path to the slate-server executable"`
	LogLevel string `long:"log-level" description:"log level (debug, info, warn, error)" default:"info"`
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v", err)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(opts.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var config *lifecycle.Config
	if opts.Config != "" {
		config, err = lifecycle.LoadConfigFromFile(opts.Config)
		if err != nil {
			logger.Errorf("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		if opts.Sidecar != "" {
			config.Sidecar.ExecutablePath = opts.Sidecar
		}
	} else {
		if opts.Sidecar == "" {
			fmt.Println("Either --config or --sidecar is required")
			os.Exit(1)
		}
		config = lifecycle.NewDefaultConfig(opts.Sidecar)
	}

	if err := lifecycle.ValidateConfig(config); err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Infof("Starting slate shell, sidecar: %s, port: %d", config.Sidecar.ExecutablePath, config.Port)

	lc := lifecycle.New(config, logger)

	result, err := lc.OnStartup(context.Background())
	if err != nil {
		logger.Errorf("Startup aborted: %v", err)
		os.Exit(1)
	}
	if !result.Ready {
		logger.Warnf("Server not ready yet, PID: %d; continuing", result.PID)
	}

	// systray.Run must occupy the main goroutine on macOS (Cocoa requirement).
	tray.Run(tray.Options{
		Title:   "Slate Editor",
		Tooltip: "Slate Editor",
		OnOpen: func() {
			// The window surface belongs to the desktop shell embedding this
			// supervisor; headless runs have nothing to show.
			logger.Infof("Open requested from tray")
		},
		OnQuit: func() {
			logger.Infof("Quit requested from tray")
			lc.OnQuit()
			tray.Quit()
		},
	}, func() {
		// Final exit event; no-op when the quit action already claimed the
		// child handle.
		lc.OnExit()
	})
}
