package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mostlygeek/eventhandler/config"
	"github.com/mostlygeek/eventhandler/logmon"
	"github.com/mostlygeek/eventhandler/replay"
	"github.com/mostlygeek/eventhandler/tracing"
)

var version string = "0"
var commit string = "abcd1234"
var date = "unknown"

func main() {
	configPath := flag.String("config", "replay.yaml", "config file name")
	showVersion := flag.Bool("version", false, "show version of build")

	flag.Parse() // Parse the command-line flags

	if *showVersion {
		fmt.Printf("version: %s (%s), built at %s\n", version, commit, date)
		os.Exit(0)
	}

	os.Exit(run(*configPath))
}

// run replays the config at configPath and returns the process exit code, so
// deferred flushes happen before the process exits
func run(configPath string) int {
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	logger := logmon.NewLogMonitorWriter(os.Stderr)
	logger.SetPrefix("replay")
	logger.SetLogTimeFormat(conf.LogTimeFormat)
	level, _ := logmon.ParseLevel(conf.LogLevel)
	logger.SetLogLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracing.Setup(ctx, conf.Tracing)
	if err != nil {
		logger.Errorf("tracing disabled: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Errorf("tracing shutdown: %v", err)
		}
	}()

	r, err := replay.New(conf, logger, os.Stdout)
	if err != nil {
		logger.Errorf("building listeners: %v", err)
		return 1
	}

	results, err := r.Run(ctx)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	prevented := 0
	for _, result := range results {
		if !result.Allowed {
			prevented++
		}
	}
	logger.Infof("replayed %d payloads, %d prevented, %d listeners left", len(results), prevented, r.Handler().Len())
	return 0
}
