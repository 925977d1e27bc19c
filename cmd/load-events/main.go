package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/ladder/internal/loadgen"
	"github.com/okian/ladder/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumEvents  = 10000
	defaultNumUsers   = 1000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the service")
		numEvents = flag.Int("events", defaultNumEvents, "Number of events to generate and submit")
		numUsers  = flag.Int("users", defaultNumUsers, "Size of the simulated user population")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:   *baseURL,
		NumEvents: *numEvents,
		NumUsers:  *numUsers,
		Workers:   *workers,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	if err := loadgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
