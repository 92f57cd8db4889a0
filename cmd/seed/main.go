package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/farbklang/internal/seeding"
	"github.com/okian/farbklang/pkg/logger"
)

// Default configuration constants.
const (
	defaultURL     = "http://localhost:9080"
	defaultCount   = 100
	defaultK       = 5
	defaultTimeout = 10 * time.Second
	defaultSettle  = 30 * time.Second
	defaultWorkers = 2 // multiplier for runtime.NumCPU()
)

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	url := defaultURL
	if v, ok := os.LookupEnv("FARBKLANG_SEED_URL"); ok && v != "" {
		url = v
	}

	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	var (
		baseURL = fs.String("url", url, "Base URL of the service")
		count   = fs.Int("n", defaultCount, "Number of ratings to generate and submit")
		workers = fs.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		k       = fs.Int("k", defaultK, "Limit for the similarity check")
		timeout = fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle  = fs.Duration("settle", defaultSettle, "How long to wait for queued saves to be stored")
		seed    = fs.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for the generated ratings")
	)
	fs.Usage = seeding.Usage(os.Stderr, fs)
	_ = fs.Parse(os.Args[1:])

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &seeding.Config{
		BaseURL: *baseURL,
		Count:   *count,
		Workers: *workers,
		K:       *k,
		Timeout: *timeout,
		Settle:  *settle,
		Seed:    *seed,
	}
	if _, err := seeding.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
