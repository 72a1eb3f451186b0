package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/eduquest/internal/simulator"
)

// Default configuration constants.
const (
	defaultUsers         = 200
	defaultEventsPerUser = 25
	defaultTopN          = 50
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultDrain         = 30 * time.Second
	defaultBonus         = 10
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users     = flag.Int("users", defaultUsers, "Number of synthetic users")
		events    = flag.Int("events", defaultEventsPerUser, "Events per user")
		topN      = flag.Int("top", defaultTopN, "Leaderboard entries to fetch")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		async     = flag.Bool("async", false, "Submit through /events/async")
		drain     = flag.Duration("drain", defaultDrain, "Wait for async processing before failing")
		jwtSecret = flag.String("jwt-secret", "", "HS256 secret for per-user bearer tokens")
		bonus     = flag.Int("bonus", defaultBonus, "Level-up bonus configured on the server")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Generator seed")
		logFile   = flag.String("log", "", "Log file (default: simulate_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulator.ShowHelp()
		return
	}

	if err := simulator.SetupLogging(*logFile); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulator.Config{
		BaseURL:       *baseURL,
		Users:         *users,
		EventsPerUser: *events,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		Async:         *async,
		DrainTimeout:  *drain,
		JWTSecret:     *jwtSecret,
		LevelUpBonus:  *bonus,
		Seed:          *seed,
		Verbose:       *verbose,
	}

	if _, err := simulator.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
