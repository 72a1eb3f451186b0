package simulator

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/eduquest/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging sends log output to stdout and to logFile. An empty logFile
// gets a timestamped name.
func SetupLogging(logFile string) error {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.InitWith(io.MultiWriter(os.Stdout, file), "text"); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`EduQuest load simulator
=======================

Registers synthetic learners, sends them question, activity and chat events,
then checks counters, insights and the leaderboard against a local replay.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -users int         Number of synthetic users (default 200)
  -events int        Events per user (default 25)
  -top int           Leaderboard entries to fetch (default 50)
  -workers int       Concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -async             Submit through /events/async
  -drain duration    Wait for async processing before failing (default 30s)
  -jwt-secret string Sign per-user bearer tokens with this HS256 secret
  -bonus int         Level-up bonus configured on the server (default 10)
  -seed int          Generator seed (default: current time)
  -log string        Log file (default: simulate_TIMESTAMP.log)
  -verbose           Enable verbose logging
  -help              Show this help message
`)
}
