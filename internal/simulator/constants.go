package simulator

import "time"

const (
	workerChannelMultiplier = 2
	drainPollInterval       = 100 * time.Millisecond
	percentageMultiplier    = 100
)
