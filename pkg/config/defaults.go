package config

import "time"

const (
	defaultWorkers     = 5
	defaultIterations  = 5
	defaultGracePeriod = 5 * time.Second

	defaultHTTPTimeout   = 10 * time.Second
	defaultSleepDuration = 100 * time.Millisecond

	defaultPromAddress = ":56090"
)
