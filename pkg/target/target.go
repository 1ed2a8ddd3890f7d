package target

import (
	"context"
	"fmt"

	"github.com/sdcio/flood-harness/pkg/config"
)

// Caller issues one call against the system under flood. Implementations
// must be safe for concurrent use: every worker of a flood shares a single
// Caller.
type Caller interface {
	// Call performs a single invocation and returns a short result line.
	Call(ctx context.Context) (string, error)
	// Name identifies the caller in logs and flood summaries.
	Name() string
}

// New builds the Caller described by a validated target config.
func New(cfg *config.TargetConfig) (Caller, error) {
	switch cfg.Type {
	case config.TargetHTTP:
		return newHTTPCaller(cfg)
	case config.TargetSleep, "":
		return newSleepCaller(cfg), nil
	case config.TargetCounter:
		return newCounterCaller(), nil
	}
	return nil, fmt.Errorf("unknown target type %q", cfg.Type)
}
