package target

import (
	"context"
	"strconv"
	"sync/atomic"
)

// counterCaller is the no-op target: every call increments a shared counter
// and returns its value. It exists to exercise the harness itself.
type counterCaller struct {
	n atomic.Int64
}

func newCounterCaller() *counterCaller {
	return &counterCaller{}
}

func (c *counterCaller) Call(_ context.Context) (string, error) {
	return strconv.FormatInt(c.n.Add(1), 10), nil
}

func (c *counterCaller) Name() string { return "counter" }
