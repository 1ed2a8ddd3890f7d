package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/sdcio/flood-harness/pkg/config"
	"github.com/sdcio/flood-harness/pkg/flood"
	"github.com/sdcio/flood-harness/pkg/target"
)

var addr string
var method string
var workers int
var iterations int
var floods int
var timeout time.Duration
var grace time.Duration

func main() {
	pflag.StringVarP(&addr, "address", "a", "http://localhost:8080", "http endpoint to flood")
	pflag.StringVarP(&method, "method", "m", "GET", "http method")
	pflag.IntVarP(&workers, "workers", "w", 250, "concurrent workers per flood")
	pflag.IntVarP(&iterations, "iterations", "i", 10, "requests per worker")
	pflag.IntVarP(&floods, "floods", "n", 1, "number of floods run side by side")
	pflag.DurationVarP(&timeout, "timeout", "", 0, "bound on the wait for results, 0 waits for all workers")
	pflag.DurationVarP(&grace, "grace", "", 5*time.Second, "shutdown grace period")
	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	caller, err := target.New(&config.TargetConfig{
		Type:    config.TargetHTTP,
		Address: addr,
		Method:  method,
		Timeout: 30 * time.Second,
	})
	if err != nil {
		panic(err)
	}

	op := func(ctx context.Context) (string, error) {
		return caller.Call(ctx)
	}
	b := flood.NewBuilder[string](caller.Name()).WithGracePeriod(grace)
	for i := 0; i < floods; i++ {
		b = b.WithUnit(op,
			flood.WithName(fmt.Sprintf("bulk-%d", i)),
			flood.WithWorkers(workers),
			flood.WithIterations(iterations),
		)
	}
	c, err := b.Build()
	if err != nil {
		panic(err)
	}

	if err := c.Open(ctx); err != nil {
		panic(err)
	}
	now := time.Now()
	var res map[string][]flood.Outcome[string]
	if timeout > 0 {
		res, err = c.FloodTimeout(ctx, timeout)
	} else {
		res, err = c.Flood(ctx)
	}
	if err != nil {
		_ = c.ForceClose()
		panic(err)
	}
	took := time.Since(now)
	if err := c.Close(ctx); err != nil {
		panic(err)
	}

	total, failed := 0, 0
	for _, outs := range res {
		for _, o := range outs {
			total += o.Invocations()
			failed += o.Failures
		}
	}
	fmt.Println("requests done :", total)
	fmt.Println("failed        :", failed)
	fmt.Println("took          :", took)
	fmt.Printf("rate          : %.1f req/s\n", float64(total)/took.Seconds())
	if failed > 0 {
		os.Exit(1)
	}
}
