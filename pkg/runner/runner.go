// Copyright 2024 Nokia
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package runner assembles a flood composite from a run profile and drives
// it through one open/flood/close cycle.
package runner

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/sdcio/flood-harness/pkg/config"
	"github.com/sdcio/flood-harness/pkg/flood"
	"github.com/sdcio/flood-harness/pkg/target"
)

// Runner owns one harness run: the composite assembled from the profile,
// the caller it floods, and the optional metrics surface.
type Runner struct {
	cfg       *config.Config
	caller    target.Caller
	composite *flood.Composite[string]
	metrics   *flood.Metrics
	reg       *prometheus.Registry
	router    *mux.Router
}

// New assembles a composite with one unit per configured flood, all
// invoking the given caller.
func New(cfg *config.Config, caller target.Caller) (*Runner, error) {
	r := &Runner{
		cfg:    cfg,
		caller: caller,
		router: mux.NewRouter(),
	}
	b := flood.NewBuilder[string](caller.Name()).
		WithGracePeriod(cfg.GracePeriod)
	if cfg.Prometheus != nil {
		r.reg = prometheus.NewRegistry()
		r.metrics = flood.NewMetrics(r.reg)
		b = b.WithMetrics(r.metrics)
	}
	op := func(ctx context.Context) (string, error) {
		return caller.Call(ctx)
	}
	for _, f := range cfg.Floods {
		opts := []flood.Option{
			flood.WithWorkers(f.WorkerCount()),
			flood.WithIterations(f.IterationCount()),
		}
		if f.Name != "" {
			opts = append(opts, flood.WithName(f.Name))
		}
		b = b.WithUnit(op, opts...)
	}
	c, err := b.Build()
	if err != nil {
		return nil, err
	}
	r.composite = c
	return r, nil
}

// Composite exposes the assembled composite for introspection.
func (r *Runner) Composite() *flood.Composite[string] { return r.composite }

// Registry returns the metrics registry, nil when prometheus is disabled.
func (r *Runner) Registry() *prometheus.Registry { return r.reg }

// Run opens the composite, floods it once and closes it again. The
// profile's timeout, when set, bounds the wait for results; workers past
// the bound are terminated by the closing grace period.
func (r *Runner) Run(ctx context.Context) ([]*Summary, error) {
	c := r.composite
	log.Infof("starting flood run against %q: %s", r.caller.Name(), c.Describe())
	if err := c.Open(ctx); err != nil {
		return nil, err
	}

	var (
		res map[string][]flood.Outcome[string]
		err error
	)
	start := time.Now()
	if r.cfg.Timeout > 0 {
		res, err = c.FloodTimeout(ctx, r.cfg.Timeout)
	} else {
		res, err = c.Flood(ctx)
	}
	elapsed := time.Since(start)
	if err != nil {
		// release the workers before reporting the failure
		_ = c.ForceClose()
		return nil, err
	}
	if err := c.Close(ctx); err != nil {
		return nil, err
	}

	sums := summarize(res, elapsed)
	for _, s := range sums {
		log.Infof("%s", s)
	}
	return sums, nil
}

// ServeMetrics exposes the prometheus registry over HTTP. It blocks until
// the listener fails, so callers run it in its own goroutine.
func (r *Runner) ServeMetrics() {
	if r.reg == nil || r.cfg.Prometheus == nil {
		return
	}
	r.router.Handle("/metrics", promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}))
	r.reg.MustRegister(collectors.NewGoCollector())
	r.reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	srv := &http.Server{
		Addr:         r.cfg.Prometheus.Address,
		Handler:      r.router,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}
	err := srv.ListenAndServe()
	if err != nil {
		log.Errorf("HTTP server stopped: %v", err)
	}
}
