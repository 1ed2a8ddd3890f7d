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

// Package flood drives concurrent load against a caller-supplied operation.
// A Unit floods one operation with a fixed number of workers, each running a
// fixed number of sequential invocations; a Composite floods several units at
// once over a shared worker pool. Both follow the same lifecycle: open to
// allocate workers, flood to dispatch, close to release.
package flood

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Operation is the function a flood invokes, typically a wrapper around one
// call into the system under test. It must be safe for concurrent use; it is
// run by many workers at once. The context is the pool's run context and is
// canceled on forced termination, so operations that can block should honor
// it.
type Operation[T any] func(ctx context.Context) (T, error)

const (
	DefaultWorkers     = 5
	DefaultIterations  = 5
	DefaultGracePeriod = 5 * time.Second
)

type settings struct {
	name       string
	workers    int
	iterations int
	grace      time.Duration
	metrics    *Metrics
}

func (s *settings) validate() error {
	if s.workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrConfig, s.workers)
	}
	if s.iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrConfig, s.iterations)
	}
	if s.grace <= 0 {
		return fmt.Errorf("%w: grace period must be positive, got %s", ErrConfig, s.grace)
	}
	return nil
}

// Option tunes a Unit at construction time.
type Option func(*settings)

// WithName sets the unit name used in logs, metrics labels and composite
// result maps. Unnamed units get a generated one.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithWorkers sets the number of concurrent workers dispatched per flood.
func WithWorkers(n int) Option {
	return func(s *settings) { s.workers = n }
}

// WithIterations sets the number of sequential invocations each worker runs.
func WithIterations(n int) Option {
	return func(s *settings) { s.iterations = n }
}

// WithGracePeriod sets how long a close waits for in-flight invocations
// before terminating the pool.
func WithGracePeriod(d time.Duration) Option {
	return func(s *settings) { s.grace = d }
}

// WithMetrics attaches a metric set to the unit. Passing nil detaches it.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// Unit floods a single operation. The zero value is not usable; create units
// with NewUnit. All methods are safe for concurrent use.
type Unit[T any] struct {
	target     string
	name       string
	workers    int
	iterations int
	grace      time.Duration
	op         Operation[T]
	metrics    *Metrics

	mu      sync.Mutex
	state   State
	marshal *marshal
	// owned marks the unit as composite-built; direct lifecycle calls are
	// rejected and the composite drives it through the owned entry points.
	owned bool
}

// NewUnit creates a closed unit flooding op against the named target. The
// target string is free-form context for logs and introspection. Without
// options the unit runs DefaultWorkers workers of DefaultIterations
// invocations each.
func NewUnit[T any](target string, op Operation[T], opts ...Option) (*Unit[T], error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil operation", ErrConfig)
	}
	s := settings{
		workers:    DefaultWorkers,
		iterations: DefaultIterations,
		grace:      DefaultGracePeriod,
	}
	for _, o := range opts {
		o(&s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if s.name == "" {
		s.name = generatedName()
	}
	return &Unit[T]{
		target:     target,
		name:       s.name,
		workers:    s.workers,
		iterations: s.iterations,
		grace:      s.grace,
		op:         op,
		metrics:    s.metrics,
		state:      StateClosed,
	}, nil
}

func generatedName() string {
	return "flood-" + uuid.NewString()[:8]
}

// Open allocates the unit's worker pool. The unit must be CLOSED.
func (u *Unit[T]) Open(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.owned {
		return fmt.Errorf("%w: open on unit %q", ErrOwned, u.name)
	}
	if u.state != StateClosed {
		return fmt.Errorf("%w: open requires CLOSED, unit %q is %s", ErrState, u.name, u.state)
	}
	u.marshal = newMarshal(ctx, u.workers, u.grace, false)
	u.state = StateOpened
	log.Debugf("flood unit %q opened: target=%s, workers=%d, iterations=%d", u.name, u.target, u.workers, u.iterations)
	return nil
}

// Flood dispatches one task per worker and blocks until every worker has
// finished its iterations or ctx is done. The unit must be OPENED; it is
// FLOODED afterwards and needs a close/open cycle before it can flood again.
//
// The returned slice holds one Outcome per dispatched worker, in completion
// order. Individual invocation failures do not fail the flood; they are
// logged, counted and folded into the worker's Outcome. When ctx expires
// first, the outcomes collected so far are returned and the remaining
// workers keep running until the unit is closed.
func (u *Unit[T]) Flood(ctx context.Context) ([]Outcome[T], error) {
	u.mu.Lock()
	if u.owned {
		u.mu.Unlock()
		return nil, fmt.Errorf("%w: flood on unit %q", ErrOwned, u.name)
	}
	run, err := u.dispatch()
	u.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return u.await(ctx, run)
}

// FloodTimeout is Flood with an upper bound on the wait. The bound does not
// stop the workers; it only caps how long the call blocks for results.
func (u *Unit[T]) FloodTimeout(ctx context.Context, d time.Duration) ([]Outcome[T], error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return u.Flood(ctx)
}

// floodRun collects the outcomes of one flood. The results channel is sized
// for every dispatched worker so sends never block, even after the waiter
// gave up.
type floodRun[T any] struct {
	results  chan Outcome[T]
	expected int
	poolDone <-chan struct{}
}

// dispatch validates the state, submits one task per worker and moves the
// unit to FLOODED. Callers hold u.mu.
func (u *Unit[T]) dispatch() (*floodRun[T], error) {
	if u.state != StateOpened {
		return nil, fmt.Errorf("%w: flood requires OPENED, unit %q is %s", ErrState, u.name, u.state)
	}
	run := &floodRun[T]{
		results:  make(chan Outcome[T], u.workers),
		expected: u.workers,
		poolDone: u.marshal.done(),
	}
	for w := 0; w < u.workers; w++ {
		w := w
		err := u.marshal.submit(func(poolCtx context.Context) {
			run.results <- u.runWorker(poolCtx, w)
		})
		if err != nil {
			log.Errorf("flood unit %q: dispatch of worker %d refused: %v", u.name, w, err)
			run.expected--
		}
	}
	u.state = StateFlooded
	log.Debugf("flood unit %q: dispatched %d workers", u.name, run.expected)
	return run, nil
}

// await gathers outcomes until every dispatched worker reported, ctx ran
// out, or the pool died underneath the flood.
func (u *Unit[T]) await(ctx context.Context, run *floodRun[T]) ([]Outcome[T], error) {
	out := make([]Outcome[T], 0, run.expected)
	for len(out) < run.expected {
		select {
		case o := <-run.results:
			out = append(out, o)
		case <-ctx.Done():
			log.Errorf("flood unit %q: wait ended after %d/%d workers: %v", u.name, len(out), run.expected, ctx.Err())
			return out, nil
		case <-run.poolDone:
			// drain whatever made it into the buffer before the pool went away
			for {
				select {
				case o := <-run.results:
					out = append(out, o)
					if len(out) == run.expected {
						return out, nil
					}
				default:
					log.Errorf("flood unit %q: pool terminated after %d/%d workers", u.name, len(out), run.expected)
					return out, nil
				}
			}
		}
	}
	log.Infof("flood unit %q: flood complete, %d workers finished", u.name, len(out))
	return out, nil
}

// runWorker executes the worker's sequential invocations and returns its
// Outcome. A canceled pool context stops the loop between invocations.
func (u *Unit[T]) runWorker(ctx context.Context, worker int) Outcome[T] {
	o := Outcome[T]{Worker: worker}
	u.metrics.workerUp(u.name)
	defer u.metrics.workerDown(u.name)
	for i := 0; i < u.iterations; i++ {
		if ctx.Err() != nil {
			log.Debugf("flood unit %q: worker %d stopped after %d/%d iterations: %v", u.name, worker, i, u.iterations, ctx.Err())
			break
		}
		v, err := u.invoke(ctx)
		if err != nil {
			o.Err = err
			o.Failures++
			u.metrics.failed(u.name)
			log.Errorf("flood unit %q: worker %d iteration %d/%d failed: %v", u.name, worker, i+1, u.iterations, err)
			continue
		}
		o.Value = v
		o.Successes++
	}
	return o
}

// invoke runs a single operation call. Panics out of the operation are
// turned into errors so a broken target cannot take a pool worker down.
func (u *Unit[T]) invoke(ctx context.Context) (v T, err error) {
	start := time.Now()
	defer func() {
		u.metrics.observe(u.name, time.Since(start))
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panic: %v", r)
		}
	}()
	return u.op(ctx)
}

// Close releases the unit's worker pool, waiting up to the grace period for
// in-flight invocations before terminating them. The unit must be OPENED or
// FLOODED and is CLOSED afterwards, ready for another open.
func (u *Unit[T]) Close(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.owned {
		return fmt.Errorf("%w: close on unit %q", ErrOwned, u.name)
	}
	return u.close(ctx)
}

// close expects u.mu held.
func (u *Unit[T]) close(ctx context.Context) error {
	switch u.state {
	case StateOpened, StateFlooded:
	default:
		return fmt.Errorf("%w: close requires OPENED or FLOODED, unit %q is %s", ErrState, u.name, u.state)
	}
	u.marshal.release(ctx, fmt.Sprintf("flood unit %q", u.name))
	u.marshal = nil
	u.state = StateClosed
	log.Debugf("flood unit %q closed", u.name)
	return nil
}

// ForceClose terminates the pool and moves the unit to CLOSED without
// waiting for anything. It is safe in any state, including CLOSED.
func (u *Unit[T]) ForceClose() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.owned {
		return fmt.Errorf("%w: force close on unit %q", ErrOwned, u.name)
	}
	u.forceClose()
	return nil
}

// forceClose expects u.mu held.
func (u *Unit[T]) forceClose() {
	if u.marshal != nil {
		u.marshal.terminate()
		u.marshal = nil
	}
	if u.state != StateClosed {
		log.Debugf("flood unit %q force closed from %s", u.name, u.state)
		u.state = StateClosed
	}
}

// adopt hands the unit an external marshal and opens it. Called by the
// owning composite with its shared pool.
func (u *Unit[T]) adopt(m *marshal) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != StateClosed {
		return fmt.Errorf("%w: open requires CLOSED, unit %q is %s", ErrState, u.name, u.state)
	}
	u.marshal = m
	u.state = StateOpened
	log.Debugf("flood unit %q opened on shared pool: workers=%d, iterations=%d", u.name, u.workers, u.iterations)
	return nil
}

// floodOwned is the composite's flood entry point, bypassing the ownership
// guard.
func (u *Unit[T]) floodOwned(ctx context.Context) ([]Outcome[T], error) {
	u.mu.Lock()
	run, err := u.dispatch()
	u.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return u.await(ctx, run)
}

// releaseOwned drops the external marshal and moves the unit to CLOSED. The
// shared pool itself is the composite's to wind down.
func (u *Unit[T]) releaseOwned() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state == StateClosed {
		return
	}
	u.marshal = nil
	u.state = StateClosed
	log.Debugf("flood unit %q released by composite", u.name)
}

// State returns the unit's lifecycle state.
func (u *Unit[T]) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Name returns the unit name.
func (u *Unit[T]) Name() string { return u.name }

// Target returns the free-form target description the unit was built with.
func (u *Unit[T]) Target() string { return u.target }

// Workers returns the configured worker count.
func (u *Unit[T]) Workers() int { return u.workers }

// Iterations returns the configured invocations per worker.
func (u *Unit[T]) Iterations() int { return u.iterations }

// Describe renders the unit's configuration and state on one line, e.g.
//
//	state=OPENED,flood-workers=5,flood-iterations=5,flood-marshal=Internal
func (u *Unit[T]) Describe() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return fmt.Sprintf("state=%s,flood-workers=%d,flood-iterations=%d,flood-marshal=%s",
		u.state, u.workers, u.iterations, u.marshalKind())
}

func (u *Unit[T]) marshalKind() string {
	if u.owned {
		return "External"
	}
	return "Internal"
}
