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

// Package pool implements the fixed-size worker pool behind a flood marshal.
// Tasks are self-contained closures; failure handling is the submitter's
// business. The pool only accounts for task lifetimes so that a shutdown can
// tell an idle pool from one with work still in flight.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Submit once the pool no longer accepts tasks.
var ErrClosed = errors.New("pool closed for submit")

// Task is a unit of work executed by a pool worker. The context passed in is
// the pool's run context: it is canceled on forced termination and tasks are
// expected to return early once that happens.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool fed by a single MPMC queue.
// Workers start with New and exit when the queue is closed and drained.
type Pool struct {
	workers int

	ctx    context.Context
	cancel context.CancelFunc

	tasks *Queue[Task]

	workersWg sync.WaitGroup

	// inflight counts submitted tasks not yet finished (queued + running).
	inflight        atomic.Int64
	closedForSubmit atomic.Bool

	// drained is closed once the pool is closed for submit and inflight
	// reached zero.
	drained   chan struct{}
	drainOnce sync.Once

	termOnce sync.Once
}

// New creates a pool with the given number of worker goroutines and starts
// them immediately. The caller validates workers >= 1.
func New(parent context.Context, workers int) *Pool {
	ctx, cancel := context.WithCancel(parent)
	p := &Pool{
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
		tasks:   NewQueue[Task](),
		drained: make(chan struct{}),
	}
	p.workersWg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.workersWg.Done()
	for {
		t, ok := p.tasks.Get()
		if !ok {
			// queue closed and drained
			return
		}
		// terminated pools drop queued tasks without running them
		if p.ctx.Err() != nil {
			p.finish()
			continue
		}
		p.run(t)
	}
}

func (p *Pool) run(t Task) {
	// the inflight counter must drop even if the task panics
	defer p.finish()
	t(p.ctx)
}

// Submit enqueues a task for execution. It returns ErrClosed once the pool
// has been shut down or terminated.
func (p *Pool) Submit(t Task) error {
	// Increment inflight BEFORE the closed check so a concurrent Shutdown
	// cannot observe zero inflight while a submission is in progress.
	p.inflight.Add(1)
	if p.closedForSubmit.Load() || p.ctx.Err() != nil {
		p.finish()
		return ErrClosed
	}
	if err := p.tasks.Put(t); err != nil {
		p.finish()
		return ErrClosed
	}
	return nil
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Active returns a snapshot of submitted tasks that have not finished yet.
func (p *Pool) Active() int { return int(p.inflight.Load()) }

// Done exposes the pool's run context. The returned channel closes once the
// pool is gone, either terminated or cleaned up after a drain, letting result
// collectors stop waiting for tasks that will never run.
func (p *Pool) Done() <-chan struct{} { return p.ctx.Done() }

func (p *Pool) finish() {
	if p.inflight.Add(-1) == 0 && p.closedForSubmit.Load() {
		p.drainOnce.Do(func() { close(p.drained) })
	}
}

func (p *Pool) closeForSubmit() {
	p.closedForSubmit.Store(true)
	// signal waiters right away if nothing is in flight
	if p.inflight.Load() == 0 {
		p.drainOnce.Do(func() { close(p.drained) })
	}
}

// Shutdown stops accepting tasks and waits for in-flight work to drain. If
// the pool does not drain within grace, or ctx is done first, the pool is
// terminated and Shutdown reports true. A false return means the pool went
// down clean with every worker exited.
func (p *Pool) Shutdown(ctx context.Context, grace time.Duration) (forced bool) {
	p.closeForSubmit()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.drained:
		p.tasks.Close()
		p.workersWg.Wait()
		p.cancel()
		return false
	case <-timer.C:
	case <-ctx.Done():
	}
	p.Terminate()
	return true
}

// Terminate cancels the run context and closes the queue. Queued tasks are
// dropped; a running task keeps its goroutine until it honors the canceled
// context. Safe to call from any state, any number of times.
func (p *Pool) Terminate() {
	p.termOnce.Do(func() {
		p.closeForSubmit()
		p.cancel()
		p.tasks.Close()
	})
}
