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

package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_SubmitAndDrain(t *testing.T) {
	p := New(context.Background(), 4)

	const tasks = 100
	var cnt int64
	for i := 0; i < tasks; i++ {
		err := p.Submit(func(ctx context.Context) {
			atomic.AddInt64(&cnt, 1)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	forced := p.Shutdown(context.Background(), 5*time.Second)
	if forced {
		t.Fatalf("expected clean shutdown, got forced")
	}
	if got := atomic.LoadInt64(&cnt); got != tasks {
		t.Fatalf("expected %d tasks executed, got %d", tasks, got)
	}
	if got := p.Active(); got != 0 {
		t.Fatalf("expected 0 active after shutdown, got %d", got)
	}
}

func TestPool_ShutdownForced(t *testing.T) {
	p := New(context.Background(), 1)

	released := make(chan struct{})
	err := p.Submit(func(ctx context.Context) {
		// hold the worker until the pool gets terminated
		<-ctx.Done()
		close(released)
	})
	if err != nil {
		t.Fatal(err)
	}

	forced := p.Shutdown(context.Background(), 50*time.Millisecond)
	if !forced {
		t.Fatalf("expected forced shutdown")
	}

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("terminate did not release the blocked task")
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p := New(context.Background(), 2)
	if forced := p.Shutdown(context.Background(), time.Second); forced {
		t.Fatalf("expected clean shutdown of idle pool")
	}
	err := p.Submit(func(ctx context.Context) {})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPool_TerminateDropsQueued(t *testing.T) {
	p := New(context.Background(), 1)

	started := make(chan struct{})
	var ran int64
	err := p.Submit(func(ctx context.Context) {
		atomic.AddInt64(&ran, 1)
		close(started)
		<-ctx.Done()
	})
	if err != nil {
		t.Fatal(err)
	}
	<-started

	// these stay queued behind the blocked worker
	for i := 0; i < 5; i++ {
		if err := p.Submit(func(ctx context.Context) {
			atomic.AddInt64(&ran, 1)
		}); err != nil {
			t.Fatal(err)
		}
	}

	p.Terminate()

	// give the worker time to drain the dropped tasks
	deadline := time.Now().Add(time.Second)
	for p.Active() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pool did not drain after terminate, active=%d", p.Active())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := atomic.LoadInt64(&ran); got != 1 {
		t.Fatalf("expected only the blocked task to run, got %d", got)
	}
}

func TestPool_ShutdownHonorsContext(t *testing.T) {
	p := New(context.Background(), 1)
	if err := p.Submit(func(ctx context.Context) { <-ctx.Done() }); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan bool, 1)
	go func() { done <- p.Shutdown(ctx, time.Hour) }()

	select {
	case forced := <-done:
		if !forced {
			t.Fatalf("expected forced shutdown on canceled context")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return after context cancellation")
	}
}

func TestPool_WorkersSubmitConcurrently(t *testing.T) {
	p := New(context.Background(), 8)

	const producers = 8
	const perProducer = 1000
	var cnt int64

	errs := make(chan error, producers)
	for i := 0; i < producers; i++ {
		go func() {
			for j := 0; j < perProducer; j++ {
				if err := p.Submit(func(ctx context.Context) {
					atomic.AddInt64(&cnt, 1)
				}); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}()
	}
	for i := 0; i < producers; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}

	if forced := p.Shutdown(context.Background(), 10*time.Second); forced {
		t.Fatalf("expected clean shutdown")
	}
	if got := atomic.LoadInt64(&cnt); got != producers*perProducer {
		t.Fatalf("expected %d executions, got %d", producers*perProducer, got)
	}
}
