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

package flood

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuilder_Validation(t *testing.T) {
	t.Run("no units", func(t *testing.T) {
		_, err := NewBuilder[string]("empty").Build()
		require.ErrorIs(t, err, ErrConfig)
	})
	t.Run("nil operation", func(t *testing.T) {
		_, err := NewBuilder[string]("nilop").WithUnit(nil).Build()
		require.ErrorIs(t, err, ErrConfig)
	})
	t.Run("bad unit config", func(t *testing.T) {
		_, err := NewBuilder[string]("badunit").
			WithUnit(okOp, WithWorkers(-1)).
			Build()
		require.ErrorIs(t, err, ErrConfig)
	})
	t.Run("bad grace period", func(t *testing.T) {
		_, err := NewBuilder[string]("badgrace").
			WithGracePeriod(-time.Second).
			WithUnit(okOp).
			Build()
		require.ErrorIs(t, err, ErrConfig)
	})
	t.Run("duplicate names", func(t *testing.T) {
		_, err := NewBuilder[string]("dup").
			WithUnit(okOp, WithName("same")).
			WithUnit(okOp, WithName("same")).
			Build()
		require.ErrorIs(t, err, ErrConfig)
	})
	t.Run("generated names never collide", func(t *testing.T) {
		c, err := NewBuilder[string]("gen").
			WithUnit(okOp).
			WithUnit(okOp).
			Build()
		require.NoError(t, err)
		require.Equal(t, 2, c.Size())
	})
}

func newTestComposite(t *testing.T, op Operation[int]) *Composite[int] {
	t.Helper()
	c, err := NewBuilder[int]("composite").
		WithUnit(op, WithName("a"), WithWorkers(2), WithIterations(2)).
		WithUnit(op, WithName("b"), WithWorkers(1), WithIterations(3)).
		Build()
	require.NoError(t, err)
	return c
}

func TestComposite_Stats(t *testing.T) {
	op := func(ctx context.Context) (int, error) { return 1, nil }
	c := newTestComposite(t, op)

	require.Equal(t, 2, c.Size())
	require.Equal(t, 3, c.TotalWorkers())
	require.Equal(t, 5, c.TotalIterations())
	require.InDelta(t, 2.5, c.AverageIterations(), 1e-9)
	require.Equal(t, "composite", c.Target())
	require.Equal(t, StateClosed, c.State())
	require.Equal(t,
		"state=CLOSED,flood-units=2,flood-workers=3,flood-iterations=5,flood-marshal=External",
		c.Describe())

	members := c.Members()
	require.Len(t, members, 2)
	require.Equal(t, "a", members[0].Name())
	require.Equal(t, "b", members[1].Name())

	// the returned slice is a copy
	members[0] = nil
	require.NotNil(t, c.Members()[0])
}

func TestComposite_MembersRejectDirectLifecycle(t *testing.T) {
	ctx := context.Background()
	op := func(ctx context.Context) (int, error) { return 1, nil }
	c := newTestComposite(t, op)

	u := c.Members()[0]
	require.ErrorIs(t, u.Open(ctx), ErrOwned)
	_, err := u.Flood(ctx)
	require.ErrorIs(t, err, ErrOwned)
	_, err = u.FloodTimeout(ctx, time.Second)
	require.ErrorIs(t, err, ErrOwned)
	require.ErrorIs(t, u.Close(ctx), ErrOwned)
	require.ErrorIs(t, u.ForceClose(), ErrOwned)

	require.Contains(t, u.Describe(), "flood-marshal=External")
}

func TestComposite_FloodCycle(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int64
	op := func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}
	c := newTestComposite(t, op)

	require.NoError(t, c.Open(ctx))
	require.Equal(t, StateOpened, c.State())
	for _, u := range c.Members() {
		require.Equal(t, StateOpened, u.State())
	}

	res, err := c.Flood(ctx)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Len(t, res["a"], 2)
	require.Len(t, res["b"], 1)
	for _, o := range res["a"] {
		require.Equal(t, 2, o.Successes)
		require.Zero(t, o.Failures)
		require.True(t, o.OK())
	}
	require.Equal(t, 3, res["b"][0].Successes)
	require.EqualValues(t, 7, calls.Load())
	require.Equal(t, StateFlooded, c.State())

	require.NoError(t, c.Close(ctx))
	require.Equal(t, StateClosed, c.State())
	for _, u := range c.Members() {
		require.Equal(t, StateClosed, u.State())
	}

	// a closed composite can be opened again
	require.NoError(t, c.Open(ctx))
	_, err = c.Flood(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))
	require.EqualValues(t, 14, calls.Load())
}

func TestComposite_LifecycleErrors(t *testing.T) {
	ctx := context.Background()
	op := func(ctx context.Context) (int, error) { return 1, nil }
	c := newTestComposite(t, op)

	_, err := c.Flood(ctx)
	require.ErrorIs(t, err, ErrState)
	require.ErrorIs(t, c.Close(ctx), ErrState)

	require.NoError(t, c.Open(ctx))
	require.ErrorIs(t, c.Open(ctx), ErrState)

	require.NoError(t, c.ForceClose())
	require.Equal(t, StateClosed, c.State())
	// force close is idempotent
	require.NoError(t, c.ForceClose())
}

func TestComposite_FloodTimeout(t *testing.T) {
	ctx := context.Background()
	stuck := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	c, err := NewBuilder[int]("stuck").
		WithGracePeriod(50 * time.Millisecond).
		WithUnit(stuck, WithName("a"), WithWorkers(2), WithIterations(1)).
		WithUnit(stuck, WithName("b"), WithWorkers(1), WithIterations(1)).
		Build()
	require.NoError(t, err)

	require.NoError(t, c.Open(ctx))
	res, err := c.FloodTimeout(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Empty(t, res["a"])
	require.Empty(t, res["b"])

	start := time.Now()
	require.NoError(t, c.Close(ctx))
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, StateClosed, c.State())
}

func TestComposite_ForceCloseDuringFlood(t *testing.T) {
	ctx := context.Background()
	var started atomic.Int64
	stuck := func(ctx context.Context) (int, error) {
		started.Add(1)
		<-ctx.Done()
		return 0, ctx.Err()
	}
	c, err := NewBuilder[int]("interrupted").
		WithUnit(stuck, WithName("a"), WithWorkers(2), WithIterations(1)).
		WithUnit(stuck, WithName("b"), WithWorkers(2), WithIterations(1)).
		Build()
	require.NoError(t, err)
	require.NoError(t, c.Open(ctx))

	type floodResult struct {
		res map[string][]Outcome[int]
		err error
	}
	done := make(chan floodResult, 1)
	go func() {
		res, err := c.Flood(context.Background())
		done <- floodResult{res: res, err: err}
	}()

	// wait for every worker to be inside its invocation so the force close
	// lands mid-flood, not mid-dispatch
	deadline := time.Now().Add(2 * time.Second)
	for started.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.EqualValues(t, 4, started.Load())
	require.Equal(t, StateFlooded, c.State())

	require.NoError(t, c.ForceClose())
	select {
	case r := <-done:
		require.NoError(t, r.err)
		for name, outs := range r.res {
			require.LessOrEqual(t, len(outs), 2, "unit %s", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("flood did not return after force close")
	}
	require.Equal(t, StateClosed, c.State())
}
