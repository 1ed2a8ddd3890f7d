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
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Composite floods a fixed set of units together over one shared worker
// pool, sized to the sum of the member worker counts so every worker of
// every unit runs concurrently. The member set is immutable once built; the
// composite owns the members' lifecycle and the members reject direct
// lifecycle calls.
//
// Create composites with a Builder. All methods are safe for concurrent use.
type Composite[T any] struct {
	target string
	units  []*Unit[T]
	grace  time.Duration

	mu      sync.Mutex
	state   State
	marshal *marshal
}

// Open allocates the shared pool and opens every member. It is all or
// nothing: if any member cannot be opened, none are and the pool is torn
// down again. The composite must be CLOSED.
func (c *Composite[T]) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		return fmt.Errorf("%w: open requires CLOSED, composite %q is %s", ErrState, c.target, c.state)
	}
	for _, u := range c.units {
		if st := u.State(); st != StateClosed {
			return fmt.Errorf("%w: open requires every member CLOSED, unit %q is %s", ErrState, u.Name(), st)
		}
	}
	m := newMarshal(ctx, c.TotalWorkers(), c.grace, true)
	for _, u := range c.units {
		if err := u.adopt(m); err != nil {
			for _, v := range c.units {
				v.releaseOwned()
			}
			m.destroy()
			return err
		}
	}
	c.marshal = m
	c.state = StateOpened
	log.Infof("flood composite %q opened: units=%d, workers=%d", c.target, len(c.units), c.TotalWorkers())
	return nil
}

// Flood dispatches every member at once and blocks until all of them have
// gathered their outcomes or ctx is done. The composite must be OPENED; it
// is FLOODED afterwards.
//
// The result maps unit name to that unit's outcomes. A ctx that runs out
// leaves each unit's entry holding whatever its workers reported in time.
func (c *Composite[T]) Flood(ctx context.Context) (map[string][]Outcome[T], error) {
	c.mu.Lock()
	if c.state != StateOpened {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: flood requires OPENED, composite %q is %s", ErrState, c.target, c.state)
	}
	c.state = StateFlooded
	c.mu.Unlock()

	var (
		resMu sync.Mutex
		res   = make(map[string][]Outcome[T], len(c.units))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, u := range c.units {
		u := u
		g.Go(func() error {
			outs, err := u.floodOwned(gctx)
			if err != nil {
				return fmt.Errorf("unit %q: %w", u.Name(), err)
			}
			resMu.Lock()
			res[u.Name()] = outs
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	log.Infof("flood composite %q: %d units flooded", c.target, len(res))
	return res, nil
}

// FloodTimeout is Flood with an upper bound on the wait, applied to the
// composite as a whole. Workers past the bound keep running until Close.
func (c *Composite[T]) FloodTimeout(ctx context.Context, d time.Duration) (map[string][]Outcome[T], error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return c.Flood(ctx)
}

// Close closes every member and winds the shared pool down, waiting up to
// the grace period for in-flight invocations before terminating them. The
// composite must be OPENED or FLOODED and is CLOSED afterwards.
func (c *Composite[T]) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateOpened, StateFlooded:
	default:
		return fmt.Errorf("%w: close requires OPENED or FLOODED, composite %q is %s", ErrState, c.target, c.state)
	}
	for _, u := range c.units {
		u.releaseOwned()
	}
	c.marshal.shutdown(ctx, fmt.Sprintf("flood composite %q", c.target))
	c.marshal = nil
	c.state = StateClosed
	log.Infof("flood composite %q closed", c.target)
	return nil
}

// ForceClose terminates the shared pool and closes every member without
// waiting. It is safe in any state, including CLOSED.
func (c *Composite[T]) ForceClose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.units {
		u.releaseOwned()
	}
	if c.marshal != nil {
		c.marshal.destroy()
		c.marshal = nil
	}
	if c.state != StateClosed {
		log.Debugf("flood composite %q force closed from %s", c.target, c.state)
		c.state = StateClosed
	}
	return nil
}

// State returns the composite's lifecycle state.
func (c *Composite[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Target returns the free-form target description the composite was built
// with.
func (c *Composite[T]) Target() string { return c.target }

// Size returns the number of member units.
func (c *Composite[T]) Size() int { return len(c.units) }

// Members returns the member units in build order. The slice is a copy; the
// units themselves stay composite-owned and reject direct lifecycle calls.
func (c *Composite[T]) Members() []*Unit[T] {
	members := make([]*Unit[T], 0, len(c.units))
	members = append(members, c.units...)
	return members
}

// TotalWorkers returns the summed worker count of all members, which is also
// the size of the shared pool.
func (c *Composite[T]) TotalWorkers() int {
	total := 0
	for _, u := range c.units {
		total += u.Workers()
	}
	return total
}

// TotalIterations returns the summed per-worker iteration count of all
// members.
func (c *Composite[T]) TotalIterations() int {
	total := 0
	for _, u := range c.units {
		total += u.Iterations()
	}
	return total
}

// AverageIterations returns the mean iteration count per member.
func (c *Composite[T]) AverageIterations() float64 {
	if len(c.units) == 0 {
		return 0
	}
	return float64(c.TotalIterations()) / float64(len(c.units))
}

// Describe renders the composite's configuration and state on one line, in
// the same shape as Unit.Describe.
func (c *Composite[T]) Describe() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("state=%s,flood-units=%d,flood-workers=%d,flood-iterations=%d,flood-marshal=External",
		c.state, len(c.units), c.TotalWorkers(), c.TotalIterations())
}
