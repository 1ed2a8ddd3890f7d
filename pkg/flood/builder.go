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
	"fmt"
	"time"
)

// Builder stages unit definitions for a Composite. Definitions are only
// validated at Build, so a Builder can be filled without error handling and
// reports everything wrong at once. Builders are not safe for concurrent
// use; the built Composite is.
type Builder[T any] struct {
	target  string
	grace   time.Duration
	metrics *Metrics
	defs    []unitDef[T]
}

type unitDef[T any] struct {
	op   Operation[T]
	opts []Option
}

// NewBuilder creates an empty builder for a composite flooding the named
// target.
func NewBuilder[T any](target string) *Builder[T] {
	return &Builder[T]{
		target: target,
		grace:  DefaultGracePeriod,
	}
}

// WithUnit stages one member unit flooding op. Options apply to that unit
// only and override the builder-wide settings.
func (b *Builder[T]) WithUnit(op Operation[T], opts ...Option) *Builder[T] {
	b.defs = append(b.defs, unitDef[T]{op: op, opts: opts})
	return b
}

// WithGracePeriod sets the close grace period for the composite and the
// default for members that do not set their own.
func (b *Builder[T]) WithGracePeriod(d time.Duration) *Builder[T] {
	b.grace = d
	return b
}

// WithMetrics attaches a metric set to every member that does not set its
// own.
func (b *Builder[T]) WithMetrics(m *Metrics) *Builder[T] {
	b.metrics = m
	return b
}

// Build validates the staged definitions and returns an immutable, CLOSED
// composite owning one unit per staged definition. At least one unit is
// required, every operation must be non-nil with positive counts, and unit
// names must be unique within the composite.
func (b *Builder[T]) Build() (*Composite[T], error) {
	if len(b.defs) == 0 {
		return nil, fmt.Errorf("%w: composite requires at least one unit", ErrConfig)
	}
	if b.grace <= 0 {
		return nil, fmt.Errorf("%w: grace period must be positive, got %s", ErrConfig, b.grace)
	}
	units := make([]*Unit[T], 0, len(b.defs))
	names := make(map[string]struct{}, len(b.defs))
	for i, def := range b.defs {
		opts := make([]Option, 0, len(def.opts)+2)
		opts = append(opts, WithGracePeriod(b.grace), WithMetrics(b.metrics))
		opts = append(opts, def.opts...)
		u, err := NewUnit(b.target, def.op, opts...)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		if _, dup := names[u.Name()]; dup {
			return nil, fmt.Errorf("%w: duplicate unit name %q", ErrConfig, u.Name())
		}
		names[u.Name()] = struct{}{}
		u.owned = true
		units = append(units, u)
	}
	return &Composite[T]{
		target: b.target,
		units:  units,
		grace:  b.grace,
		state:  StateClosed,
	}, nil
}
