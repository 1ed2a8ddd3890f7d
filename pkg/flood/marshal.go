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
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sdcio/flood-harness/pkg/pool"
)

// marshal couples a worker pool with its ownership mode. An internal marshal
// is created and torn down by the unit it serves; an external marshal belongs
// to a composite and is shared by all of its members, which must leave the
// pool alone when they close.
type marshal struct {
	pool     *pool.Pool
	grace    time.Duration
	external bool
}

func newMarshal(ctx context.Context, workers int, grace time.Duration, external bool) *marshal {
	return &marshal{
		pool:     pool.New(ctx, workers),
		grace:    grace,
		external: external,
	}
}

func (m *marshal) kind() string {
	if m.external {
		return "External"
	}
	return "Internal"
}

func (m *marshal) submit(t pool.Task) error {
	return m.pool.Submit(t)
}

// done reports pool death. The channel closes once the pool's run context is
// canceled, whether by a forced termination or by post-drain cleanup.
func (m *marshal) done() <-chan struct{} {
	return m.pool.Done()
}

// release winds the pool down on behalf of a unit. External pools are the
// owning composite's to release, so the call is a no-op for them.
func (m *marshal) release(ctx context.Context, scope string) {
	if m.external {
		return
	}
	m.shutdown(ctx, scope)
}

// terminate kills the pool on behalf of a unit, with the same ownership rule
// as release.
func (m *marshal) terminate() {
	if m.external {
		return
	}
	m.destroy()
}

// shutdown drains the pool, waiting up to the grace period for in-flight
// work before escalating to a forced termination. Only the actual pool owner
// may call it.
func (m *marshal) shutdown(ctx context.Context, scope string) {
	if active := m.pool.Active(); active > 0 {
		log.Debugf("%s: %d tasks still active at close, waiting up to %s", scope, active, m.grace)
	}
	if forced := m.pool.Shutdown(ctx, m.grace); forced {
		log.Errorf("%s: workers still active after %s grace period, pool terminated", scope, m.grace)
	}
}

// destroy kills the pool immediately. Only the actual pool owner may call it.
func (m *marshal) destroy() {
	m.pool.Terminate()
}
