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

package target

import (
	"context"
	"fmt"
	"time"

	"github.com/sdcio/flood-harness/pkg/config"
)

// sleepCaller simulates a target with a fixed latency. It honors context
// cancellation, so a forced close releases its workers immediately.
type sleepCaller struct {
	duration time.Duration
}

func newSleepCaller(cfg *config.TargetConfig) *sleepCaller {
	return &sleepCaller{duration: cfg.Duration}
}

func (s *sleepCaller) Call(ctx context.Context) (string, error) {
	t := time.NewTimer(s.duration)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("slept %s", s.duration), nil
}

func (s *sleepCaller) Name() string { return "sleep " + s.duration.String() }
