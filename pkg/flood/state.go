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

// State is the lifecycle position of a flood unit or composite.
//
// The legal transitions are CLOSED -> OPENED -> FLOODED -> CLOSED, plus
// OPENED -> CLOSED for holders that never flood. A forced close reaches
// CLOSED from any state.
type State int32

const (
	// StateClosed means no worker pool is allocated. It is both the initial
	// and the terminal state; a closed holder can be opened again.
	StateClosed State = iota
	// StateOpened means a worker pool is allocated but no work has been
	// dispatched into it yet.
	StateOpened
	// StateFlooded means work has been dispatched. The only way out is a
	// close; a second flood requires a full close/open cycle.
	StateFlooded
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpened:
		return "OPENED"
	case StateFlooded:
		return "FLOODED"
	default:
		return "UNKNOWN"
	}
}
