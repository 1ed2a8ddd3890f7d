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

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/AlekSi/pointer"
)

const (
	TargetHTTP    = "http"
	TargetSleep   = "sleep"
	TargetCounter = "counter"

	httpGET  = "GET"
	httpPOST = "POST"
)

type FloodConfig struct {
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
	// number of concurrent workers; nil means the default
	Workers *int `yaml:"workers,omitempty" json:"workers,omitempty"`
	// invocations per worker; nil means the default
	Iterations *int `yaml:"iterations,omitempty" json:"iterations,omitempty"`
}

func (f *FloodConfig) validateSetDefaults() error {
	if f.Workers == nil {
		f.Workers = pointer.ToInt(defaultWorkers)
	}
	if pointer.GetInt(f.Workers) <= 0 {
		return fmt.Errorf("flood %q: workers must be positive, got %d", f.Name, pointer.GetInt(f.Workers))
	}
	if f.Iterations == nil {
		f.Iterations = pointer.ToInt(defaultIterations)
	}
	if pointer.GetInt(f.Iterations) <= 0 {
		return fmt.Errorf("flood %q: iterations must be positive, got %d", f.Name, pointer.GetInt(f.Iterations))
	}
	return nil
}

// WorkerCount returns the effective worker count after defaulting.
func (f *FloodConfig) WorkerCount() int { return pointer.GetInt(f.Workers) }

// IterationCount returns the effective invocations per worker after
// defaulting.
func (f *FloodConfig) IterationCount() int { return pointer.GetInt(f.Iterations) }

type TargetConfig struct {
	// target type, one of: http, sleep, counter
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
	// http target attr
	Address string        `yaml:"address,omitempty" json:"address,omitempty"`
	Method  string        `yaml:"method,omitempty" json:"method,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	TLS     *TLS          `yaml:"tls,omitempty" json:"tls,omitempty"`
	// sleep target attr
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
}

func (tc *TargetConfig) validateSetDefaults() error {
	switch tc.Type {
	case "":
		tc.Type = TargetSleep
	case TargetHTTP:
		if tc.Address == "" {
			return errors.New("missing http target address")
		}
		switch tc.Method {
		case "":
			tc.Method = httpGET
		case httpGET, httpPOST:
		default:
			return fmt.Errorf("unknown http method: %s. Must be one of %s, %s",
				tc.Method, httpGET, httpPOST)
		}
		if tc.Timeout <= 0 {
			tc.Timeout = defaultHTTPTimeout
		}
	case TargetSleep:
	case TargetCounter:
	default:
		return fmt.Errorf("unknown target type: %q", tc.Type)
	}

	if tc.Type == TargetSleep && tc.Duration <= 0 {
		tc.Duration = defaultSleepDuration
	}
	return nil
}
