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
	"io"
	"net/http"

	"github.com/sdcio/flood-harness/pkg/config"
)

type httpCaller struct {
	name   string
	method string
	addr   string
	client *http.Client
}

func newHTTPCaller(cfg *config.TargetConfig) (*httpCaller, error) {
	hc := &httpCaller{
		name:   "http " + cfg.Address,
		method: cfg.Method,
		addr:   cfg.Address,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.NewConfig()
		if err != nil {
			return nil, err
		}
		hc.client.Transport = &http.Transport{TLSClientConfig: tlsCfg}
	}
	return hc, nil
}

func (h *httpCaller) Call(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, h.method, h.addr, nil)
	if err != nil {
		return "", err
	}
	rsp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer rsp.Body.Close()
	// drain the body so the connection goes back into the client's pool
	_, _ = io.Copy(io.Discard, rsp.Body)
	if rsp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("unexpected status: %s", rsp.Status)
	}
	return rsp.Status, nil
}

func (h *httpCaller) Name() string { return h.name }
