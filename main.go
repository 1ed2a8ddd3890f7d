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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"net/http"
	_ "net/http/pprof"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/sdcio/flood-harness/pkg/config"
	"github.com/sdcio/flood-harness/pkg/runner"
	"github.com/sdcio/flood-harness/pkg/target"
)

var configFile string
var debug bool
var trace bool

var versionFlag bool
var version = "dev"
var commit = ""

func main() {
	pflag.StringVarP(&configFile, "config", "c", "", "config file path")
	pflag.BoolVarP(&debug, "debug", "d", false, "set log level to DEBUG")
	pflag.BoolVarP(&trace, "trace", "t", false, "set log level to TRACE")
	pflag.BoolVarP(&versionFlag, "version", "v", false, "print version")
	pflag.Parse()

	if versionFlag {
		fmt.Println(version + "-" + commit)
		return
	}

	if debug {
		log.SetLevel(log.DebugLevel)
	}
	if trace {
		log.SetLevel(log.TraceLevel)
	}

	go func() {
		log.Infof("pprof server started on localhost:6060")
		err := http.ListenAndServe("localhost:6060", nil)
		if err != nil {
			log.Errorf("pprof server failed: %v", err)
		}
	}()

	log.Infof("flood-harness bootstrap: version=%s, commit=%s", version, commit)

	cfg, err := config.New(configFile)
	if err != nil {
		log.Errorf("failed to read config: %v", err)
		os.Exit(1)
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		log.Errorf("failed to marshal config: %v", err)
		os.Exit(1)
	}
	log.Infof("read config:\n%s", string(b))

	ctx, cancel := context.WithCancel(context.Background())
	setupCloseHandler(cancel)

	caller, err := target.New(cfg.Target)
	if err != nil {
		log.Errorf("failed to create target: %v", err)
		os.Exit(1)
	}
	r, err := runner.New(cfg, caller)
	if err != nil {
		log.Errorf("failed to assemble floods: %v", err)
		os.Exit(1)
	}
	go r.ServeMetrics()

	sums, err := r.Run(ctx)
	if err != nil {
		log.Errorf("flood run failed: %v", err)
		os.Exit(1)
	}
	for _, s := range sums {
		fmt.Println(s)
	}

	if cfg.Prometheus != nil {
		log.Infof("run complete, serving metrics on %s until interrupted", cfg.Prometheus.Address)
		<-ctx.Done()
	}
}

func setupCloseHandler(cancelFn context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-c
		fmt.Fprintf(os.Stderr, "\nreceived signal '%s'. terminating...\n", sig.String())
		cancelFn()
		time.Sleep(500 * time.Millisecond)
		os.Exit(0)
	}()
}
