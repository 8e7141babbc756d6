// Copyright 2015-2018 trivago N.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"

	"github.com/trivago/kinesis-mock/internal/config"
	"github.com/trivago/kinesis-mock/internal/logger"
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Printf("kinesis-mock %s\n", GetVersionString())
		return // ### return, version only ###
	}

	cfg, err := config.Load(*flagConfigFile)
	if err != nil {
		fmt.Printf("Config: %s\n", err.Error())
		os.Exit(1)
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}

	logBuffer := logger.Setup(cfg.LogLevel)
	log := logrus.NewEntry(logrus.StandardLogger())
	logBuffer.SetTargetWriter(logger.FallbackLogDevice)
	logBuffer.Purge()

	if *flagNumCPU != 0 {
		runtime.GOMAXPROCS(*flagNumCPU)
	}
	// automaxprocs' init already set GOMAXPROCS to the container's CPU
	// quota when flagNumCPU is left at its default of 0.

	if *flagPidFile != "" {
		ioutil.WriteFile(*flagPidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
	}

	if cfg.PrometheusPort != 0 {
		stopPrometheus := startPrometheusMetricsService(fmt.Sprintf(":%d", cfg.PrometheusPort), log)
		defer stopPrometheus()
	}
	if *flagMetricsPort != 0 {
		startMetricServer(*flagMetricsPort, log)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	co := NewCoordinator(cfg, log)
	if *flagConfigFile != "" {
		go func() {
			err := config.Watch(*flagConfigFile, log, func(reloaded config.Config) {
				if level, err := logrus.ParseLevel(reloaded.LogLevel); err == nil {
					logrus.SetLevel(level)
				}
				co.ReloadStreams(watchCtx, reloaded.InitializeStreams)
			}, watchCtx.Done())
			if err != nil {
				log.WithError(err).Warn("main: config watch failed to start")
			}
		}()
	}

	co.Run()
}
