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
	"flag"
	"fmt"
	"os"
)

var (
	flagVersion     = flag.Bool("version", false, "Print version information and quit.")
	flagConfigFile  = flag.String("config", "", "Path to the engine's YAML configuration file.")
	flagLogLevel    = flag.String("loglevel", "", "Override the configured log level (debug, info, warn, error).")
	flagNumCPU      = flag.Int("numcpu", 0, "Number of CPUs to use. Set 0 to use every core via automaxprocs.")
	flagMetricsPort = flag.Int("metrics", 0, "Port for the legacy plaintext metrics dump. Set 0 to disable.")
	flagPidFile     = flag.String("pidfile", "", "Write the process id into a given file.")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stdout, "Usage: kinesis-mock [OPTIONS]")
		fmt.Fprintln(os.Stdout, "\nAn in-process emulator of AWS Kinesis Data Streams.")
		fmt.Fprintln(os.Stdout, "\nOptions:")
		flag.CommandLine.SetOutput(os.Stdout)
		flag.PrintDefaults()
	}
}
