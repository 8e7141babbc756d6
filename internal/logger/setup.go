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

package logger

import (
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Setup configures the root logrus logger for the given level string
// ("debug", "info", "warn", "error") and returns the startup hook
// buffer: every entry logged before the caller decides where output
// should ultimately go is held here until Purge is called on it.
//
// Colors are only forced when stdout is an actual terminal, the same
// check the teacher's main.go made before picking its console
// formatter - a log redirected to a file or pipe gets plain text.
func Setup(level string) *LogrusHookBuffer {
	log := logrus.StandardLogger()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	out := colorable.NewColorableStdout()
	log.SetOutput(out)

	formatter := NewConsoleFormatter()
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		formatter.DisableColors = true
	}
	log.SetFormatter(formatter)

	buffer := NewLogrusHookBuffer()
	log.AddHook(&buffer)
	return &buffer
}
