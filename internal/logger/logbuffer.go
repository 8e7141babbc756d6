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
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FallbackLogDevice is where buffered startup log entries are flushed
// if no other writer is ever attached.
var FallbackLogDevice = os.Stdout

// LogrusHookBuffer is a logrus.Hook that pools log entries emitted
// before the engine has finished deciding its final output (whether
// the terminal supports color, what log level configuration asked
// for). Once a target is attached, buffered entries are replayed in
// order and new entries are relayed immediately.
type LogrusHookBuffer struct {
	targetHook   logrus.Hook
	targetWriter io.Writer
	buffer       []*logrus.Entry
}

// NewLogrusHookBuffer returns an empty LogrusHookBuffer.
func NewLogrusHookBuffer() LogrusHookBuffer {
	return LogrusHookBuffer{}
}

// Levels implements logrus.Hook.
func (lhb *LogrusHookBuffer) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (lhb *LogrusHookBuffer) Fire(logrusEntry *logrus.Entry) error {
	if lhb.targetHook == nil && lhb.targetWriter == nil {
		lhb.buffer = append(lhb.buffer, logrusEntry)
		return nil
	}
	return lhb.relayEntry(logrusEntry)
}

// SetTargetHook sets the logrus hook entries are relayed to once attached.
func (lhb *LogrusHookBuffer) SetTargetHook(hook logrus.Hook) {
	lhb.targetHook = hook
}

// SetTargetWriter sets the io.Writer entries are formatted and written to.
func (lhb *LogrusHookBuffer) SetTargetWriter(writer io.Writer) {
	lhb.targetWriter = writer
}

// Purge relays every buffered entry to the current target(s) and
// empties the buffer.
func (lhb *LogrusHookBuffer) Purge() {
	for _, entry := range lhb.buffer {
		lhb.relayEntry(entry)
	}
	lhb.buffer = nil
}

func (lhb *LogrusHookBuffer) relayEntry(entry *logrus.Entry) error {
	if lhb.targetHook != nil {
		if err := lhb.targetHook.Fire(entry); err != nil {
			return err
		}
	}

	if lhb.targetWriter != nil {
		serialized, err := entry.Logger.Formatter.Format(entry)
		if err != nil {
			return fmt.Errorf("logger: serialize entry: %w", err)
		}
		if _, err := lhb.targetWriter.Write(serialized); err != nil {
			return fmt.Errorf("logger: write entry: %w", err)
		}
	}

	return nil
}
