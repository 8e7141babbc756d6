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

package snapshot

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/trivago/kinesis-mock/internal/cache"
)

// SaveFile writes e's snapshot to path, via a temp file in the same
// directory followed by a rename, so a reader (or a crash mid-write)
// never observes a half-written snapshot.
func SaveFile(e *cache.Engine, path string) error {
	data, err := Marshal(e)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("snapshot: rename temp file: %w", err)
	}
	return nil
}

// LoadFile restores e from a snapshot written by SaveFile. A missing
// file is not an error: a fresh deployment with no prior snapshot just
// starts empty.
func LoadFile(e *cache.Engine, path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Unmarshal(e, data)
}
