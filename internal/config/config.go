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

// Package config loads the engine's YAML configuration file, the way
// the teacher's shared.Config loaded plugin configuration, but onto a
// plain typed struct instead of a plugin/tag reader - this engine has
// one configuration shape, not one per plugin class.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"
)

// PersistConfig controls whether and where the engine's state is
// snapshotted to disk.
type PersistConfig struct {
	ShouldPersist bool          `yaml:"shouldPersist"`
	Interval      time.Duration `yaml:"interval"`
	Path          string        `yaml:"path"`
	LoadIfExists  bool          `yaml:"loadIfExists"`
	UseRedis      bool          `yaml:"useRedis"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisKey      string        `yaml:"redisKey"`
}

// InitialStream is one entry of the boot-time pre-init list: a stream
// to create before the server starts accepting traffic.
type InitialStream struct {
	Region     string `yaml:"region"`
	StreamName string `yaml:"streamName"`
	ShardCount int    `yaml:"shardCount"`
}

// Config is the engine's full runtime configuration, loaded once at
// startup from a YAML file named by the -config flag.
type Config struct {
	AWSAccountID string `yaml:"awsAccountId"`
	AWSRegion    string `yaml:"awsRegion"`

	PlainPort int `yaml:"plainPort"`
	TLSPort   int `yaml:"tlsPort"`
	TLSCert   string `yaml:"tlsCert"`
	TLSKey    string `yaml:"tlsKey"`

	PrometheusPort int `yaml:"prometheusPort"`

	CreateStreamDuration time.Duration `yaml:"createStreamDuration"`
	DeleteStreamDuration time.Duration `yaml:"deleteStreamDuration"`
	UpdateStreamDuration time.Duration `yaml:"updateStreamDuration"`

	ShardLimit               int `yaml:"shardLimit"`
	OnDemandStreamCountLimit int `yaml:"onDemandStreamCountLimit"`

	InitializationConcurrency int `yaml:"initializationConcurrency"`

	InitializeStreams []InitialStream `yaml:"initializeStreams"`

	Persist PersistConfig `yaml:"persist"`

	LogLevel string `yaml:"logLevel"`
}

// Default returns the configuration spec.md §6 names as defaults.
func Default() Config {
	return Config{
		AWSAccountID: "000000000000",
		AWSRegion:    "us-east-1",

		PlainPort: 4567,
		TLSPort:   4568,

		PrometheusPort: 9567,

		CreateStreamDuration: 500 * time.Millisecond,
		DeleteStreamDuration: 500 * time.Millisecond,
		UpdateStreamDuration: 500 * time.Millisecond,

		ShardLimit:               50,
		OnDemandStreamCountLimit: 10,

		InitializationConcurrency: 5,

		Persist: PersistConfig{
			Path:     "kinesis-mock.state",
			Interval: 5 * time.Second,
		},

		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file, applying it on top of
// Default so an omitted key keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
