// Copyright 2025 Blink Labs Software
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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/governance"
	"github.com/blinklabs-io/anchorage/voting"
)

type ctxKey string

const configContextKey ctxKey = "anchorage.config"

const (
	DefaultShutdownTimeout = "30s"
	// DefaultHeightStartTime anchors clock-derived heights so they survive
	// restarts
	DefaultHeightStartTime = "2025-01-01T00:00:00Z"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

var ErrInvalidConfig = errors.New("invalid config")

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath               string `yaml:"databasePath"               split_words:"true"`
	BindAddr                   string `yaml:"bindAddr"                   split_words:"true"`
	GenesisAddress             string `yaml:"genesisAddress"             split_words:"true"`
	ManagementVotingAlgorithm  string `yaml:"managementVotingAlgorithm"  split_words:"true"`
	PinPolicy                  string `yaml:"pinPolicy"                  split_words:"true"`
	BlockInterval              string `yaml:"blockInterval"              split_words:"true"`
	HeightStartTime            string `yaml:"heightStartTime"            split_words:"true"`
	ShutdownTimeout            string `yaml:"shutdownTimeout"            split_words:"true"`
	TracingEndpoint            string `yaml:"tracingEndpoint"            split_words:"true"`
	ManagementVotingPeriod     uint64 `yaml:"managementVotingPeriod"     split_words:"true"`
	ManagementPinContestPeriod uint64 `yaml:"managementPinContestPeriod" split_words:"true"`
	BadgerCacheSize            uint64 `yaml:"badgerCacheSize"            split_words:"true"`
	ApiPort                    uint   `yaml:"apiPort"                    split_words:"true"`
	MetricsPort                uint   `yaml:"metricsPort"                split_words:"true"`
	Tracing                    bool   `yaml:"tracing"`
	TracingStdout              bool   `yaml:"tracingStdout"              split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:               ".anchorage",
		BindAddr:                   "0.0.0.0",
		ApiPort:                    8480,
		MetricsPort:                12799,
		ManagementVotingAlgorithm:  voting.MajorityName,
		ManagementVotingPeriod:     governance.DefaultVotingPeriod,
		ManagementPinContestPeriod: governance.DefaultPinContestPeriod,
		PinPolicy:                  string(governance.PinPolicyOpen),
		BlockInterval:              "",
		HeightStartTime:            DefaultHeightStartTime,
		ShutdownTimeout:            DefaultShutdownTimeout,
		BadgerCacheSize:            268435456,
	}
}

var globalConfig = defaultConfig()

// Validate checks values that cannot be expressed by the YAML and
// environment decoders
func (c *Config) Validate() error {
	if c.GenesisAddress != "" {
		if _, err := common.NewAddressFromHex(c.GenesisAddress); err != nil {
			return fmt.Errorf("%w: genesisAddress: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := voting.Lookup(c.ManagementVotingAlgorithm); err != nil {
		return fmt.Errorf(
			"%w: managementVotingAlgorithm: %w",
			ErrInvalidConfig,
			err,
		)
	}
	if c.ManagementPinContestPeriod <= c.ManagementVotingPeriod {
		return fmt.Errorf(
			"%w: managementPinContestPeriod (%d) must exceed managementVotingPeriod (%d)",
			ErrInvalidConfig,
			c.ManagementPinContestPeriod,
			c.ManagementVotingPeriod,
		)
	}
	if _, err := governance.ParsePinPolicy(c.PinPolicy); err != nil {
		return fmt.Errorf("%w: pinPolicy: %w", ErrInvalidConfig, err)
	}
	if c.BlockInterval != "" {
		interval, err := time.ParseDuration(c.BlockInterval)
		if err != nil {
			return fmt.Errorf("%w: blockInterval: %w", ErrInvalidConfig, err)
		}
		if interval <= 0 {
			return fmt.Errorf(
				"%w: blockInterval must be positive",
				ErrInvalidConfig,
			)
		}
		if _, err := time.Parse(time.RFC3339, c.HeightStartTime); err != nil {
			return fmt.Errorf("%w: heightStartTime: %w", ErrInvalidConfig, err)
		}
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("%w: shutdownTimeout: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Genesis returns the parsed genesis address, or the zero address if unset
func (c *Config) Genesis() common.Address {
	ret, _ := common.NewAddressFromHex(c.GenesisAddress)
	return ret
}

// ClockHeights reports whether heights are derived from the wall clock.
// Otherwise they are advanced manually through the API.
func (c *Config) ClockHeights() bool {
	return c.BlockInterval != ""
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.anchorage/anchorage.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".anchorage", "anchorage.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/anchorage/anchorage.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/anchorage/anchorage.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, overlay it onto the defaults
		if !tempCfg.Config.IsZero() {
			err = tempCfg.Config.Decode(globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("anchorage", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
