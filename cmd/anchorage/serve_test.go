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

package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/anchorage/internal/config"
)

func testServeConfig() *config.Config {
	return &config.Config{
		DatabasePath:               ".anchorage",
		ApiPort:                    8480,
		ManagementVotingAlgorithm:  "majority",
		ManagementVotingPeriod:     3,
		ManagementPinContestPeriod: 6,
		PinPolicy:                  "open",
		HeightStartTime:            config.DefaultHeightStartTime,
		ShutdownTimeout:            config.DefaultShutdownTimeout,
	}
}

func TestServeFlagsOverrideConfig(t *testing.T) {
	cmd := &cobra.Command{}
	flags := &serveFlags{}
	flags.register(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{
		"--api-port", "9000",
		"--pin-policy", "participants",
		"--block-interval", "20s",
	}))
	cfg := testServeConfig()
	require.NoError(t, flags.apply(cmd, cfg))
	assert.Equal(t, uint(9000), cfg.ApiPort)
	assert.Equal(t, "participants", cfg.PinPolicy)
	assert.Equal(t, "20s", cfg.BlockInterval)
	// Unset flags leave the config alone
	assert.Equal(t, ".anchorage", cfg.DatabasePath)
}

func TestServeFlagsInvalid(t *testing.T) {
	cmd := &cobra.Command{}
	flags := &serveFlags{}
	flags.register(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--pin-policy", "anyone"}))
	err := flags.apply(cmd, testServeConfig())
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
