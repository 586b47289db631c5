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

package anchorage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/governance"
	"github.com/blinklabs-io/anchorage/voting"
)

type Config struct {
	promRegistry               prometheus.Registerer
	logger                     *slog.Logger
	dataDir                    string
	apiListenAddress           string
	managementVotingAlgorithm  string
	pinPolicy                  string
	tracingEndpoint            string
	genesisAddress             common.Address
	heightStartTime            time.Time
	blockInterval              time.Duration
	shutdownTimeout            time.Duration
	badgerCacheSize            uint64
	managementVotingPeriod     uint64
	managementPinContestPeriod uint64
	startHeight                uint64
	tracing                    bool
	tracingStdout              bool
}

// clockHeights reports whether heights are derived from the wall clock
func (c *Config) clockHeights() bool {
	return c.blockInterval > 0
}

func (n *Node) configValidate() error {
	if n.config.apiListenAddress == "" {
		return errors.New("no API listen address defined")
	}
	if n.config.managementVotingAlgorithm != "" {
		if _, err := voting.Lookup(n.config.managementVotingAlgorithm); err != nil {
			return err
		}
	}
	if _, err := governance.ParsePinPolicy(n.config.pinPolicy); err != nil {
		return err
	}
	if n.config.clockHeights() && n.config.heightStartTime.IsZero() {
		return errors.New("block interval requires a height start time")
	}
	if n.config.managementVotingPeriod > 0 &&
		n.config.managementPinContestPeriod > 0 &&
		n.config.managementPinContestPeriod <= n.config.managementVotingPeriod {
		return fmt.Errorf(
			"management pin contest period (%d) must exceed voting period (%d)",
			n.config.managementPinContestPeriod,
			n.config.managementVotingPeriod,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new anchorage config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:           slog.New(slog.NewJSONHandler(io.Discard, nil)),
		apiListenAddress: ":8480",
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBadgerCacheSize sets the block cache size of the event log store
func WithBadgerCacheSize(size uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.badgerCacheSize = size
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithApiListenAddress specifies the listen address for the HTTP API
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithGenesisAddress specifies the first unmasked participant of the management sidechain. It is only used when
// the management sidechain does not exist yet
func WithGenesisAddress(addr common.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.genesisAddress = addr
	}
}

// WithManagementSidechain specifies the voting algorithm and periods of the management sidechain created at genesis
func WithManagementSidechain(
	votingAlgorithm string,
	votingPeriod uint64,
	pinContestPeriod uint64,
) ConfigOptionFunc {
	return func(c *Config) {
		c.managementVotingAlgorithm = votingAlgorithm
		c.managementVotingPeriod = votingPeriod
		c.managementPinContestPeriod = pinContestPeriod
	}
}

// WithPinPolicy specifies who may add pins. The default is to allow any caller
func WithPinPolicy(policy string) ConfigOptionFunc {
	return func(c *Config) {
		c.pinPolicy = policy
	}
}

// WithBlockInterval derives heights from the wall clock, one unit per interval since start. Without it, heights
// start at startHeight and are advanced through the API
func WithBlockInterval(interval time.Duration, start time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.blockInterval = interval
		c.heightStartTime = start
	}
}

// WithStartHeight specifies the height at the start of the clock or, without a block interval, the initial
// manual height
func WithStartHeight(height uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.startHeight = height
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingEndpoint specifies the OTLP HTTP endpoint URL that spans are submitted to. This overrides the
// OTEL_EXPORTER_OTLP_* env vars
func WithTracingEndpoint(endpoint string) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingEndpoint = endpoint
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
