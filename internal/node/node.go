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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/anchorage"
	"github.com/blinklabs-io/anchorage/internal/config"
)

// NodeOptions translates the loaded config into node options
func NodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
) ([]anchorage.ConfigOptionFunc, error) {
	shutdownTimeout := 30 * time.Second
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	opts := []anchorage.ConfigOptionFunc{
		anchorage.WithLogger(logger),
		anchorage.WithDatabasePath(cfg.DatabasePath),
		anchorage.WithBadgerCacheSize(cfg.BadgerCacheSize),
		anchorage.WithApiListenAddress(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		),
		anchorage.WithGenesisAddress(cfg.Genesis()),
		anchorage.WithManagementSidechain(
			cfg.ManagementVotingAlgorithm,
			cfg.ManagementVotingPeriod,
			cfg.ManagementPinContestPeriod,
		),
		anchorage.WithPinPolicy(cfg.PinPolicy),
		anchorage.WithShutdownTimeout(shutdownTimeout),
		anchorage.WithTracing(cfg.Tracing),
		anchorage.WithTracingStdout(cfg.TracingStdout),
		anchorage.WithTracingEndpoint(cfg.TracingEndpoint),
		// Enable metrics with default prometheus registry
		anchorage.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}
	if cfg.ClockHeights() {
		interval, err := time.ParseDuration(cfg.BlockInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid block interval: %w", err)
		}
		start, err := time.Parse(time.RFC3339, cfg.HeightStartTime)
		if err != nil {
			return nil, fmt.Errorf("invalid height start time: %w", err)
		}
		opts = append(opts, anchorage.WithBlockInterval(interval, start))
	}
	return opts, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := NodeOptions(cfg, logger)
	if err != nil {
		return err
	}
	n, err := anchorage.New(anchorage.NewConfig(opts...))
	if err != nil {
		return err
	}
	shutdownTimeout, _ := time.ParseDuration(cfg.ShutdownTimeout)
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	// Metrics listener
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component",
		"node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		err := n.Run(signalCtx)
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	shutdownMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		shutdownMetrics()
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		signalCtxStop()
		shutdownMetrics()
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}
		if err != nil {
			logger.Error("node error", "error", err)
			return err
		}
		logger.Info("node stopped")
		return nil
	}
}
