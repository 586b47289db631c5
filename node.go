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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blinklabs-io/anchorage/api"
	"github.com/blinklabs-io/anchorage/chain"
	"github.com/blinklabs-io/anchorage/database"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/governance"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	engine        *governance.Engine
	api           *api.API
	heightClock   *chain.HeightClock
	manualHeight  *chain.ManualHeight
	heightGauge   prometheus.Gauge
	cancel        context.CancelFunc
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	startOnce     sync.Once
	shutdownOnce  sync.Once
	wg            sync.WaitGroup
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts the node and blocks until Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	// Wait for shutdown signal
	<-n.done
	return nil
}

// Start opens the database, loads the governance engine and starts the API
// listener without blocking
func (n *Node) Start(ctx context.Context) error {
	err := errors.New("node already started")
	n.startOnce.Do(func() {
		err = n.start(ctx)
	})
	return err
}

func (n *Node) start(ctx context.Context) error {
	ctx, n.cancel = context.WithCancel(ctx)
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		DataDir:       n.config.dataDir,
		Logger:        n.config.logger,
		PromRegistry:  n.config.promRegistry,
		BlobCacheSize: n.config.badgerCacheSize,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		n.config.logger.Error(
			"failed to create database",
			"error",
			"empty database returned",
		)
		return errors.New("empty database returned")
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			n.config.logger.Error(
				"event log and governance state are out of sync",
				"component", "node",
				"error", err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Configure height source
	var heightSource governance.HeightSource
	var heightAdvancer api.HeightAdvancer
	if n.config.clockHeights() {
		n.heightClock = chain.NewHeightClock(chain.HeightClockConfig{
			Logger:      n.config.logger,
			Start:       n.config.heightStartTime,
			StartHeight: n.config.startHeight,
			Interval:    n.config.blockInterval,
		})
		heightSource = n.heightClock
	} else {
		startHeight := n.config.startHeight
		watermark, err := n.db.GetHeightWatermark()
		if err != nil {
			return fmt.Errorf("failed to read committed height: %w", err)
		}
		if watermark > startHeight {
			startHeight = watermark
		}
		n.manualHeight = chain.NewManualHeight(startHeight)
		heightSource = n.manualHeight
		n.config.logger.Info(
			"heights are advanced manually through the API",
			"component", "node",
			"height", startHeight,
		)
	}
	if n.config.promRegistry != nil {
		n.heightGauge = promauto.With(n.config.promRegistry).NewGauge(
			prometheus.GaugeOpts{
				Name: "anchorage_height",
				Help: "current governance height",
			},
		)
		n.heightGauge.Set(float64(heightSource.Height()))
	}
	// Load governance engine
	engine, err := governance.NewEngine(governance.EngineConfig{
		Database:                   n.db,
		EventBus:                   n.eventBus,
		HeightSource:               heightSource,
		Logger:                     n.config.logger,
		PromRegistry:               n.config.promRegistry,
		GenesisAddress:             n.config.genesisAddress,
		ManagementVotingAlgorithm:  n.config.managementVotingAlgorithm,
		ManagementVotingPeriod:     n.config.managementVotingPeriod,
		ManagementPinContestPeriod: n.config.managementPinContestPeriod,
		PinPolicy:                  governance.PinPolicy(n.config.pinPolicy),
	})
	if err != nil {
		return fmt.Errorf("failed to load governance engine: %w", err)
	}
	n.engine = engine
	if n.manualHeight != nil {
		heightAdvancer = &committedHeight{
			height: n.manualHeight,
			engine: n.engine,
			gauge:  n.heightGauge,
			logger: n.config.logger,
		}
	}
	n.subscribeEvents()
	if n.heightClock != nil {
		ticks := n.heightClock.Subscribe()
		n.heightClock.Start(ctx)
		n.wg.Add(1)
		go n.watchHeight(ticks)
	}
	// Start API
	n.api = api.New(
		api.Config{
			ListenAddress:  n.config.apiListenAddress,
			HeightAdvancer: heightAdvancer,
		},
		n.engine,
		n.config.logger,
	)
	if err := n.api.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API: %w", err)
	}
	return nil
}

// Engine returns the governance engine once the node has started
func (n *Node) Engine() *governance.Engine {
	return n.engine
}

// EventBus returns the node event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) subscribeEvents() {
	for _, eventType := range event.GovernanceEventTypes() {
		n.eventBus.SubscribeFunc(eventType, n.logEvent)
	}
}

func (n *Node) logEvent(evt event.Event) {
	n.config.logger.Info(
		"governance event",
		"component", "node",
		"type", string(evt.Type),
		"data", evt.Data,
	)
}

// committedHeight advances the manual height and records every advance, so a
// restarted node resumes from the highest height it reached
type committedHeight struct {
	height *chain.ManualHeight
	engine *governance.Engine
	gauge  prometheus.Gauge
	logger *slog.Logger
}

func (h *committedHeight) Advance(n uint64) uint64 {
	ret := h.height.Advance(n)
	if err := h.engine.CommitHeight(); err != nil {
		h.logger.Error(
			"failed to record height",
			"component", "node",
			"height", ret,
			"error", err,
		)
	}
	if h.gauge != nil {
		h.gauge.Set(float64(ret))
	}
	return ret
}

func (n *Node) watchHeight(ticks <-chan chain.HeightTick) {
	defer n.wg.Done()
	for tick := range ticks {
		if n.heightGauge != nil {
			n.heightGauge.Set(float64(tick.Height))
		}
	}
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	if n.heightClock != nil {
		n.heightClock.Stop()
	}
	n.wg.Wait()

	// Phase 2: Close database
	n.config.logger.Debug("shutdown phase 2: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	if n.cancel != nil {
		n.cancel()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
