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

package governance

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/voting"
	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultVotingPeriod     = 3
	DefaultPinContestPeriod = 6
)

type EngineConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	HeightSource HeightSource
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// GenesisAddress becomes the sole unmasked participant of the management
	// sidechain when it is first created
	GenesisAddress             common.Address
	ManagementVotingAlgorithm  string
	ManagementVotingPeriod     uint64
	ManagementPinContestPeriod uint64
	PinPolicy                  PinPolicy
}

// Engine owns the governance state of all sidechains and the pin chain.
// Calls are processed one at a time. Every mutating call runs in a single
// database transaction, and its events are published only after commit.
type Engine struct {
	mu      sync.Mutex
	config  EngineConfig
	db      *database.Database
	logger  *slog.Logger
	metrics governanceMetrics

	// highest height a change was committed at
	lastHeight uint64
}

// call carries the state of a single mutating entry point
type call struct {
	txn    *database.Txn
	height uint64
}

// NewEngine creates an engine on top of the configured database. The
// management sidechain is created on first start.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil {
		return nil, errors.New("governance: database is required")
	}
	if cfg.HeightSource == nil {
		return nil, errors.New("governance: height source is required")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.ManagementVotingAlgorithm == "" {
		cfg.ManagementVotingAlgorithm = voting.MajorityName
	}
	if cfg.ManagementVotingPeriod == 0 {
		cfg.ManagementVotingPeriod = DefaultVotingPeriod
	}
	if cfg.ManagementPinContestPeriod == 0 {
		cfg.ManagementPinContestPeriod = DefaultPinContestPeriod
	}
	pinPolicy, err := ParsePinPolicy(string(cfg.PinPolicy))
	if err != nil {
		return nil, err
	}
	cfg.PinPolicy = pinPolicy
	e := &Engine{
		config: cfg,
		db:     cfg.Database,
		logger: cfg.Logger,
	}
	e.metrics.init(cfg.PromRegistry)
	watermark, err := cfg.Database.GetHeightWatermark()
	if err != nil {
		return nil, err
	}
	e.lastHeight = watermark
	if height := cfg.HeightSource.Height(); height < watermark {
		return nil, fmt.Errorf(
			"%w: height source is at %d but state was committed at %d",
			ErrHeightRegressed,
			height,
			watermark,
		)
	}
	if err := e.genesis(); err != nil {
		return nil, fmt.Errorf("governance genesis: %w", err)
	}
	return e, nil
}

func (e *Engine) genesis() error {
	mgmtId := common.ManagementSidechainId
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.update(func(c *call) error {
		existing, err := e.db.GetSidechain(mgmtId.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if existing != nil {
			count, err := e.db.GetLiveParticipantCount(
				mgmtId.Bytes(),
				false,
				c.txn,
			)
			if err != nil {
				return err
			}
			if count == 0 {
				return errors.New(
					"management sidechain has no unmasked participants",
				)
			}
			e.logger.Info(
				"loaded existing management sidechain",
				"component", "governance",
				"participants", count,
			)
			return nil
		}
		if e.config.GenesisAddress.IsZero() {
			return errors.New("genesis address is required")
		}
		e.logger.Info(
			"creating management sidechain",
			"component", "governance",
			"genesis_address", e.config.GenesisAddress.String(),
		)
		return e.createSidechain(
			c,
			mgmtId,
			e.config.GenesisAddress,
			e.config.ManagementVotingAlgorithm,
			e.config.ManagementVotingPeriod,
			e.config.ManagementPinContestPeriod,
		)
	})
	if err != nil {
		return err
	}
	sidechains, err := e.db.GetSidechains(nil)
	if err != nil {
		return err
	}
	e.metrics.sidechains.Set(float64(len(sidechains)))
	return nil
}

// update runs fn in a read-write transaction. Events emitted by fn are
// persisted in the same transaction and published once it commits. The
// caller must hold e.mu.
func (e *Engine) update(fn func(*call) error) error {
	height := e.config.HeightSource.Height()
	if height < e.lastHeight {
		return fmt.Errorf(
			"%w: height %d is below last committed height %d",
			ErrHeightRegressed,
			height,
			e.lastHeight,
		)
	}
	c := &call{
		txn:    e.db.Transaction(true),
		height: height,
	}
	err := c.txn.Do(func(*database.Txn) error {
		if err := fn(c); err != nil {
			return err
		}
		return e.db.SetHeightWatermark(c.height, c.txn)
	})
	if err != nil {
		return err
	}
	e.lastHeight = height
	return nil
}

// emit appends an event to the event log within the call's transaction
func (e *Engine) emit(c *call, eventType event.EventType, data any) error {
	payload, err := cbor.Encode(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	if _, err := e.db.AppendEvent(
		c.height,
		string(eventType),
		payload,
		c.txn,
	); err != nil {
		return err
	}
	if e.config.EventBus != nil {
		evt := event.NewEvent(eventType, data)
		c.txn.OnCommit(func() {
			e.config.EventBus.Publish(eventType, evt)
		})
	}
	return nil
}

func (e *Engine) readFailed(op string, err error) {
	e.logger.Error(
		"governance read failed",
		"component", "governance",
		"op", op,
		"error", err,
	)
}

// Height returns the current height of the host substrate
func (e *Engine) Height() uint64 {
	return e.config.HeightSource.Height()
}

// CommitHeight records the current height as committed, so a reopened engine
// refuses to run below it even when no change was made at that height
func (e *Engine) CommitHeight() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.update(func(*call) error { return nil })
}

// PinPolicy returns the active pin policy
func (e *Engine) PinPolicy() PinPolicy {
	return e.config.PinPolicy
}

// Events returns logged events with heights in [fromHeight, toHeight]
func (e *Engine) Events(fromHeight, toHeight uint64) ([]LoggedEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	records, err := e.db.GetEvents(fromHeight, toHeight)
	if err != nil {
		return nil, err
	}
	ret := make([]LoggedEvent, 0, len(records))
	for _, record := range records {
		data := event.NewEventData(event.EventType(record.Type))
		if data != nil {
			if _, err := cbor.Decode(record.Payload, data); err != nil {
				return nil, fmt.Errorf(
					"decode %s event at height %d: %w",
					record.Type,
					record.Height,
					err,
				)
			}
		}
		ret = append(ret, LoggedEvent{
			Height: record.Height,
			Seq:    record.Seq,
			Type:   record.Type,
			Data:   data,
		})
	}
	return ret, nil
}
