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
	"fmt"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/voting"
)

// AddSidechain creates a sidechain with caller as its first unmasked
// participant. Only unmasked participants of the management sidechain may
// create sidechains.
func (e *Engine) AddSidechain(
	caller common.Address,
	id common.SidechainId,
	votingAlgorithm string,
	votingPeriod uint64,
	pinContestPeriod uint64,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.update(func(c *call) error {
		existing, err := e.db.GetSidechain(id.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: sidechain %s", ErrAlreadyExists, id)
		}
		if err := e.requireUnmasked(c, common.ManagementSidechainId, caller); err != nil {
			return err
		}
		return e.createSidechain(
			c,
			id,
			caller,
			votingAlgorithm,
			votingPeriod,
			pinContestPeriod,
		)
	})
	if err != nil {
		return err
	}
	e.metrics.sidechains.Inc()
	e.logger.Info(
		"sidechain added",
		"component", "governance",
		"sidechain", id.String(),
		"creator", caller.String(),
		"voting_algorithm", votingAlgorithm,
	)
	return nil
}

func (e *Engine) createSidechain(
	c *call,
	id common.SidechainId,
	creator common.Address,
	votingAlgorithm string,
	votingPeriod uint64,
	pinContestPeriod uint64,
) error {
	if _, err := voting.Lookup(votingAlgorithm); err != nil {
		return fmt.Errorf("%w: %w", ErrPreconditionNotMet, err)
	}
	if pinContestPeriod <= votingPeriod {
		return fmt.Errorf(
			"%w: pin contest period %d must exceed voting period %d",
			ErrPreconditionNotMet,
			pinContestPeriod,
			votingPeriod,
		)
	}
	if err := e.db.AddSidechain(
		&models.Sidechain{
			SidechainId:      id.Bytes(),
			VotingAlgorithm:  votingAlgorithm,
			VotingPeriod:     votingPeriod,
			PinContestPeriod: pinContestPeriod,
			AddedHeight:      c.height,
		},
		c.txn,
	); err != nil {
		return err
	}
	if err := e.db.AddParticipant(
		&models.Participant{
			SidechainId: id.Bytes(),
			Value:       creator.Bytes(),
			AddedHeight: c.height,
		},
		c.txn,
	); err != nil {
		return err
	}
	return e.emit(c, event.SidechainAddedEventType, event.SidechainAddedEvent{
		SidechainId:      id,
		Creator:          creator,
		VotingAlgorithm:  votingAlgorithm,
		VotingPeriod:     votingPeriod,
		PinContestPeriod: pinContestPeriod,
		Height:           c.height,
	})
}

// getSidechain loads a sidechain record, or nil if unknown. The caller must
// hold e.mu.
func (e *Engine) getSidechain(id common.SidechainId) *models.Sidechain {
	sidechain, err := e.db.GetSidechain(id.Bytes(), nil)
	if err != nil {
		e.readFailed("get sidechain", err)
		return nil
	}
	return sidechain
}

// GetSidechainExists reports whether id has been created
func (e *Engine) GetSidechainExists(id common.SidechainId) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getSidechain(id) != nil
}

// GetVotingPeriod returns the voting period of id, or 0 if unknown
func (e *Engine) GetVotingPeriod(id common.SidechainId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sidechain := e.getSidechain(id); sidechain != nil {
		return sidechain.VotingPeriod
	}
	return 0
}

// GetPinContestPeriod returns the pin contest period of id, or 0 if unknown
func (e *Engine) GetPinContestPeriod(id common.SidechainId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sidechain := e.getSidechain(id); sidechain != nil {
		return sidechain.PinContestPeriod
	}
	return 0
}

// GetVotingAlgorithm returns the voting algorithm name of id, or "" if unknown
func (e *Engine) GetVotingAlgorithm(id common.SidechainId) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sidechain := e.getSidechain(id); sidechain != nil {
		return sidechain.VotingAlgorithm
	}
	return ""
}

// GetLatestPin returns the key id was rolled back to by its most recent
// applied contest, or the zero hash. Adding a pin never sets it, as pin keys
// are not linkable to a sidechain until a contest discloses the link.
func (e *Engine) GetLatestPin(id common.SidechainId) common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	sidechain := e.getSidechain(id)
	if sidechain == nil {
		return common.Hash{}
	}
	ret, err := common.NewHashFromBytes(sidechain.LatestPin)
	if err != nil {
		return common.Hash{}
	}
	return ret
}

// GetSidechain returns a summary of id
func (e *Engine) GetSidechain(id common.SidechainId) (SidechainInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sidechain := e.getSidechain(id)
	if sidechain == nil {
		return SidechainInfo{}, false
	}
	return e.sidechainInfo(sidechain), true
}

// ListSidechains returns a summary of every sidechain in creation order
func (e *Engine) ListSidechains() []SidechainInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	sidechains, err := e.db.GetSidechains(nil)
	if err != nil {
		e.readFailed("list sidechains", err)
		return nil
	}
	ret := make([]SidechainInfo, 0, len(sidechains))
	for _, sidechain := range sidechains {
		ret = append(ret, e.sidechainInfo(sidechain))
	}
	return ret
}

func (e *Engine) sidechainInfo(sidechain *models.Sidechain) SidechainInfo {
	ret := SidechainInfo{
		VotingAlgorithm:  sidechain.VotingAlgorithm,
		VotingPeriod:     sidechain.VotingPeriod,
		PinContestPeriod: sidechain.PinContestPeriod,
		AddedHeight:      sidechain.AddedHeight,
	}
	// Stored ids and pin keys always have the correct length
	ret.Id, _ = common.NewSidechainIdFromBytes(sidechain.SidechainId)
	if len(sidechain.LatestPin) > 0 {
		ret.LatestPin, _ = common.NewHashFromBytes(sidechain.LatestPin)
	}
	ret.UnmaskedSlots = e.slotCount(ret.Id, false)
	ret.MaskedSlots = e.slotCount(ret.Id, true)
	ret.UnmaskedLiveMembers = e.liveCount(ret.Id, false)
	ret.MaskedLiveMembers = e.liveCount(ret.Id, true)
	return ret
}
