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
	"bytes"
	"fmt"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/event"
)

// IsSidechainParticipant reports whether addr holds a live unmasked slot of id
func (e *Engine) IsSidechainParticipant(
	id common.SidechainId,
	addr common.Address,
) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if addr.IsZero() {
		return false
	}
	slot, err := e.db.GetLiveParticipantByValue(
		id.Bytes(),
		false,
		addr.Bytes(),
		nil,
	)
	if err != nil {
		e.readFailed("is sidechain participant", err)
		return false
	}
	return slot != nil
}

// GetUnmaskedSidechainParticipantsSize returns the number of unmasked slots
// ever allocated for id, including tombstones
func (e *Engine) GetUnmaskedSidechainParticipantsSize(id common.SidechainId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slotCount(id, false)
}

// GetMaskedSidechainParticipantsSize returns the number of masked slots ever
// allocated for id, including tombstones
func (e *Engine) GetMaskedSidechainParticipantsSize(id common.SidechainId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slotCount(id, true)
}

// GetNumberUnmaskedSidechainParticipants returns the number of live unmasked
// participants of id
func (e *Engine) GetNumberUnmaskedSidechainParticipants(id common.SidechainId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveCount(id, false)
}

// GetNumberMaskedSidechainParticipants returns the number of live masked
// participants of id
func (e *Engine) GetNumberMaskedSidechainParticipants(id common.SidechainId) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveCount(id, true)
}

// GetUnmaskedSidechainParticipant returns the address at offset, or the zero
// address for tombstoned or unallocated slots
func (e *Engine) GetUnmaskedSidechainParticipant(
	id common.SidechainId,
	offset uint64,
) common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot := e.slot(id, false, offset)
	if slot == nil {
		return common.Address{}
	}
	ret, err := common.NewAddressFromBytes(slot.Value)
	if err != nil {
		return common.Address{}
	}
	return ret
}

// GetMaskedSidechainParticipant returns the commitment at offset, or the zero
// hash for tombstoned or unallocated slots
func (e *Engine) GetMaskedSidechainParticipant(
	id common.SidechainId,
	offset uint64,
) common.Hash {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot := e.slot(id, true, offset)
	if slot == nil {
		return common.Hash{}
	}
	ret, err := common.NewHashFromBytes(slot.Value)
	if err != nil {
		return common.Hash{}
	}
	return ret
}

// GetUnmaskedSidechainParticipants returns the live unmasked participants of
// id in offset order
func (e *Engine) GetUnmaskedSidechainParticipants(id common.SidechainId) []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	slots, err := e.db.GetLiveParticipants(id.Bytes(), false, nil)
	if err != nil {
		e.readFailed("get unmasked participants", err)
		return nil
	}
	ret := make([]common.Address, 0, len(slots))
	for _, slot := range slots {
		addr, err := common.NewAddressFromBytes(slot.Value)
		if err != nil {
			continue
		}
		ret = append(ret, addr)
	}
	return ret
}

func (e *Engine) slot(
	id common.SidechainId,
	masked bool,
	offset uint64,
) *models.Participant {
	slot, err := e.db.GetParticipant(id.Bytes(), masked, offset, nil)
	if err != nil {
		e.readFailed("get participant", err)
		return nil
	}
	if slot == nil || !slot.Live() {
		return nil
	}
	return slot
}

func (e *Engine) slotCount(id common.SidechainId, masked bool) uint64 {
	ret, err := e.db.GetParticipantSlotCount(id.Bytes(), masked, nil)
	if err != nil {
		e.readFailed("count participant slots", err)
		return 0
	}
	return ret
}

func (e *Engine) liveCount(id common.SidechainId, masked bool) uint64 {
	ret, err := e.db.GetLiveParticipantCount(id.Bytes(), masked, nil)
	if err != nil {
		e.readFailed("count live participants", err)
		return 0
	}
	return ret
}

// Unmask promotes the caller from the masked slot at offset to a new
// unmasked slot. The slot must hold H(caller || salt).
func (e *Engine) Unmask(
	caller common.Address,
	id common.SidechainId,
	offset uint64,
	salt []byte,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var unmaskedOffset uint64
	err := e.update(func(c *call) error {
		sidechain, err := e.db.GetSidechain(id.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if sidechain == nil {
			return fmt.Errorf("%w: sidechain %s", ErrNotFound, id)
		}
		if caller.IsZero() {
			return fmt.Errorf("%w: zero address", ErrPermissionDenied)
		}
		already, err := e.isUnmasked(c, id, caller)
		if err != nil {
			return err
		}
		if already {
			return fmt.Errorf(
				"%w: %s is already an unmasked participant of sidechain %s",
				ErrAlreadyExists,
				caller,
				id,
			)
		}
		slot, err := e.db.GetParticipant(id.Bytes(), true, offset, c.txn)
		if err != nil {
			return err
		}
		commitment := common.Commitment(caller, salt)
		if slot == nil || !slot.Live() ||
			!bytes.Equal(slot.Value, commitment.Bytes()) {
			return fmt.Errorf(
				"%w: masked slot %d of sidechain %s",
				ErrCommitmentMismatch,
				offset,
				id,
			)
		}
		if err := e.db.RemoveParticipant(
			id.Bytes(),
			true,
			offset,
			c.height,
			c.txn,
		); err != nil {
			return err
		}
		unmasked := &models.Participant{
			SidechainId: id.Bytes(),
			Value:       caller.Bytes(),
			AddedHeight: c.height,
		}
		if err := e.db.AddParticipant(unmasked, c.txn); err != nil {
			return err
		}
		unmaskedOffset = unmasked.SlotIndex
		return e.emit(
			c,
			event.ParticipantUnmaskedEventType,
			event.ParticipantUnmaskedEvent{
				SidechainId:    id,
				Address:        caller,
				MaskedOffset:   offset,
				UnmaskedOffset: unmaskedOffset,
				Height:         c.height,
			},
		)
	})
	if err != nil {
		return err
	}
	e.metrics.unmasked.Inc()
	e.logger.Info(
		"participant unmasked",
		"component", "governance",
		"sidechain", id.String(),
		"address", caller.String(),
		"masked_offset", offset,
		"unmasked_offset", unmaskedOffset,
	)
	return nil
}
