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

package database

import (
	"fmt"

	"github.com/blinklabs-io/anchorage/database/models"
)

// GetParticipant returns the slot at offset, or nil if it was never allocated
func (d *Database) GetParticipant(
	sidechainId []byte,
	masked bool,
	offset uint64,
	txn *Txn,
) (*models.Participant, error) {
	ret, err := d.metadata.GetParticipant(
		sidechainId,
		masked,
		offset,
		metadataTxn(txn),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"get participant slot %d (masked=%t) of sidechain %x: %w",
			offset,
			masked,
			sidechainId,
			err,
		)
	}
	return ret, nil
}

// GetLiveParticipantByValue returns the live slot holding value, or nil
func (d *Database) GetLiveParticipantByValue(
	sidechainId []byte,
	masked bool,
	value []byte,
	txn *Txn,
) (*models.Participant, error) {
	ret, err := d.metadata.GetLiveParticipantByValue(
		sidechainId,
		masked,
		value,
		metadataTxn(txn),
	)
	if err != nil {
		return nil, fmt.Errorf("find participant %x: %w", value, err)
	}
	return ret, nil
}

// GetLiveParticipants returns the live slots of a sidechain in offset order
func (d *Database) GetLiveParticipants(
	sidechainId []byte,
	masked bool,
	txn *Txn,
) ([]*models.Participant, error) {
	ret, err := d.metadata.GetLiveParticipants(
		sidechainId,
		masked,
		metadataTxn(txn),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"get participants of sidechain %x: %w",
			sidechainId,
			err,
		)
	}
	return ret, nil
}

// GetParticipantSlotCount returns the slot count including tombstones
func (d *Database) GetParticipantSlotCount(
	sidechainId []byte,
	masked bool,
	txn *Txn,
) (uint64, error) {
	ret, err := d.metadata.GetParticipantSlotCount(
		sidechainId,
		masked,
		metadataTxn(txn),
	)
	if err != nil {
		return 0, fmt.Errorf("count participant slots: %w", err)
	}
	return ret, nil
}

// GetLiveParticipantCount returns the number of live slots
func (d *Database) GetLiveParticipantCount(
	sidechainId []byte,
	masked bool,
	txn *Txn,
) (uint64, error) {
	ret, err := d.metadata.GetLiveParticipantCount(
		sidechainId,
		masked,
		metadataTxn(txn),
	)
	if err != nil {
		return 0, fmt.Errorf("count live participants: %w", err)
	}
	return ret, nil
}

// IsLiveUnmaskedParticipant reports whether addr is unmasked in any sidechain
func (d *Database) IsLiveUnmaskedParticipant(
	addr []byte,
	txn *Txn,
) (bool, error) {
	ret, err := d.metadata.IsLiveUnmaskedParticipant(addr, metadataTxn(txn))
	if err != nil {
		return false, fmt.Errorf("lookup participant %x: %w", addr, err)
	}
	return ret, nil
}

// AddParticipant appends a slot and sets its offset
func (d *Database) AddParticipant(
	participant *models.Participant,
	txn *Txn,
) error {
	if err := d.metadata.AddParticipant(participant, metadataTxn(txn)); err != nil {
		return fmt.Errorf(
			"add participant to sidechain %x: %w",
			participant.SidechainId,
			err,
		)
	}
	return nil
}

// RemoveParticipant tombstones a live slot
func (d *Database) RemoveParticipant(
	sidechainId []byte,
	masked bool,
	offset uint64,
	height uint64,
	txn *Txn,
) error {
	if err := d.metadata.RemoveParticipant(
		sidechainId,
		masked,
		offset,
		height,
		metadataTxn(txn),
	); err != nil {
		return fmt.Errorf(
			"remove participant slot %d (masked=%t) of sidechain %x: %w",
			offset,
			masked,
			sidechainId,
			err,
		)
	}
	return nil
}
