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

package sqlite

import (
	"errors"

	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/database/types"
	"gorm.io/gorm"
)

// GetParticipant retrieves the slot at offset, including tombstoned slots.
// Returns nil if the offset was never allocated.
func (d *MetadataStoreSqlite) GetParticipant(
	sidechainId []byte,
	masked bool,
	offset uint64,
	txn types.Txn,
) (*models.Participant, error) {
	var participant models.Participant
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"sidechain_id = ? AND masked = ? AND slot_index = ?",
		sidechainId,
		masked,
		offset,
	).First(&participant); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &participant, nil
}

// GetLiveParticipantByValue finds the live slot holding value. Returns nil
// if no live slot holds it.
func (d *MetadataStoreSqlite) GetLiveParticipantByValue(
	sidechainId []byte,
	masked bool,
	value []byte,
	txn types.Txn,
) (*models.Participant, error) {
	var participant models.Participant
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"sidechain_id = ? AND masked = ? AND value = ? AND removed_height IS NULL",
		sidechainId,
		masked,
		value,
	).Order("slot_index").First(&participant); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &participant, nil
}

// GetLiveParticipants retrieves all live slots of a sidechain in offset order
func (d *MetadataStoreSqlite) GetLiveParticipants(
	sidechainId []byte,
	masked bool,
	txn types.Txn,
) ([]*models.Participant, error) {
	var participants []*models.Participant
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"sidechain_id = ? AND masked = ? AND removed_height IS NULL",
		sidechainId,
		masked,
	).Order("slot_index").Find(&participants); result.Error != nil {
		return nil, result.Error
	}
	return participants, nil
}

// GetParticipantSlotCount returns the number of allocated slots, including
// tombstones
func (d *MetadataStoreSqlite) GetParticipantSlotCount(
	sidechainId []byte,
	masked bool,
	txn types.Txn,
) (uint64, error) {
	return d.countParticipants(
		txn,
		"sidechain_id = ? AND masked = ?",
		sidechainId,
		masked,
	)
}

// GetLiveParticipantCount returns the number of slots that are not tombstoned
func (d *MetadataStoreSqlite) GetLiveParticipantCount(
	sidechainId []byte,
	masked bool,
	txn types.Txn,
) (uint64, error) {
	return d.countParticipants(
		txn,
		"sidechain_id = ? AND masked = ? AND removed_height IS NULL",
		sidechainId,
		masked,
	)
}

// IsLiveUnmaskedParticipant reports whether value holds a live unmasked slot
// in any sidechain
func (d *MetadataStoreSqlite) IsLiveUnmaskedParticipant(
	value []byte,
	txn types.Txn,
) (bool, error) {
	count, err := d.countParticipants(
		txn,
		"masked = ? AND value = ? AND removed_height IS NULL",
		false,
		value,
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddParticipant appends a slot. The offset is assigned from the current
// slot count and written back to participant.
func (d *MetadataStoreSqlite) AddParticipant(
	participant *models.Participant,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	offset, err := d.GetParticipantSlotCount(
		participant.SidechainId,
		participant.Masked,
		txn,
	)
	if err != nil {
		return err
	}
	participant.SlotIndex = offset
	return db.Create(participant).Error
}

// RemoveParticipant tombstones the slot at offset. The slot keeps its offset
// and its value is cleared.
func (d *MetadataStoreSqlite) RemoveParticipant(
	sidechainId []byte,
	masked bool,
	offset uint64,
	height uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Participant{}).
		Where(
			"sidechain_id = ? AND masked = ? AND slot_index = ? AND removed_height IS NULL",
			sidechainId,
			masked,
			offset,
		).
		Updates(map[string]any{
			"value":          nil,
			"removed_height": height,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (d *MetadataStoreSqlite) countParticipants(
	txn types.Txn,
	query string,
	args ...any,
) (uint64, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	if result := db.Model(&models.Participant{}).Where(query, args...).Count(&count); result.Error != nil {
		return 0, result.Error
	}
	return uint64(count), nil //nolint:gosec // count is never negative
}
