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

// GetPin retrieves a pin by key. Returns nil if the key was never pinned.
func (d *MetadataStoreSqlite) GetPin(
	key []byte,
	txn types.Txn,
) (*models.Pin, error) {
	var pin models.Pin
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("pin_key = ?", key).First(&pin); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &pin, nil
}

// AddPin stores a new pin. It fails if the key already exists.
func (d *MetadataStoreSqlite) AddPin(
	pin *models.Pin,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(pin).Error
}

// RevokePin overwrites the value of a live pin with revokedValue
func (d *MetadataStoreSqlite) RevokePin(
	key []byte,
	revokedValue []byte,
	height uint64,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Pin{}).
		Where("pin_key = ? AND revoked_height IS NULL", key).
		Updates(map[string]any{
			"value":          revokedValue,
			"revoked_height": height,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
