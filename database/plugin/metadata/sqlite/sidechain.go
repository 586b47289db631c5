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

// GetSidechain retrieves a sidechain by id. Returns nil if it does not exist.
func (d *MetadataStoreSqlite) GetSidechain(
	sidechainId []byte,
	txn types.Txn,
) (*models.Sidechain, error) {
	var sidechain models.Sidechain
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("sidechain_id = ?", sidechainId).First(&sidechain); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &sidechain, nil
}

// GetSidechains retrieves all sidechains in creation order
func (d *MetadataStoreSqlite) GetSidechains(
	txn types.Txn,
) ([]*models.Sidechain, error) {
	var sidechains []*models.Sidechain
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Order("id").Find(&sidechains); result.Error != nil {
		return nil, result.Error
	}
	return sidechains, nil
}

// AddSidechain creates a sidechain record. It fails if the id already exists.
func (d *MetadataStoreSqlite) AddSidechain(
	sidechain *models.Sidechain,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(sidechain).Error
}

// SetSidechainLatestPin updates the informational latest pin of a sidechain
func (d *MetadataStoreSqlite) SetSidechainLatestPin(
	sidechainId []byte,
	pinKey []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Model(&models.Sidechain{}).
		Where("sidechain_id = ?", sidechainId).
		Update("latest_pin", pinKey).Error
}
