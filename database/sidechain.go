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
	"github.com/blinklabs-io/anchorage/database/types"
)

// metadataTxn returns the metadata handle of txn, or nil to run outside of
// a transaction
func metadataTxn(txn *Txn) types.Txn {
	if txn == nil {
		return nil
	}
	return txn.Metadata()
}

// GetSidechain returns the sidechain record, or nil if it does not exist
func (d *Database) GetSidechain(
	sidechainId []byte,
	txn *Txn,
) (*models.Sidechain, error) {
	ret, err := d.metadata.GetSidechain(sidechainId, metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf("get sidechain %x: %w", sidechainId, err)
	}
	return ret, nil
}

// GetSidechains returns all sidechain records
func (d *Database) GetSidechains(txn *Txn) ([]*models.Sidechain, error) {
	ret, err := d.metadata.GetSidechains(metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf("get sidechains: %w", err)
	}
	return ret, nil
}

// AddSidechain creates a sidechain record
func (d *Database) AddSidechain(
	sidechain *models.Sidechain,
	txn *Txn,
) error {
	if err := d.metadata.AddSidechain(sidechain, metadataTxn(txn)); err != nil {
		return fmt.Errorf(
			"add sidechain %x: %w",
			sidechain.SidechainId,
			err,
		)
	}
	return nil
}

// SetSidechainLatestPin records the latest pin key for a sidechain. A nil key
// clears it.
func (d *Database) SetSidechainLatestPin(
	sidechainId []byte,
	pinKey []byte,
	txn *Txn,
) error {
	if err := d.metadata.SetSidechainLatestPin(
		sidechainId,
		pinKey,
		metadataTxn(txn),
	); err != nil {
		return fmt.Errorf(
			"set latest pin for sidechain %x: %w",
			sidechainId,
			err,
		)
	}
	return nil
}
