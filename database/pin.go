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

// GetPin returns the pin stored at key, or nil
func (d *Database) GetPin(key []byte, txn *Txn) (*models.Pin, error) {
	ret, err := d.metadata.GetPin(key, metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf("get pin %x: %w", key, err)
	}
	return ret, nil
}

// AddPin stores a new pin
func (d *Database) AddPin(pin *models.Pin, txn *Txn) error {
	if err := d.metadata.AddPin(pin, metadataTxn(txn)); err != nil {
		return fmt.Errorf("add pin %x: %w", pin.PinKey, err)
	}
	return nil
}

// RevokePin overwrites the value of a live pin with revokedValue
func (d *Database) RevokePin(
	key []byte,
	revokedValue []byte,
	height uint64,
	txn *Txn,
) error {
	if err := d.metadata.RevokePin(
		key,
		revokedValue,
		height,
		metadataTxn(txn),
	); err != nil {
		return fmt.Errorf("revoke pin %x: %w", key, err)
	}
	return nil
}
