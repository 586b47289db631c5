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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/anchorage/database/types"
)

// heightWatermarkKey holds the highest height any committed change ran at.
// It lives in the blob store next to the event log.
const heightWatermarkKey = "height_watermark"

func (d *Database) readHeightWatermark(txn types.Txn) (uint64, error) {
	val, err := d.blob.Get(txn, []byte(heightWatermarkKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, errors.New("invalid height watermark length")
	}
	return binary.BigEndian.Uint64(val), nil
}

// GetHeightWatermark returns the highest height recorded by a committed
// transaction, or 0 for a fresh database
func (d *Database) GetHeightWatermark() (uint64, error) {
	txn := d.blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	ret, err := d.readHeightWatermark(txn)
	if err != nil {
		return 0, fmt.Errorf("get height watermark: %w", err)
	}
	return ret, nil
}

// SetHeightWatermark raises the stored watermark to height as part of txn.
// A lower height leaves the watermark unchanged.
func (d *Database) SetHeightWatermark(height uint64, txn *Txn) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	current, err := d.readHeightWatermark(txn.Blob())
	if err != nil {
		return fmt.Errorf("get height watermark: %w", err)
	}
	if height <= current && current > 0 {
		return nil
	}
	if err := d.blob.Set(
		txn.Blob(),
		[]byte(heightWatermarkKey),
		binary.BigEndian.AppendUint64(nil, height),
	); err != nil {
		return fmt.Errorf("store height watermark: %w", err)
	}
	return nil
}
