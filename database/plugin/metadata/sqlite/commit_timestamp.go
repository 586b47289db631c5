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
	"github.com/blinklabs-io/anchorage/database/types"
)

// commitMarkerId is the only row in the commit_timestamp table
const commitMarkerId = 1

// CommitTimestamp records when the governance state last committed. The blob
// store keeps the same value next to the event log.
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// GetCommitTimestamp returns the last commit timestamp, or 0 for a fresh store
func (d *MetadataStoreSqlite) GetCommitTimestamp() (int64, error) {
	var markers []CommitTimestamp
	if result := d.DB().Limit(1).Find(&markers, commitMarkerId); result.Error != nil {
		return 0, result.Error
	}
	if len(markers) == 0 {
		return 0, nil
	}
	return markers[0].Timestamp, nil
}

// SetCommitTimestamp stores timestamp as part of txn
func (d *MetadataStoreSqlite) SetCommitTimestamp(
	timestamp int64,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Save(&CommitTimestamp{
		ID:        commitMarkerId,
		Timestamp: timestamp,
	}).Error
}
