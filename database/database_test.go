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

package database_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blinklabs-io/anchorage/database"
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbConfig = &database.Config{
	BlobCacheSize: 1 << 20,
	Logger:        nil,
	PromRegistry:  nil,
	DataDir:       "",
}

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	return db
}

func testPin(b byte) *models.Pin {
	return &models.Pin{
		PinKey:      bytes.Repeat([]byte{b}, 32),
		Value:       bytes.Repeat([]byte{b + 1}, 32),
		AddedBy:     bytes.Repeat([]byte{0xaa}, 20),
		AddedHeight: uint64(b),
	}
}

func TestTxnCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	pin := testPin(1)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.AddPin(pin, txn); err != nil {
			return err
		}
		_, err := db.AppendEvent(1, "pin.added", pin.PinKey, txn)
		return err
	})
	require.NoError(t, err)

	stored, err := db.GetPin(pin.PinKey, nil)
	require.NoError(t, err)
	require.NotNil(t, stored)
	events, err := db.GetEvents(0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pin.added", events[0].Type)
	assert.Equal(t, pin.PinKey, events[0].Payload)
}

func TestTxnRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t)
	pin := testPin(2)
	errTest := errors.New("test failure")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.AddPin(pin, txn); err != nil {
			return err
		}
		if _, err := db.AppendEvent(1, "pin.added", pin.PinKey, txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)

	stored, err := db.GetPin(pin.PinKey, nil)
	require.NoError(t, err)
	assert.Nil(t, stored)
	events, err := db.GetEvents(0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventLogRange(t *testing.T) {
	db := newTestDatabase(t)
	heights := []uint64{1, 1, 3, 5, 5, 5, 9}
	for i, height := range heights {
		err := db.Transaction(true).Do(func(txn *database.Txn) error {
			record, err := db.AppendEvent(height, "test", []byte{byte(i)}, txn)
			if err != nil {
				return err
			}
			assert.Equal(t, uint64(i), record.Seq)
			return nil
		})
		require.NoError(t, err)
	}
	events, err := db.GetEvents(3, 5)
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, evt := range events {
		assert.Equal(t, []byte{byte(i + 2)}, evt.Payload)
	}
	events, err = db.GetEvents(0, 100)
	require.NoError(t, err)
	assert.Len(t, events, len(heights))
	events, err = db.GetEvents(6, 8)
	require.NoError(t, err)
	assert.Empty(t, events)
	events, err = db.GetEvents(5, 1)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppendEventRequiresTxn(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.AppendEvent(1, "test", nil, nil)
	require.Error(t, err)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.AddPin(testPin(3), txn)
	}))
	// Advance the blob timestamp alone to simulate a partial commit
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	require.NotNil(t, db)
	defer db.Close() //nolint:errcheck
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
}

func TestTxnOnCommitHooks(t *testing.T) {
	db := newTestDatabase(t)
	var ran []string
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		txn.OnCommit(func() { ran = append(ran, "first") })
		txn.OnCommit(func() { ran = append(ran, "second") })
		assert.Empty(t, ran)
		return db.AddPin(testPin(5), txn)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)

	ran = nil
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		txn.OnCommit(func() { ran = append(ran, "rolled back") })
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Empty(t, ran)
}

func TestHeightWatermark(t *testing.T) {
	db := newTestDatabase(t)
	height, err := db.GetHeightWatermark()
	require.NoError(t, err)
	assert.Zero(t, height)

	for _, h := range []uint64{20, 50, 30} {
		err := db.Transaction(true).Do(func(txn *database.Txn) error {
			return db.SetHeightWatermark(h, txn)
		})
		require.NoError(t, err)
	}
	height, err = db.GetHeightWatermark()
	require.NoError(t, err)
	// Lower heights never pull the watermark back
	assert.Equal(t, uint64(50), height)

	errTest := errors.New("test failure")
	err = db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetHeightWatermark(90, txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)
	height, err = db.GetHeightWatermark()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), height)
}
