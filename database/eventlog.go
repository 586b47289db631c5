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
	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	eventKeyPrefix = "evt"
	eventSeqKey    = "seq_evt"
)

// eventKey builds the blob key for an event: "evt" + height + sequence, both
// big-endian, so that forward iteration yields events in append order
func eventKey(height uint64, seq uint64) []byte {
	key := make([]byte, 0, len(eventKeyPrefix)+16)
	key = append(key, eventKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, height)
	key = binary.BigEndian.AppendUint64(key, seq)
	return key
}

// AppendEvent adds an entry to the event log as part of txn
func (d *Database) AppendEvent(
	height uint64,
	eventType string,
	payload []byte,
	txn *Txn,
) (*types.EventRecord, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	var seq uint64
	seqVal, err := d.blob.Get(txn.Blob(), []byte(eventSeqKey))
	switch {
	case err == nil:
		if len(seqVal) != 8 {
			return nil, errors.New("invalid event sequence length")
		}
		seq = binary.BigEndian.Uint64(seqVal) + 1
	case errors.Is(err, types.ErrBlobKeyNotFound):
	default:
		return nil, fmt.Errorf("get event sequence: %w", err)
	}
	record := &types.EventRecord{
		Height:  height,
		Seq:     seq,
		Type:    eventType,
		Payload: payload,
	}
	recordCbor, err := cbor.Encode(record)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	if err := d.blob.Set(txn.Blob(), eventKey(height, seq), recordCbor); err != nil {
		return nil, fmt.Errorf("store event: %w", err)
	}
	if err := d.blob.Set(
		txn.Blob(),
		[]byte(eventSeqKey),
		binary.BigEndian.AppendUint64(nil, seq),
	); err != nil {
		return nil, fmt.Errorf("store event sequence: %w", err)
	}
	return record, nil
}

// GetEvents returns the events appended at heights in [fromHeight, toHeight]
// in append order
func (d *Database) GetEvents(
	fromHeight uint64,
	toHeight uint64,
) ([]*types.EventRecord, error) {
	if toHeight < fromHeight {
		return nil, nil
	}
	txn := d.blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	prefix := []byte(eventKeyPrefix)
	iter := d.blob.NewIterator(
		txn,
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	var ret []*types.EventRecord
	for iter.Seek(eventKey(fromHeight, 0)); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		key := item.Key()
		if len(key) != len(eventKeyPrefix)+16 {
			continue
		}
		height := binary.BigEndian.Uint64(key[len(eventKeyPrefix):])
		if height > toHeight {
			break
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		var record types.EventRecord
		if _, err := cbor.Decode(val, &record); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		ret = append(ret, &record)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
