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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/anchorage/database/types"
)

// Txn spans one metadata transaction and one blob transaction, so governance
// state and the event log always move together
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	onCommit    []func()
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:          db,
		readWrite:   readWrite,
		blobTxn:     db.Blob().NewTransaction(readWrite),
		metadataTxn: db.Metadata().Transaction(),
	}
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the underlying metadata transaction handle
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// OnCommit registers fn to run after both stores commit. Hooks run in
// registration order and are discarded on rollback.
func (t *Txn) OnCommit(fn func()) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return
	}
	t.onCommit = append(t.onCommit, fn)
}

// Do runs fn inside the transaction, committing on success and rolling back
// when fn returns an error
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	hooks, err := t.commit()
	t.lock.Unlock()
	if err != nil {
		return err
	}
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// commit finishes the transaction and hands back the hooks to run. The
// caller must hold t.lock.
func (t *Txn) commit() ([]func(), error) {
	if t.finished {
		return nil, nil
	}
	if !t.readWrite {
		// Nothing to write, release the read snapshots
		return nil, t.rollback()
	}
	if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
		_ = t.rollback()
		return nil, fmt.Errorf("failed to update commit timestamp: %w", err)
	}
	// The event log commits first. If it fails, governance state is untouched.
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.finish()
		return nil, fmt.Errorf("event log commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		// The commit timestamps now disagree and the next open reports it
		t.db.logger.Error(
			"partial commit: event log committed, governance state failed",
			"component", "database",
			"error", err,
		)
		t.finish()
		return nil, fmt.Errorf(
			"partial commit: metadata commit failed after blob commit: %w",
			err,
		)
	}
	hooks := t.onCommit
	t.finish()
	return hooks, nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	var errs []error
	if err := t.blobTxn.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("blob rollback: %w", err))
	}
	if err := t.metadataTxn.Rollback(); err != nil {
		errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
	}
	t.finish()
	return errors.Join(errs...)
}

func (t *Txn) finish() {
	t.finished = true
	t.onCommit = nil
}
