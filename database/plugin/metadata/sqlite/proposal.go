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
	"gorm.io/gorm/clause"
)

// GetProposal retrieves the proposal for (sidechainId, target), finalized or
// not. Returns nil if none was ever opened.
func (d *MetadataStoreSqlite) GetProposal(
	sidechainId []byte,
	target []byte,
	txn types.Txn,
) (*models.Proposal, error) {
	var proposal models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"sidechain_id = ? AND target = ?",
		sidechainId,
		target,
	).First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetOpenProposals retrieves all unresolved proposals of a sidechain
func (d *MetadataStoreSqlite) GetOpenProposals(
	sidechainId []byte,
	txn types.Txn,
) ([]*models.Proposal, error) {
	var proposals []*models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"sidechain_id = ? AND finalized = ?",
		sidechainId,
		false,
	).Order("created_height, id").Find(&proposals); result.Error != nil {
		return nil, result.Error
	}
	return proposals, nil
}

// SetProposal creates a proposal or saves all fields of an existing one
func (d *MetadataStoreSqlite) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if proposal.ID == 0 {
		return db.Create(proposal).Error
	}
	return db.Save(proposal).Error
}

// GetBallots retrieves all ballots cast on a proposal
func (d *MetadataStoreSqlite) GetBallots(
	proposalID uint,
	txn types.Txn,
) ([]*models.Ballot, error) {
	var ballots []*models.Ballot
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("proposal_id = ?", proposalID).
		Order("id").
		Find(&ballots); result.Error != nil {
		return nil, result.Error
	}
	return ballots, nil
}

// SetBallot records a ballot, replacing any earlier ballot by the same voter
func (d *MetadataStoreSqlite) SetBallot(
	ballot *models.Ballot,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "proposal_id"},
			{Name: "voter"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"yes",
			"cast_height",
		}),
	}
	return db.Clauses(onConflict).Create(ballot).Error
}

// DeleteBallots removes all ballots of a proposal
func (d *MetadataStoreSqlite) DeleteBallots(
	proposalID uint,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("proposal_id = ?", proposalID).
		Delete(&models.Ballot{}).Error
}

// AddVoterLog appends voter log entries
func (d *MetadataStoreSqlite) AddVoterLog(
	entries []*models.VoterLog,
	txn types.Txn,
) error {
	if len(entries) == 0 {
		return nil
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(&entries).Error
}

// GetVoterLog retrieves the voter log for (sidechainId, target) across all
// proposal rounds, oldest first
func (d *MetadataStoreSqlite) GetVoterLog(
	sidechainId []byte,
	target []byte,
	txn types.Txn,
) ([]*models.VoterLog, error) {
	var entries []*models.VoterLog
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"sidechain_id = ? AND target = ?",
		sidechainId,
		target,
	).Order("round, id").Find(&entries); result.Error != nil {
		return nil, result.Error
	}
	return entries, nil
}
