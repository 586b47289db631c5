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

// GetProposal returns the proposal for (sidechainId, target), or nil
func (d *Database) GetProposal(
	sidechainId []byte,
	target []byte,
	txn *Txn,
) (*models.Proposal, error) {
	ret, err := d.metadata.GetProposal(sidechainId, target, metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf("get proposal %x: %w", target, err)
	}
	return ret, nil
}

// GetOpenProposals returns the unresolved proposals of a sidechain
func (d *Database) GetOpenProposals(
	sidechainId []byte,
	txn *Txn,
) ([]*models.Proposal, error) {
	ret, err := d.metadata.GetOpenProposals(sidechainId, metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf(
			"get open proposals of sidechain %x: %w",
			sidechainId,
			err,
		)
	}
	return ret, nil
}

// SetProposal creates or updates a proposal
func (d *Database) SetProposal(
	proposal *models.Proposal,
	txn *Txn,
) error {
	if err := d.metadata.SetProposal(proposal, metadataTxn(txn)); err != nil {
		return fmt.Errorf("set proposal %x: %w", proposal.Target, err)
	}
	return nil
}

// GetBallots returns the ballots cast on a proposal
func (d *Database) GetBallots(
	proposalID uint,
	txn *Txn,
) ([]*models.Ballot, error) {
	ret, err := d.metadata.GetBallots(proposalID, metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf("get ballots of proposal %d: %w", proposalID, err)
	}
	return ret, nil
}

// SetBallot records or overwrites a ballot
func (d *Database) SetBallot(ballot *models.Ballot, txn *Txn) error {
	if err := d.metadata.SetBallot(ballot, metadataTxn(txn)); err != nil {
		return fmt.Errorf(
			"set ballot on proposal %d: %w",
			ballot.ProposalID,
			err,
		)
	}
	return nil
}

// DeleteBallots discards all ballots of a proposal
func (d *Database) DeleteBallots(proposalID uint, txn *Txn) error {
	if err := d.metadata.DeleteBallots(proposalID, metadataTxn(txn)); err != nil {
		return fmt.Errorf(
			"delete ballots of proposal %d: %w",
			proposalID,
			err,
		)
	}
	return nil
}

// AddVoterLog appends voter log entries
func (d *Database) AddVoterLog(entries []*models.VoterLog, txn *Txn) error {
	if err := d.metadata.AddVoterLog(entries, metadataTxn(txn)); err != nil {
		return fmt.Errorf("add voter log: %w", err)
	}
	return nil
}

// GetVoterLog returns the voter log for (sidechainId, target)
func (d *Database) GetVoterLog(
	sidechainId []byte,
	target []byte,
	txn *Txn,
) ([]*models.VoterLog, error) {
	ret, err := d.metadata.GetVoterLog(sidechainId, target, metadataTxn(txn))
	if err != nil {
		return nil, fmt.Errorf("get voter log %x: %w", target, err)
	}
	return ret, nil
}
