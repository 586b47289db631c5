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

package models

// Proposal is a governance proposal keyed by (SidechainId, Target). Only one
// row exists per key: re-proposing after finalization resets the row,
// increments Round and discards its ballots.
type Proposal struct {
	ID              uint    `gorm:"primarykey"`
	SidechainId     []byte  `gorm:"uniqueIndex:idx_proposal_target,priority:1;size:32;not null"`
	Target          []byte  `gorm:"uniqueIndex:idx_proposal_target,priority:2;size:32;not null"`
	Extra1          []byte  `gorm:"size:32"`
	Extra2          []byte  `gorm:"size:32"`
	Proposer        []byte  `gorm:"size:20;not null"`
	CreatedHeight   uint64  `gorm:"index;not null"`
	FinalizedHeight *uint64 `gorm:"index"`
	Round           uint64  `gorm:"not null"`
	Kind            uint8   `gorm:"not null"`
	Finalized       bool    `gorm:"not null"`
	Decided         bool    `gorm:"not null"`
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// Ballot is a participant's current vote on a proposal. Recasting a vote
// overwrites the existing row.
type Ballot struct {
	ID         uint   `gorm:"primarykey"`
	ProposalID uint   `gorm:"uniqueIndex:idx_ballot_voter,priority:1;not null"`
	Voter      []byte `gorm:"uniqueIndex:idx_ballot_voter,priority:2;size:20;not null"`
	CastHeight uint64 `gorm:"not null"`
	Yes        bool   `gorm:"not null"`
}

// TableName returns the table name
func (Ballot) TableName() string {
	return "ballot"
}

// VoterLog records who voted on a finalized proposal, for sidechains using a
// voter-logging algorithm
type VoterLog struct {
	ID              uint   `gorm:"primarykey"`
	SidechainId     []byte `gorm:"index:idx_voter_log_target,priority:1;size:32;not null"`
	Target          []byte `gorm:"index:idx_voter_log_target,priority:2;size:32;not null"`
	Voter           []byte `gorm:"size:20;not null"`
	Round           uint64 `gorm:"index:idx_voter_log_target,priority:3;not null"`
	FinalizedHeight uint64 `gorm:"index;not null"`
	Yes             bool   `gorm:"not null"`
}

// TableName returns the table name
func (VoterLog) TableName() string {
	return "voter_log"
}
