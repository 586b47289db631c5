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

package metadata

import (
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/anchorage/database/types"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Sidechains
	GetSidechain(
		[]byte, // sidechainId
		types.Txn,
	) (*models.Sidechain, error)
	GetSidechains(types.Txn) ([]*models.Sidechain, error)
	AddSidechain(*models.Sidechain, types.Txn) error
	SetSidechainLatestPin(
		[]byte, // sidechainId
		[]byte, // pinKey
		types.Txn,
	) error

	// Participants
	GetParticipant(
		[]byte, // sidechainId
		bool, // masked
		uint64, // offset
		types.Txn,
	) (*models.Participant, error)
	GetLiveParticipantByValue(
		[]byte, // sidechainId
		bool, // masked
		[]byte, // value
		types.Txn,
	) (*models.Participant, error)
	GetLiveParticipants(
		[]byte, // sidechainId
		bool, // masked
		types.Txn,
	) ([]*models.Participant, error)
	GetParticipantSlotCount(
		[]byte, // sidechainId
		bool, // masked
		types.Txn,
	) (uint64, error)
	GetLiveParticipantCount(
		[]byte, // sidechainId
		bool, // masked
		types.Txn,
	) (uint64, error)
	IsLiveUnmaskedParticipant(
		[]byte, // address
		types.Txn,
	) (bool, error)
	AddParticipant(*models.Participant, types.Txn) error
	RemoveParticipant(
		[]byte, // sidechainId
		bool, // masked
		uint64, // offset
		uint64, // height
		types.Txn,
	) error

	// Proposals
	GetProposal(
		[]byte, // sidechainId
		[]byte, // target
		types.Txn,
	) (*models.Proposal, error)
	GetOpenProposals(
		[]byte, // sidechainId
		types.Txn,
	) ([]*models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetBallots(
		uint, // proposalID
		types.Txn,
	) ([]*models.Ballot, error)
	SetBallot(*models.Ballot, types.Txn) error
	DeleteBallots(
		uint, // proposalID
		types.Txn,
	) error
	AddVoterLog([]*models.VoterLog, types.Txn) error
	GetVoterLog(
		[]byte, // sidechainId
		[]byte, // target
		types.Txn,
	) ([]*models.VoterLog, error)

	// Pins
	GetPin(
		[]byte, // key
		types.Txn,
	) (*models.Pin, error)
	AddPin(*models.Pin, types.Txn) error
	RevokePin(
		[]byte, // key
		[]byte, // revokedValue
		uint64, // height
		types.Txn,
	) error
}

// Ensure the sqlite store satisfies the interface
var _ MetadataStore = (*sqlite.MetadataStoreSqlite)(nil)
