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

package api

import (
	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/governance"
)

// GovernanceEngine is the interface that the API server uses to reach the
// governance engine. This decouples the HTTP server from the concrete engine
// and enables testing with mock implementations.
type GovernanceEngine interface {
	Height() uint64
	Events(fromHeight, toHeight uint64) ([]governance.LoggedEvent, error)

	AddSidechain(caller common.Address, id common.SidechainId, votingAlgorithm string, votingPeriod, pinContestPeriod uint64) error
	GetSidechain(id common.SidechainId) (governance.SidechainInfo, bool)
	ListSidechains() []governance.SidechainInfo

	IsSidechainParticipant(id common.SidechainId, addr common.Address) bool
	GetUnmaskedSidechainParticipantsSize(id common.SidechainId) uint64
	GetMaskedSidechainParticipantsSize(id common.SidechainId) uint64
	GetUnmaskedSidechainParticipant(id common.SidechainId, offset uint64) common.Address
	GetMaskedSidechainParticipant(id common.SidechainId, offset uint64) common.Hash
	GetUnmaskedSidechainParticipants(id common.SidechainId) []common.Address
	Unmask(caller common.Address, id common.SidechainId, offset uint64, salt []byte) error

	ProposeVote(caller common.Address, id common.SidechainId, kind governance.ProposalKind, target, extra1, extra2 common.Hash) error
	Vote(caller common.Address, id common.SidechainId, kind governance.ProposalKind, target common.Hash, yes bool) error
	ActionVotes(caller common.Address, id common.SidechainId, target common.Hash) (governance.ActionResult, error)
	GetProposal(id common.SidechainId, target common.Hash) (governance.ProposalInfo, bool)
	GetOpenProposals(id common.SidechainId) []governance.ProposalInfo
	GetVoters(id common.SidechainId, target common.Hash) []common.Address

	AddPin(caller common.Address, key, value common.Hash) error
	GetPinInfo(key common.Hash) governance.PinInfo
}

var _ GovernanceEngine = (*governance.Engine)(nil)

// HeightAdvancer moves the height forward on development networks
type HeightAdvancer interface {
	Advance(n uint64) uint64
}
