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

// RootResponse is returned by GET /
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool   `json:"isHealthy"`
	Height    uint64 `json:"height"`
}

// HeightResponse is returned by the height endpoints
type HeightResponse struct {
	Height uint64 `json:"height"`
}

// AdvanceHeightRequest is the body of POST /api/v1/height/advance
type AdvanceHeightRequest struct {
	Blocks uint64 `json:"blocks"`
}

// AddSidechainRequest is the body of POST /api/v1/sidechains
type AddSidechainRequest struct {
	Id               common.SidechainId `json:"id"`
	VotingAlgorithm  string             `json:"votingAlgorithm"`
	VotingPeriod     uint64             `json:"votingPeriod"`
	PinContestPeriod uint64             `json:"pinContestPeriod"`
}

// ParticipantResponse is returned by GET .../participants/{address}
type ParticipantResponse struct {
	Address     common.Address `json:"address"`
	Participant bool           `json:"participant"`
}

// UnmaskedParticipantsResponse lists the unmasked participants of a sidechain
type UnmaskedParticipantsResponse struct {
	Size         uint64           `json:"size"`
	Participants []common.Address `json:"participants"`
}

// MaskedParticipantsResponse reports the masked slot count of a sidechain
type MaskedParticipantsResponse struct {
	Size uint64 `json:"size"`
}

// UnmaskedSlotResponse is a single unmasked slot
type UnmaskedSlotResponse struct {
	Offset  uint64         `json:"offset"`
	Address common.Address `json:"address"`
}

// MaskedSlotResponse is a single masked slot
type MaskedSlotResponse struct {
	Offset     uint64      `json:"offset"`
	Commitment common.Hash `json:"commitment"`
}

// UnmaskRequest is the body of POST .../unmask. Salt is hex encoded.
type UnmaskRequest struct {
	Offset uint64 `json:"offset"`
	Salt   string `json:"salt"`
}

// ProposeVoteRequest is the body of POST .../proposals
type ProposeVoteRequest struct {
	Kind   governance.ProposalKind `json:"kind"`
	Target common.Hash             `json:"target"`
	Extra1 common.Hash             `json:"extra1"`
	Extra2 common.Hash             `json:"extra2"`
}

// VoteRequest is the body of POST .../proposals/{target}/votes
type VoteRequest struct {
	Kind governance.ProposalKind `json:"kind"`
	Yes  bool                    `json:"yes"`
}

// VotersResponse lists the logged voters of a finalized proposal
type VotersResponse struct {
	Voters []common.Address `json:"voters"`
}

// AddPinRequest is the body of POST /api/v1/pins
type AddPinRequest struct {
	Key   common.Hash `json:"key"`
	Value common.Hash `json:"value"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}
