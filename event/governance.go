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

package event

import (
	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	VoteResultEventType          = EventType("governance.vote_result")
	SidechainAddedEventType      = EventType("governance.sidechain_added")
	ParticipantUnmaskedEventType = EventType("governance.participant_unmasked")
	PinAddedEventType            = EventType("pin.added")
	PinRevokedEventType          = EventType("pin.revoked")
)

// GovernanceEventTypes lists every event type emitted by the governance engine
func GovernanceEventTypes() []EventType {
	return []EventType{
		VoteResultEventType,
		SidechainAddedEventType,
		ParticipantUnmaskedEventType,
		PinAddedEventType,
		PinRevokedEventType,
	}
}

// VoteResultEvent is emitted exactly once when a proposal is finalized.
// Applied is false when the decision had no effect, such as a contest that
// was decided after its window closed.
type VoteResultEvent struct {
	cbor.StructAsArray
	SidechainId common.SidechainId `json:"sidechainId"`
	Target      common.Hash        `json:"target"`
	Height      uint64             `json:"height"`
	Kind        uint8              `json:"kind"`
	Decided     bool               `json:"decided"`
	Applied     bool               `json:"applied"`
}

// SidechainAddedEvent is emitted when a sidechain is created
type SidechainAddedEvent struct {
	cbor.StructAsArray
	SidechainId      common.SidechainId `json:"sidechainId"`
	Creator          common.Address     `json:"creator"`
	VotingAlgorithm  string             `json:"votingAlgorithm"`
	VotingPeriod     uint64             `json:"votingPeriod"`
	PinContestPeriod uint64             `json:"pinContestPeriod"`
	Height           uint64             `json:"height"`
}

// ParticipantUnmaskedEvent is emitted when a masked participant reveals
// their address
type ParticipantUnmaskedEvent struct {
	cbor.StructAsArray
	SidechainId    common.SidechainId `json:"sidechainId"`
	Address        common.Address     `json:"address"`
	MaskedOffset   uint64             `json:"maskedOffset"`
	UnmaskedOffset uint64             `json:"unmaskedOffset"`
	Height         uint64             `json:"height"`
}

// PinAddedEvent is emitted when a pin is stored
type PinAddedEvent struct {
	cbor.StructAsArray
	Key    common.Hash `json:"key"`
	Value  common.Hash `json:"value"`
	Height uint64      `json:"height"`
}

// PinRevokedEvent is emitted when a contest revokes a pin
type PinRevokedEvent struct {
	cbor.StructAsArray
	SidechainId common.SidechainId `json:"sidechainId"`
	Key         common.Hash        `json:"key"`
	Height      uint64             `json:"height"`
}

// NewEventData returns an empty value of the data type for eventType, for
// decoding stored events. It returns nil for unknown types.
func NewEventData(eventType EventType) any {
	switch eventType {
	case VoteResultEventType:
		return &VoteResultEvent{}
	case SidechainAddedEventType:
		return &SidechainAddedEvent{}
	case ParticipantUnmaskedEventType:
		return &ParticipantUnmaskedEvent{}
	case PinAddedEventType:
		return &PinAddedEvent{}
	case PinRevokedEventType:
		return &PinRevokedEvent{}
	default:
		return nil
	}
}
