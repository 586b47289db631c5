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

package governance

import (
	"fmt"
	"strconv"

	"github.com/blinklabs-io/anchorage/common"
)

// ProposalKind identifies what a proposal does when decided
type ProposalKind uint8

const (
	KindNone ProposalKind = iota
	KindAddMasked
	KindRemoveMasked
	KindAddUnmasked
	KindRemoveUnmasked
	KindContestPin
)

var proposalKindNames = map[ProposalKind]string{
	KindNone:           "none",
	KindAddMasked:      "add-masked",
	KindRemoveMasked:   "remove-masked",
	KindAddUnmasked:    "add-unmasked",
	KindRemoveUnmasked: "remove-unmasked",
	KindContestPin:     "contest-pin",
}

func (k ProposalKind) String() string {
	if name, ok := proposalKindNames[k]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is a kind that can be proposed
func (k ProposalKind) Valid() bool {
	return k >= KindAddMasked && k <= KindContestPin
}

// Masked reports whether k operates on the masked participant set
func (k ProposalKind) Masked() bool {
	return k == KindAddMasked || k == KindRemoveMasked
}

func (k ProposalKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ProposalKind) UnmarshalText(text []byte) error {
	tmp, err := ParseProposalKind(string(text))
	if err != nil {
		return err
	}
	*k = tmp
	return nil
}

// ParseProposalKind accepts a kind name or its numeric code
func ParseProposalKind(s string) (ProposalKind, error) {
	for kind, name := range proposalKindNames {
		if name == s {
			return kind, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil {
		kind := ProposalKind(n)
		if kind.Valid() || kind == KindNone {
			return kind, nil
		}
	}
	return KindNone, fmt.Errorf("unknown proposal kind: %q", s)
}

// PinPolicy controls who may add pins
type PinPolicy string

const (
	// PinPolicyOpen lets any caller add pins
	PinPolicyOpen PinPolicy = "open"
	// PinPolicyParticipant requires the caller to be an unmasked participant
	// of at least one sidechain
	PinPolicyParticipant PinPolicy = "participant"
	// PinPolicyManagement requires the caller to be an unmasked participant
	// of the management sidechain
	PinPolicyManagement PinPolicy = "management"
)

// ParsePinPolicy validates a pin policy name. An empty string selects
// PinPolicyOpen.
func ParsePinPolicy(s string) (PinPolicy, error) {
	switch PinPolicy(s) {
	case "", PinPolicyOpen:
		return PinPolicyOpen, nil
	case PinPolicyParticipant, PinPolicyManagement:
		return PinPolicy(s), nil
	}
	return "", fmt.Errorf("unknown pin policy: %q", s)
}

var (
	// AbsentPin is returned by GetPin for keys that were never added
	AbsentPin = common.Hash{}
	// RevokedPin replaces the value of a pin revoked by a contest
	RevokedPin = common.Hash{0x01}
)

// Reasons reported in ActionResult when a decision had no effect
const (
	ReasonRejected              = "not decided"
	ReasonAlreadyApplied        = "target already in requested state"
	ReasonSlotChanged           = "slot no longer holds target"
	ReasonLastParticipant       = "cannot remove last unmasked participant"
	ReasonPinUnavailable        = "pin missing or already revoked"
	ReasonContestWindowExpired  = "contest window expired"
	ReasonContestLinkMismatch   = "pin link does not verify"
	ReasonUnmaskedTargetInvalid = "target is not an address"
)

// ActionResult describes the outcome of ActionVotes. Decided is the voting
// outcome that is reported in the VoteResult event. Applied is true when the
// decision changed state. Reason explains why a decision was not applied.
type ActionResult struct {
	Decided bool   `json:"decided"`
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// PinState distinguishes the three observable states of a pin key
type PinState uint8

const (
	PinAbsent PinState = iota
	PinActive
	PinRevoked
)

func (s PinState) String() string {
	switch s {
	case PinActive:
		return "active"
	case PinRevoked:
		return "revoked"
	default:
		return "absent"
	}
}

func (s PinState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PinInfo is the full stored state of a pin
type PinInfo struct {
	Key           common.Hash    `json:"key"`
	Value         common.Hash    `json:"value"`
	State         PinState       `json:"state"`
	AddedBy       common.Address `json:"addedBy"`
	AddedHeight   uint64         `json:"addedHeight"`
	RevokedHeight uint64         `json:"revokedHeight,omitempty"`
}

// SidechainInfo summarizes a sidechain record
type SidechainInfo struct {
	Id                  common.SidechainId `json:"id"`
	VotingAlgorithm     string             `json:"votingAlgorithm"`
	VotingPeriod        uint64             `json:"votingPeriod"`
	PinContestPeriod    uint64             `json:"pinContestPeriod"`
	LatestPin           common.Hash        `json:"latestPin"`
	AddedHeight         uint64             `json:"addedHeight"`
	UnmaskedSlots       uint64             `json:"unmaskedSlots"`
	MaskedSlots         uint64             `json:"maskedSlots"`
	UnmaskedLiveMembers uint64             `json:"unmaskedLiveMembers"`
	MaskedLiveMembers   uint64             `json:"maskedLiveMembers"`
}

// Ballot is a single participant's current vote
type Ballot struct {
	Voter  common.Address `json:"voter"`
	Yes    bool           `json:"yes"`
	Height uint64         `json:"height"`
}

// ProposalInfo is the stored state of a proposal and its ballots
type ProposalInfo struct {
	SidechainId     common.SidechainId `json:"sidechainId"`
	Target          common.Hash        `json:"target"`
	Kind            ProposalKind       `json:"kind"`
	Extra1          common.Hash        `json:"extra1"`
	Extra2          common.Hash        `json:"extra2"`
	Proposer        common.Address     `json:"proposer"`
	CreatedHeight   uint64             `json:"createdHeight"`
	Round           uint64             `json:"round"`
	Finalized       bool               `json:"finalized"`
	Decided         bool               `json:"decided"`
	FinalizedHeight uint64             `json:"finalizedHeight,omitempty"`
	Ballots         []Ballot           `json:"ballots"`
}

// LoggedEvent is an event read back from the event log
type LoggedEvent struct {
	Height uint64 `json:"height"`
	Seq    uint64 `json:"seq"`
	Type   string `json:"type"`
	Data   any    `json:"data"`
}
