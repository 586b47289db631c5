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
	"bytes"
	"fmt"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/voting"
)

// ProposeVote opens a proposal on (id, target) with the caller's implicit yes
// ballot. A finalized proposal on the same target is replaced by a fresh one.
func (e *Engine) ProposeVote(
	caller common.Address,
	id common.SidechainId,
	kind ProposalKind,
	target common.Hash,
	extra1 common.Hash,
	extra2 common.Hash,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.update(func(c *call) error {
		sidechain, err := e.db.GetSidechain(id.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if sidechain == nil {
			return fmt.Errorf("%w: sidechain %s", ErrNotFound, id)
		}
		if err := e.requireUnmasked(c, id, caller); err != nil {
			return err
		}
		proposal, err := e.db.GetProposal(id.Bytes(), target.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if proposal != nil && !proposal.Finalized {
			return fmt.Errorf(
				"%w: open proposal on %s in sidechain %s",
				ErrAlreadyExists,
				target,
				id,
			)
		}
		if err := e.checkProposal(c, sidechain, kind, target, extra1); err != nil {
			return err
		}
		if proposal == nil {
			proposal = &models.Proposal{
				SidechainId: id.Bytes(),
				Target:      target.Bytes(),
			}
		} else {
			if err := e.db.DeleteBallots(proposal.ID, c.txn); err != nil {
				return err
			}
			proposal.Round++
		}
		proposal.Kind = uint8(kind)
		proposal.Extra1 = extra1.Bytes()
		proposal.Extra2 = extra2.Bytes()
		proposal.Proposer = caller.Bytes()
		proposal.CreatedHeight = c.height
		proposal.FinalizedHeight = nil
		proposal.Finalized = false
		proposal.Decided = false
		if err := e.db.SetProposal(proposal, c.txn); err != nil {
			return err
		}
		return e.db.SetBallot(
			&models.Ballot{
				ProposalID: proposal.ID,
				Voter:      caller.Bytes(),
				CastHeight: c.height,
				Yes:        true,
			},
			c.txn,
		)
	})
	if err != nil {
		return err
	}
	e.metrics.proposalsOpened.WithLabelValues(kind.String()).Inc()
	e.logger.Debug(
		"proposal opened",
		"component", "governance",
		"sidechain", id.String(),
		"kind", kind.String(),
		"target", target.String(),
		"proposer", caller.String(),
	)
	return nil
}

// checkProposal validates the kind-specific preconditions of a new proposal
func (e *Engine) checkProposal(
	c *call,
	sidechain *models.Sidechain,
	kind ProposalKind,
	target common.Hash,
	extra1 common.Hash,
) error {
	id := sidechain.SidechainId
	switch kind {
	case KindAddUnmasked:
		addr, ok := target.Address()
		if !ok || addr.IsZero() {
			return fmt.Errorf(
				"%w: %s is not an address",
				ErrPreconditionNotMet,
				target,
			)
		}
		slot, err := e.db.GetLiveParticipantByValue(id, false, addr.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if slot != nil {
			return fmt.Errorf(
				"%w: %s is already an unmasked participant",
				ErrAlreadyExists,
				addr,
			)
		}
	case KindAddMasked:
		if target.IsZero() {
			return fmt.Errorf("%w: empty commitment", ErrPreconditionNotMet)
		}
		slot, err := e.db.GetLiveParticipantByValue(id, true, target.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if slot != nil {
			return fmt.Errorf(
				"%w: %s is already a masked participant",
				ErrAlreadyExists,
				target,
			)
		}
	case KindRemoveUnmasked, KindRemoveMasked:
		ok, err := e.slotHolds(c, id, kind.Masked(), extra1, removalValue(kind, target))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf(
				"%w: slot %s does not hold %s",
				ErrNotFound,
				extra1,
				target,
			)
		}
	case KindContestPin:
		pin, err := e.db.GetPin(target.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if pin == nil || pin.Revoked() {
			return fmt.Errorf("%w: pin %s", ErrNotFound, target)
		}
		if c.height > pin.AddedHeight+sidechain.PinContestPeriod {
			return fmt.Errorf(
				"%w: contest window for pin %s closed at height %d",
				ErrPreconditionNotMet,
				target,
				pin.AddedHeight+sidechain.PinContestPeriod,
			)
		}
	default:
		return fmt.Errorf(
			"%w: invalid proposal kind %s",
			ErrPreconditionNotMet,
			kind,
		)
	}
	return nil
}

// removalValue returns the stored slot value a removal of target must match
func removalValue(kind ProposalKind, target common.Hash) []byte {
	if kind == KindRemoveUnmasked {
		addr, ok := target.Address()
		if !ok {
			return nil
		}
		return addr.Bytes()
	}
	return target.Bytes()
}

// slotHolds reports whether the live slot at offset holds value
func (e *Engine) slotHolds(
	c *call,
	id []byte,
	masked bool,
	offset common.Hash,
	value []byte,
) (bool, error) {
	index, ok := offset.Uint64()
	if !ok || len(value) == 0 {
		return false, nil
	}
	slot, err := e.db.GetParticipant(id, masked, index, c.txn)
	if err != nil {
		return false, err
	}
	if slot == nil || !slot.Live() {
		return false, nil
	}
	return bytes.Equal(slot.Value, value), nil
}

// Vote records or replaces the caller's ballot on an open proposal
func (e *Engine) Vote(
	caller common.Address,
	id common.SidechainId,
	kind ProposalKind,
	target common.Hash,
	yes bool,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.update(func(c *call) error {
		if err := e.requireUnmasked(c, id, caller); err != nil {
			return err
		}
		proposal, err := e.db.GetProposal(id.Bytes(), target.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if proposal == nil || proposal.Finalized ||
			ProposalKind(proposal.Kind) != kind {
			return fmt.Errorf(
				"%w: no open %s proposal on %s in sidechain %s",
				ErrNotFound,
				kind,
				target,
				id,
			)
		}
		return e.db.SetBallot(
			&models.Ballot{
				ProposalID: proposal.ID,
				Voter:      caller.Bytes(),
				CastHeight: c.height,
				Yes:        yes,
			},
			c.txn,
		)
	})
	if err != nil {
		return err
	}
	choice := "no"
	if yes {
		choice = "yes"
	}
	e.metrics.votesCast.WithLabelValues(choice).Inc()
	return nil
}

// ActionVotes tallies and finalizes the proposal on (id, target) once its
// voting period has elapsed, applying it if decided. Any caller may action a
// proposal. A VoteResult event is emitted for every finalized proposal.
func (e *Engine) ActionVotes(
	caller common.Address,
	id common.SidechainId,
	target common.Hash,
) (ActionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var result ActionResult
	var kind ProposalKind
	err := e.update(func(c *call) error {
		sidechain, err := e.db.GetSidechain(id.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if sidechain == nil {
			return fmt.Errorf("%w: sidechain %s", ErrNotFound, id)
		}
		proposal, err := e.db.GetProposal(id.Bytes(), target.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if proposal == nil {
			return fmt.Errorf(
				"%w: no proposal on %s in sidechain %s",
				ErrNotFound,
				target,
				id,
			)
		}
		if proposal.Finalized {
			return fmt.Errorf(
				"%w: proposal on %s in sidechain %s",
				ErrAlreadyFinalized,
				target,
				id,
			)
		}
		if readyAt := proposal.CreatedHeight + sidechain.VotingPeriod; c.height < readyAt {
			return fmt.Errorf(
				"%w: voting on %s closes at height %d, current height %d",
				ErrPreconditionNotMet,
				target,
				readyAt,
				c.height,
			)
		}
		kind = ProposalKind(proposal.Kind)
		decided, err := e.tally(c, sidechain, proposal)
		if err != nil {
			return err
		}
		proposal.Finalized = true
		proposal.Decided = decided
		finalizedHeight := c.height
		proposal.FinalizedHeight = &finalizedHeight
		if err := e.db.SetProposal(proposal, c.txn); err != nil {
			return err
		}
		result = ActionResult{Decided: decided}
		if decided {
			result, err = e.apply(c, sidechain, proposal)
			if err != nil {
				return err
			}
		} else {
			result.Reason = ReasonRejected
		}
		return e.emit(c, event.VoteResultEventType, event.VoteResultEvent{
			SidechainId: id,
			Target:      target,
			Height:      c.height,
			Kind:        proposal.Kind,
			Decided:     result.Decided,
			Applied:     result.Applied,
		})
	})
	if err != nil {
		return ActionResult{}, err
	}
	e.metrics.results.WithLabelValues(kind.String(), outcomeLabel(result)).Inc()
	switch {
	case kind == KindContestPin && result.Applied:
		e.metrics.pinsRevoked.Inc()
	case kind == KindContestPin && result.Reason == ReasonContestWindowExpired:
		e.metrics.contestsExpired.Inc()
	}
	e.logger.Info(
		"proposal finalized",
		"component", "governance",
		"sidechain", id.String(),
		"kind", kind.String(),
		"target", target.String(),
		"actioned_by", caller.String(),
		"decided", result.Decided,
		"applied", result.Applied,
		"reason", result.Reason,
	)
	return result, nil
}

// tally counts ballots of voters that are unmasked participants at action
// time and asks the sidechain's voting algorithm for a decision
func (e *Engine) tally(
	c *call,
	sidechain *models.Sidechain,
	proposal *models.Proposal,
) (bool, error) {
	alg, err := voting.Lookup(sidechain.VotingAlgorithm)
	if err != nil {
		return false, err
	}
	live, err := e.db.GetLiveParticipants(sidechain.SidechainId, false, c.txn)
	if err != nil {
		return false, err
	}
	eligible := make(map[string]struct{}, len(live))
	for _, slot := range live {
		eligible[string(slot.Value)] = struct{}{}
	}
	ballots, err := e.db.GetBallots(proposal.ID, c.txn)
	if err != nil {
		return false, err
	}
	var yes, no uint64
	for _, ballot := range ballots {
		if _, ok := eligible[string(ballot.Voter)]; !ok {
			continue
		}
		if ballot.Yes {
			yes++
		} else {
			no++
		}
	}
	if voting.LogsVoters(alg) && len(ballots) > 0 {
		entries := make([]*models.VoterLog, 0, len(ballots))
		for _, ballot := range ballots {
			entries = append(entries, &models.VoterLog{
				SidechainId:     proposal.SidechainId,
				Target:          proposal.Target,
				Voter:           ballot.Voter,
				Round:           proposal.Round,
				FinalizedHeight: c.height,
				Yes:             ballot.Yes,
			})
		}
		if err := e.db.AddVoterLog(entries, c.txn); err != nil {
			return false, err
		}
	}
	return alg.Tally(yes, no, uint64(len(live))), nil
}

// apply performs the effect of a decided proposal
func (e *Engine) apply(
	c *call,
	sidechain *models.Sidechain,
	proposal *models.Proposal,
) (ActionResult, error) {
	result := ActionResult{Decided: true}
	kind := ProposalKind(proposal.Kind)
	id := sidechain.SidechainId
	target, err := common.NewHashFromBytes(proposal.Target)
	if err != nil {
		return result, err
	}
	switch kind {
	case KindAddUnmasked, KindAddMasked:
		value := target.Bytes()
		if kind == KindAddUnmasked {
			addr, ok := target.Address()
			if !ok {
				result.Reason = ReasonUnmaskedTargetInvalid
				return result, nil
			}
			value = addr.Bytes()
		}
		existing, err := e.db.GetLiveParticipantByValue(id, kind.Masked(), value, c.txn)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Reason = ReasonAlreadyApplied
			return result, nil
		}
		if err := e.db.AddParticipant(
			&models.Participant{
				SidechainId: id,
				Value:       value,
				AddedHeight: c.height,
				Masked:      kind.Masked(),
			},
			c.txn,
		); err != nil {
			return result, err
		}
	case KindRemoveUnmasked, KindRemoveMasked:
		offset, err := common.NewHashFromBytes(proposal.Extra1)
		if err != nil {
			return result, err
		}
		ok, err := e.slotHolds(c, id, kind.Masked(), offset, removalValue(kind, target))
		if err != nil {
			return result, err
		}
		if !ok {
			result.Reason = ReasonSlotChanged
			return result, nil
		}
		if kind == KindRemoveUnmasked {
			count, err := e.db.GetLiveParticipantCount(id, false, c.txn)
			if err != nil {
				return result, err
			}
			if count <= 1 {
				result.Reason = ReasonLastParticipant
				return result, nil
			}
		}
		index, _ := offset.Uint64()
		if err := e.db.RemoveParticipant(
			id,
			kind.Masked(),
			index,
			c.height,
			c.txn,
		); err != nil {
			return result, err
		}
	case KindContestPin:
		return e.applyContest(c, sidechain, proposal)
	}
	result.Applied = true
	return result, nil
}

// GetProposal returns the current or most recent proposal on (id, target)
func (e *Engine) GetProposal(
	id common.SidechainId,
	target common.Hash,
) (ProposalInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	proposal, err := e.db.GetProposal(id.Bytes(), target.Bytes(), nil)
	if err != nil {
		e.readFailed("get proposal", err)
		return ProposalInfo{}, false
	}
	if proposal == nil {
		return ProposalInfo{}, false
	}
	return e.proposalInfo(proposal), true
}

// GetOpenProposals returns the unresolved proposals of id
func (e *Engine) GetOpenProposals(id common.SidechainId) []ProposalInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	proposals, err := e.db.GetOpenProposals(id.Bytes(), nil)
	if err != nil {
		e.readFailed("get open proposals", err)
		return nil
	}
	ret := make([]ProposalInfo, 0, len(proposals))
	for _, proposal := range proposals {
		ret = append(ret, e.proposalInfo(proposal))
	}
	return ret
}

func (e *Engine) proposalInfo(proposal *models.Proposal) ProposalInfo {
	ret := ProposalInfo{
		Kind:          ProposalKind(proposal.Kind),
		CreatedHeight: proposal.CreatedHeight,
		Round:         proposal.Round,
		Finalized:     proposal.Finalized,
		Decided:       proposal.Decided,
	}
	ret.SidechainId, _ = common.NewSidechainIdFromBytes(proposal.SidechainId)
	ret.Target, _ = common.NewHashFromBytes(proposal.Target)
	ret.Extra1, _ = common.NewHashFromBytes(proposal.Extra1)
	ret.Extra2, _ = common.NewHashFromBytes(proposal.Extra2)
	ret.Proposer, _ = common.NewAddressFromBytes(proposal.Proposer)
	if proposal.FinalizedHeight != nil {
		ret.FinalizedHeight = *proposal.FinalizedHeight
	}
	ballots, err := e.db.GetBallots(proposal.ID, nil)
	if err != nil {
		e.readFailed("get ballots", err)
		return ret
	}
	ret.Ballots = make([]Ballot, 0, len(ballots))
	for _, ballot := range ballots {
		voter, _ := common.NewAddressFromBytes(ballot.Voter)
		ret.Ballots = append(ret.Ballots, Ballot{
			Voter:  voter,
			Yes:    ballot.Yes,
			Height: ballot.CastHeight,
		})
	}
	return ret
}

// GetVoters returns the addresses that voted on the most recently finalized
// proposal on (id, target). It is only populated for sidechains using a
// voter-logging algorithm.
func (e *Engine) GetVoters(
	id common.SidechainId,
	target common.Hash,
) []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries, err := e.db.GetVoterLog(id.Bytes(), target.Bytes(), nil)
	if err != nil {
		e.readFailed("get voter log", err)
		return nil
	}
	if len(entries) == 0 {
		return nil
	}
	round := entries[len(entries)-1].Round
	var ret []common.Address
	for _, entry := range entries {
		if entry.Round != round {
			continue
		}
		voter, err := common.NewAddressFromBytes(entry.Voter)
		if err != nil {
			continue
		}
		ret = append(ret, voter)
	}
	return ret
}
