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
	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/pinkey"
)

// applyContest revokes the pin targeted by a decided contest. The decision
// only takes effect while the pin is inside its contest window and when the
// disclosed stream value links the pin to the claimed previous pin.
func (e *Engine) applyContest(
	c *call,
	sidechain *models.Sidechain,
	proposal *models.Proposal,
) (ActionResult, error) {
	result := ActionResult{Decided: true}
	id, err := common.NewSidechainIdFromBytes(sidechain.SidechainId)
	if err != nil {
		return result, err
	}
	key, err := common.NewHashFromBytes(proposal.Target)
	if err != nil {
		return result, err
	}
	pin, err := e.db.GetPin(key.Bytes(), c.txn)
	if err != nil {
		return result, err
	}
	if pin == nil || pin.Revoked() {
		result.Reason = ReasonPinUnavailable
		return result, nil
	}
	closesAt := pin.AddedHeight + sidechain.PinContestPeriod
	if c.height > closesAt {
		e.logger.Info(
			"contest decided after window closed, pin kept",
			"component", "governance",
			"pin", key.String(),
			"window_closed", closesAt,
			"height", c.height,
		)
		result.Reason = ReasonContestWindowExpired
		return result, nil
	}
	linked, err := e.verifyContestLink(c, id, key, proposal)
	if err != nil {
		return result, err
	}
	if !linked {
		result.Reason = ReasonContestLinkMismatch
		return result, nil
	}
	if err := e.db.RevokePin(
		key.Bytes(),
		RevokedPin.Bytes(),
		c.height,
		c.txn,
	); err != nil {
		return result, err
	}
	if err := e.rollbackLatestPin(c, sidechain, proposal.Extra1); err != nil {
		return result, err
	}
	if err := e.emit(c, event.PinRevokedEventType, event.PinRevokedEvent{
		SidechainId: id,
		Key:         key,
		Height:      c.height,
	}); err != nil {
		return result, err
	}
	result.Applied = true
	return result, nil
}

// rollbackLatestPin points the sidechain at the pin preceding a revoked one.
// That key was disclosed by the contest, so recording it reveals nothing new.
// A previous key that was never pinned is the chain origin and clears it.
func (e *Engine) rollbackLatestPin(
	c *call,
	sidechain *models.Sidechain,
	prevKey []byte,
) error {
	prev, err := e.db.GetPin(prevKey, c.txn)
	if err != nil {
		return err
	}
	var latest []byte
	if prev != nil {
		latest = prev.PinKey
	}
	return e.db.SetSidechainLatestPin(sidechain.SidechainId, latest, c.txn)
}

// verifyContestLink checks target == H(sidechainId || value(extra1) || extra2).
// An unknown previous key stands for the origin of the chain, whose value is
// the zero hash.
func (e *Engine) verifyContestLink(
	c *call,
	id common.SidechainId,
	target common.Hash,
	proposal *models.Proposal,
) (bool, error) {
	streamValue, err := common.NewHashFromBytes(proposal.Extra2)
	if err != nil {
		return false, err
	}
	var prevValue common.Hash
	prev, err := e.db.GetPin(proposal.Extra1, c.txn)
	if err != nil {
		return false, err
	}
	if prev != nil {
		prevValue, err = common.NewHashFromBytes(prev.Value)
		if err != nil {
			return false, err
		}
	}
	return pinkey.Verify(id, prevValue, streamValue, target), nil
}
