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

	"github.com/blinklabs-io/anchorage/common"
)

func (e *Engine) isUnmasked(
	c *call,
	id common.SidechainId,
	addr common.Address,
) (bool, error) {
	if addr.IsZero() {
		return false, nil
	}
	slot, err := e.db.GetLiveParticipantByValue(
		id.Bytes(),
		false,
		addr.Bytes(),
		c.txn,
	)
	if err != nil {
		return false, err
	}
	return slot != nil, nil
}

// requireUnmasked guards entry points restricted to unmasked participants
func (e *Engine) requireUnmasked(
	c *call,
	id common.SidechainId,
	caller common.Address,
) error {
	ok, err := e.isUnmasked(c, id, caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf(
			"%w: %s is not an unmasked participant of sidechain %s",
			ErrPermissionDenied,
			caller,
			id,
		)
	}
	return nil
}

// requirePinPolicy guards AddPin according to the configured policy
func (e *Engine) requirePinPolicy(c *call, caller common.Address) error {
	switch e.config.PinPolicy {
	case PinPolicyManagement:
		return e.requireUnmasked(c, common.ManagementSidechainId, caller)
	case PinPolicyParticipant:
		ok, err := e.db.IsLiveUnmaskedParticipant(caller.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if !ok || caller.IsZero() {
			return fmt.Errorf(
				"%w: %s is not an unmasked participant of any sidechain",
				ErrPermissionDenied,
				caller,
			)
		}
	}
	return nil
}
