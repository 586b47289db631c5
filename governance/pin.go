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
	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/blinklabs-io/anchorage/event"
)

// AddPin stores value under key. Key derivation is not checked here; it is
// only verified when the pin is contested.
func (e *Engine) AddPin(
	caller common.Address,
	key common.Hash,
	value common.Hash,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.update(func(c *call) error {
		if err := e.requirePinPolicy(c, caller); err != nil {
			return err
		}
		if key.IsZero() {
			return fmt.Errorf("%w: empty pin key", ErrPreconditionNotMet)
		}
		if value == AbsentPin || value == RevokedPin {
			return fmt.Errorf(
				"%w: pin value %s is reserved",
				ErrPreconditionNotMet,
				value,
			)
		}
		existing, err := e.db.GetPin(key.Bytes(), c.txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: pin %s", ErrAlreadyExists, key)
		}
		if err := e.db.AddPin(
			&models.Pin{
				PinKey:      key.Bytes(),
				Value:       value.Bytes(),
				AddedBy:     caller.Bytes(),
				AddedHeight: c.height,
			},
			c.txn,
		); err != nil {
			return err
		}
		return e.emit(c, event.PinAddedEventType, event.PinAddedEvent{
			Key:    key,
			Value:  value,
			Height: c.height,
		})
	})
	if err != nil {
		return err
	}
	e.metrics.pinsAdded.Inc()
	e.logger.Debug(
		"pin added",
		"component", "governance",
		"key", key.String(),
		"added_by", caller.String(),
	)
	return nil
}

// GetPin returns the value stored under key, RevokedPin for a revoked pin or
// AbsentPin for an unknown key
func (e *Engine) GetPin(key common.Hash) common.Hash {
	return e.GetPinInfo(key).Value
}

// GetPinInfo returns the stored state of key
func (e *Engine) GetPinInfo(key common.Hash) PinInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := PinInfo{Key: key, Value: AbsentPin}
	pin, err := e.db.GetPin(key.Bytes(), nil)
	if err != nil {
		e.readFailed("get pin", err)
		return ret
	}
	if pin == nil {
		return ret
	}
	ret.State = PinActive
	ret.AddedHeight = pin.AddedHeight
	ret.AddedBy, _ = common.NewAddressFromBytes(pin.AddedBy)
	if pin.Revoked() {
		ret.State = PinRevoked
		ret.Value = RevokedPin
		ret.RevokedHeight = *pin.RevokedHeight
		return ret
	}
	if value, err := common.NewHashFromBytes(pin.Value); err == nil {
		ret.Value = value
	}
	return ret
}
