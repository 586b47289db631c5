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

// Participant is one slot in a sidechain's masked or unmasked participant
// array. SlotIndex is the slot offset. Slots are never deleted or
// renumbered: removal clears Value and sets RemovedHeight.
type Participant struct {
	ID            uint    `gorm:"primarykey"`
	SidechainId   []byte  `gorm:"uniqueIndex:idx_participant_slot,priority:1;index:idx_participant_value,priority:1;size:32;not null"`
	Value         []byte  `gorm:"index:idx_participant_value,priority:3;size:32"` // address (unmasked) or commitment (masked)
	SlotIndex     uint64  `gorm:"uniqueIndex:idx_participant_slot,priority:3;not null"`
	AddedHeight   uint64  `gorm:"not null"`
	RemovedHeight *uint64 `gorm:"index"`
	Masked        bool    `gorm:"uniqueIndex:idx_participant_slot,priority:2;index:idx_participant_value,priority:2;not null"`
}

// TableName returns the table name
func (Participant) TableName() string {
	return "participant"
}

// Live reports whether the slot currently holds a participant
func (p *Participant) Live() bool {
	return p.RemovedHeight == nil && len(p.Value) > 0
}
