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

// Pin is a checkpoint commitment. Value is overwritten with the revoked
// sentinel by a successful contest and is otherwise immutable.
type Pin struct {
	ID            uint    `gorm:"primarykey"`
	PinKey        []byte  `gorm:"uniqueIndex;size:32;not null"`
	Value         []byte  `gorm:"size:32;not null"`
	AddedBy       []byte  `gorm:"size:20;not null"`
	AddedHeight   uint64  `gorm:"index;not null"`
	RevokedHeight *uint64 `gorm:"index"`
}

// TableName returns the table name
func (Pin) TableName() string {
	return "pin"
}

// Revoked reports whether the pin was revoked by a contest
func (p *Pin) Revoked() bool {
	return p.RevokedHeight != nil
}
