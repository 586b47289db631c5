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

// Sidechain is the registry record for a sidechain. Everything except
// LatestPin is immutable after creation.
type Sidechain struct {
	ID               uint   `gorm:"primarykey"`
	SidechainId      []byte `gorm:"uniqueIndex;size:32;not null"`
	VotingAlgorithm  string `gorm:"size:64;not null"`
	LatestPin        []byte `gorm:"size:32"`
	VotingPeriod     uint64 `gorm:"not null"`
	PinContestPeriod uint64 `gorm:"not null"`
	AddedHeight      uint64 `gorm:"index;not null"`
}

// TableName returns the table name
func (Sidechain) TableName() string {
	return "sidechain"
}
