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

package voting

// Majority decides true when strictly more than half of all eligible
// participants voted yes. Ties decide false.
type Majority struct{}

func (Majority) Name() string {
	return MajorityName
}

func (Majority) Tally(yes, _, total uint64) bool {
	return strictMajority(yes, total)
}

// MajorityWithVoterLog uses the same rule as Majority and additionally asks
// for the voters of each finalized proposal to be logged
type MajorityWithVoterLog struct{}

func (MajorityWithVoterLog) Name() string {
	return MajorityWithVoterLogName
}

func (MajorityWithVoterLog) Tally(yes, _, total uint64) bool {
	return strictMajority(yes, total)
}

func (MajorityWithVoterLog) LogsVoters() bool {
	return true
}

func strictMajority(yes, total uint64) bool {
	// yes*2 > total, written to avoid overflow
	return yes > total/2
}
