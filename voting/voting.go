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

// Package voting provides the decision rules used to resolve proposals.
//
// An algorithm is selected by name when a sidechain is created and the name
// is stored with the sidechain. Algorithms are pure functions of the ballot
// counts; the only state associated with them is the optional voter log,
// which the governance engine persists on their behalf.
package voting

import (
	"errors"
	"fmt"
	"sort"
)

const (
	MajorityName             = "majority"
	MajorityWithVoterLogName = "majority-voter-log"
)

var ErrUnknownAlgorithm = errors.New("unknown voting algorithm")

// Algorithm decides a proposal from its ballot counts. total is the number
// of participants eligible to vote at the time the proposal is actioned,
// not the number of ballots cast.
type Algorithm interface {
	Name() string
	Tally(yes, no, total uint64) bool
}

// VoterLogger is implemented by algorithms that want the addresses of the
// voters on each finalized proposal to be recorded
type VoterLogger interface {
	Algorithm
	LogsVoters() bool
}

var algorithms = map[string]Algorithm{
	MajorityName:             Majority{},
	MajorityWithVoterLogName: MajorityWithVoterLog{},
}

// Lookup returns the algorithm registered under name
func Lookup(name string) (Algorithm, error) {
	alg, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	return alg, nil
}

// Names returns the registered algorithm names in sorted order
func Names() []string {
	ret := make([]string, 0, len(algorithms))
	for name := range algorithms {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// LogsVoters reports whether the voter log should be kept for alg
func LogsVoters(alg Algorithm) bool {
	if vl, ok := alg.(VoterLogger); ok {
		return vl.LogsVoters()
	}
	return false
}
