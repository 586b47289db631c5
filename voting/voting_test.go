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

package voting_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/anchorage/voting"
)

func TestMajorityTally(t *testing.T) {
	testDefs := []struct {
		yes, no, total uint64
		expected       bool
	}{
		{yes: 1, no: 0, total: 1, expected: true},
		{yes: 1, no: 0, total: 2, expected: false},
		{yes: 2, no: 0, total: 2, expected: true},
		{yes: 1, no: 0, total: 3, expected: false},
		{yes: 2, no: 1, total: 3, expected: true},
		{yes: 2, no: 2, total: 4, expected: false},
		{yes: 3, no: 0, total: 4, expected: true},
		{yes: 0, no: 0, total: 0, expected: false},
		{yes: math.MaxUint64/2 + 1, total: math.MaxUint64, expected: true},
		{yes: math.MaxUint64 / 2, total: math.MaxUint64, expected: false},
	}
	for _, alg := range []voting.Algorithm{
		voting.Majority{},
		voting.MajorityWithVoterLog{},
	} {
		for _, testDef := range testDefs {
			assert.Equal(
				t,
				testDef.expected,
				alg.Tally(testDef.yes, testDef.no, testDef.total),
				"%s: yes=%d no=%d total=%d",
				alg.Name(),
				testDef.yes,
				testDef.no,
				testDef.total,
			)
		}
	}
}

func TestLookup(t *testing.T) {
	alg, err := voting.Lookup(voting.MajorityName)
	require.NoError(t, err)
	assert.False(t, voting.LogsVoters(alg))
	alg, err = voting.Lookup(voting.MajorityWithVoterLogName)
	require.NoError(t, err)
	assert.True(t, voting.LogsVoters(alg))
	_, err = voting.Lookup("plurality")
	require.ErrorIs(t, err, voting.ErrUnknownAlgorithm)
	assert.Equal(
		t,
		[]string{voting.MajorityName, voting.MajorityWithVoterLogName},
		voting.Names(),
	)
}
