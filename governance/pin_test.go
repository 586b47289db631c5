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

package governance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/governance"
	"github.com/blinklabs-io/anchorage/pinkey"
	"github.com/blinklabs-io/anchorage/voting"
)

var blockHashes = []common.Hash{
	common.HashFromUint64(0x1a3450),
	common.HashFromUint64(0x1a3451),
	common.HashFromUint64(0x1a3452),
}

// addPinChain adds one pin per block hash, keyed by the off-chain derivation
// for sidechainA, and returns the derived links
func (env *testEnv) addPinChain(t *testing.T) []pinkey.Link {
	t.Helper()
	keyChain := pinkey.NewChain(sidechainA, []byte{0x00})
	links := make([]pinkey.Link, 0, len(blockHashes))
	for _, blockHash := range blockHashes {
		link := keyChain.Next()
		require.NoError(t, env.engine.AddPin(genesisAddr, link.Key, blockHash))
		keyChain.Record(blockHash)
		links = append(links, link)
	}
	return links
}

func TestAddAndGetPin(t *testing.T) {
	env := newTestEnv(t)
	links := env.addPinChain(t)
	for i, link := range links {
		assert.Equal(t, blockHashes[i], env.engine.GetPin(link.Key))
		info := env.engine.GetPinInfo(link.Key)
		assert.Equal(t, governance.PinActive, info.State)
		assert.Equal(t, genesisAddr, info.AddedBy)
		assert.Equal(t, env.height.Height(), info.AddedHeight)
	}
	unknown := common.Hash{0x99}
	assert.Equal(t, governance.AbsentPin, env.engine.GetPin(unknown))
	assert.Equal(t, governance.PinAbsent, env.engine.GetPinInfo(unknown).State)
	// Pins are not attributed to any sidechain of the caller
	assert.True(t, env.engine.GetLatestPin(common.ManagementSidechainId).IsZero())

	err := env.engine.AddPin(testAddr(0x01), links[0].Key, common.Hash{0x05})
	require.ErrorIs(t, err, governance.ErrAlreadyExists)
	assert.Equal(t, blockHashes[0], env.engine.GetPin(links[0].Key))
	for _, reserved := range []common.Hash{governance.AbsentPin, governance.RevokedPin} {
		err := env.engine.AddPin(genesisAddr, common.Hash{0x77}, reserved)
		require.ErrorIs(t, err, governance.ErrPreconditionNotMet)
	}
	assert.Equal(t, governance.AbsentPin, env.engine.GetPin(common.Hash{0x77}))
}

func TestPinPolicy(t *testing.T) {
	outsider := testAddr(0x01)
	member := testAddr(0x02)
	testDefs := []struct {
		policy         governance.PinPolicy
		outsiderDenied bool
		memberDenied   bool
	}{
		{policy: governance.PinPolicyOpen},
		{policy: governance.PinPolicyParticipant, outsiderDenied: true},
		{policy: governance.PinPolicyManagement, outsiderDenied: true, memberDenied: true},
	}
	for _, testDef := range testDefs {
		t.Run(string(testDef.policy), func(t *testing.T) {
			env := newTestEnv(t, func(cfg *governance.EngineConfig) {
				cfg.PinPolicy = testDef.policy
			})
			env.addSidechain(t, sidechainA, voting.MajorityName)
			env.addMembers(t, sidechainA, member)
			checks := []struct {
				caller common.Address
				denied bool
			}{
				{caller: genesisAddr},
				{caller: outsider, denied: testDef.outsiderDenied},
				{caller: member, denied: testDef.memberDenied},
			}
			for i, check := range checks {
				key := common.Hash{0x10, byte(i)}
				err := env.engine.AddPin(check.caller, key, common.Hash{0x20})
				if check.denied {
					require.ErrorIs(t, err, governance.ErrPermissionDenied, "caller %s", check.caller)
					assert.Equal(t, governance.AbsentPin, env.engine.GetPin(key))
				} else {
					require.NoError(t, err, "caller %s", check.caller)
				}
			}
		})
	}
}

func TestContestPinRevokesWithinWindow(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)

	result := env.pass(
		t,
		sidechainA,
		governance.KindContestPin,
		links[2].Key,
		links[1].Key,
		links[2].StreamValue,
		genesisAddr,
	)
	assert.True(t, result.Decided)
	assert.True(t, result.Applied)
	assert.Equal(t, governance.RevokedPin, env.engine.GetPin(links[2].Key))
	assert.NotEqual(t, governance.AbsentPin, env.engine.GetPin(links[2].Key))
	info := env.engine.GetPinInfo(links[2].Key)
	assert.Equal(t, governance.PinRevoked, info.State)
	assert.Equal(t, env.height.Height(), info.RevokedHeight)
	// The rest of the chain is untouched
	assert.Equal(t, blockHashes[1], env.engine.GetPin(links[1].Key))

	// A revoked pin cannot be contested again
	err := env.engine.ProposeVote(genesisAddr, sidechainA, governance.KindContestPin, links[2].Key, links[1].Key, links[2].StreamValue)
	require.ErrorIs(t, err, governance.ErrNotFound)
}

func TestContestFirstPinLinksToOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)
	result := env.pass(
		t,
		sidechainA,
		governance.KindContestPin,
		links[0].Key,
		common.Hash{},
		links[0].StreamValue,
		genesisAddr,
	)
	assert.True(t, result.Applied)
	assert.Equal(t, governance.RevokedPin, env.engine.GetPin(links[0].Key))
	assert.True(t, env.engine.GetLatestPin(sidechainA).IsZero())
}

func TestLatestPinFollowsAppliedContests(t *testing.T) {
	sidechainB := common.SidechainId{31: 0x03}
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	env.addSidechain(t, sidechainB, voting.MajorityName)
	links := env.addPinChain(t)

	// The genesis address is unmasked on every sidechain, yet adding pins
	// links none of them to it
	for _, id := range []common.SidechainId{common.ManagementSidechainId, sidechainA, sidechainB} {
		assert.True(t, env.engine.GetLatestPin(id).IsZero(), "sidechain %s", id)
		info, ok := env.engine.GetSidechain(id)
		require.True(t, ok)
		assert.True(t, info.LatestPin.IsZero(), "sidechain %s", id)
	}

	result := env.pass(
		t,
		sidechainA,
		governance.KindContestPin,
		links[2].Key,
		links[1].Key,
		links[2].StreamValue,
		genesisAddr,
	)
	require.True(t, result.Applied)
	assert.Equal(t, links[1].Key, env.engine.GetLatestPin(sidechainA))
	info, ok := env.engine.GetSidechain(sidechainA)
	require.True(t, ok)
	assert.Equal(t, links[1].Key, info.LatestPin)
	assert.True(t, env.engine.GetLatestPin(sidechainB).IsZero())
	assert.True(t, env.engine.GetLatestPin(common.ManagementSidechainId).IsZero())

	// A contest that is not applied leaves the latest pin alone
	result = env.pass(
		t,
		sidechainA,
		governance.KindContestPin,
		links[1].Key,
		links[0].Key,
		links[0].StreamValue,
		genesisAddr,
	)
	require.False(t, result.Applied)
	assert.Equal(t, governance.ReasonContestLinkMismatch, result.Reason)
	assert.Equal(t, links[1].Key, env.engine.GetLatestPin(sidechainA))
}

func TestContestDecidedAfterWindowLeavesPin(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)
	addedAt := env.height.Height()

	require.NoError(t, env.engine.ProposeVote(
		genesisAddr,
		sidechainA,
		governance.KindContestPin,
		links[2].Key,
		links[1].Key,
		links[2].StreamValue,
	))
	env.height.Set(addedAt + governance.DefaultPinContestPeriod + 1)
	result, err := env.engine.ActionVotes(genesisAddr, sidechainA, links[2].Key)
	require.NoError(t, err)
	assert.True(t, result.Decided)
	assert.False(t, result.Applied)
	assert.Equal(t, governance.ReasonContestWindowExpired, result.Reason)
	assert.Equal(t, blockHashes[2], env.engine.GetPin(links[2].Key))
	results := env.voteResults(t, links[2].Key)
	require.Len(t, results, 1)
	assert.True(t, results[0].Decided)
	assert.False(t, results[0].Applied)

	proposal, ok := env.engine.GetProposal(sidechainA, links[2].Key)
	require.True(t, ok)
	assert.True(t, proposal.Finalized)
	_, err = env.engine.ActionVotes(genesisAddr, sidechainA, links[2].Key)
	require.ErrorIs(t, err, governance.ErrAlreadyFinalized)
}

func TestContestAtWindowEdgeRevokes(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)
	addedAt := env.height.Height()
	require.NoError(t, env.engine.ProposeVote(
		genesisAddr,
		sidechainA,
		governance.KindContestPin,
		links[1].Key,
		links[0].Key,
		links[1].StreamValue,
	))
	env.height.Set(addedAt + governance.DefaultPinContestPeriod)
	result, err := env.engine.ActionVotes(genesisAddr, sidechainA, links[1].Key)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, governance.RevokedPin, env.engine.GetPin(links[1].Key))
}

func TestContestProposedAfterWindowRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)
	env.height.Advance(governance.DefaultPinContestPeriod + 1)
	err := env.engine.ProposeVote(
		genesisAddr,
		sidechainA,
		governance.KindContestPin,
		links[2].Key,
		links[1].Key,
		links[2].StreamValue,
	)
	require.ErrorIs(t, err, governance.ErrPreconditionNotMet)
	assert.Equal(t, blockHashes[2], env.engine.GetPin(links[2].Key))
	_, ok := env.engine.GetProposal(sidechainA, links[2].Key)
	assert.False(t, ok)
}

func TestContestWithBrokenLinkLeavesPin(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)
	testDefs := []struct {
		name        string
		target      pinkey.Link
		prevKey     common.Hash
		streamValue common.Hash
	}{
		{
			name:        "wrong stream value",
			target:      links[2],
			prevKey:     links[1].Key,
			streamValue: links[1].StreamValue,
		},
		{
			name:        "wrong previous pin",
			target:      links[1],
			prevKey:     links[2].Key,
			streamValue: links[1].StreamValue,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			result := env.pass(
				t,
				sidechainA,
				governance.KindContestPin,
				testDef.target.Key,
				testDef.prevKey,
				testDef.streamValue,
				genesisAddr,
			)
			assert.True(t, result.Decided)
			assert.False(t, result.Applied)
			assert.Equal(t, governance.ReasonContestLinkMismatch, result.Reason)
			assert.NotEqual(t, governance.RevokedPin, env.engine.GetPin(testDef.target.Key))
		})
	}
}

func TestContestForOtherSidechainDoesNotVerify(t *testing.T) {
	env := newTestEnv(t)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	links := env.addPinChain(t)
	// The management sidechain cannot prove linkage of sidechainA's pins
	result := env.pass(
		t,
		common.ManagementSidechainId,
		governance.KindContestPin,
		links[2].Key,
		links[1].Key,
		links[2].StreamValue,
		genesisAddr,
	)
	assert.True(t, result.Decided)
	assert.Equal(t, governance.ReasonContestLinkMismatch, result.Reason)
	assert.Equal(t, blockHashes[2], env.engine.GetPin(links[2].Key))
}
