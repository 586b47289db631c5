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

package sqlite

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/anchorage/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func testBytes(b byte, size int) []byte {
	return bytes.Repeat([]byte{b}, size)
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	store1 := setupTestStore(t)
	store2 := setupTestStore(t)
	require.NoError(t, store1.AddSidechain(&models.Sidechain{
		SidechainId:      testBytes(1, 32),
		VotingAlgorithm:  "majority",
		VotingPeriod:     3,
		PinContestPeriod: 6,
	}, nil))
	sidechain, err := store2.GetSidechain(testBytes(1, 32), nil)
	require.NoError(t, err)
	assert.Nil(t, sidechain)
}

func TestSidechain(t *testing.T) {
	store := setupTestStore(t)
	id := testBytes(2, 32)

	sidechain, err := store.GetSidechain(id, nil)
	require.NoError(t, err)
	assert.Nil(t, sidechain)

	require.NoError(t, store.AddSidechain(&models.Sidechain{
		SidechainId:      id,
		VotingAlgorithm:  "majority",
		VotingPeriod:     3,
		PinContestPeriod: 6,
		AddedHeight:      10,
	}, nil))
	// Duplicate ids violate the unique index
	require.Error(t, store.AddSidechain(&models.Sidechain{
		SidechainId:     id,
		VotingAlgorithm: "majority",
	}, nil))

	require.NoError(t, store.SetSidechainLatestPin(id, testBytes(9, 32), nil))
	sidechain, err = store.GetSidechain(id, nil)
	require.NoError(t, err)
	require.NotNil(t, sidechain)
	assert.Equal(t, uint64(3), sidechain.VotingPeriod)
	assert.Equal(t, uint64(6), sidechain.PinContestPeriod)
	assert.Equal(t, testBytes(9, 32), sidechain.LatestPin)

	sidechains, err := store.GetSidechains(nil)
	require.NoError(t, err)
	assert.Len(t, sidechains, 1)
}

func TestParticipantSlots(t *testing.T) {
	store := setupTestStore(t)
	id := testBytes(3, 32)
	addrs := [][]byte{testBytes(0xa, 20), testBytes(0xb, 20), testBytes(0xc, 20)}
	for i, addr := range addrs {
		p := &models.Participant{SidechainId: id, Value: addr}
		require.NoError(t, store.AddParticipant(p, nil))
		assert.Equal(t, uint64(i), p.SlotIndex)
	}
	// A masked slot has its own offset space
	masked := &models.Participant{
		SidechainId: id,
		Masked:      true,
		Value:       testBytes(0xd, 32),
	}
	require.NoError(t, store.AddParticipant(masked, nil))
	assert.Equal(t, uint64(0), masked.SlotIndex)

	require.NoError(t, store.RemoveParticipant(id, false, 1, 20, nil))
	// Removing an already tombstoned slot is reported
	require.Error(t, store.RemoveParticipant(id, false, 1, 21, nil))

	slotCount, err := store.GetParticipantSlotCount(id, false, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), slotCount)
	liveCount, err := store.GetLiveParticipantCount(id, false, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), liveCount)

	slot, err := store.GetParticipant(id, false, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.False(t, slot.Live())
	assert.Empty(t, slot.Value)

	slot, err = store.GetParticipant(id, false, 7, nil)
	require.NoError(t, err)
	assert.Nil(t, slot)

	found, err := store.GetLiveParticipantByValue(id, false, addrs[2], nil)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, uint64(2), found.SlotIndex)
	found, err = store.GetLiveParticipantByValue(id, false, addrs[1], nil)
	require.NoError(t, err)
	assert.Nil(t, found)

	live, err := store.GetLiveParticipants(id, false, nil)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, addrs[0], live[0].Value)
	assert.Equal(t, addrs[2], live[1].Value)

	ok, err := store.IsLiveUnmaskedParticipant(addrs[0], nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.IsLiveUnmaskedParticipant(addrs[1], nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProposalAndBallots(t *testing.T) {
	store := setupTestStore(t)
	id := testBytes(4, 32)
	target := testBytes(5, 32)
	proposal := &models.Proposal{
		SidechainId:   id,
		Target:        target,
		Kind:          3,
		Proposer:      testBytes(0xa, 20),
		CreatedHeight: 100,
	}
	require.NoError(t, store.SetProposal(proposal, nil))
	require.NotZero(t, proposal.ID)

	require.NoError(t, store.SetBallot(&models.Ballot{
		ProposalID: proposal.ID,
		Voter:      testBytes(0xa, 20),
		Yes:        true,
		CastHeight: 100,
	}, nil))
	require.NoError(t, store.SetBallot(&models.Ballot{
		ProposalID: proposal.ID,
		Voter:      testBytes(0xb, 20),
		Yes:        true,
		CastHeight: 101,
	}, nil))
	// Last vote wins
	require.NoError(t, store.SetBallot(&models.Ballot{
		ProposalID: proposal.ID,
		Voter:      testBytes(0xb, 20),
		Yes:        false,
		CastHeight: 102,
	}, nil))
	ballots, err := store.GetBallots(proposal.ID, nil)
	require.NoError(t, err)
	require.Len(t, ballots, 2)
	assert.True(t, ballots[0].Yes)
	assert.False(t, ballots[1].Yes)
	assert.Equal(t, uint64(102), ballots[1].CastHeight)

	open, err := store.GetOpenProposals(id, nil)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	finalizedHeight := uint64(103)
	proposal.Finalized = true
	proposal.Decided = true
	proposal.FinalizedHeight = &finalizedHeight
	require.NoError(t, store.SetProposal(proposal, nil))
	loaded, err := store.GetProposal(id, target, nil)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Finalized)
	assert.True(t, loaded.Decided)
	open, err = store.GetOpenProposals(id, nil)
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, store.DeleteBallots(proposal.ID, nil))
	ballots, err = store.GetBallots(proposal.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, ballots)

	missing, err := store.GetProposal(id, testBytes(6, 32), nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVoterLog(t *testing.T) {
	store := setupTestStore(t)
	id := testBytes(4, 32)
	target := testBytes(5, 32)
	require.NoError(t, store.AddVoterLog(nil, nil))
	require.NoError(t, store.AddVoterLog([]*models.VoterLog{
		{SidechainId: id, Target: target, Voter: testBytes(1, 20), Round: 1, Yes: true},
		{SidechainId: id, Target: target, Voter: testBytes(2, 20), Round: 0, Yes: false},
	}, nil))
	entries, err := store.GetVoterLog(id, target, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(0), entries[0].Round)
	assert.Equal(t, uint64(1), entries[1].Round)
}

func TestPin(t *testing.T) {
	store := setupTestStore(t)
	key := testBytes(7, 32)
	pin, err := store.GetPin(key, nil)
	require.NoError(t, err)
	assert.Nil(t, pin)

	require.NoError(t, store.AddPin(&models.Pin{
		PinKey:      key,
		Value:       testBytes(8, 32),
		AddedBy:     testBytes(0xa, 20),
		AddedHeight: 50,
	}, nil))
	require.Error(t, store.AddPin(&models.Pin{
		PinKey:  key,
		Value:   testBytes(9, 32),
		AddedBy: testBytes(0xa, 20),
	}, nil))

	revoked := append([]byte{1}, make([]byte, 31)...)
	require.NoError(t, store.RevokePin(key, revoked, 55, nil))
	// A pin is revoked at most once
	require.Error(t, store.RevokePin(key, revoked, 56, nil))
	pin, err = store.GetPin(key, nil)
	require.NoError(t, err)
	require.NotNil(t, pin)
	assert.True(t, pin.Revoked())
	assert.Equal(t, revoked, pin.Value)
	assert.Equal(t, uint64(55), *pin.RevokedHeight)
}

func TestTransactionRollback(t *testing.T) {
	store := setupTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.AddPin(&models.Pin{
		PinKey:  testBytes(1, 32),
		Value:   testBytes(2, 32),
		AddedBy: testBytes(3, 20),
	}, txn))
	require.NoError(t, txn.Rollback())
	// Using a finished transaction is an error
	require.Error(t, store.AddPin(&models.Pin{
		PinKey:  testBytes(1, 32),
		Value:   testBytes(2, 32),
		AddedBy: testBytes(3, 20),
	}, txn))
	pin, err := store.GetPin(testBytes(1, 32), nil)
	require.NoError(t, err)
	assert.Nil(t, pin)

	txn = store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(12345, txn))
	require.NoError(t, txn.Commit())
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ts)
}

func TestPersistentStore(t *testing.T) {
	dataDir := t.TempDir()
	store, err := New(WithDataDir(dataDir))
	require.NoError(t, err)
	require.NoError(t, store.AddSidechain(&models.Sidechain{
		SidechainId:     testBytes(1, 32),
		VotingAlgorithm: "majority",
	}, nil))
	require.NoError(t, store.Close())

	store, err = New(WithDataDir(dataDir))
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck
	sidechain, err := store.GetSidechain(testBytes(1, 32), nil)
	require.NoError(t, err)
	assert.NotNil(t, sidechain)
}
