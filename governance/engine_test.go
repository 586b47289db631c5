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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/anchorage/chain"
	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/governance"
	"github.com/blinklabs-io/anchorage/pinkey"
	"github.com/blinklabs-io/anchorage/voting"
)

var (
	genesisAddr = testAddr(0xa0)
	sidechainA  = common.SidechainId{31: 0x02}
)

func testAddr(b byte) common.Address {
	var ret common.Address
	ret[0] = 0xee
	ret[19] = b
	return ret
}

type testEnv struct {
	engine *governance.Engine
	height *chain.ManualHeight
	bus    *event.EventBus
}

func newTestEnv(
	t *testing.T,
	opts ...func(*governance.EngineConfig),
) *testEnv {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	height := chain.NewManualHeight(10)
	cfg := governance.EngineConfig{
		Database:       db,
		EventBus:       bus,
		HeightSource:   height,
		GenesisAddress: genesisAddr,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	engine, err := governance.NewEngine(cfg)
	require.NoError(t, err)
	return &testEnv{
		engine: engine,
		height: height,
		bus:    bus,
	}
}

// addSidechain creates a sidechain owned by the genesis participant
func (env *testEnv) addSidechain(
	t *testing.T,
	id common.SidechainId,
	votingAlgorithm string,
) {
	t.Helper()
	require.NoError(
		t,
		env.engine.AddSidechain(
			genesisAddr,
			id,
			votingAlgorithm,
			governance.DefaultVotingPeriod,
			governance.DefaultPinContestPeriod,
		),
	)
}

// pass opens a proposal by voters[0], has the remaining voters vote yes,
// waits out the voting period and actions the proposal
func (env *testEnv) pass(
	t *testing.T,
	id common.SidechainId,
	kind governance.ProposalKind,
	target common.Hash,
	extra1 common.Hash,
	extra2 common.Hash,
	voters ...common.Address,
) governance.ActionResult {
	t.Helper()
	require.NoError(
		t,
		env.engine.ProposeVote(voters[0], id, kind, target, extra1, extra2),
	)
	for _, voter := range voters[1:] {
		require.NoError(t, env.engine.Vote(voter, id, kind, target, true))
	}
	env.height.Advance(env.engine.GetVotingPeriod(id))
	result, err := env.engine.ActionVotes(voters[0], id, target)
	require.NoError(t, err)
	return result
}

// addMembers adds unmasked participants to id, one decided proposal at a
// time, with every existing member voting yes
func (env *testEnv) addMembers(
	t *testing.T,
	id common.SidechainId,
	members ...common.Address,
) {
	t.Helper()
	voters := env.engine.GetUnmaskedSidechainParticipants(id)
	for _, member := range members {
		result := env.pass(
			t,
			id,
			governance.KindAddUnmasked,
			member.Hash(),
			common.Hash{},
			common.Hash{},
			voters...,
		)
		require.True(t, result.Applied, "adding %s: %+v", member, result)
		voters = append(voters, member)
	}
}

func (env *testEnv) voteResults(
	t *testing.T,
	target common.Hash,
) []*event.VoteResultEvent {
	t.Helper()
	events, err := env.engine.Events(0, env.height.Height())
	require.NoError(t, err)
	var ret []*event.VoteResultEvent
	for _, evt := range events {
		if evt.Type != string(event.VoteResultEventType) {
			continue
		}
		data, ok := evt.Data.(*event.VoteResultEvent)
		require.True(t, ok, "unexpected event data type %T", evt.Data)
		if data.Target == target {
			ret = append(ret, data)
		}
	}
	return ret
}

func TestGenesisCreatesManagementSidechain(t *testing.T) {
	env := newTestEnv(t)
	mgmt := common.ManagementSidechainId
	assert.True(t, env.engine.GetSidechainExists(mgmt))
	assert.True(t, env.engine.IsSidechainParticipant(mgmt, genesisAddr))
	assert.Equal(t, uint64(1), env.engine.GetUnmaskedSidechainParticipantsSize(mgmt))
	assert.Equal(t, genesisAddr, env.engine.GetUnmaskedSidechainParticipant(mgmt, 0))
	assert.Equal(t, uint64(governance.DefaultVotingPeriod), env.engine.GetVotingPeriod(mgmt))
	assert.Equal(t, uint64(governance.DefaultPinContestPeriod), env.engine.GetPinContestPeriod(mgmt))
	assert.Equal(t, voting.MajorityName, env.engine.GetVotingAlgorithm(mgmt))
	sidechains := env.engine.ListSidechains()
	require.Len(t, sidechains, 1)
	assert.Equal(t, mgmt, sidechains[0].Id)
	assert.Equal(t, uint64(10), sidechains[0].AddedHeight)
}

func TestNewEngineValidation(t *testing.T) {
	db, err := database.New(nil)
	require.NoError(t, err)
	defer db.Close()
	height := chain.NewManualHeight(0)
	testDefs := []struct {
		name string
		cfg  governance.EngineConfig
	}{
		{
			name: "no database",
			cfg:  governance.EngineConfig{HeightSource: height, GenesisAddress: genesisAddr},
		},
		{
			name: "no height source",
			cfg:  governance.EngineConfig{Database: db, GenesisAddress: genesisAddr},
		},
		{
			name: "no genesis address",
			cfg:  governance.EngineConfig{Database: db, HeightSource: height},
		},
		{
			name: "bad pin policy",
			cfg: governance.EngineConfig{
				Database:       db,
				HeightSource:   height,
				GenesisAddress: genesisAddr,
				PinPolicy:      "nobody",
			},
		},
		{
			name: "contest period not above voting period",
			cfg: governance.EngineConfig{
				Database:                   db,
				HeightSource:               height,
				GenesisAddress:             genesisAddr,
				ManagementVotingPeriod:     5,
				ManagementPinContestPeriod: 5,
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := governance.NewEngine(testDef.cfg)
			require.Error(t, err)
		})
	}
	// A failed genesis must not leave a management sidechain behind
	sidechains, err := db.GetSidechains(nil)
	require.NoError(t, err)
	assert.Empty(t, sidechains)
}

func TestEngineReopen(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	height := chain.NewManualHeight(3)
	open := func(genesis common.Address) (*database.Database, *governance.Engine) {
		db, err := database.New(&database.Config{DataDir: dataDir})
		require.NoError(t, err)
		engine, err := governance.NewEngine(governance.EngineConfig{
			Database:       db,
			HeightSource:   height,
			GenesisAddress: genesis,
		})
		require.NoError(t, err)
		return db, engine
	}
	db, engine := open(genesisAddr)
	require.NoError(t, engine.AddSidechain(genesisAddr, sidechainA, voting.MajorityName, 2, 4))
	require.NoError(t, db.Close())

	// The management sidechain is not recreated for a different genesis
	// address once it exists
	db, engine = open(testAddr(0x01))
	defer db.Close()
	assert.True(t, engine.IsSidechainParticipant(common.ManagementSidechainId, genesisAddr))
	assert.False(t, engine.IsSidechainParticipant(common.ManagementSidechainId, testAddr(0x01)))
	assert.Equal(t, uint64(2), engine.GetVotingPeriod(sidechainA))
	assert.Len(t, engine.ListSidechains(), 2)
}

func TestEventsAreLoggedAndPublished(t *testing.T) {
	env := newTestEnv(t)
	_, sidechainCh := env.bus.Subscribe(event.SidechainAddedEventType)
	env.addSidechain(t, sidechainA, voting.MajorityName)
	select {
	case evt := <-sidechainCh:
		data, ok := evt.Data.(event.SidechainAddedEvent)
		require.True(t, ok, "unexpected event data type %T", evt.Data)
		assert.Equal(t, sidechainA, data.SidechainId)
		assert.Equal(t, genesisAddr, data.Creator)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sidechain added event")
	}
	events, err := env.engine.Events(0, env.height.Height())
	require.NoError(t, err)
	// Genesis and sidechainA
	require.Len(t, events, 2)
	for _, evt := range events {
		assert.Equal(t, string(event.SidechainAddedEventType), evt.Type)
		assert.IsType(t, &event.SidechainAddedEvent{}, evt.Data)
	}
	events, err = env.engine.Events(env.height.Height()+1, env.height.Height()+10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	before, err := env.engine.Events(0, env.height.Height())
	require.NoError(t, err)
	err = env.engine.AddSidechain(genesisAddr, sidechainA, voting.MajorityName, 6, 6)
	require.ErrorIs(t, err, governance.ErrPreconditionNotMet)
	assert.False(t, env.engine.GetSidechainExists(sidechainA))
	assert.Zero(t, env.engine.GetUnmaskedSidechainParticipantsSize(sidechainA))
	after, err := env.engine.Events(0, env.height.Height())
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestEngineReopenBelowCommittedHeight(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	open := func(height governance.HeightSource) (*database.Database, *governance.Engine, error) {
		db, err := database.New(&database.Config{DataDir: dataDir})
		require.NoError(t, err)
		engine, err := governance.NewEngine(governance.EngineConfig{
			Database:       db,
			HeightSource:   height,
			GenesisAddress: genesisAddr,
		})
		return db, engine, err
	}
	height := chain.NewManualHeight(20)
	db, engine, err := open(height)
	require.NoError(t, err)
	require.NoError(t, engine.AddSidechain(genesisAddr, sidechainA, voting.MajorityName, 3, 6))
	keyChain := pinkey.NewChain(sidechainA, []byte{0x00})
	link := keyChain.Next()
	require.NoError(t, engine.AddPin(genesisAddr, link.Key, blockHashes[0]))
	height.Set(50)
	require.NoError(t, engine.AddPin(genesisAddr, common.Hash{0x42}, blockHashes[1]))
	contest := func(engine *governance.Engine) error {
		return engine.ProposeVote(
			genesisAddr,
			sidechainA,
			governance.KindContestPin,
			link.Key,
			common.Hash{},
			link.StreamValue,
		)
	}
	require.ErrorIs(t, contest(engine), governance.ErrPreconditionNotMet)
	require.NoError(t, db.Close())

	// Starting over from height 0 would reopen the closed contest window
	db, _, err = open(chain.NewManualHeight(0))
	require.ErrorIs(t, err, governance.ErrHeightRegressed)
	watermark, err := db.GetHeightWatermark()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), watermark)
	require.NoError(t, db.Close())

	db, engine, err = open(chain.NewManualHeight(watermark))
	require.NoError(t, err)
	defer db.Close()
	require.ErrorIs(t, contest(engine), governance.ErrPreconditionNotMet)
	assert.Equal(t, blockHashes[0], engine.GetPin(link.Key))
}

// steppedHeight is a height source that can be moved backwards
type steppedHeight struct {
	height uint64
}

func (s *steppedHeight) Height() uint64 {
	return s.height
}

func TestCallBelowCommittedHeightFails(t *testing.T) {
	height := &steppedHeight{height: 30}
	env := newTestEnv(t, func(cfg *governance.EngineConfig) {
		cfg.HeightSource = height
	})
	env.addSidechain(t, sidechainA, voting.MajorityName)
	height.height = 25
	err := env.engine.AddPin(genesisAddr, common.Hash{0x42}, blockHashes[0])
	require.ErrorIs(t, err, governance.ErrHeightRegressed)
	assert.Equal(t, governance.AbsentPin, env.engine.GetPin(common.Hash{0x42}))

	height.height = 30
	require.NoError(t, env.engine.AddPin(genesisAddr, common.Hash{0x42}, blockHashes[0]))
}

func TestCommitHeightWithoutChanges(t *testing.T) {
	height := &steppedHeight{height: 30}
	env := newTestEnv(t, func(cfg *governance.EngineConfig) {
		cfg.HeightSource = height
	})
	before, err := env.engine.Events(0, 40)
	require.NoError(t, err)

	height.height = 40
	require.NoError(t, env.engine.CommitHeight())
	after, err := env.engine.Events(0, 40)
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	// Genesis committed at 30, the empty commit raised that to 40
	height.height = 35
	require.ErrorIs(t, env.engine.CommitHeight(), governance.ErrHeightRegressed)
}
