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

package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/anchorage/chain"
	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/database"
	"github.com/blinklabs-io/anchorage/event"
	"github.com/blinklabs-io/anchorage/governance"
	"github.com/blinklabs-io/anchorage/voting"
)

var (
	testGenesis = common.Address{0: 0xee, 19: 0x01}
	testMember  = common.Address{0: 0xee, 19: 0x02}
	testOutside = common.Address{0: 0xee, 19: 0x03}
	testChain   = common.SidechainId{31: 0x07}
)

type testServer struct {
	api    *API
	engine *governance.Engine
	height *chain.ManualHeight
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	height := chain.NewManualHeight(100)
	engine, err := governance.NewEngine(governance.EngineConfig{
		Database:       db,
		EventBus:       bus,
		HeightSource:   height,
		GenesisAddress: testGenesis,
	})
	require.NoError(t, err)
	return &testServer{
		api: New(
			Config{ListenAddress: ":0", HeightAdvancer: height},
			engine,
			nil,
		),
		engine: engine,
		height: height,
	}
}

func (s *testServer) do(
	t *testing.T,
	method string,
	path string,
	caller *common.Address,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req := httptest.NewRequest(method, path, &reqBody)
	if caller != nil {
		req.Header.Set(CallerHeader, caller.String())
	}
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var ret T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ret))
	return ret
}

func sidechainPath(id common.SidechainId) string {
	return "/api/v1/sidechains/" + id.String()
}

func (s *testServer) addTestChain(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/sidechains", &testGenesis,
		AddSidechainRequest{
			Id:               testChain,
			VotingAlgorithm:  voting.MajorityName,
			VotingPeriod:     governance.DefaultVotingPeriod,
			PinContestPeriod: governance.DefaultPinContestPeriod,
		},
	)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestStartStop(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.api.Start(t.Context()))
	s.api.mu.Lock()
	assert.NotNil(t, s.api.httpServer)
	s.api.mu.Unlock()

	err := s.api.Start(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")

	stopCtx, stopCancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer stopCancel()
	require.NoError(t, s.api.Stop(stopCtx))
	s.api.mu.Lock()
	assert.Nil(t, s.api.httpServer)
	s.api.mu.Unlock()
}

func TestHandleRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	root := decodeResponse[RootResponse](t, rec)
	assert.Equal(t, programName, root.Name)
	assert.NotEmpty(t, root.Version)

	rec = s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeResponse[HealthResponse](t, rec)
	assert.True(t, health.IsHealthy)
	assert.Equal(t, uint64(100), health.Height)
}

func TestHandleAdvanceHeight(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/height/advance", nil,
		AdvanceHeightRequest{Blocks: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(105), decodeResponse[HeightResponse](t, rec).Height)

	rec = s.do(t, http.MethodGet, "/api/v1/height", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(105), decodeResponse[HeightResponse](t, rec).Height)
}

func TestAdvanceHeightDisabled(t *testing.T) {
	s := newTestServer(t)
	s.api.config.HeightAdvancer = nil

	rec := s.do(t, http.MethodPost, "/api/v1/height/advance", nil,
		AdvanceHeightRequest{Blocks: 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAddSidechain(t *testing.T) {
	s := newTestServer(t)
	req := AddSidechainRequest{
		Id:               testChain,
		VotingAlgorithm:  voting.MajorityName,
		VotingPeriod:     3,
		PinContestPeriod: 6,
	}

	rec := s.do(t, http.MethodPost, "/api/v1/sidechains", nil, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/sidechains", &testOutside, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/sidechains", &testGenesis, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decodeResponse[governance.SidechainInfo](t, rec)
	assert.Equal(t, testChain, info.Id)
	assert.Equal(t, uint64(1), info.UnmaskedLiveMembers)

	rec = s.do(t, http.MethodPost, "/api/v1/sidechains", &testGenesis, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	errResp := decodeResponse[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
	assert.Equal(t, "Conflict", errResp.Error)

	req.Id = common.SidechainId{31: 0x08}
	req.PinContestPeriod = req.VotingPeriod
	rec = s.do(t, http.MethodPost, "/api/v1/sidechains", &testGenesis, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/sidechains", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse[[]governance.SidechainInfo](t, rec), 2)
}

func TestHandleGetSidechain(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/sidechains/0x00", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeResponse[governance.SidechainInfo](t, rec)
	assert.True(t, info.Id.IsManagement())

	rec = s.do(t, http.MethodGet, sidechainPath(testChain), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/sidechains/zz", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(
		http.MethodPost,
		"/api/v1/sidechains",
		bytes.NewBufferString(`{"id": "0x07", "bogus": true}`),
	)
	req.Header.Set(CallerHeader, testGenesis.String())
	rec := httptest.NewRecorder()
	s.api.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProposalLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.addTestChain(t)
	base := sidechainPath(testChain)
	target := testMember.Hash()
	proposalPath := base + "/proposals/" + target.String()

	rec := s.do(t, http.MethodPost, base+"/proposals", &testOutside,
		ProposeVoteRequest{Kind: governance.KindAddUnmasked, Target: target})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/proposals", &testGenesis,
		ProposeVoteRequest{Kind: governance.KindAddUnmasked, Target: target})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	proposal := decodeResponse[governance.ProposalInfo](t, rec)
	assert.Equal(t, governance.KindAddUnmasked, proposal.Kind)
	assert.Equal(t, testGenesis, proposal.Proposer)
	require.Len(t, proposal.Ballots, 1)
	assert.True(t, proposal.Ballots[0].Yes)

	rec = s.do(t, http.MethodGet, base+"/proposals", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeResponse[[]governance.ProposalInfo](t, rec), 1)

	rec = s.do(t, http.MethodPost, proposalPath+"/votes", &testGenesis,
		VoteRequest{Kind: governance.KindRemoveUnmasked, Yes: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, proposalPath+"/votes", &testGenesis,
		VoteRequest{Kind: governance.KindAddUnmasked, Yes: true})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, proposalPath+"/action", &testGenesis, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	s.height.Advance(governance.DefaultVotingPeriod)
	rec = s.do(t, http.MethodPost, proposalPath+"/action", &testGenesis, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeResponse[governance.ActionResult](t, rec)
	assert.True(t, result.Decided)
	assert.True(t, result.Applied)

	rec = s.do(t, http.MethodPost, proposalPath+"/action", &testGenesis, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, proposalPath, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse[governance.ProposalInfo](t, rec).Finalized)

	rec = s.do(t, http.MethodGet, base+"/participants/"+testMember.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse[ParticipantResponse](t, rec).Participant)

	rec = s.do(t, http.MethodGet, base+"/unmasked", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unmasked := decodeResponse[UnmaskedParticipantsResponse](t, rec)
	assert.Equal(t, uint64(2), unmasked.Size)
	assert.Equal(t, []common.Address{testGenesis, testMember}, unmasked.Participants)

	rec = s.do(t, http.MethodGet, base+"/unmasked/1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testMember, decodeResponse[UnmaskedSlotResponse](t, rec).Address)

	rec = s.do(t, http.MethodGet, base+"/proposals/zz", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, base+"/proposals/"+testOutside.Hash().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUnmask(t *testing.T) {
	s := newTestServer(t)
	s.addTestChain(t)
	base := sidechainPath(testChain)
	salt := []byte("pepper")
	commitment := common.Commitment(testMember, salt)

	rec := s.do(t, http.MethodPost, base+"/proposals", &testGenesis,
		ProposeVoteRequest{Kind: governance.KindAddMasked, Target: commitment})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	s.height.Advance(governance.DefaultVotingPeriod)
	rec = s.do(t, http.MethodPost,
		base+"/proposals/"+commitment.String()+"/action", &testGenesis, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, base+"/masked", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), decodeResponse[MaskedParticipantsResponse](t, rec).Size)
	rec = s.do(t, http.MethodGet, base+"/masked/0", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, commitment, decodeResponse[MaskedSlotResponse](t, rec).Commitment)

	rec = s.do(t, http.MethodPost, base+"/unmask", &testMember,
		UnmaskRequest{Offset: 0, Salt: "not hex"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/unmask", &testMember,
		UnmaskRequest{Offset: 0, Salt: "0x" + hex.EncodeToString([]byte("salt"))})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/unmask", &testMember,
		UnmaskRequest{Offset: 0, Salt: hex.EncodeToString(salt)})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.True(t, s.engine.IsSidechainParticipant(testChain, testMember))
	assert.Equal(t, common.Hash{}, s.engine.GetMaskedSidechainParticipant(testChain, 0))
}

func TestHandlePins(t *testing.T) {
	s := newTestServer(t)
	key := common.Hash{31: 0x42}
	value := common.Hash{0: 0x99}

	rec := s.do(t, http.MethodGet, "/api/v1/pins/"+key.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var absent map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &absent))
	assert.Equal(t, "absent", absent["state"])

	rec = s.do(t, http.MethodPost, "/api/v1/pins", &testGenesis,
		AddPinRequest{Key: key, Value: value})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/pins", &testGenesis,
		AddPinRequest{Key: key, Value: value})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/pins/"+key.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Equal(t, "active", active["state"])
	assert.Equal(t, value.String(), active["value"])
	assert.Equal(t, testGenesis.String(), active["addedBy"])
}

func TestHandleEvents(t *testing.T) {
	s := newTestServer(t)
	s.addTestChain(t)
	s.height.Advance(1)
	rec := s.do(t, http.MethodPost, "/api/v1/pins", &testGenesis,
		AddPinRequest{Key: common.Hash{31: 0x01}, Value: common.Hash{0: 0x02}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/events", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeResponse[[]governance.LoggedEvent](t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, "3", rec.Header().Get("X-Pagination-Count-Total"))
	assert.Equal(t, event.PinAddedEventType, event.EventType(events[2].Type))

	rec = s.do(t, http.MethodGet, "/api/v1/events?from=101&to=101", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events = decodeResponse[[]governance.LoggedEvent](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(101), events[0].Height)

	rec = s.do(t, http.MethodGet, "/api/v1/events?count=1&order=desc", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events = decodeResponse[[]governance.LoggedEvent](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, event.PinAddedEventType, event.EventType(events[0].Type))
	assert.Equal(t, "3", rec.Header().Get("X-Pagination-Page-Total"))

	rec = s.do(t, http.MethodGet, "/api/v1/events?from=9&to=2", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
