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
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/governance"
	"github.com/blinklabs-io/anchorage/internal/version"
)

const programName = "anchorage"

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// statusForError maps governance errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, governance.ErrPermissionDenied),
		errors.Is(err, governance.ErrCommitmentMismatch):
		return http.StatusForbidden
	case errors.Is(err, governance.ErrAlreadyExists),
		errors.Is(err, governance.ErrAlreadyFinalized):
		return http.StatusConflict
	case errors.Is(err, governance.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrPreconditionNotMet):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeEngineError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("engine call failed", "op", op, "error", err)
		writeError(w, status, "failed to "+op)
		return
	}
	writeError(w, status, err.Error())
}

func callerFromRequest(r *http.Request) (common.Address, error) {
	value := r.Header.Get(CallerHeader)
	if value == "" {
		return common.Address{}, errors.New("missing " + CallerHeader + " header")
	}
	return common.NewAddressFromHex(value)
}

// requestCaller writes an error response and returns false when the caller
// header is missing or malformed
func requestCaller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, err := callerFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return common.Address{}, false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func pathSidechainId(w http.ResponseWriter, r *http.Request) (common.SidechainId, bool) {
	id, err := common.NewSidechainIdFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sidechain id: "+err.Error())
		return common.SidechainId{}, false
	}
	return id, true
}

func pathHash(w http.ResponseWriter, r *http.Request, name string) (common.Hash, bool) {
	ret, err := common.NewHashFromHex(mux.Vars(r)[name])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+": "+err.Error())
		return common.Hash{}, false
	}
	return ret, true
}

func pathOffset(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	ret, err := strconv.ParseUint(mux.Vars(r)["offset"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return 0, false
	}
	return ret, true
}

func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    programName,
		Version: version.GetVersionString(),
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
		Height:    a.engine.Height(),
	})
}

func (a *API) handleHeight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HeightResponse{Height: a.engine.Height()})
}

func (a *API) handleAdvanceHeight(w http.ResponseWriter, r *http.Request) {
	var req AdvanceHeightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Blocks == 0 {
		req.Blocks = 1
	}
	height := a.config.HeightAdvancer.Advance(req.Blocks)
	writeJSON(w, http.StatusOK, HeightResponse{Height: height})
}

// handleEvents handles GET /api/v1/events?from=&to= with pagination
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	params, err := ParseEventRange(r, a.engine.Height())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := a.engine.Events(params.FromHeight, params.ToHeight)
	if err != nil {
		a.writeEngineError(w, "read events", err)
		return
	}
	SetPaginationHeaders(w, len(events), params.Pagination)
	writeJSON(w, http.StatusOK, Paginate(events, params.Pagination))
}

func (a *API) handleListSidechains(w http.ResponseWriter, _ *http.Request) {
	sidechains := a.engine.ListSidechains()
	if sidechains == nil {
		sidechains = []governance.SidechainInfo{}
	}
	writeJSON(w, http.StatusOK, sidechains)
}

func (a *API) handleAddSidechain(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req AddSidechainRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.engine.AddSidechain(
		caller,
		req.Id,
		req.VotingAlgorithm,
		req.VotingPeriod,
		req.PinContestPeriod,
	); err != nil {
		a.writeEngineError(w, "add sidechain", err)
		return
	}
	info, _ := a.engine.GetSidechain(req.Id)
	writeJSON(w, http.StatusCreated, info)
}

func (a *API) handleGetSidechain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	info, ok := a.engine.GetSidechain(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown sidechain "+id.String())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleIsParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	addr, err := common.NewAddressFromHex(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ParticipantResponse{
		Address:     addr,
		Participant: a.engine.IsSidechainParticipant(id, addr),
	})
}

func (a *API) handleUnmaskedParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	participants := a.engine.GetUnmaskedSidechainParticipants(id)
	if participants == nil {
		participants = []common.Address{}
	}
	writeJSON(w, http.StatusOK, UnmaskedParticipantsResponse{
		Size:         a.engine.GetUnmaskedSidechainParticipantsSize(id),
		Participants: participants,
	})
}

func (a *API) handleUnmaskedParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	offset, ok := pathOffset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, UnmaskedSlotResponse{
		Offset:  offset,
		Address: a.engine.GetUnmaskedSidechainParticipant(id, offset),
	})
}

func (a *API) handleMaskedParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MaskedParticipantsResponse{
		Size: a.engine.GetMaskedSidechainParticipantsSize(id),
	})
}

func (a *API) handleMaskedParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	offset, ok := pathOffset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MaskedSlotResponse{
		Offset:     offset,
		Commitment: a.engine.GetMaskedSidechainParticipant(id, offset),
	})
}

func (a *API) handleUnmask(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	var req UnmaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	salt, err := hex.DecodeString(strings.TrimPrefix(req.Salt, "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid salt: "+err.Error())
		return
	}
	if err := a.engine.Unmask(caller, id, req.Offset, salt); err != nil {
		a.writeEngineError(w, "unmask", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleOpenProposals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	proposals := a.engine.GetOpenProposals(id)
	if proposals == nil {
		proposals = []governance.ProposalInfo{}
	}
	writeJSON(w, http.StatusOK, proposals)
}

func (a *API) handleProposeVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	var req ProposeVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.engine.ProposeVote(
		caller,
		id,
		req.Kind,
		req.Target,
		req.Extra1,
		req.Extra2,
	); err != nil {
		a.writeEngineError(w, "propose vote", err)
		return
	}
	proposal, _ := a.engine.GetProposal(id, req.Target)
	writeJSON(w, http.StatusCreated, proposal)
}

func (a *API) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	target, ok := pathHash(w, r, "target")
	if !ok {
		return
	}
	proposal, ok := a.engine.GetProposal(id, target)
	if !ok {
		writeError(w, http.StatusNotFound, "no proposal on "+target.String())
		return
	}
	writeJSON(w, http.StatusOK, proposal)
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	target, ok := pathHash(w, r, "target")
	if !ok {
		return
	}
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.engine.Vote(caller, id, req.Kind, target, req.Yes); err != nil {
		a.writeEngineError(w, "vote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleActionVotes(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	target, ok := pathHash(w, r, "target")
	if !ok {
		return
	}
	result, err := a.engine.ActionVotes(caller, id, target)
	if err != nil {
		a.writeEngineError(w, "action votes", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleVoters(w http.ResponseWriter, r *http.Request) {
	id, ok := pathSidechainId(w, r)
	if !ok {
		return
	}
	target, ok := pathHash(w, r, "target")
	if !ok {
		return
	}
	voters := a.engine.GetVoters(id, target)
	if voters == nil {
		voters = []common.Address{}
	}
	writeJSON(w, http.StatusOK, VotersResponse{Voters: voters})
}

func (a *API) handleAddPin(w http.ResponseWriter, r *http.Request) {
	caller, ok := requestCaller(w, r)
	if !ok {
		return
	}
	var req AddPinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := a.engine.AddPin(caller, req.Key, req.Value); err != nil {
		a.writeEngineError(w, "add pin", err)
		return
	}
	writeJSON(w, http.StatusCreated, a.engine.GetPinInfo(req.Key))
}

// handleGetPin always answers 200; an unknown key reports the absent state
func (a *API) handleGetPin(w http.ResponseWriter, r *http.Request) {
	key, ok := pathHash(w, r, "key")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.engine.GetPinInfo(key))
}
