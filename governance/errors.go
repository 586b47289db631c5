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

package governance

import "errors"

var (
	// ErrPermissionDenied is returned when the caller lacks the unmasked
	// standing an operation requires
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyExists is returned for a duplicate sidechain, pin, proposal or
	// participant
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is returned when a mutating call references an unknown target
	ErrNotFound = errors.New("not found")
	// ErrPreconditionNotMet is returned when the call is valid but cannot be
	// performed yet, or its arguments are out of range
	ErrPreconditionNotMet = errors.New("precondition not met")
	// ErrAlreadyFinalized is returned when actioning a finalized proposal
	ErrAlreadyFinalized = errors.New("proposal already finalized")
	// ErrCommitmentMismatch is returned when an unmask proof does not match
	// the stored commitment
	ErrCommitmentMismatch = errors.New("commitment mismatch")
	// ErrHeightRegressed is returned when the height source reports a height
	// below one the engine already committed at
	ErrHeightRegressed = errors.New("height regressed")
)
