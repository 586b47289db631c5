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

// Package pinkey implements the off-chain pin key derivation convention.
//
// A sidechain operator holds a secret seed. The seed drives a keyed
// pseudo-random stream, and each pin key is derived from the sidechain id,
// the value of the previous pin and the next stream value. Without the seed
// an observer cannot tell which pins belong to the same sidechain. A
// contester discloses a single stream value to prove that two pins are
// adjacent in a chain.
package pinkey

import (
	"github.com/blinklabs-io/anchorage/common"
)

// Stream is the keyed pseudo-random sequence derived from a seed. It is not
// safe for concurrent use.
type Stream struct {
	state   common.Hash
	counter common.Hash
}

// NewStream initializes a stream with state = H(seed ‖ "1") and
// counter = H(seed ‖ "2")
func NewStream(seed []byte) *Stream {
	return &Stream{
		state:   common.Blake2b256(seed, []byte("1")),
		counter: common.Blake2b256(seed, []byte("2")),
	}
}

// Next advances the stream and returns the next stream value
func (s *Stream) Next() common.Hash {
	increment(&s.counter)
	s.state = common.Blake2b256(s.state[:], s.counter[:])
	return common.Blake2b256(s.state[:])
}

// Skip advances the stream n steps without returning the values
func (s *Stream) Skip(n uint64) {
	for range n {
		s.Next()
	}
}

// Key returns H(sidechainId ‖ prevPinValue ‖ streamValue). The first pin of
// a chain uses the zero hash as its previous value.
func Key(
	sidechainId common.SidechainId,
	prevPinValue common.Hash,
	streamValue common.Hash,
) common.Hash {
	return common.Blake2b256(
		sidechainId[:],
		prevPinValue[:],
		streamValue[:],
	)
}

// Verify reports whether key links to prevPinValue through streamValue
func Verify(
	sidechainId common.SidechainId,
	prevPinValue common.Hash,
	streamValue common.Hash,
	key common.Hash,
) bool {
	return Key(sidechainId, prevPinValue, streamValue) == key
}

// Chain derives successive pin keys for one sidechain
type Chain struct {
	sidechainId common.SidechainId
	stream      *Stream
	prevValue   common.Hash
}

// NewChain starts a key chain for a sidechain at its origin
func NewChain(sidechainId common.SidechainId, seed []byte) *Chain {
	return &Chain{
		sidechainId: sidechainId,
		stream:      NewStream(seed),
	}
}

// Link is one derived pin key together with the disclosure needed to
// contest it
type Link struct {
	Key         common.Hash
	PrevValue   common.Hash
	StreamValue common.Hash
}

// Next derives the key for a pin that follows the previously recorded value
func (c *Chain) Next() Link {
	streamValue := c.stream.Next()
	return Link{
		Key:         Key(c.sidechainId, c.prevValue, streamValue),
		PrevValue:   c.prevValue,
		StreamValue: streamValue,
	}
}

// Record sets the value of the pin most recently added to the chain
func (c *Chain) Record(value common.Hash) {
	c.prevValue = value
}

// increment adds one to a big-endian 256-bit integer, wrapping on overflow
func increment(h *common.Hash) {
	for i := len(h) - 1; i >= 0; i-- {
		h[i]++
		if h[i] != 0 {
			return
		}
	}
}
