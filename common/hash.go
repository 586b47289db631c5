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

package common

import (
	"golang.org/x/crypto/blake2b"
)

// Blake2b256 returns the Blake2b-256 digest of the concatenation of its
// arguments. It is the collision-resistant hash H used for commitments,
// pin keys and contest link verification.
func Blake2b256(data ...[]byte) Hash {
	// New256 only fails when given a key longer than 64 bytes
	hasher, _ := blake2b.New256(nil)
	for _, d := range data {
		hasher.Write(d)
	}
	var ret Hash
	copy(ret[:], hasher.Sum(nil))
	return ret
}

// Commitment returns H(address ‖ salt), the value stored in a masked
// participant slot
func Commitment(addr Address, salt []byte) Hash {
	return Blake2b256(addr[:], salt)
}
