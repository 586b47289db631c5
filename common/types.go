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
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	AddressSize = 20
	HashSize    = 32
)

var ErrInvalidLength = errors.New("invalid length")

// Address identifies a caller on the host ledger
type Address [AddressSize]byte

// Hash is a 32-byte opaque value: digests, commitments, pin keys and values
type Hash [HashSize]byte

// SidechainId identifies a sidechain. The zero id is the management sidechain.
type SidechainId [HashSize]byte

// ManagementSidechainId is the reserved id of the management sidechain
var ManagementSidechainId = SidechainId{}

func (a Address) Bytes() []byte {
	return a[:]
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Hash returns the address left-padded with zeros to 32 bytes
func (a Address) Hash() Hash {
	var ret Hash
	copy(ret[HashSize-AddressSize:], a[:])
	return ret
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(data []byte) error {
	tmp, err := NewAddressFromHex(string(data))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Address returns the trailing 20 bytes of the hash as an address. The
// second return value is false if any of the leading 12 bytes are set.
func (h Hash) Address() (Address, bool) {
	var ret Address
	copy(ret[:], h[HashSize-AddressSize:])
	for _, b := range h[:HashSize-AddressSize] {
		if b != 0 {
			return ret, false
		}
	}
	return ret, true
}

// Uint64 interprets the hash as a big-endian integer. The second return
// value is false if the value does not fit in 64 bits.
func (h Hash) Uint64() (uint64, bool) {
	for _, b := range h[:HashSize-8] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(h[HashSize-8:]), true
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(data []byte) error {
	tmp, err := NewHashFromHex(string(data))
	if err != nil {
		return err
	}
	*h = tmp
	return nil
}

func (s SidechainId) Bytes() []byte {
	return s[:]
}

func (s SidechainId) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

func (s SidechainId) IsManagement() bool {
	return s == ManagementSidechainId
}

func (s SidechainId) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SidechainId) UnmarshalText(data []byte) error {
	tmp, err := NewSidechainIdFromHex(string(data))
	if err != nil {
		return err
	}
	*s = tmp
	return nil
}

// HashFromUint64 encodes v as a big-endian 32-byte value
func HashFromUint64(v uint64) Hash {
	var ret Hash
	binary.BigEndian.PutUint64(ret[HashSize-8:], v)
	return ret
}

// NewAddressFromBytes copies an exactly 20-byte slice into an Address
func NewAddressFromBytes(data []byte) (Address, error) {
	var ret Address
	if len(data) != AddressSize {
		return ret, fmt.Errorf(
			"%w: address must be %d bytes, got %d",
			ErrInvalidLength,
			AddressSize,
			len(data),
		)
	}
	copy(ret[:], data)
	return ret, nil
}

// NewHashFromBytes copies an exactly 32-byte slice into a Hash
func NewHashFromBytes(data []byte) (Hash, error) {
	var ret Hash
	if len(data) != HashSize {
		return ret, fmt.Errorf(
			"%w: hash must be %d bytes, got %d",
			ErrInvalidLength,
			HashSize,
			len(data),
		)
	}
	copy(ret[:], data)
	return ret, nil
}

// NewSidechainIdFromBytes copies an exactly 32-byte slice into a SidechainId
func NewSidechainIdFromBytes(data []byte) (SidechainId, error) {
	tmp, err := NewHashFromBytes(data)
	return SidechainId(tmp), err
}

func NewAddressFromHex(s string) (Address, error) {
	data, err := decodeHex(s)
	if err != nil {
		return Address{}, err
	}
	return NewAddressFromBytes(data)
}

func NewHashFromHex(s string) (Hash, error) {
	data, err := decodeHex(s)
	if err != nil {
		return Hash{}, err
	}
	return NewHashFromBytes(data)
}

// NewSidechainIdFromHex parses a hex sidechain id. Values shorter than 32
// bytes are left-padded, so "0x00" and "0" both name the management sidechain.
func NewSidechainIdFromHex(s string) (SidechainId, error) {
	var ret SidechainId
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return ret, fmt.Errorf("decode sidechain id: %w", err)
	}
	if len(data) > HashSize {
		return ret, fmt.Errorf(
			"%w: sidechain id longer than %d bytes",
			ErrInvalidLength,
			HashSize,
		)
	}
	copy(ret[HashSize-len(data):], data)
	return ret, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return data, nil
}
