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

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/anchorage/common"
	"github.com/blinklabs-io/anchorage/internal/version"
	"github.com/blinklabs-io/anchorage/pinkey"
)

// annotationOffline marks commands that run without loading the node config
const annotationOffline = "offline"

var offlineAnnotations = map[string]string{annotationOffline: "true"}

func decodeHexFlag(name string, value string) ([]byte, error) {
	ret, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return ret, nil
}

func writeJSONOutput(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type pinkeyOutput struct {
	SidechainId common.SidechainId `json:"sidechainId"`
	Index       uint64             `json:"index"`
	Key         common.Hash        `json:"key"`
	PrevValue   common.Hash        `json:"prevValue"`
	StreamValue common.Hash        `json:"streamValue"`
}

// derivePinKey returns the pin key at the given 1-based position of the
// seed's stream
func derivePinKey(
	id common.SidechainId,
	seed []byte,
	prevValue common.Hash,
	index uint64,
) (pinkeyOutput, error) {
	if index == 0 {
		return pinkeyOutput{}, errors.New("index starts at 1")
	}
	stream := pinkey.NewStream(seed)
	stream.Skip(index - 1)
	streamValue := stream.Next()
	return pinkeyOutput{
		SidechainId: id,
		Index:       index,
		Key:         pinkey.Key(id, prevValue, streamValue),
		PrevValue:   prevValue,
		StreamValue: streamValue,
	}, nil
}

func pinkeyCommand() *cobra.Command {
	var sidechainFlag, seedFlag, prevFlag string
	var index uint64
	cmd := &cobra.Command{
		Use:         "pinkey",
		Short:       "Derive a pin key and its contest disclosure",
		Annotations: offlineAnnotations,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := common.NewSidechainIdFromHex(sidechainFlag)
			if err != nil {
				return fmt.Errorf("invalid --sidechain: %w", err)
			}
			seed, err := decodeHexFlag("seed", seedFlag)
			if err != nil {
				return err
			}
			var prev common.Hash
			if prevFlag != "" {
				prev, err = common.NewHashFromHex(prevFlag)
				if err != nil {
					return fmt.Errorf("invalid --prev: %w", err)
				}
			}
			out, err := derivePinKey(id, seed, prev, index)
			if err != nil {
				return err
			}
			return writeJSONOutput(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&sidechainFlag, "sidechain", "", "sidechain id (hex)")
	cmd.Flags().StringVar(&seedFlag, "seed", "", "secret stream seed (hex)")
	cmd.Flags().
		StringVar(&prevFlag, "prev", "", "value of the previous pin (hex), empty for the first pin")
	cmd.Flags().Uint64Var(&index, "index", 1, "position of the pin in the chain, starting at 1")
	_ = cmd.MarkFlagRequired("sidechain")
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}

type commitmentOutput struct {
	Address    common.Address `json:"address"`
	Commitment common.Hash    `json:"commitment"`
}

func commitmentCommand() *cobra.Command {
	var addressFlag, saltFlag string
	cmd := &cobra.Command{
		Use:         "commitment",
		Short:       "Compute the masked participant commitment H(address || salt)",
		Annotations: offlineAnnotations,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := common.NewAddressFromHex(addressFlag)
			if err != nil {
				return fmt.Errorf("invalid --address: %w", err)
			}
			salt, err := decodeHexFlag("salt", saltFlag)
			if err != nil {
				return err
			}
			return writeJSONOutput(cmd.OutOrStdout(), commitmentOutput{
				Address:    addr,
				Commitment: common.Commitment(addr, salt),
			})
		},
	}
	cmd.Flags().StringVar(&addressFlag, "address", "", "participant address (hex)")
	cmd.Flags().StringVar(&saltFlag, "salt", "", "secret salt (hex)")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("salt")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show the version",
		Annotations: offlineAnnotations,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(
				cmd.OutOrStdout(),
				"%s %s\n",
				programName,
				version.GetVersionString(),
			)
		},
	}
}
