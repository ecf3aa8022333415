// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package apdu

import (
	"errors"
	"fmt"
)

// Command parsing errors.
var (
	ErrCommandTooShort = errors.New("apdu: command too short")
	ErrBadLength       = errors.New("apdu: length fields do not match command size")
	ErrLeTooLarge      = errors.New("apdu: expected length out of range")
)

// Command is a decoded command APDU.
type Command struct {
	Data     []byte
	Le       int  // Expected response length, 0 when absent
	CLA      byte
	INS      byte
	P1       byte
	P2       byte
	HasLe    bool // Le field was present
	Extended bool // Extended length encoding was used
}

// Offset returns P1|P2 as a READ BINARY offset.
func (c Command) Offset() int {
	return int(c.P1&0x7F)<<8 | int(c.P2)
}

// SelectApplication builds SELECT by DF name with Le=00.
func SelectApplication(aid []byte) []byte {
	cmd := make([]byte, 0, 6+len(aid))
	cmd = append(cmd, CLAISO7816, INSSelectFile, P1SelectByName, P2FirstOrOnly, byte(len(aid)))
	cmd = append(cmd, aid...)
	return append(cmd, 0x00)
}

// SelectFile builds SELECT by file identifier with no response data.
func SelectFile(fid FileID) []byte {
	return []byte{CLAISO7816, INSSelectFile, P1SelectByID, P2NoResponseData, 0x02, byte(fid >> 8), byte(fid)}
}

// ReadBinary builds READ BINARY for length bytes at offset. Lengths above
// MaxShortLe use the three-byte extended Le form "00 hi lo".
func ReadBinary(offset uint16, length int) ([]byte, error) {
	if length <= 0 || length > MaxExtendedLe {
		return nil, fmt.Errorf("%w: %d", ErrLeTooLarge, length)
	}
	if offset > 0x7FFF {
		return nil, fmt.Errorf("apdu: offset %d exceeds 15 bits", offset)
	}
	hdr := []byte{CLAISO7816, INSReadBinary, byte(offset >> 8), byte(offset)}
	if length <= MaxShortLe {
		return append(hdr, byte(length)), nil
	}
	return append(hdr, 0x00, byte(length>>8), byte(length)), nil
}

// ParseCommand decodes the four ISO 7816-4 command cases in both short and
// extended form.
func ParseCommand(raw []byte) (Command, error) {
	if len(raw) < 4 {
		return Command{}, ErrCommandTooShort
	}
	cmd := Command{CLA: raw[0], INS: raw[1], P1: raw[2], P2: raw[3]}
	body := raw[4:]

	switch {
	case len(body) == 0:
		return cmd, nil
	case len(body) == 1:
		cmd.HasLe = true
		cmd.Le = shortLe(body[0])
		return cmd, nil
	case body[0] != 0x00:
		return parseShortBody(cmd, body)
	default:
		return parseExtendedBody(cmd, body)
	}
}

func parseShortBody(cmd Command, body []byte) (Command, error) {
	lc := int(body[0])
	switch len(body) {
	case 1 + lc:
		cmd.Data = body[1:]
	case 2 + lc:
		cmd.Data = body[1 : 1+lc]
		cmd.HasLe = true
		cmd.Le = shortLe(body[1+lc])
	default:
		return Command{}, fmt.Errorf("%w: Lc=%d, body=%d", ErrBadLength, lc, len(body))
	}
	return cmd, nil
}

func parseExtendedBody(cmd Command, body []byte) (Command, error) {
	if len(body) < 3 {
		return Command{}, fmt.Errorf("%w: truncated extended length", ErrBadLength)
	}
	cmd.Extended = true
	n := int(body[1])<<8 | int(body[2])
	if len(body) == 3 {
		cmd.HasLe = true
		cmd.Le = extendedLe(n)
		return cmd, nil
	}
	switch len(body) {
	case 3 + n:
		cmd.Data = body[3:]
	case 5 + n:
		cmd.Data = body[3 : 3+n]
		cmd.HasLe = true
		cmd.Le = extendedLe(int(body[3+n])<<8 | int(body[4+n]))
	default:
		return Command{}, fmt.Errorf("%w: extended Lc=%d, body=%d", ErrBadLength, n, len(body))
	}
	return cmd, nil
}

func shortLe(b byte) int {
	if b == 0 {
		return 256
	}
	return int(b)
}

func extendedLe(n int) int {
	if n == 0 {
		return 65536
	}
	return n
}
