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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame errors
var (
	ErrDataTooLong      = errors.New("frame: data too long")
	ErrNoStartCode      = errors.New("frame: no start code")
	ErrIncomplete       = errors.New("frame: incomplete")
	ErrLengthChecksum   = errors.New("frame: length checksum mismatch")
	ErrDataChecksum     = errors.New("frame: data checksum mismatch")
	ErrUnexpectedTFI    = errors.New("frame: unexpected frame identifier")
	ErrApplicationError = errors.New("frame: PN532 application error")
)

// Build returns the information frame carrying cmd and args from host to
// PN532.
func Build(cmd byte, args []byte) ([]byte, error) {
	n := 2 + len(args) // TFI + cmd + args
	if n > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLong, n)
	}

	out := make([]byte, 0, Overhead+n)
	out = append(out, Preamble, StartCode1, StartCode2, byte(n), Checksum([]byte{byte(n)}), HostToPN532, cmd)
	out = append(out, args...)
	out = append(out, Checksum(out[5:]), Postamble)
	return out, nil
}

// IsAck reports whether buf contains an ACK frame.
func IsAck(buf []byte) bool {
	return bytes.Contains(buf, AckFrame)
}

// IsNack reports whether buf contains a NACK frame.
func IsNack(buf []byte) bool {
	return bytes.Contains(buf, NackFrame)
}

// findStart returns the offset of the LEN byte following 00 FF.
func findStart(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			return i + 2
		}
	}
	return -1
}

// Required returns the number of bytes buf must hold before Parse can
// decode its first information frame. It returns len(buf)+1 while the
// header is still incomplete.
func Required(buf []byte) int {
	off := findStart(buf)
	if off < 0 || off+2 > len(buf) {
		return len(buf) + 1
	}
	// LEN, LCS, data, DCS
	return off + 2 + int(buf[off]) + 1
}

// Parse locates the first information frame in buf and returns the
// response payload after the TFI (the response code followed by its data).
// ACK frames are skipped.
func Parse(buf []byte) ([]byte, error) {
	sawAck := false
	for {
		off := findStart(buf)
		if off < 0 {
			if sawAck {
				return nil, ErrIncomplete
			}
			return nil, ErrNoStartCode
		}
		if off+2 > len(buf) {
			return nil, ErrIncomplete
		}

		n, lcs := int(buf[off]), buf[off+1]
		if n == 0 && lcs == 0xFF {
			// ACK; look for the response behind it.
			buf = buf[off+2:]
			sawAck = true
			continue
		}
		if byte(n)+lcs != 0 {
			return nil, ErrLengthChecksum
		}

		body := off + 2
		if body+n+1 > len(buf) {
			return nil, ErrIncomplete
		}
		data := buf[body : body+n]
		if Sum(data)+buf[body+n] != 0 {
			return nil, ErrDataChecksum
		}
		if n == 0 {
			return nil, ErrUnexpectedTFI
		}

		switch data[0] {
		case PN532ToHost:
			return bytes.Clone(data[1:]), nil
		case ErrorTFI:
			return nil, ErrApplicationError
		default:
			return nil, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, data[0])
		}
	}
}
