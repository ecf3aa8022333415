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

// ErrResponseTooShort is returned for responses without a status word.
var ErrResponseTooShort = errors.New("apdu: response shorter than status word")

// Response is a decoded response APDU.
type Response struct {
	Data []byte
	SW   StatusWord
}

// OK reports whether the status word is 90 00.
func (r Response) OK() bool {
	return r.SW == SWSuccess
}

// ParseResponse splits raw into payload and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, fmt.Errorf("%w: %X", ErrResponseTooShort, raw)
	}
	n := len(raw)
	return Response{
		Data: raw[:n-2],
		SW:   StatusWord(uint16(raw[n-2])<<8 | uint16(raw[n-1])),
	}, nil
}

// IsOK reports whether the last two bytes of raw are 90 00.
func IsOK(raw []byte) bool {
	n := len(raw)
	return n >= 2 && raw[n-2] == SWSuccess.SW1() && raw[n-1] == SWSuccess.SW2()
}

// Encode builds payload followed by the status word.
func Encode(data []byte, sw StatusWord) []byte {
	out := make([]byte, len(data)+2)
	copy(out, data)
	out[len(data)] = sw.SW1()
	out[len(data)+1] = sw.SW2()
	return out
}

// Status builds a response carrying only a status word.
func Status(sw StatusWord) []byte {
	return []byte{sw.SW1(), sw.SW2()}
}
