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

package ndef

import (
	"errors"
	"strings"
)

// URIRecordType is the well-known type for URI records.
const URIRecordType = "U"

// ErrURIPayloadTooShort is returned for a URI payload without a prefix code.
var ErrURIPayloadTooShort = errors.New("ndef: URI payload too short")

// uriPrefixes is the abbreviation table understood by the exchange. Codes
// beyond the table decode with no prefix.
var uriPrefixes = []string{
	"",             // 0x00 - No prepending
	"http://www.",  // 0x01
	"https://www.", // 0x02
	"http://",      // 0x03
	"https://",     // 0x04
}

// NewURIRecord creates a well-known URI record.
func NewURIRecord(uri string) *Record {
	return &Record{
		TNF:     TNFWellKnown,
		Type:    URIRecordType,
		Payload: EncodeURIPayload(uri),
	}
}

// ParseURIRecord expands the prefix code of a URI payload.
func ParseURIRecord(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", ErrURIPayloadTooShort
	}
	return URIPrefixString(payload[0]) + string(payload[1:]), nil
}

// EncodeURIPayload abbreviates uri with the longest matching prefix.
func EncodeURIPayload(uri string) []byte {
	code, prefix := 0, ""
	for i := 1; i < len(uriPrefixes); i++ {
		p := uriPrefixes[i]
		if strings.HasPrefix(uri, p) && len(p) > len(prefix) {
			code, prefix = i, p
		}
	}

	suffix := uri[len(prefix):]
	payload := make([]byte, 1+len(suffix))
	payload[0] = byte(code)
	copy(payload[1:], suffix)
	return payload
}

// URIPrefixCode returns the code for an exact prefix, or 0x00.
func URIPrefixCode(prefix string) byte {
	for i, p := range uriPrefixes {
		if p == prefix {
			return byte(i)
		}
	}
	return 0
}

// URIPrefixString returns the prefix for code, or "" for unknown codes.
func URIPrefixString(code byte) string {
	if int(code) < len(uriPrefixes) {
		return uriPrefixes[code]
	}
	return ""
}
