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
	"fmt"
)

const (
	// TextRecordType is the well-known type for text records.
	TextRecordType    = "T"
	textUTF16Flag     = 0x80
	textLangCodeMask  = 0x3F
	maxLanguageLength = 63 // 6 bits max
)

var (
	ErrTextPayloadTooShort  = errors.New("ndef: text payload too short")
	ErrTextLanguageTooLong  = errors.New("ndef: language code too long")
	ErrTextPayloadTruncated = errors.New("ndef: text payload truncated")
)

// TextRecord is a decoded well-known text payload.
type TextRecord struct {
	Text     string
	Language string
	UTF16    bool // status byte has the UTF-16 bit set; text is still read as UTF-8
}

// NewTextRecord creates a text record with an empty language code.
func NewTextRecord(text string) *Record {
	return &Record{
		TNF:     TNFWellKnown,
		Type:    TextRecordType,
		Payload: textPayload(text, ""),
	}
}

// ParseTextRecord skips the status byte and language code and returns the
// remaining bytes as text. The language code is not validated.
func ParseTextRecord(payload []byte) (*TextRecord, error) {
	if len(payload) < 1 {
		return nil, ErrTextPayloadTooShort
	}

	status := payload[0]
	langLen := int(status & textLangCodeMask)
	if len(payload) < 1+langLen {
		return nil, fmt.Errorf("%w: language length %d, payload %d", ErrTextPayloadTruncated, langLen, len(payload))
	}

	return &TextRecord{
		Language: string(payload[1 : 1+langLen]),
		Text:     string(payload[1+langLen:]),
		UTF16:    status&textUTF16Flag != 0,
	}, nil
}

// EncodeTextPayload builds a UTF-8 text payload.
func EncodeTextPayload(text, language string) ([]byte, error) {
	if len(language) > maxLanguageLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTextLanguageTooLong, len(language))
	}
	return textPayload(text, language), nil
}

// textPayload assumes language fits the 6-bit length field.
func textPayload(text, language string) []byte {
	payload := make([]byte, 1+len(language)+len(text))
	payload[0] = byte(len(language))
	copy(payload[1:], language)
	copy(payload[1+len(language):], text)
	return payload
}
