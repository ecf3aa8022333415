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

// Package ndef encodes and decodes the single-record NDEF messages carried in
// a Type 4 tag's NDEF file.
package ndef

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-tapcard/internal/cursor"
)

// TNF (Type Name Format) values as defined by NFC Forum.
const (
	TNFEmpty          byte = 0x00 // Empty record
	TNFWellKnown      byte = 0x01 // NFC Forum well-known type
	TNFMedia          byte = 0x02 // Media-type (RFC 2046)
	TNFAbsoluteURI    byte = 0x03 // Absolute URI (RFC 3986)
	TNFExternal       byte = 0x04 // NFC Forum external type
	TNFUnknown        byte = 0x05 // Unknown
	TNFUnchanged      byte = 0x06 // Unchanged (for chunked records)
	TNFReserved       byte = 0x07 // Reserved
	tnfMask           byte = 0x07
	flagMB            byte = 0x80
	flagME            byte = 0x40
	flagCF            byte = 0x20
	flagSR            byte = 0x10
	flagIL            byte = 0x08
	shortRecordMaxLen      = 255
)

// Common errors.
var (
	ErrEmptyMessage    = errors.New("ndef: empty message")
	ErrTruncatedRecord = errors.New("ndef: truncated record data")
	ErrInvalidTNF      = errors.New("ndef: invalid TNF value")
	ErrChunkedRecord   = errors.New("ndef: chunked records not supported")
	ErrTypeTooLong     = errors.New("ndef: record type longer than 255 bytes")
)

// Record represents a single NDEF record. Messages built by this package
// always hold exactly one record, so MB and ME are both set on marshal.
type Record struct {
	Type    string
	ID      string
	Payload []byte
	TNF     byte
	short   bool
}

// Short reports whether the record was read with the short-record header.
func (r *Record) Short() bool { return r.short }

// Marshal serializes the record as a complete single-record message.
func (r *Record) Marshal() ([]byte, error) {
	if r.TNF > TNFReserved {
		return nil, ErrInvalidTNF
	}
	if len(r.Type) > 0xFF || len(r.ID) > 0xFF {
		return nil, ErrTypeTooLong
	}

	payloadLen := len(r.Payload)
	flags := r.TNF&tnfMask | flagMB | flagME
	if payloadLen <= shortRecordMaxLen {
		flags |= flagSR
	}
	if r.ID != "" {
		flags |= flagIL
	}

	out := make([]byte, 0, 6+1+len(r.Type)+len(r.ID)+payloadLen)
	out = append(out, flags, byte(len(r.Type)))
	if payloadLen <= shortRecordMaxLen {
		out = append(out, byte(payloadLen))
	} else {
		//nolint:gosec // payloadLen is non-negative and checked > 255
		n := uint32(payloadLen)
		out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
	if r.ID != "" {
		out = append(out, byte(len(r.ID)))
	}
	out = append(out, r.Type...)
	out = append(out, r.ID...)
	out = append(out, r.Payload...)
	return out, nil
}

// Unmarshal parses the first record in data and returns the bytes consumed.
// A declared type, id or payload length larger than the remaining buffer is
// reported as ErrTruncatedRecord.
func (r *Record) Unmarshal(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyMessage
	}
	c := cursor.New(data)

	flags, _ := c.ReadU8()
	if flags&flagCF != 0 {
		return 0, ErrChunkedRecord
	}
	r.TNF = flags & tnfMask
	if r.TNF > TNFUnchanged {
		return 0, ErrInvalidTNF
	}
	r.short = flags&flagSR != 0

	typeLen, err := c.ReadU8()
	if err != nil {
		return 0, truncated("type length", err)
	}

	var payloadLen int
	if r.short {
		n, err := c.ReadU8()
		if err != nil {
			return 0, truncated("payload length", err)
		}
		payloadLen = int(n)
	} else {
		n, err := c.ReadU32BE()
		if err != nil {
			return 0, truncated("payload length", err)
		}
		if uint64(n) > uint64(c.Remaining()) {
			return 0, fmt.Errorf("%w: payload length %d exceeds %d available bytes", ErrTruncatedRecord, n, c.Remaining())
		}
		payloadLen = int(n)
	}

	var idLen byte
	if flags&flagIL != 0 {
		if idLen, err = c.ReadU8(); err != nil {
			return 0, truncated("id length", err)
		}
	}

	typ, err := c.ReadBytes(int(typeLen))
	if err != nil {
		return 0, truncated("type", err)
	}
	id, err := c.ReadBytes(int(idLen))
	if err != nil {
		return 0, truncated("id", err)
	}
	payload, err := c.ReadBytes(payloadLen)
	if err != nil {
		return 0, truncated("payload", err)
	}

	r.Type = string(typ)
	r.ID = string(id)
	r.Payload = append([]byte(nil), payload...)
	return c.Pos(), nil
}

func truncated(field string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTruncatedRecord, field, err)
}
