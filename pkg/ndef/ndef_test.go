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
	"bytes"
	"errors"
	"testing"
)

// TestRecordMarshalUnmarshal tests basic record serialization round-trip.
//
//nolint:funlen // table-driven test with comprehensive assertions
func TestRecordMarshalUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		record    Record
		wantShort bool
	}{
		{
			name: "URI record",
			record: Record{
				TNF:     TNFWellKnown,
				Type:    "U",
				Payload: []byte{0x04, 'e', 'x', 'a', 'm', 'p', 'l', 'e', '.', 'c', 'o', 'm'},
			},
			wantShort: true,
		},
		{
			name: "external record with long payload",
			record: Record{
				TNF:     TNFExternal,
				Type:    ContactRecordType,
				Payload: bytes.Repeat([]byte("x"), 300),
			},
		},
		{
			name: "record with ID",
			record: Record{
				TNF:     TNFWellKnown,
				Type:    "T",
				ID:      "record-1",
				Payload: []byte{0x00, 'T', 'e', 's', 't'},
			},
			wantShort: true,
		},
		{
			name:      "empty payload",
			record:    Record{TNF: TNFWellKnown, Type: "T"},
			wantShort: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := tt.record.Marshal()
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if data[0]&(flagMB|flagME) != flagMB|flagME {
				t.Errorf("flags = %08b, want MB and ME set", data[0])
			}

			var got Record
			n, err := got.Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if n != len(data) {
				t.Errorf("consumed %d bytes, want %d", n, len(data))
			}
			if got.Short() != tt.wantShort {
				t.Errorf("Short() = %v, want %v", got.Short(), tt.wantShort)
			}
			if got.TNF != tt.record.TNF || got.Type != tt.record.Type || got.ID != tt.record.ID {
				t.Errorf("header = (%d,%q,%q), want (%d,%q,%q)",
					got.TNF, got.Type, got.ID, tt.record.TNF, tt.record.Type, tt.record.ID)
			}
			if !bytes.Equal(got.Payload, tt.record.Payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d", len(got.Payload), len(tt.record.Payload))
			}
		})
	}
}

func TestRecordUnmarshal_HeaderForms(t *testing.T) {
	t.Parallel()

	// Short record: 3-byte header.
	short := []byte{0xD1, 0x01, 0x02, 'U', 0x00, 'a'}
	var rec Record
	if _, err := rec.Unmarshal(short); err != nil {
		t.Fatalf("short form: %v", err)
	}
	if string(rec.Payload) != "\x00a" {
		t.Errorf("short payload = %q", rec.Payload)
	}

	// Long record: 6-byte header with big-endian length.
	long := []byte{0xC1, 0x01, 0x00, 0x00, 0x00, 0x02, 'U', 0x00, 'b'}
	if _, err := rec.Unmarshal(long); err != nil {
		t.Fatalf("long form: %v", err)
	}
	if string(rec.Payload) != "\x00b" {
		t.Errorf("long payload = %q", rec.Payload)
	}
}

func TestRecordUnmarshal_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		data    []byte
	}{
		{name: "empty", data: nil, wantErr: ErrEmptyMessage},
		{name: "header only", data: []byte{0xD1}, wantErr: ErrTruncatedRecord},
		{name: "payload longer than buffer", data: []byte{0xD1, 0x01, 0x0A, 'U', 0x02, 'x'}, wantErr: ErrTruncatedRecord},
		{name: "long length overflow", data: []byte{0xC1, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 'U'}, wantErr: ErrTruncatedRecord},
		{name: "type longer than buffer", data: []byte{0xD1, 0x05, 0x00, 'U'}, wantErr: ErrTruncatedRecord},
		{name: "chunked", data: []byte{0xF1, 0x01, 0x00, 'U'}, wantErr: ErrChunkedRecord},
		{name: "reserved TNF", data: []byte{0xD7, 0x00, 0x00}, wantErr: ErrInvalidTNF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var rec Record
			_, err := rec.Unmarshal(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Unmarshal() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordMarshal_InvalidTNF(t *testing.T) {
	t.Parallel()

	rec := Record{TNF: 0x08}
	if _, err := rec.Marshal(); !errors.Is(err, ErrInvalidTNF) {
		t.Errorf("Marshal() error = %v, want ErrInvalidTNF", err)
	}
}
