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

package tapcard

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
)

// State is a position in the NDEF file read sequence.
type State int

const (
	StateInit State = iota
	StateAppSelected
	StateCCSelected
	StateCCRead
	StateNDEFSelected
	StateLenRead
	StateDataRead
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateInit:         "init",
	StateAppSelected:  "app-selected",
	StateCCSelected:   "cc-selected",
	StateCCRead:       "cc-read",
	StateNDEFSelected: "ndef-selected",
	StateLenRead:      "len-read",
	StateDataRead:     "data-read",
	StateDone:         "done",
	StateFailed:       "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Transceiver sends one command APDU and returns the raw response. *Tag
// implements it.
type Transceiver interface {
	Transceive(ctx context.Context, cmd []byte) ([]byte, error)
}

type step struct {
	run  func(r *FileReader, ctx context.Context) error
	name string
	from State
	to   State
}

// readSteps is the fixed read sequence. Each step runs only from its from
// state; any error moves the reader to StateFailed.
var readSteps = []step{
	{name: "select application", from: StateInit, to: StateAppSelected, run: (*FileReader).selectApplication},
	{name: "select CC", from: StateAppSelected, to: StateCCSelected, run: (*FileReader).selectCC},
	{name: "read CC", from: StateCCSelected, to: StateCCRead, run: (*FileReader).readCC},
	{name: "select NDEF", from: StateCCRead, to: StateNDEFSelected, run: (*FileReader).selectNDEF},
	{name: "read length", from: StateNDEFSelected, to: StateLenRead, run: (*FileReader).readLength},
	{name: "read data", from: StateLenRead, to: StateDataRead, run: (*FileReader).readData},
	{name: "finish", from: StateDataRead, to: StateDone, run: (*FileReader).finish},
}

// FileReader drives one pass of the NDEF file read sequence. It never
// retries; a failed reader stays failed.
type FileReader struct {
	tr    Transceiver
	tagID string
	step  string
	data  []byte
	cc    CapabilityContainer
	nlen  int
	state State
}

// NewFileReader creates a reader over tr. tagID only labels log lines.
func NewFileReader(tr Transceiver, tagID string) *FileReader {
	return &FileReader{tr: tr, tagID: tagID}
}

// ReadNDEF runs the full sequence over tr and returns the NDEF message.
func ReadNDEF(ctx context.Context, tr Transceiver) ([]byte, error) {
	return NewFileReader(tr, "").Run(ctx)
}

// State returns the current state.
func (r *FileReader) State() State { return r.state }

// CapabilityContainer returns the container read in step 3.
func (r *FileReader) CapabilityContainer() CapabilityContainer { return r.cc }

// Run executes every remaining step and returns exactly NLEN message bytes.
// On failure no data is returned.
func (r *FileReader) Run(ctx context.Context) ([]byte, error) {
	if r.state == StateFailed {
		return nil, fmt.Errorf("%s: reader already failed", r.step)
	}
	for _, s := range readSteps {
		if r.state != s.from {
			continue
		}
		r.step = s.name
		if err := s.run(r, ctx); err != nil {
			r.transition(StateFailed)
			logger().Debug().Str("tag", r.tagID).Str("step", s.name).Err(err).Msg("NDEF read failed")
			r.data = nil
			return nil, err
		}
		r.transition(s.to)
	}
	if r.state != StateDone {
		return nil, fmt.Errorf("NDEF read stopped in state %s", r.state)
	}
	return r.data, nil
}

func (r *FileReader) transition(to State) {
	logger().Debug().
		Str("tag", r.tagID).
		Stringer("from", r.state).
		Stringer("to", to).
		Msg("state transition")
	r.state = to
}

// exchange sends cmd and returns the response payload with the status word
// stripped. Anything other than 90 00 is a ProtocolError.
func (r *FileReader) exchange(ctx context.Context, cmd []byte) ([]byte, error) {
	raw, err := r.tr.Transceive(ctx, cmd)
	if err != nil {
		if IsTransport(err) {
			return nil, err
		}
		return nil, wrapLinkError(r.step, "", err)
	}
	resp, err := apdu.ParseResponse(raw)
	if err != nil {
		return nil, &ProtocolError{Step: r.step, Err: err}
	}
	if !resp.OK() {
		return nil, NewStatusError(r.step, resp.SW)
	}
	return resp.Data, nil
}

func (r *FileReader) readBinary(ctx context.Context, offset uint16, length int) ([]byte, error) {
	cmd, err := apdu.ReadBinary(offset, length)
	if err != nil {
		return nil, &ProtocolError{Step: r.step, Err: err}
	}
	data, err := r.exchange(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if len(data) < length {
		return nil, &ProtocolError{
			Step: r.step,
			Err:  fmt.Errorf("%w: got %d of %d bytes", ErrShortResponse, len(data), length),
		}
	}
	return data[:length], nil
}

func (r *FileReader) selectApplication(ctx context.Context) error {
	_, err := r.exchange(ctx, apdu.SelectApplication(apdu.NDEFApplicationID[:]))
	return err
}

func (r *FileReader) selectCC(ctx context.Context) error {
	_, err := r.exchange(ctx, apdu.SelectFile(apdu.FileCC))
	return err
}

func (r *FileReader) readCC(ctx context.Context) error {
	data, err := r.readBinary(ctx, 0, apdu.CCLength)
	if err != nil {
		return err
	}
	cc, err := ParseCapabilityContainer(data)
	if err != nil {
		return &ProtocolError{Step: r.step, Err: err}
	}
	if cc.FileID != apdu.FileNDEF {
		logger().Debug().Str("tag", r.tagID).Stringer("fid", cc.FileID).Msg("CC names another NDEF file, using E104")
	}
	r.cc = cc
	return nil
}

func (r *FileReader) selectNDEF(ctx context.Context) error {
	_, err := r.exchange(ctx, apdu.SelectFile(apdu.FileNDEF))
	return err
}

func (r *FileReader) readLength(ctx context.Context) error {
	data, err := r.readBinary(ctx, 0, apdu.NLENSize)
	if err != nil {
		return err
	}
	nlen := int(binary.BigEndian.Uint16(data))
	if nlen == 0 || nlen > apdu.MaxNDEFLength {
		return NewValidationError("NLEN", nlen, ErrInvalidLength)
	}
	r.nlen = nlen
	return nil
}

func (r *FileReader) readData(ctx context.Context) error {
	data, err := r.readBinary(ctx, apdu.NLENSize, r.nlen)
	if err != nil {
		return err
	}
	r.data = bytes.Clone(data)
	return nil
}

func (r *FileReader) finish(context.Context) error {
	if len(r.data) != r.nlen {
		return NewValidationError("message length", len(r.data), ErrMalformedData)
	}
	return nil
}
