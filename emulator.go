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
	"encoding/binary"
	"errors"

	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
)

// ActiveRecordProvider supplies the encoded NDEF message the emulator
// serves. It returns ErrNoActiveRecord when nothing is designated.
type ActiveRecordProvider interface {
	ActiveRecord() ([]byte, error)
}

type selectedFile int

const (
	fileNone selectedFile = iota
	fileCC
	fileNDEF
)

// Emulator answers the Type 4 tag command set for one read-only NDEF
// application. The active record is copied once when the application is
// selected and that copy is served until the next selection.
type Emulator struct {
	provider    ActiveRecordProvider
	cc          []byte
	ndefFile    []byte
	mu          syncutil.Mutex
	selected    selectedFile
	appSelected bool
}

// NewEmulator creates an emulator serving records from provider.
func NewEmulator(provider ActiveRecordProvider) *Emulator {
	return &Emulator{
		provider: provider,
		cc:       NewCapabilityContainer().Bytes(),
	}
}

// Process handles one command APDU and returns the response APDU.
func (e *Emulator) Process(raw []byte) []byte {
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		logger().Debug().Hex("cmd", raw).Err(err).Msg("emulator: malformed command")
		return apdu.Status(apdu.SWWrongLength)
	}
	if cmd.CLA != apdu.CLAISO7816 {
		return apdu.Status(apdu.SWCLANotSupported)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch cmd.INS {
	case apdu.INSSelectFile:
		return e.handleSelect(cmd)
	case apdu.INSReadBinary:
		return e.handleRead(cmd)
	case apdu.INSUpdateBinary:
		return apdu.Status(apdu.SWSecurityNotSatisfied)
	default:
		return apdu.Status(apdu.SWINSNotSupported)
	}
}

// Deactivate drops the selection and snapshot, as when the field is lost.
func (e *Emulator) Deactivate() {
	e.mu.Lock()
	e.reset()
	e.mu.Unlock()
}

func (e *Emulator) reset() {
	e.appSelected = false
	e.selected = fileNone
	e.ndefFile = nil
}

func (e *Emulator) handleSelect(cmd apdu.Command) []byte {
	switch cmd.P1 {
	case apdu.P1SelectByName:
		return e.selectApplication(cmd.Data)
	case apdu.P1SelectByID:
		return e.selectFile(cmd.Data)
	default:
		return apdu.Status(apdu.SWWrongParameters)
	}
}

func (e *Emulator) selectApplication(aid []byte) []byte {
	e.reset()
	if !bytes.Equal(aid, apdu.NDEFApplicationID[:]) {
		return apdu.Status(apdu.SWFileNotFound)
	}

	msg, err := e.provider.ActiveRecord()
	switch {
	case errors.Is(err, ErrNoActiveRecord), err == nil && len(msg) == 0:
		logger().Debug().Msg("emulator: no active record")
		return apdu.Status(apdu.SWFileNotFound)
	case err != nil:
		logger().Debug().Err(err).Msg("emulator: active record unavailable")
		return apdu.Status(apdu.SWNoPreciseDiagnosis)
	case len(msg) > apdu.MaxNDEFLength:
		logger().Debug().Int("len", len(msg)).Msg("emulator: active record too large")
		return apdu.Status(apdu.SWNoPreciseDiagnosis)
	}

	file := make([]byte, apdu.NLENSize+len(msg))
	//nolint:gosec // len(msg) is at most MaxNDEFLength
	binary.BigEndian.PutUint16(file, uint16(len(msg)))
	copy(file[apdu.NLENSize:], msg)

	e.ndefFile = file
	e.appSelected = true
	logger().Debug().Int("nlen", len(msg)).Msg("emulator: application selected")
	return apdu.Status(apdu.SWSuccess)
}

func (e *Emulator) selectFile(data []byte) []byte {
	if !e.appSelected {
		return apdu.Status(apdu.SWFileNotFound)
	}
	if len(data) != 2 {
		return apdu.Status(apdu.SWWrongLength)
	}
	switch apdu.FileID(binary.BigEndian.Uint16(data)) {
	case apdu.FileCC:
		e.selected = fileCC
	case apdu.FileNDEF:
		e.selected = fileNDEF
	default:
		return apdu.Status(apdu.SWFileNotFound)
	}
	return apdu.Status(apdu.SWSuccess)
}

func (e *Emulator) handleRead(cmd apdu.Command) []byte {
	var content []byte
	switch e.selected {
	case fileCC:
		content = e.cc
	case fileNDEF:
		content = e.ndefFile
	case fileNone:
		return apdu.Status(apdu.SWNoCurrentEF)
	}

	if cmd.P1&0x80 != 0 {
		return apdu.Status(apdu.SWWrongParameters)
	}
	if !cmd.HasLe || len(cmd.Data) > 0 {
		return apdu.Status(apdu.SWWrongLength)
	}
	offset := cmd.Offset()
	if offset >= len(content) {
		return apdu.Status(apdu.SWWrongParameters)
	}

	n := min(cmd.Le, len(content)-offset)
	return apdu.Encode(content[offset:offset+n], apdu.SWSuccess)
}
