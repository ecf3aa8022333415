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
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func() ([]byte, error)

func (f providerFunc) ActiveRecord() ([]byte, error) { return f() }

func emulatorLink(t *testing.T, e *Emulator) *MockLink {
	t.Helper()
	link := NewMockLink()
	link.SetHandler(func(cmd []byte) ([]byte, error) { return e.Process(cmd), nil })
	return link
}

func sw(resp []byte) apdu.StatusWord {
	r, err := apdu.ParseResponse(resp)
	if err != nil {
		return 0
	}
	return r.SW
}

func TestEmulator_EndToEnd(t *testing.T) {
	t.Parallel()

	values := []ndef.Value{
		ndef.URI{URI: "https://www.example.com"},
		ndef.URI{URI: "mailto:jane@acme.com"},
		ndef.Text{Text: "see you at 3"},
		ndef.Text{Text: strings.Repeat("long text ", 60)},
		ndef.ContactToken{
			Name:           "Jane Doe",
			Company:        "Acme",
			Email:          "jane@acme.com",
			OrganizationID: "org-42",
			SocialLinks:    map[string]string{ndef.PlatformGitHub: "https://github.com/jd"},
		},
	}

	for _, v := range values {
		card := NewActiveCard()
		require.NoError(t, card.Set(v))

		session := NewSession(NewMockDiscoverer(emulatorLink(t, NewEmulator(card))), SessionConfig{})
		got, ok := session.Read(context.Background())
		require.True(t, ok, "%#v", v)

		if c, isContact := v.(ndef.ContactToken); isContact {
			gc := got.(ndef.ContactToken)
			assert.Equal(t, c.Name, gc.Name)
			assert.Equal(t, c.OrganizationID, gc.OrganizationID)
			assert.Equal(t, c.Social(ndef.PlatformGitHub), gc.Social(ndef.PlatformGitHub))
			continue
		}
		assert.Equal(t, v, got)
	}
}

func TestEmulator_SnapshotAtSelection(t *testing.T) {
	t.Parallel()

	card := NewActiveCard()
	require.NoError(t, card.Set(ndef.URI{URI: "https://first.example"}))
	e := NewEmulator(card)

	require.Equal(t, apdu.SWSuccess, sw(e.Process(apdu.SelectApplication(apdu.NDEFApplicationID[:]))))

	// The live record changes mid-session.
	require.NoError(t, card.Set(ndef.URI{URI: "https://second.example/with/a/longer/path"}))
	card.Clear()

	require.Equal(t, apdu.SWSuccess, sw(e.Process(apdu.SelectFile(apdu.FileNDEF))))
	lenCmd, err := apdu.ReadBinary(0, 2)
	require.NoError(t, err)
	resp := e.Process(lenCmd)
	require.Equal(t, apdu.SWSuccess, sw(resp))
	nlen := int(resp[0])<<8 | int(resp[1])

	dataCmd, err := apdu.ReadBinary(2, nlen)
	require.NoError(t, err)
	resp = e.Process(dataCmd)
	require.Equal(t, apdu.SWSuccess, sw(resp))

	v, err := ndef.Decode(resp[:len(resp)-2])
	require.NoError(t, err)
	assert.Equal(t, ndef.URI{URI: "https://first.example"}, v)

	// Re-selection picks up the current state.
	assert.Equal(t, apdu.SWFileNotFound, sw(e.Process(apdu.SelectApplication(apdu.NDEFApplicationID[:]))))
}

func TestEmulator_StatusWords(t *testing.T) {
	t.Parallel()

	card := NewActiveCard()
	require.NoError(t, card.Set(ndef.Text{Text: "hi"}))
	selectApp := apdu.SelectApplication(apdu.NDEFApplicationID[:])

	tests := []struct {
		name  string
		setup [][]byte
		cmd   []byte
		want  apdu.StatusWord
	}{
		{name: "unknown CLA", cmd: []byte{0x80, 0xA4, 0x04, 0x00}, want: apdu.SWCLANotSupported},
		{name: "unknown INS", cmd: []byte{0x00, 0xCA, 0x00, 0x00, 0x00}, want: apdu.SWINSNotSupported},
		{name: "malformed", cmd: []byte{0x00, 0xA4}, want: apdu.SWWrongLength},
		{name: "other AID", cmd: apdu.SelectApplication([]byte{0xA0, 0x00, 0x00, 0x00, 0x03}), want: apdu.SWFileNotFound},
		{name: "select file before app", cmd: apdu.SelectFile(apdu.FileCC), want: apdu.SWFileNotFound},
		{name: "read without file", setup: [][]byte{selectApp}, cmd: []byte{0x00, 0xB0, 0x00, 0x00, 0x0F}, want: apdu.SWNoCurrentEF},
		{name: "unknown file", setup: [][]byte{selectApp}, cmd: apdu.SelectFile(0xE105), want: apdu.SWFileNotFound},
		{name: "bad select P1", setup: [][]byte{selectApp}, cmd: []byte{0x00, 0xA4, 0x02, 0x0C, 0x02, 0xE1, 0x03}, want: apdu.SWWrongParameters},
		{name: "file id wrong size", setup: [][]byte{selectApp}, cmd: []byte{0x00, 0xA4, 0x00, 0x0C, 0x01, 0xE1}, want: apdu.SWWrongLength},
		{
			name:  "offset past end",
			setup: [][]byte{selectApp, apdu.SelectFile(apdu.FileCC)},
			cmd:   []byte{0x00, 0xB0, 0x00, 0x0F, 0x01},
			want:  apdu.SWWrongParameters,
		},
		{
			name:  "read without Le",
			setup: [][]byte{selectApp, apdu.SelectFile(apdu.FileCC)},
			cmd:   []byte{0x00, 0xB0, 0x00, 0x00},
			want:  apdu.SWWrongLength,
		},
		{
			name:  "update binary rejected",
			setup: [][]byte{selectApp, apdu.SelectFile(apdu.FileNDEF)},
			cmd:   []byte{0x00, 0xD6, 0x00, 0x00, 0x02, 0x00, 0x00},
			want:  apdu.SWSecurityNotSatisfied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEmulator(card)
			for _, c := range tt.setup {
				require.Equal(t, apdu.SWSuccess, sw(e.Process(c)))
			}
			assert.Equal(t, tt.want, sw(e.Process(tt.cmd)))
		})
	}
}

func TestEmulator_ReadsCC(t *testing.T) {
	t.Parallel()

	card := NewActiveCard()
	require.NoError(t, card.Set(ndef.Text{Text: "hi"}))
	e := NewEmulator(card)

	e.Process(apdu.SelectApplication(apdu.NDEFApplicationID[:]))
	e.Process(apdu.SelectFile(apdu.FileCC))
	resp := e.Process([]byte{0x00, 0xB0, 0x00, 0x00, 0x0F})
	require.Equal(t, apdu.SWSuccess, sw(resp))

	cc, err := ParseCapabilityContainer(resp[:len(resp)-2])
	require.NoError(t, err)
	assert.Equal(t, NewCapabilityContainer(), cc)
	assert.Equal(t, byte(0xFF), cc.WriteAccess)
}

func TestEmulator_ProviderFailures(t *testing.T) {
	t.Parallel()

	selectApp := apdu.SelectApplication(apdu.NDEFApplicationID[:])

	tests := []struct {
		provider providerFunc
		name     string
		want     apdu.StatusWord
	}{
		{
			name:     "no active record",
			provider: func() ([]byte, error) { return nil, ErrNoActiveRecord },
			want:     apdu.SWFileNotFound,
		},
		{
			name:     "empty record",
			provider: func() ([]byte, error) { return []byte{}, nil },
			want:     apdu.SWFileNotFound,
		},
		{
			name:     "provider error",
			provider: func() ([]byte, error) { return nil, errors.New("storage offline") },
			want:     apdu.SWNoPreciseDiagnosis,
		},
		{
			name:     "record too large",
			provider: func() ([]byte, error) { return make([]byte, apdu.MaxNDEFLength+1), nil },
			want:     apdu.SWNoPreciseDiagnosis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEmulator(tt.provider)
			assert.Equal(t, tt.want, sw(e.Process(selectApp)))
			assert.Equal(t, apdu.SWFileNotFound, sw(e.Process(apdu.SelectFile(apdu.FileNDEF))))
		})
	}
}

func TestEmulator_Deactivate(t *testing.T) {
	t.Parallel()

	card := NewActiveCard()
	require.NoError(t, card.Set(ndef.Text{Text: "hi"}))
	e := NewEmulator(card)

	e.Process(apdu.SelectApplication(apdu.NDEFApplicationID[:]))
	require.Equal(t, apdu.SWSuccess, sw(e.Process(apdu.SelectFile(apdu.FileNDEF))))

	e.Deactivate()
	assert.Equal(t, apdu.SWNoCurrentEF, sw(e.Process([]byte{0x00, 0xB0, 0x00, 0x00, 0x02})))
	assert.Equal(t, apdu.SWFileNotFound, sw(e.Process(apdu.SelectFile(apdu.FileNDEF))))
}
