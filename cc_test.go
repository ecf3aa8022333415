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
	"testing"

	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapabilityContainer(t *testing.T) {
	t.Parallel()

	raw := []byte{0x00, 0x0F, 0x20, 0x00, 0x3B, 0x00, 0x34, 0x04, 0x06, 0xE1, 0x04, 0x02, 0x00, 0x00, 0xFF, 0xFF}
	cc, err := ParseCapabilityContainer(raw)
	require.NoError(t, err)

	assert.Equal(t, apdu.FileNDEF, cc.FileID)
	assert.Equal(t, uint16(0x000F), cc.Length)
	assert.Equal(t, byte(0x20), cc.Version)
	assert.Equal(t, uint16(0x003B), cc.MaxLe)
	assert.Equal(t, uint16(0x0034), cc.MaxLc)
	assert.Equal(t, uint16(0x0200), cc.MaxFileSize)
	assert.True(t, cc.Readable())
	assert.False(t, cc.Writable())
}

func TestParseCapabilityContainer_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "short", raw: []byte{0x00, 0x0F, 0x20}},
		{name: "wrong TLV tag", raw: []byte{0x00, 0x0F, 0x20, 0x00, 0x3B, 0x00, 0x34, 0x05, 0x06, 0xE1, 0x04, 0x02, 0x00, 0x00, 0xFF}},
		{name: "short TLV", raw: []byte{0x00, 0x0F, 0x20, 0x00, 0x3B, 0x00, 0x34, 0x04, 0x04, 0xE1, 0x04, 0x02, 0x00, 0x00, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseCapabilityContainer(tt.raw)
			require.ErrorIs(t, err, ErrInvalidCC)
		})
	}
}

func TestNewCapabilityContainer_RoundTrip(t *testing.T) {
	t.Parallel()

	cc := NewCapabilityContainer()
	raw := cc.Bytes()
	require.Len(t, raw, apdu.CCLength)
	assert.Equal(t, []byte{
		0x00, 0x0F, 0x20, 0x04, 0x00, 0x00, 0xFF,
		0x04, 0x06, 0xE1, 0x04, 0x04, 0x02, 0x00, 0xFF,
	}, raw)

	parsed, err := ParseCapabilityContainer(raw)
	require.NoError(t, err)
	assert.Equal(t, cc, parsed)
	assert.False(t, parsed.Writable())
}
