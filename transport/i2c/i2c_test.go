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

package i2c

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn answers reads from a queue. Each entry fills the read buffer
// from the start; an empty queue reads as "not ready".
type fakeConn struct {
	txErr  error
	reads  [][]byte
	writes [][]byte
	mu     sync.Mutex
}

func (c *fakeConn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txErr != nil {
		return c.txErr
	}
	if w != nil {
		c.writes = append(c.writes, append([]byte(nil), w...))
	}
	if r != nil {
		clear(r)
		if len(c.reads) > 0 {
			copy(r, c.reads[0])
			c.reads = c.reads[1:]
		}
	}
	return nil
}

func ready(b []byte) []byte {
	return append([]byte{pn532Ready}, b...)
}

func responseFrame(payload ...byte) []byte {
	data := append([]byte{frame.PN532ToHost}, payload...)
	out := []byte{0x00, 0x00, 0xFF, byte(len(data)), frame.Checksum([]byte{byte(len(data))})}
	out = append(out, data...)
	return append(out, frame.Checksum(data), 0x00)
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	c := &fakeConn{reads: [][]byte{
		{0x00},
		ready(frame.AckFrame),
		{0x00},
		ready(responseFrame(0x15)),
	}}
	tr := NewWithConn(c, "/dev/i2c-test")

	res, err := tr.SendCommand(context.Background(), 0x14, []byte{0x01, 0x14, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x15}, res)

	require.Len(t, c.writes, 2)
	want, err := frame.Build(0x14, []byte{0x01, 0x14, 0x01})
	require.NoError(t, err)
	assert.Equal(t, want, c.writes[0])
	assert.Equal(t, frame.AckFrame, c.writes[1])
}

func TestSendCommandErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		check func(t *testing.T, err error)
		conn  *fakeConn
		name  string
	}{
		{
			name: "never ready",
			conn: &fakeConn{},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrNoACK)
				assert.True(t, tapcard.IsRetryable(err))
			},
		},
		{
			name: "garbage instead of ack",
			conn: &fakeConn{reads: [][]byte{ready([]byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00})}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrNoACK)
			},
		},
		{
			name: "response timeout",
			conn: &fakeConn{reads: [][]byte{ready(frame.AckFrame)}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, tapcard.ErrLinkTimeout)
			},
		},
		{
			name: "error frame",
			conn: &fakeConn{reads: [][]byte{
				ready(frame.AckFrame),
				ready([]byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00}),
			}},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, frame.ErrApplicationError)
			},
		},
		{
			name: "bus failure",
			conn: &fakeConn{txErr: errors.New("remote I/O error")},
			check: func(t *testing.T, err error) {
				assert.True(t, tapcard.IsTransport(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tr := NewWithConn(tt.conn, "/dev/i2c-test")
			require.NoError(t, tr.SetTimeout(20*time.Millisecond))
			_, err := tr.SendCommand(context.Background(), 0x02, nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr := NewWithConn(&fakeConn{}, "/dev/i2c-test")
	require.NoError(t, tr.Close())
	_, err := tr.SendCommand(context.Background(), 0x02, nil)
	require.ErrorIs(t, err, ErrClosed)
}
