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

// Package i2c carries PN532 frames over an I2C bus using periph.io.
package i2c

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/frame"
	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// PN532 7-bit address; the datasheet's 0x48 includes the R/W bit.
	pn532Addr = 0x24

	// First byte of every read transaction once the PN532 has data.
	pn532Ready = 0x01

	maxClockFreq   = 400 * physic.KiloHertz
	defaultTimeout = time.Second
	pollDelay      = time.Millisecond
	maxFrame       = 262
)

// Errors
var (
	ErrNoACK    = errors.New("i2c: no ACK from PN532")
	ErrNotReady = errors.New("i2c: PN532 not ready")
	ErrClosed   = errors.New("i2c: bus closed")
)

// Conn is a half-duplex connection to the PN532. *i2c.Dev satisfies it.
type Conn interface {
	Tx(w, r []byte) error
}

// Transport implements pn532.FrameTransport over I2C.
type Transport struct {
	conn    Conn
	bus     i2c.BusCloser
	busName string
	timeout time.Duration
	mu      syncutil.Mutex
	closed  bool
}

// New opens busName ("/dev/i2c-1" or "/dev/i2c-1:0x24").
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	name, _, _ := strings.Cut(busName, ":")
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}
	_ = bus.SetSpeed(maxClockFreq)

	t := NewWithConn(&i2c.Dev{Addr: pn532Addr, Bus: bus}, name)
	t.bus = bus
	return t, nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(conn Conn, busName string) *Transport {
	return &Transport{conn: conn, busName: busName, timeout: defaultTimeout}
}

// SendCommand writes one command frame, waits for the ACK and returns the
// response payload starting with the response code.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, tapcard.NewTransportError("SendCommand", t.busName, ErrClosed, tapcard.ErrorTypePermanent)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := frame.Build(cmd, args)
	if err != nil {
		return nil, tapcard.NewTransportError("SendCommand", t.busName, err, tapcard.ErrorTypePermanent)
	}
	if err := t.conn.Tx(out, nil); err != nil {
		return nil, tapcard.NewTransportError("sendFrame", t.busName, err, tapcard.ErrorTypeTransient)
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	ack, err := t.read(ctx, deadline, len(frame.AckFrame))
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return nil, tapcard.NewTransportError("waitAck", t.busName, ErrNoACK, tapcard.ErrorTypeTimeout)
		}
		return nil, err
	}
	if !bytes.Equal(ack, frame.AckFrame) {
		return nil, tapcard.NewTransportError("waitAck", t.busName,
			fmt.Errorf("%w: got % X", ErrNoACK, ack), tapcard.ErrorTypeTransient)
	}

	raw, err := t.read(ctx, deadline, maxFrame)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			return nil, tapcard.NewTimeoutError("receiveFrame", t.busName)
		}
		return nil, err
	}
	res, err := frame.Parse(raw)
	if err != nil {
		return nil, tapcard.NewTransportError("receiveFrame", t.busName, err, tapcard.ErrorTypeTransient)
	}

	if err := t.conn.Tx(frame.AckFrame, nil); err != nil {
		return nil, tapcard.NewTransportError("sendAck", t.busName, err, tapcard.ErrorTypeTransient)
	}
	return res, nil
}

// read polls the ready byte until the PN532 has data, then returns n bytes
// with the ready byte stripped.
func (t *Transport) read(ctx context.Context, deadline time.Time, n int) ([]byte, error) {
	buf := make([]byte, 1+n)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := t.conn.Tx(nil, buf); err != nil {
			return nil, tapcard.NewTransportError("read", t.busName, err, tapcard.ErrorTypeTransient)
		}
		if buf[0] == pn532Ready {
			return buf[1:], nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotReady
		}

		timer := time.NewTimer(pollDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// SetTimeout sets how long SendCommand waits for the ACK and response.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t.timeout = timeout
	return nil
}

// Close releases the bus.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.bus != nil {
		if err := t.bus.Close(); err != nil {
			return fmt.Errorf("I2C close failed: %w", err)
		}
	}
	return nil
}
