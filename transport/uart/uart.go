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

// Package uart carries PN532 frames over a serial port.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/frame"
	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"go.bug.st/serial"
)

const (
	baudRate       = 115200
	defaultTimeout = time.Second
	wakeDelay      = 6 * time.Millisecond
	maxFrame       = 262
)

// Errors
var (
	ErrNoACK  = errors.New("uart: no ACK from PN532")
	ErrNACK   = errors.New("uart: NACK from PN532")
	ErrClosed = errors.New("uart: port closed")
)

// wakeup is 0x55 followed by enough idle bytes to bring the PN532 out of
// power down (HSU wakeup, datasheet 7.2.11).
var wakeup = []byte{
	0x55, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Port is the subset of serial.Port the transport uses.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements pn532.FrameTransport over a serial port.
type Transport struct {
	port     Port
	portName string
	timeout  time.Duration
	mu       syncutil.Mutex
	closed   bool
}

// readTimeout is the per-Read poll interval. Windows drivers need longer.
func readTimeout() time.Duration {
	if runtime.GOOS == "windows" {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// New opens portName at 115200 8N1.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}
	t, err := NewWithPort(port, portName)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort wraps an already open port.
func NewWithPort(port Port, portName string) (*Transport, error) {
	if err := port.SetReadTimeout(readTimeout()); err != nil {
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}
	return &Transport{port: port, portName: portName, timeout: defaultTimeout}, nil
}

// SendCommand writes one command frame, waits for the ACK and returns the
// response payload starting with the response code.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, tapcard.NewTransportError("SendCommand", t.portName, ErrClosed, tapcard.ErrorTypePermanent)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := frame.Build(cmd, args)
	if err != nil {
		return nil, tapcard.NewTransportError("SendCommand", t.portName, err, tapcard.ErrorTypePermanent)
	}

	_ = t.port.ResetInputBuffer()
	if err := t.write("wakeUp", wakeup); err != nil {
		return nil, err
	}
	if err := t.write("sendFrame", out); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	res, err := t.receive(ctx, deadline)
	if err != nil {
		return nil, err
	}

	// Acknowledge so the PN532 does not resend.
	if err := t.write("sendAck", frame.AckFrame); err != nil {
		return nil, err
	}
	return res, nil
}

// receive reads until an ACK and a complete response frame have arrived.
func (t *Transport) receive(ctx context.Context, deadline time.Time) ([]byte, error) {
	buf := make([]byte, 0, maxFrame)
	chunk := make([]byte, maxFrame)
	acked := false

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			if !acked {
				return nil, tapcard.NewTransportError("waitAck", t.portName, ErrNoACK, tapcard.ErrorTypeTimeout)
			}
			return nil, tapcard.NewTimeoutError("receiveFrame", t.portName)
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return nil, tapcard.NewTransportError("read", t.portName, err, tapcard.ErrorTypePermanent)
		}
		if n == 0 {
			continue
		}
		buf = append(buf, chunk[:n]...)

		if !acked {
			if frame.IsNack(buf) {
				return nil, tapcard.NewTransportError("waitAck", t.portName, ErrNACK, tapcard.ErrorTypeTransient)
			}
			if !frame.IsAck(buf) {
				continue
			}
			acked = true
			time.Sleep(wakeDelay)
		}

		res, err := frame.Parse(buf)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoStartCode):
			if len(buf) > 2*maxFrame {
				return nil, tapcard.NewTransportError("receiveFrame", t.portName, err, tapcard.ErrorTypeTransient)
			}
		default:
			return nil, tapcard.NewTransportError("receiveFrame", t.portName, err, tapcard.ErrorTypeTransient)
		}
	}
}

func (t *Transport) write(op string, data []byte) error {
	n, err := t.port.Write(data)
	if err != nil {
		return tapcard.NewTransportError(op, t.portName, err, tapcard.ErrorTypePermanent)
	}
	if n != len(data) {
		return tapcard.NewTransportError(op, t.portName, io.ErrShortWrite, tapcard.ErrorTypeTransient)
	}
	return nil
}

// SetTimeout sets how long SendCommand waits for a response.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t.timeout = timeout
	return nil
}

// Close closes the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("UART close failed: %w", err)
	}
	return nil
}
