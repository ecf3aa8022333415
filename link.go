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

// Package tapcard reads and serves single-record NDEF files over ISO-DEP
// (NFC Forum Type 4 tags).
package tapcard

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
)

// Link carries command APDUs to one contactless target. It can be
// implemented by PC/SC readers, a PN532 or a network relay.
type Link interface {
	// Connect opens the link to the target
	Connect(ctx context.Context) error

	// Transceive sends one command APDU and returns the full response,
	// status word included
	Transceive(ctx context.Context, cmd []byte) ([]byte, error)

	// SetTimeout sets the bound applied to each exchange
	SetTimeout(timeout time.Duration) error

	// Close releases the target
	Close() error

	// Type returns the link type
	Type() LinkType
}

// Discoverer blocks until a target enters the field and returns a link to
// it. Each returned link serves exactly one tap.
type Discoverer interface {
	WaitForTag(ctx context.Context) (Link, error)
}

// LinkType represents the kind of link
type LinkType string

const (
	// LinkPCSC represents a PC/SC smart card reader.
	LinkPCSC LinkType = "pcsc"
	// LinkPN532 represents a PN532 in ISO-DEP initiator mode.
	LinkPN532 LinkType = "pn532"
	// LinkRelay represents a WebSocket relay to a remote emulator.
	LinkRelay LinkType = "relay"
	// LinkMock represents a mock link for testing
	LinkMock LinkType = "mock"
)

// MockLink provides a scripted Link for testing
type MockLink struct {
	responses  map[string][]byte
	errorMap   map[string]error
	handler    func(cmd []byte) ([]byte, error)
	connectErr error
	commands   [][]byte
	timeout    time.Duration
	delay      time.Duration
	mu         sync.RWMutex
	closeCount int
	connected  bool
	closed     bool
}

// NewMockLink creates a mock link that answers 6D 00 to every command until
// responses or a handler are configured.
func NewMockLink() *MockLink {
	return &MockLink{
		responses: make(map[string][]byte),
		errorMap:  make(map[string]error),
	}
}

// Connect implements Link
func (m *MockLink) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrLinkClosed
	}
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

// Transceive implements Link
func (m *MockLink) Transceive(ctx context.Context, cmd []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrLinkClosed
	}
	if !m.connected {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	m.commands = append(m.commands, bytes.Clone(cmd))
	delay := m.delay
	key := hex.EncodeToString(cmd)
	err, hasErr := m.errorMap[key]
	resp, hasResp := m.responses[key]
	handler := m.handler
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	switch {
	case hasErr:
		return nil, err
	case hasResp:
		return bytes.Clone(resp), nil
	case handler != nil:
		return handler(cmd)
	default:
		return apdu.Status(apdu.SWINSNotSupported), nil
	}
}

// SetTimeout implements Link
func (m *MockLink) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// Close implements Link
func (m *MockLink) Close() error {
	m.mu.Lock()
	m.closeCount++
	m.closed = true
	m.connected = false
	m.mu.Unlock()
	return nil
}

// Type implements Link
func (*MockLink) Type() LinkType {
	return LinkMock
}

// Test helper methods

// SetResponse configures the response for an exact command
func (m *MockLink) SetResponse(cmd, response []byte) {
	m.mu.Lock()
	m.responses[hex.EncodeToString(cmd)] = bytes.Clone(response)
	m.mu.Unlock()
}

// SetError configures an error to be returned for an exact command
func (m *MockLink) SetError(cmd []byte, err error) {
	m.mu.Lock()
	m.errorMap[hex.EncodeToString(cmd)] = err
	m.mu.Unlock()
}

// SetHandler answers every command without a scripted response
func (m *MockLink) SetHandler(fn func(cmd []byte) ([]byte, error)) {
	m.mu.Lock()
	m.handler = fn
	m.mu.Unlock()
}

// SetConnectError makes Connect fail with err
func (m *MockLink) SetConnectError(err error) {
	m.mu.Lock()
	m.connectErr = err
	m.mu.Unlock()
}

// SetDelay configures a delay to simulate radio round-trip time
func (m *MockLink) SetDelay(delay time.Duration) {
	m.mu.Lock()
	m.delay = delay
	m.mu.Unlock()
}

// Commands returns every command received, in order
func (m *MockLink) Commands() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.commands))
	copy(out, m.commands)
	return out
}

// CloseCount returns how many times Close was called
func (m *MockLink) CloseCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closeCount
}

// Timeout returns the last timeout set
func (m *MockLink) Timeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeout
}

// MockDiscoverer hands out queued links, one per WaitForTag call
type MockDiscoverer struct {
	links chan Link
	err   error
	mu    sync.Mutex
}

// NewMockDiscoverer creates a discoverer holding links
func NewMockDiscoverer(links ...Link) *MockDiscoverer {
	d := &MockDiscoverer{links: make(chan Link, len(links)+16)}
	for _, l := range links {
		d.links <- l
	}
	return d
}

// Push queues another tap
func (d *MockDiscoverer) Push(l Link) {
	d.links <- l
}

// SetError makes WaitForTag fail with err once the queue is empty
func (d *MockDiscoverer) SetError(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

// WaitForTag implements Discoverer
func (d *MockDiscoverer) WaitForTag(ctx context.Context) (Link, error) {
	select {
	case l := <-d.links:
		return l, nil
	default:
	}

	d.mu.Lock()
	err := d.err
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case l := <-d.links:
		return l, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
