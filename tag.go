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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/google/uuid"
)

// DefaultTimeout bounds each exchange with a target.
const DefaultTimeout = 5 * time.Second

// TagState is the lifecycle state of a Tag.
type TagState int

const (
	TagDisconnected TagState = iota
	TagConnected
	TagClosed
)

func (s TagState) String() string {
	switch s {
	case TagDisconnected:
		return "disconnected"
	case TagConnected:
		return "connected"
	case TagClosed:
		return "closed"
	default:
		return fmt.Sprintf("TagState(%d)", int(s))
	}
}

// Tag is an exclusively owned handle to one contactless session. It is
// closed exactly once and never reused afterwards.
type Tag struct {
	link    Link
	id      string
	port    string
	timeout time.Duration
	mu      syncutil.Mutex
	state   TagState
}

// NewTag wraps link. A non-positive timeout selects DefaultTimeout.
func NewTag(link Link, timeout time.Duration) *Tag {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tag{
		link:    link,
		id:      uuid.NewString(),
		port:    string(link.Type()),
		timeout: timeout,
	}
}

// ID returns a random identifier used to correlate log lines for this tap.
func (t *Tag) ID() string { return t.id }

// State returns the current lifecycle state.
func (t *Tag) State() TagState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect applies the per-exchange timeout and opens the link.
func (t *Tag) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case TagConnected:
		return nil
	case TagClosed:
		return NewTransportError("connect", t.port, ErrLinkClosed, ErrorTypePermanent)
	case TagDisconnected:
	}

	if err := t.link.SetTimeout(t.timeout); err != nil {
		return wrapLinkError("set timeout", t.port, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := t.link.Connect(ctx); err != nil {
		return wrapLinkError("connect", t.port, err)
	}

	t.state = TagConnected
	logger().Debug().Str("tag", t.id).Str("link", t.port).Dur("timeout", t.timeout).Msg("tag connected")
	return nil
}

// Transceive sends one command and returns the raw response. Status words
// are not interpreted here.
func (t *Tag) Transceive(ctx context.Context, cmd []byte) ([]byte, error) {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()
	if state != TagConnected {
		return nil, NewTransportError("transceive", t.port, ErrNotConnected, ErrorTypePermanent)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	logger().Debug().Str("tag", t.id).Hex("tx", cmd).Msg("transceive")
	resp, err := t.link.Transceive(ctx, cmd)
	if err != nil {
		logger().Debug().Str("tag", t.id).Err(err).Msg("transceive failed")
		return nil, wrapLinkError("transceive", t.port, err)
	}
	logger().Debug().Str("tag", t.id).Hex("rx", resp).Msg("transceive")
	return resp, nil
}

// Close releases the link. Only the first call reaches the link; later
// calls return nil.
func (t *Tag) Close() error {
	t.mu.Lock()
	if t.state == TagClosed {
		t.mu.Unlock()
		return nil
	}
	t.state = TagClosed
	t.mu.Unlock()

	logger().Debug().Str("tag", t.id).Msg("tag closed")
	if err := t.link.Close(); err != nil {
		return wrapLinkError("close", t.port, err)
	}
	return nil
}
