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

package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrUnexpectedMessage is returned when the peer answers with a text frame.
var ErrUnexpectedMessage = errors.New("relay: unexpected message type")

// Link implements tapcard.Link over a relay WebSocket. One connection is
// one tap.
type Link struct {
	conn    *websocket.Conn
	dialer  *websocket.Dialer
	url     string
	timeout time.Duration
	mu      syncutil.Mutex
	closed  bool
}

// NewLink returns an unconnected link to url (ws:// or wss://).
func NewLink(url string) *Link {
	return &Link{url: url, dialer: websocket.DefaultDialer, timeout: tapcard.DefaultTimeout}
}

// Connect implements tapcard.Link
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return tapcard.ErrLinkClosed
	}
	if l.conn != nil {
		return nil
	}

	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		te := tapcard.ErrorTypeTransient
		if errors.Is(err, context.DeadlineExceeded) {
			te = tapcard.ErrorTypeTimeout
		}
		return tapcard.NewTransportError("dial", l.url, err, te)
	}
	conn.SetReadLimit(maxMessage)
	l.conn = conn
	return nil
}

// Transceive implements tapcard.Link
func (l *Link) Transceive(ctx context.Context, cmd []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, tapcard.ErrLinkClosed
	}
	if l.conn == nil {
		return nil, tapcard.ErrNotConnected
	}

	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = l.conn.SetWriteDeadline(deadline)
	_ = l.conn.SetReadDeadline(deadline)

	// Registered after the read deadline so a cancellation always wins.
	stop := context.AfterFunc(ctx, func() {
		_ = l.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := l.conn.WriteMessage(websocket.BinaryMessage, cmd); err != nil {
		return nil, l.linkError(ctx, "write", err)
	}

	mt, res, err := l.conn.ReadMessage()
	if err != nil {
		return nil, l.linkError(ctx, "read", err)
	}
	if mt != websocket.BinaryMessage {
		return nil, tapcard.NewTransportError("read", l.url,
			fmt.Errorf("%w: %d", ErrUnexpectedMessage, mt), tapcard.ErrorTypeTransient)
	}
	return res, nil
}

func (l *Link) linkError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return tapcard.NewTransportError(op, l.url, fmt.Errorf("%w: %w", tapcard.ErrLinkTimeout, err), tapcard.ErrorTypeTimeout)
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return tapcard.NewTransportError(op, l.url, fmt.Errorf("%w: %w", tapcard.ErrTagLost, err), tapcard.ErrorTypeTransient)
	}
	return tapcard.NewTransportError(op, l.url, err, tapcard.ErrorTypeTransient)
}

// SetTimeout implements tapcard.Link
func (l *Link) SetTimeout(timeout time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if timeout > 0 {
		l.timeout = timeout
	}
	return nil
}

// Close sends a close frame and drops the connection.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.conn == nil {
		return nil
	}
	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("relay close failed: %w", err)
	}
	return nil
}

// Type implements tapcard.Link
func (*Link) Type() tapcard.LinkType {
	return tapcard.LinkRelay
}

var _ tapcard.Link = (*Link)(nil)

// Dialer implements tapcard.Discoverer by dialing a relay. Each successful
// dial counts as one tap.
type Dialer struct {
	// URL of the relay endpoint
	URL string
	// Log receives dial failures. The zero value discards them.
	Log zerolog.Logger
	// Interval between taps (default: 1s)
	Interval time.Duration

	mu   syncutil.Mutex
	last time.Time
}

// WaitForTag implements tapcard.Discoverer. It waits out the interval
// since the previous tap and retries the dial until ctx is done.
func (d *Dialer) WaitForTag(ctx context.Context) (tapcard.Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	interval := d.Interval
	if interval <= 0 {
		interval = time.Second
	}

	for {
		if wait := time.Until(d.last.Add(interval)); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		d.last = time.Now()

		link := NewLink(d.URL)
		err := link.Connect(ctx)
		if err == nil {
			return link, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.Log.Debug().Err(err).Str("url", d.URL).Msg("relay dial failed")
	}
}

var _ tapcard.Discoverer = (*Dialer)(nil)
