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

// Package pcsc reads Type 4 tags through a PC/SC contactless reader.
package pcsc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/ebfe/scard"
	"github.com/rs/zerolog"
)

// Errors
var (
	ErrNoReader = errors.New("pcsc: no reader found")
)

// Card is a connected card handle. *scard.Card satisfies it.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

// Context is the part of a PC/SC context the reader uses.
type Context interface {
	ListReaders() ([]string, error)
	GetStatusChange(states []scard.ReaderState, timeout time.Duration) error
	Connect(reader string) (Card, error)
	Release() error
}

type systemContext struct {
	*scard.Context
}

func (c systemContext) Connect(reader string) (Card, error) {
	// Exclusive so another application cannot interleave APDUs.
	card, err := c.Context.Connect(reader, scard.ShareExclusive, scard.ProtocolAny)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Config holds reader settings
type Config struct {
	// Reader selects a reader by name substring. Empty picks the first.
	Reader string
	// PollInterval bounds each GetStatusChange wait (default: 250ms)
	PollInterval time.Duration
}

// Reader implements tapcard.Discoverer over a PC/SC reader.
type Reader struct {
	sc     Context
	log    zerolog.Logger
	name   string
	config Config
	mu     syncutil.Mutex
	// present is set once a card has been handed out and cleared when it
	// leaves the field, so a resting card is read once.
	present bool
}

// New establishes a system PC/SC context.
func New(cfg Config, log zerolog.Logger) (*Reader, error) {
	sc, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}
	return NewWithContext(systemContext{sc}, cfg, log), nil
}

// NewWithContext uses an existing context.
func NewWithContext(sc Context, cfg Config, log zerolog.Logger) *Reader {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 250 * time.Millisecond
	}
	return &Reader{sc: sc, config: cfg, log: log}
}

// Readers lists the reader names PC/SC reports.
func (r *Reader) Readers() ([]string, error) {
	readers, err := r.sc.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	return readers, nil
}

func (r *Reader) pickReader() (string, error) {
	if r.name != "" {
		return r.name, nil
	}
	readers, err := r.Readers()
	if err != nil {
		return "", err
	}
	for _, name := range readers {
		if r.config.Reader == "" || strings.Contains(name, r.config.Reader) {
			r.name = name
			r.log.Debug().Str("reader", name).Msg("using PC/SC reader")
			return name, nil
		}
	}
	return "", ErrNoReader
}

// WaitForTag implements tapcard.Discoverer. It blocks until a card enters
// the field. A card that stays on the reader after being handed out must
// be removed before it is reported again.
func (r *Reader) WaitForTag(ctx context.Context) (tapcard.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, err := r.pickReader()
	if err != nil {
		return nil, tapcard.NewTransportError("WaitForTag", r.config.Reader, err, tapcard.ErrorTypePermanent)
	}

	states := []scard.ReaderState{{Reader: name, CurrentState: scard.StateUnaware}}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := r.sc.GetStatusChange(states, r.config.PollInterval)
		switch {
		case errors.Is(err, scard.ErrTimeout):
			continue
		case err != nil:
			r.name = ""
			return nil, tapcard.NewTransportError("GetStatusChange", name, err, tapcard.ErrorTypeTransient)
		}

		st := states[0].EventState
		states[0].CurrentState = st &^ scard.StateChanged

		if st&scard.StatePresent == 0 {
			r.present = false
			continue
		}
		if r.present {
			continue
		}
		r.present = true
		return &Link{sc: r.sc, reader: name}, nil
	}
}

// Close releases the PC/SC context.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.sc.Release(); err != nil {
		return fmt.Errorf("failed to release PC/SC context: %w", err)
	}
	return nil
}

var _ tapcard.Discoverer = (*Reader)(nil)

// Link is a card in a PC/SC reader.
type Link struct {
	sc     Context
	card   Card
	reader string
	mu     syncutil.Mutex
	closed bool
}

// Connect implements tapcard.Link
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return tapcard.ErrLinkClosed
	}
	if l.card != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	card, err := l.sc.Connect(l.reader)
	if err != nil {
		return tapcard.NewTransportError("Connect", l.reader, err, linkErrorType(err))
	}
	l.card = card
	return nil
}

// Transceive implements tapcard.Link
func (l *Link) Transceive(ctx context.Context, cmd []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, tapcard.ErrLinkClosed
	}
	if l.card == nil {
		return nil, tapcard.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := l.card.Transmit(cmd)
	if err != nil {
		return nil, tapcard.NewTransportError("Transmit", l.reader, err, linkErrorType(err))
	}
	return res, nil
}

// SetTimeout implements tapcard.Link. PC/SC applies its own transmit
// timeout; the per-call context bound still applies.
func (*Link) SetTimeout(time.Duration) error { return nil }

// Close disconnects the card, leaving it powered.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.card == nil {
		return nil
	}
	if err := l.card.Disconnect(scard.LeaveCard); err != nil {
		return fmt.Errorf("failed to disconnect card: %w", err)
	}
	return nil
}

// Type implements tapcard.Link
func (*Link) Type() tapcard.LinkType {
	return tapcard.LinkPCSC
}

var _ tapcard.Link = (*Link)(nil)

// linkErrorType maps PC/SC codes to the tapcard error categories.
func linkErrorType(err error) tapcard.ErrorType {
	switch {
	case errors.Is(err, scard.ErrRemovedCard), errors.Is(err, scard.ErrNoSmartcard), errors.Is(err, scard.ErrResetCard):
		return tapcard.ErrorTypeTransient
	case errors.Is(err, scard.ErrTimeout):
		return tapcard.ErrorTypeTimeout
	case errors.Is(err, scard.ErrReaderUnavailable), errors.Is(err, scard.ErrNoService), errors.Is(err, scard.ErrInvalidHandle):
		return tapcard.ErrorTypePermanent
	default:
		return tapcard.ErrorTypeTransient
	}
}
