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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
	"github.com/google/uuid"
)

// SessionConfig holds reader session settings
type SessionConfig struct {
	// Dispatcher receives every value read by Serve. Nil values are dropped.
	Dispatcher *Dispatcher
	// Timeout bounds each exchange with the target (default: 5s)
	Timeout time.Duration
	// ErrorBackoff is the pause after a failed tap before Serve waits for
	// the next one (default: 250ms)
	ErrorBackoff time.Duration
	// OnDispatchError is called when the Dispatcher rejects a value. When
	// nil the failure is logged at error level even with debug logging off.
	OnDispatchError func(v ndef.Value, err error)
}

// DefaultSessionConfig returns default session settings
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timeout:      DefaultTimeout,
		ErrorBackoff: 250 * time.Millisecond,
	}
}

// Session reads one tag at a time from a Discoverer.
type Session struct {
	discoverer Discoverer
	id         string
	config     SessionConfig
	busy       atomic.Bool
}

// NewSession creates a reader session. Zero config fields take their
// defaults.
func NewSession(d Discoverer, cfg SessionConfig) *Session {
	def := DefaultSessionConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.OnDispatchError == nil {
		cfg.OnDispatchError = logDispatchError
	}
	return &Session{discoverer: d, config: cfg, id: uuid.NewString()}
}

// ID returns the session identifier used in log lines.
func (s *Session) ID() string { return s.id }

// Read waits for a tag and reads it. Every failure is reported as no
// result; use Next for the error.
func (s *Session) Read(ctx context.Context) (ndef.Value, bool) {
	v, err := s.Next(ctx)
	return v, err == nil
}

// Next waits for a tag and reads it. A concurrent call fails with
// ErrSessionBusy.
func (s *Session) Next(ctx context.Context) (ndef.Value, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrSessionBusy
	}
	defer s.busy.Store(false)

	link, err := s.discoverer.WaitForTag(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for tag: %w", err)
	}
	return s.readLink(ctx, link)
}

// ReadLink reads a tag already present on link. The link is closed before
// ReadLink returns.
func (s *Session) ReadLink(ctx context.Context, link Link) (ndef.Value, error) {
	if !s.busy.CompareAndSwap(false, true) {
		_ = link.Close()
		return nil, ErrSessionBusy
	}
	defer s.busy.Store(false)
	return s.readLink(ctx, link)
}

func (s *Session) readLink(ctx context.Context, link Link) (v ndef.Value, err error) {
	tag := NewTag(link, s.config.Timeout)
	defer func() {
		if cerr := tag.Close(); cerr != nil {
			logger().Debug().Str("session", s.id).Str("tag", tag.ID()).Err(cerr).Msg("close tag")
		}
	}()

	if err := tag.Connect(ctx); err != nil {
		return nil, err
	}

	msg, err := NewFileReader(tag, tag.ID()).Run(ctx)
	if err != nil {
		return nil, err
	}

	v, err = ndef.Decode(msg)
	switch {
	case err == nil:
	case ndef.IsFallback(err):
		logger().Debug().Str("session", s.id).Str("tag", tag.ID()).Err(err).Msg("raw text fallback")
	case errors.Is(err, ndef.ErrTruncatedRecord):
		return nil, NewValidationError("record length", len(msg), err)
	default:
		return nil, NewValidationError("record", len(msg), fmt.Errorf("%w: %w", ErrMalformedData, err))
	}

	logger().Debug().
		Str("session", s.id).
		Str("tag", tag.ID()).
		Str("kind", string(v.Kind())).
		Msg("tag read")
	return v, nil
}

// Serve reads taps until ctx is done and hands each value to the configured
// Dispatcher. Failed taps are logged and skipped. It returns ctx.Err() on
// cancellation, or the discoverer's error if discovery itself fails.
func (s *Session) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		link, err := s.discoverer.WaitForTag(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("wait for tag: %w", err)
		}

		v, err := s.ReadLink(ctx, link)
		if err != nil {
			logger().Debug().Str("session", s.id).Err(err).Msg("tap produced no result")
			if !sleepCtx(ctx, s.config.ErrorBackoff) {
				return ctx.Err()
			}
			continue
		}

		if s.config.Dispatcher == nil {
			continue
		}
		if err := s.config.Dispatcher.Dispatch(ctx, v); err != nil {
			s.config.OnDispatchError(v, err)
		}
	}
}

func logDispatchError(v ndef.Value, err error) {
	alwaysLogger().Error().Str("value", fmt.Sprintf("%T", v)).Err(err).Msg("dispatch failed")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
