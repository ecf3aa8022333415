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
	"io"

	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
)

// Error categories
var (
	// Link errors
	ErrLinkTimeout  = errors.New("link timeout")
	ErrLinkClosed   = errors.New("link is closed")
	ErrTagLost      = errors.New("tag lost")
	ErrNotConnected = errors.New("tag not connected")
	ErrNoTarget     = errors.New("no target in field")

	// Protocol errors
	ErrStatusWord    = errors.New("unexpected status word")
	ErrShortResponse = errors.New("response shorter than requested")
	ErrInvalidCC     = errors.New("invalid capability container")

	// Validation errors
	ErrInvalidLength = errors.New("invalid NDEF length")
	ErrMalformedData = errors.New("malformed NDEF data")

	// Session and emulation errors
	ErrSessionBusy    = errors.New("another read is in progress")
	ErrNoActiveRecord = errors.New("no active record")
	ErrRecordTooLarge = errors.New("record does not fit the NDEF file")
)

// ErrorType represents the category of a link failure
type ErrorType int

const (
	// ErrorTypeTransient indicates a failure that a new tap may not repeat
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates the link or reader is gone
	ErrorTypePermanent
	// ErrorTypeTimeout indicates the target stopped answering
	ErrorTypeTimeout
)

// TransportError reports a lost or timed-out link.
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Reader or link identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether a fresh tap may succeed
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a response whose status word is not 90 00, or a
// response that does not have the shape a step expects.
type ProtocolError struct {
	Err  error
	Step string
	SW   apdu.StatusWord
}

func (e *ProtocolError) Error() string {
	if errors.Is(e.Err, ErrStatusWord) {
		return fmt.Sprintf("%s: status %s", e.Step, e.SW)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ValidationError reports NDEF content that fails a size or structure check.
type ValidationError struct {
	Err   error
	Field string
	Value int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Error constructors for consistent error creation

// NewTransportError creates a link error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for link operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrLinkTimeout, ErrorTypeTimeout)
}

// NewTagLostError creates an error for a target that left the field
func NewTagLostError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTagLost, ErrorTypeTransient)
}

// NewStatusError creates a protocol error for a non-success status word
func NewStatusError(step string, sw apdu.StatusWord) *ProtocolError {
	return &ProtocolError{Step: step, SW: sw, Err: ErrStatusWord}
}

// NewValidationError creates a validation error for field
func NewValidationError(field string, value int, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// wrapLinkError classifies an error returned by a Link as a TransportError.
func wrapLinkError(op, port string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewTransportError(op, port, fmt.Errorf("%w: %w", ErrLinkTimeout, err), ErrorTypeTimeout)
	case errors.Is(err, context.Canceled):
		return NewTransportError(op, port, err, ErrorTypePermanent)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrClosedPipe), errors.Is(err, ErrLinkClosed):
		return NewTransportError(op, port, err, ErrorTypePermanent)
	default:
		return NewTransportError(op, port, err, ErrorTypeTransient)
	}
}

// IsTransport reports whether err is a link failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsProtocol reports whether err is a status word or response shape failure.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsValidation reports whether err is a size or structure failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRetryable reports whether a fresh tap may succeed where this one failed.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	return IsProtocol(err) || IsValidation(err)
}

// IsFatal reports whether the link itself is gone and serving should stop.
func IsFatal(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}
	return false
}

// IsNoResult reports whether err means a tap produced no value. The raw-text
// fallback of the record codec still produces a value and does not count.
func IsNoResult(err error) bool {
	return err != nil && !ndef.IsFallback(err)
}
