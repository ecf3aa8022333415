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

package ndef

import (
	"errors"
	"fmt"
)

// Kind names a decoded value variant.
type Kind string

const (
	KindURI     Kind = "uri"
	KindText    Kind = "text"
	KindContact Kind = "contact"
	KindRaw     Kind = "raw"
)

// Value is the semantic content of a record: URI, Text, ContactToken or Raw.
type Value interface {
	Kind() Kind
	isValue()
}

// URI is a well-known URI record.
type URI struct {
	URI string `json:"uri"`
}

// Text is a well-known text record.
type Text struct {
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

// Raw is a payload of any other record type read as UTF-8.
type Raw struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
	TNF  byte   `json:"tnf"`
}

func (URI) Kind() Kind          { return KindURI }
func (Text) Kind() Kind         { return KindText }
func (ContactToken) Kind() Kind { return KindContact }
func (Raw) Kind() Kind          { return KindRaw }

func (URI) isValue()          {}
func (Text) isValue()         {}
func (ContactToken) isValue() {}
func (Raw) isValue()          {}

// CodecError reports a record whose (TNF, type) has no table row. It is not
// fatal: Decode returns it together with a Raw (or ContactToken) value.
type CodecError struct {
	Type string
	TNF  byte
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("ndef: no decoder for TNF 0x%02X type %q, read as raw text", e.TNF, e.Type)
}

// IsFallback reports whether err only signals the raw-text fallback.
func IsFallback(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}

type recordKey struct {
	typ string
	tnf byte
}

type decoderFunc func(rec *Record) (Value, error)

// decoders is the record dispatch table. Records without a row go through
// decodeRaw.
var decoders = map[recordKey]decoderFunc{
	{tnf: TNFWellKnown, typ: URIRecordType}:    decodeURI,
	{tnf: TNFWellKnown, typ: TextRecordType}:   decodeText,
	{tnf: TNFExternal, typ: ContactRecordType}: decodeRaw,
	{tnf: TNFMedia, typ: MIMETypeVCard}:        decodeRaw,
	{tnf: TNFMedia, typ: MIMETypeText}:         decodeRaw,
}

func lookupDecoder(tnf byte, typ string) (decoderFunc, error) {
	if dec, ok := decoders[recordKey{tnf: tnf, typ: typ}]; ok {
		return dec, nil
	}
	return decodeRaw, &CodecError{TNF: tnf, Type: typ}
}

func decodeURI(rec *Record) (Value, error) {
	uri, err := ParseURIRecord(rec.Payload)
	if err != nil {
		return nil, err
	}
	return URI{URI: uri}, nil
}

func decodeText(rec *Record) (Value, error) {
	tr, err := ParseTextRecord(rec.Payload)
	if err != nil {
		return nil, err
	}
	if IsVCard(tr.Text) {
		return ParseVCard(tr.Text), nil
	}
	return Text{Language: tr.Language, Text: tr.Text}, nil
}

func decodeRaw(rec *Record) (Value, error) {
	text := string(rec.Payload)
	if IsVCard(text) {
		return ParseVCard(text), nil
	}
	return Raw{TNF: rec.TNF, Type: rec.Type, Text: text}, nil
}

// Decode parses a single-record NDEF message. Structural problems
// (truncation, chunking, bad TNF) are returned as errors with a nil value.
// When the record type has no decoder the payload is read as raw text and
// returned along with a *CodecError; callers should test IsFallback.
func Decode(data []byte) (Value, error) {
	var rec Record
	if _, err := rec.Unmarshal(data); err != nil {
		return nil, err
	}
	return DecodeRecord(&rec)
}

// DecodeRecord dispatches an already-parsed record.
func DecodeRecord(rec *Record) (Value, error) {
	dec, fallback := lookupDecoder(rec.TNF, rec.Type)
	v, err := dec(rec)
	if err != nil {
		return nil, err
	}
	return v, fallback
}

// ErrUnsupportedValue is returned by Encode for unknown Value implementations.
var ErrUnsupportedValue = errors.New("ndef: unsupported value")

// NewRecord builds the record that carries v.
func NewRecord(v Value) (*Record, error) {
	switch val := v.(type) {
	case URI:
		return NewURIRecord(val.URI), nil
	case Text:
		return NewTextRecord(val.Text), nil
	case ContactToken:
		return NewExternalRecord(ContactRecordType, []byte(val.VCard())), nil
	case Raw:
		if val.TNF == TNFEmpty && val.Type == "" {
			return NewMediaRecord(MIMETypeText, []byte(val.Text)), nil
		}
		return &Record{TNF: val.TNF, Type: val.Type, Payload: []byte(val.Text)}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Encode builds the single-record NDEF message for v.
func Encode(v Value) ([]byte, error) {
	rec, err := NewRecord(v)
	if err != nil {
		return nil, err
	}
	return rec.Marshal()
}
