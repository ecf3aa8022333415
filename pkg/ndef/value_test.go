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
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecode_URIExample(t *testing.T) {
	t.Parallel()

	data := append([]byte{0xD1, 0x01, 0x0C, 'U', 0x02}, "example.com"...)
	v, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	uri, ok := v.(URI)
	if !ok {
		t.Fatalf("value = %T, want URI", v)
	}
	if uri.URI != "https://www.example.com" {
		t.Errorf("URI = %q", uri.URI)
	}
	if v.Kind() != KindURI {
		t.Errorf("Kind() = %q", v.Kind())
	}
}

func TestDecode_TextValue(t *testing.T) {
	t.Parallel()

	data := append([]byte{0xD1, 0x01, 0x08, 'T', 0x02, 'e', 'n'}, "Hello"...)
	v, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got, want := v, (Text{Language: "en", Text: "Hello"}); got != want {
		t.Errorf("value = %#v, want %#v", got, want)
	}
}

func TestDecode_VCardText(t *testing.T) {
	t.Parallel()

	vcard := "BEGIN:VCARD\nFN:Jane Doe\nEMAIL:j@x.io\nX-SOCIALPROFILE;type=github:https://github.com/jd\nEND:VCARD"
	payload, err := EncodeTextPayload(vcard, "en")
	if err != nil {
		t.Fatal(err)
	}
	data, err := (&Record{TNF: TNFWellKnown, Type: TextRecordType, Payload: payload}).Marshal()
	if err != nil {
		t.Fatal(err)
	}

	v, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	c, ok := v.(ContactToken)
	if !ok {
		t.Fatalf("value = %T, want ContactToken", v)
	}
	if c.Name != "Jane Doe" || c.Email != "j@x.io" {
		t.Errorf("contact = %+v", c)
	}
	if got := c.Social(PlatformGitHub); got != "https://github.com/jd" {
		t.Errorf("github = %q", got)
	}
	if c.Phone != "" || c.Company != "" || c.JobTitle != "" || c.Website != "" || c.OrganizationID != "" {
		t.Errorf("absent fields should be empty: %+v", c)
	}
}

func TestDecode_FallbackIsNonFatal(t *testing.T) {
	t.Parallel()

	data, err := NewMediaRecord("application/x-thing", []byte("opaque text")).Marshal()
	if err != nil {
		t.Fatal(err)
	}

	v, err := Decode(data)
	if !IsFallback(err) {
		t.Fatalf("error = %v, want CodecError", err)
	}
	var ce *CodecError
	if !errors.As(err, &ce) || ce.TNF != TNFMedia || ce.Type != "application/x-thing" {
		t.Errorf("CodecError = %+v", ce)
	}
	raw, ok := v.(Raw)
	if !ok {
		t.Fatalf("value = %T, want Raw", v)
	}
	if raw.Text != "opaque text" {
		t.Errorf("Text = %q", raw.Text)
	}
}

func TestDecode_FallbackVCardBecomesContact(t *testing.T) {
	t.Parallel()

	data, err := (&Record{TNF: TNFUnknown, Payload: []byte("BEGIN:VCARD\nFN:Sam\nEND:VCARD")}).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	v, err := Decode(data)
	if !IsFallback(err) {
		t.Fatalf("error = %v, want CodecError", err)
	}
	if c, ok := v.(ContactToken); !ok || c.Name != "Sam" {
		t.Errorf("value = %#v", v)
	}
}

func TestDecode_KnownRawTypesHaveNoCodecError(t *testing.T) {
	t.Parallel()

	for _, rec := range []*Record{
		NewMediaRecord(MIMETypeText, []byte("plain")),
		NewMediaRecord(MIMETypeVCard, []byte("BEGIN:VCARD\nFN:A\nEND:VCARD")),
		NewExternalRecord(ContactRecordType, []byte("BEGIN:VCARD\nFN:B\nEND:VCARD")),
	} {
		data, err := rec.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(data); err != nil {
			t.Errorf("%q: Decode() error = %v", rec.Type, err)
		}
	}
}

func TestDecode_StructuralErrors(t *testing.T) {
	t.Parallel()

	// Declares a 12-byte payload but carries only 4.
	data := []byte{0xD1, 0x01, 0x0C, 'U', 0x02, 'e', 'x', 'a'}
	v, err := Decode(data)
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Errorf("error = %v, want ErrTruncatedRecord", err)
	}
	if v != nil {
		t.Errorf("value = %#v, want nil", v)
	}

	if _, err := Decode([]byte{0xD1, 0x01, 0x00, 'U'}); !errors.Is(err, ErrURIPayloadTooShort) {
		t.Errorf("empty URI payload error = %v", err)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		data, err := Encode(Text{Language: "en", Text: "Hi"})
		if err != nil {
			t.Fatal(err)
		}
		want := []byte{0xD1, 0x01, 0x03, 'T', 0x00, 'H', 'i'}
		if !bytes.Equal(data, want) {
			t.Errorf("Encode() = % X, want % X", data, want)
		}
	})

	t.Run("contact round trip", func(t *testing.T) {
		t.Parallel()

		in := ContactToken{
			Name:           "Jane Doe",
			JobTitle:       "Engineer",
			Company:        "Acme",
			Phone:          "+1 555 0100",
			Email:          "j@x.io",
			Website:        "https://jane.dev",
			OrganizationID: "org-42",
			SocialLinks: map[string]string{
				PlatformLinkedIn: "https://linkedin.com/in/jd",
				PlatformGitHub:   "https://github.com/jd",
			},
		}
		data, err := Encode(in)
		if err != nil {
			t.Fatal(err)
		}
		if data[0]&tnfMask != TNFExternal {
			t.Errorf("TNF = %d, want external", data[0]&tnfMask)
		}
		v, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		out := v.(ContactToken)
		if out.Name != in.Name || out.JobTitle != in.JobTitle || out.Company != in.Company ||
			out.Phone != in.Phone || out.Email != in.Email || out.Website != in.Website ||
			out.OrganizationID != in.OrganizationID {
			t.Errorf("contact = %+v, want %+v", out, in)
		}
		if len(out.SocialLinks) != 2 || out.Social(PlatformLinkedIn) != in.SocialLinks[PlatformLinkedIn] {
			t.Errorf("social = %v", out.SocialLinks)
		}
	})

	t.Run("long record", func(t *testing.T) {
		t.Parallel()

		text := strings.Repeat("a", 400)
		data, err := Encode(Text{Text: text})
		if err != nil {
			t.Fatal(err)
		}
		if data[0]&flagSR != 0 {
			t.Fatalf("SR set on %d-byte payload", len(text)+1)
		}
		// flags, type length, 4-byte payload length, type
		if got := len(data); got != 7+1+len(text) {
			t.Errorf("len = %d, want %d", got, 7+1+len(text))
		}
		v, err := Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if v.(Text).Text != text {
			t.Error("long text did not round trip")
		}
	})

	t.Run("raw without type", func(t *testing.T) {
		t.Parallel()

		data, err := Encode(Raw{Text: "plain"})
		if err != nil {
			t.Fatal(err)
		}
		v, err := Decode(data)
		if err != nil {
			t.Fatal(err)
		}
		if got := v.(Raw); got.Type != MIMETypeText || got.Text != "plain" {
			t.Errorf("raw = %+v", got)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		if _, err := Encode(nil); !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("error = %v, want ErrUnsupportedValue", err)
		}
	})
}
