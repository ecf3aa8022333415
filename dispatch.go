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
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
)

// ContactStore persists contacts received from a tap.
type ContactStore interface {
	SaveContact(ctx context.Context, c ndef.ContactToken) error
}

// CardKind classifies a saved personal card.
type CardKind string

const (
	CardURL  CardKind = "url"
	CardText CardKind = "text"
	CardNote CardKind = "note"
)

// Card is a non-contact value saved as a personal card.
type Card struct {
	Kind  CardKind `json:"kind"`
	Title string   `json:"title"`
	Value string   `json:"value"`
}

// CardStore persists cards received from a tap.
type CardStore interface {
	SaveCard(ctx context.Context, c Card) error
}

// EnrollmentService requests organization membership for a scanned
// enrollment reference.
type EnrollmentService interface {
	RequestMembership(ctx context.Context, orgID, displayName string) error
}

// ErrNoCollaborator is returned when the value has nowhere to go.
var ErrNoCollaborator = errors.New("no collaborator for value")

const maxTitleLen = 40

// Dispatcher routes decoded values to their collaborators. Nil fields are
// skipped.
type Dispatcher struct {
	Contacts   ContactStore
	Cards      CardStore
	Enrollment EnrollmentService
}

// Dispatch hands v to the matching collaborator. A contact carrying an
// organization id is both saved and used to request membership.
func (d *Dispatcher) Dispatch(ctx context.Context, v ndef.Value) error {
	switch val := v.(type) {
	case ndef.ContactToken:
		return d.dispatchContact(ctx, val)
	case ndef.URI:
		return d.saveCard(ctx, Card{Kind: CardURL, Title: uriTitle(val.URI), Value: val.URI})
	case ndef.Text:
		return d.saveCard(ctx, Card{Kind: CardText, Title: textTitle(val.Text), Value: val.Text})
	case ndef.Raw:
		title := textTitle(val.Text)
		if title == "" {
			title = val.Type
		}
		return d.saveCard(ctx, Card{Kind: CardNote, Title: title, Value: val.Text})
	default:
		return fmt.Errorf("%w: %T", ErrNoCollaborator, v)
	}
}

func (d *Dispatcher) dispatchContact(ctx context.Context, c ndef.ContactToken) error {
	if d.Contacts == nil && (c.OrganizationID == "" || d.Enrollment == nil) {
		return fmt.Errorf("%w: contact", ErrNoCollaborator)
	}

	var errs []error
	if d.Contacts != nil {
		if err := d.Contacts.SaveContact(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("save contact: %w", err))
		}
	}
	if c.OrganizationID != "" && d.Enrollment != nil {
		name := c.Company
		if name == "" {
			name = c.Name
		}
		if err := d.Enrollment.RequestMembership(ctx, c.OrganizationID, name); err != nil {
			errs = append(errs, fmt.Errorf("request membership %s: %w", c.OrganizationID, err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) saveCard(ctx context.Context, c Card) error {
	if d.Cards == nil {
		return fmt.Errorf("%w: %s card", ErrNoCollaborator, c.Kind)
	}
	if err := d.Cards.SaveCard(ctx, c); err != nil {
		return fmt.Errorf("save card: %w", err)
	}
	return nil
}

// uriTitle uses the host when the URI has one.
func uriTitle(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return truncate(raw)
}

// textTitle is the first non-blank line.
func textTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line)
		}
	}
	return ""
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxTitleLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxTitleLen-1]) + "…"
}
