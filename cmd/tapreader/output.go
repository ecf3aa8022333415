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

package main

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
)

// event is one JSON line on stdout.
type event struct {
	Contact     *ndef.ContactToken `json:"contact,omitempty"`
	Card        *tapcard.Card      `json:"card,omitempty"`
	Type        string             `json:"type"`
	OrgID       string             `json:"orgId,omitempty"`
	DisplayName string             `json:"displayName,omitempty"`
}

// printer stands in for the contact store, card store and enrollment
// service by writing each value as a JSON line.
type printer struct {
	enc *json.Encoder
	mu  sync.Mutex
}

func newPrinter(w io.Writer) *printer {
	return &printer{enc: json.NewEncoder(w)}
}

func (p *printer) emit(e event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Encode(e)
}

func (p *printer) SaveContact(_ context.Context, c ndef.ContactToken) error {
	return p.emit(event{Type: "contact", Contact: &c})
}

func (p *printer) SaveCard(_ context.Context, c tapcard.Card) error {
	return p.emit(event{Type: "card", Card: &c})
}

func (p *printer) RequestMembership(_ context.Context, orgID, displayName string) error {
	return p.emit(event{Type: "enrollment", OrgID: orgID, DisplayName: displayName})
}

func (p *printer) dispatcher() *tapcard.Dispatcher {
	return &tapcard.Dispatcher{Contacts: p, Cards: p, Enrollment: p}
}
