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
	"bytes"

	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
)

// ActiveCard holds the record an emulator serves. It is safe for
// concurrent use; emulators copy the encoding when a reader selects the
// application, so changes never reach a session already in progress.
type ActiveCard struct {
	value   ndef.Value
	encoded []byte
	mu      syncutil.RWMutex
}

// NewActiveCard returns an empty holder.
func NewActiveCard() *ActiveCard {
	return &ActiveCard{}
}

// Set encodes v and makes it active. Encodings longer than the NDEF file
// allows are rejected and leave the previous record in place.
func (a *ActiveCard) Set(v ndef.Value) error {
	msg, err := ndef.Encode(v)
	if err != nil {
		return err
	}
	if len(msg) > apdu.MaxNDEFLength {
		return NewValidationError("record length", len(msg), ErrRecordTooLarge)
	}

	a.mu.Lock()
	a.value = v
	a.encoded = msg
	a.mu.Unlock()
	return nil
}

// Clear deactivates the current record.
func (a *ActiveCard) Clear() {
	a.mu.Lock()
	a.value = nil
	a.encoded = nil
	a.mu.Unlock()
}

// Value returns the active value, if any.
func (a *ActiveCard) Value() (ndef.Value, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value, a.value != nil
}

// ActiveRecord implements ActiveRecordProvider.
func (a *ActiveCard) ActiveRecord() ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.encoded == nil {
		return nil, ErrNoActiveRecord
	}
	return bytes.Clone(a.encoded), nil
}
