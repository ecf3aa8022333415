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

// Common MIME and external types used by the exchange.
const (
	MIMETypeVCard = "text/vcard"
	MIMETypeText  = "text/plain"

	// ContactRecordType is the external type carrying a contact token.
	ContactRecordType = "nexus.app:contact"
)

// NewMediaRecord creates a new NDEF Media-type record.
func NewMediaRecord(mediaType string, payload []byte) *Record {
	return &Record{
		TNF:     TNFMedia,
		Type:    mediaType,
		Payload: payload,
	}
}

// NewExternalRecord creates a new NDEF External Type record.
// External types use the format "domain:type".
func NewExternalRecord(externalType string, payload []byte) *Record {
	return &Record{
		TNF:     TNFExternal,
		Type:    externalType,
		Payload: payload,
	}
}
