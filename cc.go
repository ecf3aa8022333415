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
	"fmt"

	"github.com/ZaparooProject/go-tapcard/internal/cursor"
	"github.com/ZaparooProject/go-tapcard/pkg/apdu"
)

// CapabilityContainer is the content of file E1 03.
type CapabilityContainer struct {
	Length      uint16      // CCLEN
	MaxLe       uint16      // largest READ BINARY response the tag returns
	MaxLc       uint16      // largest UPDATE BINARY data the tag accepts
	FileID      apdu.FileID // NDEF file named by the control TLV
	MaxFileSize uint16      // NDEF file size including NLEN
	Version     byte        // mapping version
	ReadAccess  byte
	WriteAccess byte
}

// NewCapabilityContainer describes a read-only NDEF file at E1 04 that can
// hold the largest message this package serves.
func NewCapabilityContainer() CapabilityContainer {
	return CapabilityContainer{
		Length:      apdu.CCLength,
		Version:     apdu.MappingVersion,
		MaxLe:       apdu.MaxNDEFLength,
		MaxLc:       apdu.MaxShortLe,
		FileID:      apdu.FileNDEF,
		MaxFileSize: apdu.NLENSize + apdu.MaxNDEFLength,
		ReadAccess:  apdu.AccessOpen,
		WriteAccess: apdu.AccessDenied,
	}
}

// ParseCapabilityContainer decodes the first 15 bytes of b. Trailing bytes
// (further TLVs) are ignored.
func ParseCapabilityContainer(b []byte) (CapabilityContainer, error) {
	var cc CapabilityContainer
	if len(b) < apdu.CCLength {
		return cc, fmt.Errorf("%w: %d bytes", ErrInvalidCC, len(b))
	}

	c := cursor.New(b)
	cc.Length, _ = c.ReadU16BE()
	cc.Version, _ = c.ReadU8()
	cc.MaxLe, _ = c.ReadU16BE()
	cc.MaxLc, _ = c.ReadU16BE()

	tag, _ := c.ReadU8()
	tlvLen, _ := c.ReadU8()
	if tag != apdu.ControlTLVTag || tlvLen < apdu.ControlTLVLen {
		return cc, fmt.Errorf("%w: control TLV %02X len %d", ErrInvalidCC, tag, tlvLen)
	}

	fid, _ := c.ReadU16BE()
	cc.FileID = apdu.FileID(fid)
	cc.MaxFileSize, _ = c.ReadU16BE()
	cc.ReadAccess, _ = c.ReadU8()
	cc.WriteAccess, _ = c.ReadU8()
	return cc, nil
}

// Bytes encodes the container.
func (cc CapabilityContainer) Bytes() []byte {
	return []byte{
		byte(cc.Length >> 8), byte(cc.Length),
		cc.Version,
		byte(cc.MaxLe >> 8), byte(cc.MaxLe),
		byte(cc.MaxLc >> 8), byte(cc.MaxLc),
		apdu.ControlTLVTag, apdu.ControlTLVLen,
		byte(cc.FileID >> 8), byte(cc.FileID),
		byte(cc.MaxFileSize >> 8), byte(cc.MaxFileSize),
		cc.ReadAccess,
		cc.WriteAccess,
	}
}

// Readable reports whether the NDEF file grants open read access.
func (cc CapabilityContainer) Readable() bool {
	return cc.ReadAccess == apdu.AccessOpen
}

// Writable reports whether the NDEF file grants open write access.
func (cc CapabilityContainer) Writable() bool {
	return cc.WriteAccess == apdu.AccessOpen
}
