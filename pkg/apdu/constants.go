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

// Package apdu holds the ISO 7816-4 wire constants and frame helpers used by
// the NFC Forum Type 4 tag exchange.
package apdu

import "fmt"

// Instruction class and instruction bytes.
const (
	CLAISO7816      byte = 0x00
	INSSelectFile   byte = 0xA4
	INSReadBinary   byte = 0xB0
	INSUpdateBinary byte = 0xD6
)

// SELECT parameters.
const (
	P1SelectByID     byte = 0x00 // Select EF by file identifier
	P1SelectByName   byte = 0x04 // Select DF by name (AID)
	P2FirstOrOnly    byte = 0x00
	P2NoResponseData byte = 0x0C
)

// FileID is a two-byte elementary file identifier.
type FileID uint16

// Type 4 tag file identifiers. The NDEF file id is fixed rather than taken
// from the capability container.
const (
	FileCC   FileID = 0xE103
	FileNDEF FileID = 0xE104
)

// Bytes returns the identifier in wire order.
func (f FileID) Bytes() []byte {
	return []byte{byte(f >> 8), byte(f)}
}

func (f FileID) String() string {
	return fmt.Sprintf("%04X", uint16(f))
}

// NDEFApplicationID is the NFC Forum Type 4 tag NDEF application (AID).
var NDEFApplicationID = [7]byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}

// Size limits.
const (
	CCLength       = 15   // Length of the capability container read
	NLENSize       = 2    // Length prefix of the NDEF file
	MaxNDEFLength  = 1024 // Largest NLEN accepted by the reader
	MaxShortLe     = 255  // Largest Le encoded in one byte
	MaxExtendedLe  = 65535
	MappingVersion = 0x20 // Mapping version 2.0
	ControlTLVTag  = 0x04 // NDEF file control TLV
	ControlTLVLen  = 0x06
	AccessOpen     = 0x00
	AccessDenied   = 0xFF
)

// StatusWord is the SW1 SW2 trailer of a response APDU.
type StatusWord uint16

// Status words produced and recognised by this package.
const (
	SWSuccess              StatusWord = 0x9000
	SWWrongLength          StatusWord = 0x6700
	SWSecurityNotSatisfied StatusWord = 0x6982
	SWNoCurrentEF          StatusWord = 0x6986
	SWFunctionNotSupported StatusWord = 0x6A81
	SWFileNotFound         StatusWord = 0x6A82
	SWWrongParameters      StatusWord = 0x6B00
	SWINSNotSupported      StatusWord = 0x6D00
	SWCLANotSupported      StatusWord = 0x6E00
	SWNoPreciseDiagnosis   StatusWord = 0x6F00
)

// SW1 returns the high byte.
func (sw StatusWord) SW1() byte { return byte(sw >> 8) }

// SW2 returns the low byte.
func (sw StatusWord) SW2() byte { return byte(sw) }

func (sw StatusWord) String() string {
	meanings := map[StatusWord]string{
		SWSuccess:              "success",
		SWWrongLength:          "wrong length",
		SWSecurityNotSatisfied: "security status not satisfied",
		SWNoCurrentEF:          "command not allowed, no current EF",
		SWFunctionNotSupported: "function not supported",
		SWFileNotFound:         "file or application not found",
		SWWrongParameters:      "wrong parameters P1-P2",
		SWINSNotSupported:      "instruction not supported",
		SWCLANotSupported:      "class not supported",
		SWNoPreciseDiagnosis:   "no precise diagnosis",
	}
	if m, ok := meanings[sw]; ok {
		return fmt.Sprintf("%04X (%s)", uint16(sw), m)
	}
	return fmt.Sprintf("%04X", uint16(sw))
}
