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

package pn532

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-tapcard"
)

// Link is one activated ISO-DEP target on a Device.
type Link struct {
	dev     *Device
	uid     []byte
	timeout atomic.Int64
	closed  atomic.Bool
	tg      byte
}

// UID returns the target's NFCID1.
func (l *Link) UID() []byte { return l.uid }

// Connect implements tapcard.Link. The target is already activated by
// InListPassiveTarget.
func (l *Link) Connect(context.Context) error {
	if l.closed.Load() {
		return tapcard.ErrLinkClosed
	}
	return nil
}

// Transceive implements tapcard.Link
func (l *Link) Transceive(ctx context.Context, cmd []byte) ([]byte, error) {
	if l.closed.Load() {
		return nil, tapcard.ErrLinkClosed
	}
	if len(cmd) > maxExchange {
		return nil, fmt.Errorf("%w: %d bytes", ErrCommandTooLong, len(cmd))
	}
	if d := time.Duration(l.timeout.Load()); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return l.dev.exchange(ctx, l.tg, cmd)
}

// SetTimeout implements tapcard.Link. The bound is applied through the
// context deadline of each exchange.
func (l *Link) SetTimeout(timeout time.Duration) error {
	l.timeout.Store(int64(timeout))
	return nil
}

// Close releases the target so the device can poll for the next one.
func (l *Link) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.dev.config.Timeout)
	defer cancel()
	return l.dev.releaseLink(ctx, l)
}

// Type implements tapcard.Link
func (*Link) Type() tapcard.LinkType {
	return tapcard.LinkPN532
}

var _ tapcard.Link = (*Link)(nil)
