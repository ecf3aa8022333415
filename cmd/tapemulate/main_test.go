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
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
	"github.com/ZaparooProject/go-tapcard/relay"
	"github.com/rs/zerolog"
)

func TestRunServesRecord(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Listen = "127.0.0.1:0"
	cfg.MDNS = false
	cfg.Record = recordConfig{URI: "https://www.example.com/booth"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, cfg, zerolog.Nop(), func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not start")
	}

	session := tapcard.NewSession(tapcard.NewMockDiscoverer(), tapcard.DefaultSessionConfig())
	v, err := session.ReadLink(context.Background(), relay.NewLink("ws://"+addr.String()+relay.Path))
	if err != nil {
		t.Fatalf("read relay: %v", err)
	}
	if v != (ndef.URI{URI: "https://www.example.com/booth"}) {
		t.Fatalf("unexpected value: %#v", v)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunRejectsBadRecord(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.MDNS = false
	cfg.Record = recordConfig{Kind: kindURL}
	if err := run(context.Background(), cfg, zerolog.Nop(), nil); err == nil {
		t.Fatal("expected error for url record without uri")
	}
}
