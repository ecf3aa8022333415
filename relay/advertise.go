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

package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

// mDNS service identity
const (
	ServiceType = "_tapcard._tcp"
	Domain      = "local."
)

// ErrNotFound is returned when Lookup sees no relay before ctx is done.
var ErrNotFound = errors.New("relay: no relay advertised")

// Advertisement is a registered mDNS service.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a relay listening on port under instance name.
func Advertise(name string, port int, path string) (*Advertisement, error) {
	if path == "" {
		path = Path
	}
	server, err := zeroconf.Register(name, ServiceType, Domain, port, txtRecords(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func txtRecords(path string) []string {
	return []string{
		"version=1",
		"protocol=websocket",
		"path=" + path,
	}
}

// Lookup browses for a relay and returns the WebSocket URL of the first
// one that answers.
func Lookup(ctx context.Context) (string, error) {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return "", fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return "", fmt.Errorf("failed to browse mDNS: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrNotFound, ctx.Err())
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNotFound
			}
			if url := entryURL(entry); url != "" {
				return url, nil
			}
		}
	}
}

// entryURL builds ws://host:port/path from a service entry, preferring
// IPv4 addresses.
func entryURL(entry *zeroconf.ServiceEntry) string {
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	case entry.HostName != "":
		host = strings.TrimSuffix(entry.HostName, ".")
	default:
		return ""
	}

	path := Path
	for _, txt := range entry.Text {
		if v, ok := strings.CutPrefix(txt, "path="); ok && v != "" {
			path = v
		}
	}
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(entry.Port)) + path
}
