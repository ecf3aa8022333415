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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ZaparooProject/go-tapcard"
)

// Link kinds
const (
	linkPCSC  = "pcsc"
	linkUART  = "uart"
	linkI2C   = "i2c"
	linkRelay = "relay"
)

type config struct {
	link         string
	device       string
	timeout      time.Duration
	errorBackoff time.Duration
	pollInterval time.Duration
	debug        bool
}

type fileConfig struct {
	Link         string `toml:"link"`
	Device       string `toml:"device"`
	Timeout      string `toml:"timeout"`
	ErrorBackoff string `toml:"error_backoff"`
	PollInterval string `toml:"poll_interval"`
	Debug        bool   `toml:"debug"`
}

func defaultConfig() config {
	def := tapcard.DefaultSessionConfig()
	return config{
		link:         linkPCSC,
		timeout:      def.Timeout,
		errorBackoff: def.ErrorBackoff,
		pollInterval: 100 * time.Millisecond,
	}
}

// loadConfig overlays the TOML file at path on the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load tapreader config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load tapreader config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("link") {
		cfg.link = strings.ToLower(strings.TrimSpace(raw.Link))
	}
	if meta.IsDefined("device") {
		cfg.device = strings.TrimSpace(raw.Device)
	}
	if meta.IsDefined("debug") {
		cfg.debug = raw.Debug
	}

	durations := []struct {
		dst  *time.Duration
		key  string
		text string
	}{
		{&cfg.timeout, "timeout", raw.Timeout},
		{&cfg.errorBackoff, "error_backoff", raw.ErrorBackoff},
		{&cfg.pollInterval, "poll_interval", raw.PollInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.text))
		if err != nil {
			return config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return cfg, nil
}

func (c config) validate() error {
	switch c.link {
	case linkPCSC, linkRelay:
	case linkUART, linkI2C:
		if c.device == "" {
			return fmt.Errorf("link %s needs a device path", c.link)
		}
	default:
		return fmt.Errorf("unsupported link type: %q", c.link)
	}
	if c.timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.errorBackoff < 0 || c.pollInterval < 0 {
		return errors.New("intervals must not be negative")
	}
	return nil
}

func (c config) sessionConfig(d *tapcard.Dispatcher) tapcard.SessionConfig {
	return tapcard.SessionConfig{
		Dispatcher:   d,
		Timeout:      c.timeout,
		ErrorBackoff: c.errorBackoff,
	}
}
