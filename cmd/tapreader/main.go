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

// Command tapreader reads Type 4 tags and prints each decoded value as a
// JSON line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/link/pcsc"
	"github.com/ZaparooProject/go-tapcard/link/pn532"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
	"github.com/ZaparooProject/go-tapcard/relay"
	"github.com/ZaparooProject/go-tapcard/transport/i2c"
	"github.com/ZaparooProject/go-tapcard/transport/uart"
	"github.com/rs/zerolog"
)

var (
	flagConfig  string
	flagLink    string
	flagDevice  string
	flagTimeout time.Duration
	flagDebug   bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "TOML config file")
	flag.StringVar(&flagLink, "link", "", "Link type: pcsc, uart, i2c or relay (default pcsc)")
	flag.StringVar(&flagDevice, "device", "",
		"Reader name filter (pcsc), port or bus path (uart, i2c), or relay URL (empty browses mDNS)")
	flag.DurationVar(&flagTimeout, "timeout", 0, "Per-exchange timeout")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() (config, error) {
	cfg := defaultConfig()
	if flagConfig != "" {
		var err error
		if cfg, err = loadConfig(flagConfig); err != nil {
			return config{}, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "link":
			cfg.link = flagLink
		case "device":
			cfg.device = flagDevice
		case "timeout":
			cfg.timeout = flagTimeout
		case "debug":
			cfg.debug = flagDebug
		}
	})
	return cfg, cfg.validate()
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

// openDiscoverer returns the tag source for cfg and the closer that
// releases it.
func openDiscoverer(ctx context.Context, cfg config, log zerolog.Logger) (tapcard.Discoverer, io.Closer, error) {
	switch cfg.link {
	case linkPCSC:
		r, err := pcsc.New(pcsc.Config{Reader: cfg.device, PollInterval: cfg.pollInterval}, log)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case linkUART, linkI2C:
		var t pn532.FrameTransport
		var err error
		if cfg.link == linkUART {
			t, err = uart.New(cfg.device)
		} else {
			t, err = i2c.New(cfg.device)
		}
		if err != nil {
			return nil, nil, err
		}
		dev := pn532.New(t, pn532.Config{Name: cfg.device, PollInterval: cfg.pollInterval}, log)
		if err := dev.Init(ctx); err != nil {
			_ = dev.Close()
			return nil, nil, fmt.Errorf("failed to initialize PN532: %w", err)
		}
		return dev, dev, nil
	case linkRelay:
		url := cfg.device
		if url == "" {
			lookupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			var err error
			if url, err = relay.Lookup(lookupCtx); err != nil {
				return nil, nil, err
			}
			log.Info().Str("url", url).Msg("found relay")
		}
		return &relay.Dialer{URL: url, Interval: time.Second, Log: log}, closerFunc(func() error { return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unsupported link type: %q", cfg.link)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func run(ctx context.Context, cfg config, log zerolog.Logger, out io.Writer) error {
	d, closer, err := openDiscoverer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close reader")
		}
	}()

	sc := cfg.sessionConfig(newPrinter(out).dispatcher())
	sc.OnDispatchError = func(v ndef.Value, err error) {
		log.Error().Err(err).Str("value", fmt.Sprintf("%T", v)).Msg("failed to handle tap")
	}
	session := tapcard.NewSession(d, sc)
	log.Info().Str("link", cfg.link).Str("session", session.ID()).Msg("waiting for taps, press Ctrl+C to stop")
	return session.Serve(ctx)
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	log := newLogger(cfg.debug)
	if cfg.debug {
		tapcard.SetLogger(log.With().Str("component", "tapcard").Logger())
		tapcard.SetDebugEnabled(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		log.Error().Err(err).Msg("tapreader failed")
		return 1
	}
	return 0
}
