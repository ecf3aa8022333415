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

// Command tapemulate serves one NDEF record as an emulated Type 4 tag over
// the WebSocket relay and advertises it on the local network.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/relay"
	"github.com/rs/zerolog"
)

var (
	flagConfig string
	flagListen string
	flagURL    string
	flagText   string
	flagVCard  string
	flagNoMDNS bool
	flagDebug  bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "TOML config file")
	flag.StringVar(&flagListen, "listen", "", "Listen address (default :7460)")
	flag.StringVar(&flagURL, "url", "", "Emulate a URI record")
	flag.StringVar(&flagText, "text", "", "Emulate a text record")
	flag.StringVar(&flagVCard, "vcard", "", "Emulate the contact in this vCard file")
	flag.BoolVar(&flagNoMDNS, "no-mdns", false, "Do not advertise over mDNS")
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
		case "listen":
			cfg.Listen = flagListen
		case "url":
			cfg.Record = recordConfig{Kind: kindURL, URI: flagURL}
		case "text":
			cfg.Record = recordConfig{Kind: kindText, Text: flagText}
		case "vcard":
			cfg.Record = recordConfig{Kind: kindContact, VCardFile: flagVCard}
		case "no-mdns":
			cfg.MDNS = !flagNoMDNS
		case "debug":
			cfg.Debug = flagDebug
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

func run(ctx context.Context, cfg config, log zerolog.Logger, ready func(addr net.Addr)) error {
	v, err := cfg.Record.value()
	if err != nil {
		return err
	}
	card := tapcard.NewActiveCard()
	if err := card.Set(v); err != nil {
		return fmt.Errorf("set active record: %w", err)
	}

	srv := relay.NewServer(card, log)
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, srv)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Listen, err)
	}
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	if cfg.MDNS {
		_, port, _ := net.SplitHostPort(ln.Addr().String())
		p, _ := strconv.Atoi(port)
		ad, err := relay.Advertise(cfg.Name, p, cfg.Path)
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer ad.Shutdown()
		log.Info().Str("service", relay.ServiceType).Int("port", p).Msg("advertising relay")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()
	log.Info().Str("addr", ln.Addr().String()).Str("kind", string(v.Kind())).Msg("emulating record")
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	_ = srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn().Err(err).Msg("relay shutdown")
	}
	return ctx.Err()
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

	log := newLogger(cfg.Debug)
	if cfg.Debug {
		tapcard.SetLogger(log.With().Str("component", "tapcard").Logger())
		tapcard.SetDebugEnabled(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, nil); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		log.Error().Err(err).Msg("tapemulate failed")
		return 1
	}
	return 0
}
