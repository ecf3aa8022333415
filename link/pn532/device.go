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

// Package pn532 drives a PN532 as an ISO-DEP initiator. Device implements
// tapcard.Discoverer and hands out one Link per activated target.
package pn532

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-tapcard"
	"github.com/ZaparooProject/go-tapcard/internal/syncutil"
	"github.com/rs/zerolog"
)

// PN532 commands
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
)

const (
	brTy106TypeA = 0x00 // 106 kbps ISO/IEC 14443 Type A
	selResISODEP = 0x20 // SEL_RES bit for ISO/IEC 14443-4 compliance
	statusMask   = 0x3F
	statusMI     = 0x40 // more information to come
	errTimeout   = 0x01
	maxExchange  = 250  // APDU bytes per InDataExchange frame
	maxChained   = 2048 // cap on reassembled response size
)

// Errors
var (
	ErrUnexpectedResponse = errors.New("pn532: unexpected response")
	ErrDeviceBusy         = errors.New("pn532: a target is already active")
	ErrCommandTooLong     = errors.New("pn532: command APDU too long")
)

// FrameTransport exchanges PN532 command frames. It returns the response
// payload after the frame identifier, starting with the response code.
// transport/uart and transport/i2c implement it.
type FrameTransport interface {
	SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error)
	SetTimeout(timeout time.Duration) error
	Close() error
}

// Config holds device polling settings
type Config struct {
	// Name labels errors and log lines (default: "pn532")
	Name string
	// PollInterval is the pause between empty InListPassiveTarget polls
	// (default: 100ms)
	PollInterval time.Duration
	// Timeout bounds each frame exchange (default: 1s)
	Timeout time.Duration
	// Retry governs the firmware handshake in Init. The PN532 often drops
	// the first frame after power up.
	Retry tapcard.RetryConfig
}

// DefaultConfig returns default device settings
func DefaultConfig() Config {
	return Config{
		Name:         "pn532",
		PollInterval: 100 * time.Millisecond,
		Timeout:      time.Second,
		Retry:        tapcard.DefaultRetryConfig(),
	}
}

// Device is a PN532 reader.
type Device struct {
	transport   FrameTransport
	active      *Link
	log         zerolog.Logger
	config      Config
	mu          syncutil.Mutex
	firmware    [4]byte
	initialized bool
}

// New creates a device on transport. Zero config fields take defaults.
func New(transport FrameTransport, cfg Config, log zerolog.Logger) *Device {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	return &Device{
		transport: transport,
		config:    cfg,
		log:       log.With().Str("reader", cfg.Name).Logger(),
	}
}

// Init checks the firmware and puts the SAM in normal mode.
func (d *Device) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initLocked(ctx)
}

func (d *Device) initLocked(ctx context.Context) error {
	if d.initialized {
		return nil
	}
	if err := d.transport.SetTimeout(d.config.Timeout); err != nil {
		return d.transportError("set timeout", err)
	}

	var res []byte
	err := tapcard.Retry(ctx, d.config.Retry, func(ctx context.Context) error {
		var err error
		if res, err = d.transport.SendCommand(ctx, cmdGetFirmwareVersion, nil); err != nil {
			return d.transportError("GetFirmwareVersion", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(res) < 5 || res[0] != cmdGetFirmwareVersion+1 {
		return fmt.Errorf("%w: GetFirmwareVersion % X", ErrUnexpectedResponse, res)
	}
	copy(d.firmware[:], res[1:5])

	// Normal mode, 50ms * 0x14 virtual card timeout, use IRQ
	res, err = d.transport.SendCommand(ctx, cmdSAMConfiguration, []byte{0x01, 0x14, 0x01})
	if err != nil {
		return d.transportError("SAMConfiguration", err)
	}
	if len(res) < 1 || res[0] != cmdSAMConfiguration+1 {
		return fmt.Errorf("%w: SAMConfiguration % X", ErrUnexpectedResponse, res)
	}

	d.initialized = true
	d.log.Debug().
		Uint8("ic", d.firmware[0]).
		Str("version", fmt.Sprintf("%d.%d", d.firmware[1], d.firmware[2])).
		Msg("PN532 initialized")
	return nil
}

// Firmware returns IC, Ver, Rev and Support from GetFirmwareVersion.
func (d *Device) Firmware() [4]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firmware
}

// WaitForTag implements tapcard.Discoverer. It polls until an ISO-DEP
// target is activated or ctx is done. Targets without ISO-DEP support are
// released and ignored.
func (d *Device) WaitForTag(ctx context.Context) (tapcard.Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active != nil {
		return nil, ErrDeviceBusy
	}
	if err := d.initLocked(ctx); err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, err := d.listPassiveTarget(ctx)
		if err != nil {
			return nil, err
		}
		if target != nil {
			if target.selRes&selResISODEP != 0 {
				link := &Link{dev: d, tg: target.tg, uid: target.uid}
				link.timeout.Store(int64(d.config.Timeout))
				d.active = link
				d.log.Debug().Hex("uid", target.uid).Msg("ISO-DEP target activated")
				return link, nil
			}
			d.log.Debug().Hex("uid", target.uid).Uint8("sak", target.selRes).Msg("ignoring non ISO-DEP target")
			_ = d.release(ctx, target.tg)
		}

		timer := time.NewTimer(d.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Close closes the transport.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = nil
	d.initialized = false
	return d.transport.Close()
}

type passiveTarget struct {
	uid    []byte
	tg     byte
	selRes byte
}

func (d *Device) listPassiveTarget(ctx context.Context) (*passiveTarget, error) {
	res, err := d.transport.SendCommand(ctx, cmdInListPassiveTarget, []byte{0x01, brTy106TypeA})
	if err != nil {
		return nil, d.transportError("InListPassiveTarget", err)
	}
	if len(res) < 2 || res[0] != cmdInListPassiveTarget+1 {
		return nil, fmt.Errorf("%w: InListPassiveTarget % X", ErrUnexpectedResponse, res)
	}
	if res[1] == 0 {
		return nil, nil
	}

	// Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID...
	if len(res) < 7 {
		return nil, fmt.Errorf("%w: short target data % X", ErrUnexpectedResponse, res)
	}
	uidLen := int(res[6])
	if len(res) < 7+uidLen {
		return nil, fmt.Errorf("%w: truncated NFCID % X", ErrUnexpectedResponse, res)
	}
	return &passiveTarget{
		tg:     res[2],
		selRes: res[5],
		uid:    bytes.Clone(res[7 : 7+uidLen]),
	}, nil
}

func (d *Device) release(ctx context.Context, tg byte) error {
	res, err := d.transport.SendCommand(ctx, cmdInRelease, []byte{tg})
	if err != nil {
		return d.transportError("InRelease", err)
	}
	if len(res) < 2 || res[0] != cmdInRelease+1 {
		return fmt.Errorf("%w: InRelease % X", ErrUnexpectedResponse, res)
	}
	if res[1]&statusMask != 0 {
		return fmt.Errorf("InRelease failed with status: %02x", res[1])
	}
	return nil
}

// exchange sends one InDataExchange and reassembles chained responses.
func (d *Device) exchange(ctx context.Context, tg byte, apdu []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []byte
	args := append([]byte{tg}, apdu...)
	for {
		res, err := d.transport.SendCommand(ctx, cmdInDataExchange, args)
		if err != nil {
			return nil, d.transportError("InDataExchange", err)
		}
		if len(res) < 2 || res[0] != cmdInDataExchange+1 {
			return nil, fmt.Errorf("%w: InDataExchange % X", ErrUnexpectedResponse, res)
		}

		status := res[1]
		if code := status & statusMask; code != 0 {
			if code == errTimeout {
				return nil, tapcard.NewTagLostError("InDataExchange", d.config.Name)
			}
			return nil, tapcard.NewTransportError("InDataExchange", d.config.Name,
				fmt.Errorf("PN532 status 0x%02X", code), tapcard.ErrorTypeTransient)
		}

		out = append(out, res[2:]...)
		if status&statusMI == 0 {
			return out, nil
		}
		if len(out) > maxChained {
			return nil, fmt.Errorf("%w: chained response over %d bytes", ErrUnexpectedResponse, maxChained)
		}
		args = []byte{tg}
	}
}

func (d *Device) releaseLink(ctx context.Context, l *Link) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == l {
		d.active = nil
	}
	return d.release(ctx, l.tg)
}

func (d *Device) transportError(op string, err error) error {
	var te *tapcard.TransportError
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return tapcard.NewTransportError(op, d.config.Name, err, tapcard.ErrorTypeTimeout)
	}
	return tapcard.NewTransportError(op, d.config.Name, err, tapcard.ErrorTypeTransient)
}

var _ tapcard.Discoverer = (*Device)(nil)
