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
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ZaparooProject/go-tapcard/pkg/ndef"
	"github.com/ZaparooProject/go-tapcard/relay"
)

// Record kinds
const (
	kindContact = "contact"
	kindURL     = "url"
	kindText    = "text"
)

type recordConfig struct {
	Social         map[string]string `toml:"social"`
	Kind           string            `toml:"kind"`
	URI            string            `toml:"uri"`
	Text           string            `toml:"text"`
	VCardFile      string            `toml:"vcard_file"`
	Name           string            `toml:"name"`
	JobTitle       string            `toml:"job_title"`
	Company        string            `toml:"company"`
	Phone          string            `toml:"phone"`
	Email          string            `toml:"email"`
	Website        string            `toml:"website"`
	OrganizationID string            `toml:"organization_id"`
	Lines          []string          `toml:"lines"`
}

type config struct {
	Listen string       `toml:"listen"`
	Path   string       `toml:"path"`
	Name   string       `toml:"name"`
	Record recordConfig `toml:"record"`
	MDNS   bool         `toml:"mdns"`
	Debug  bool         `toml:"debug"`
}

func defaultConfig() config {
	return config{
		Listen: ":7460",
		Path:   relay.Path,
		Name:   "tapcard",
		MDNS:   true,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, fmt.Errorf("load tapemulate config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load tapemulate config: unknown key %q", undecoded[0].String())
	}
	cfg.Record.Kind = strings.ToLower(strings.TrimSpace(cfg.Record.Kind))
	return cfg, nil
}

func (c config) validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	if c.MDNS && c.Name == "" {
		return errors.New("mdns needs an instance name")
	}
	return nil
}

// value builds the record to emulate. An empty kind is inferred from the
// fields that are set.
func (r recordConfig) value() (ndef.Value, error) {
	kind := r.Kind
	if kind == "" {
		switch {
		case r.URI != "":
			kind = kindURL
		case r.Text != "":
			kind = kindText
		default:
			kind = kindContact
		}
	}

	switch kind {
	case kindURL:
		if r.URI == "" {
			return nil, errors.New("url record needs uri")
		}
		return ndef.URI{URI: r.URI}, nil
	case kindText:
		if r.Text == "" {
			return nil, errors.New("text record needs text")
		}
		return ndef.Text{Text: r.Text}, nil
	case kindContact:
		return r.contact()
	default:
		return nil, fmt.Errorf("unsupported record kind: %q", r.Kind)
	}
}

func (r recordConfig) contact() (ndef.ContactToken, error) {
	var c ndef.ContactToken
	switch {
	case r.VCardFile != "":
		data, err := os.ReadFile(r.VCardFile)
		if err != nil {
			return c, fmt.Errorf("read vcard: %w", err)
		}
		if !ndef.IsVCard(string(data)) {
			return c, fmt.Errorf("%s is not a vCard", r.VCardFile)
		}
		c = ndef.ParseVCard(string(data))
	case len(r.Lines) > 0:
		c = ndef.ParseVCard(ndef.ContactFromLines(r.Name, r.Lines))
	}

	overlay := []struct {
		dst *string
		src string
	}{
		{&c.Name, r.Name},
		{&c.JobTitle, r.JobTitle},
		{&c.Company, r.Company},
		{&c.Phone, r.Phone},
		{&c.Email, r.Email},
		{&c.Website, r.Website},
		{&c.OrganizationID, r.OrganizationID},
	}
	for _, o := range overlay {
		if v := strings.TrimSpace(o.src); v != "" {
			*o.dst = v
		}
	}
	for platform, link := range r.Social {
		if c.SocialLinks == nil {
			c.SocialLinks = make(map[string]string)
		}
		c.SocialLinks[strings.ToLower(platform)] = strings.TrimSpace(link)
	}

	if c.Name == "" && c.Email == "" && c.Phone == "" {
		return c, errors.New("contact record needs a name, email or phone")
	}
	return c, nil
}
