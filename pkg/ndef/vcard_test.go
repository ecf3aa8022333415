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

package ndef

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseVCard(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:Jane Doe",
		"TITLE:Staff Engineer",
		"ORG:Acme Corp",
		"TEL:+1 555 0100",
		"EMAIL:jane@acme.test",
		"URL:https://jane.dev",
		"X-NEXUS-ORG:org-7",
		"X-SOCIALPROFILE;TYPE=LinkedIn:https://linkedin.com/in/jane",
		"X-SOCIALPROFILE;type=instagram:https://instagram.com/jane",
		"X-SOCIALPROFILE;type=twitter:https://twitter.com/jane",
		"X-SOCIALPROFILE;type=mastodon:https://mastodon.social/@jane",
		"NOTE:ignored",
		"END:VCARD",
	}, "\r\n")

	c := ParseVCard(text)

	want := ContactToken{
		Name:           "Jane Doe",
		JobTitle:       "Staff Engineer",
		Company:        "Acme Corp",
		Phone:          "+1 555 0100",
		Email:          "jane@acme.test",
		Website:        "https://jane.dev",
		OrganizationID: "org-7",
	}
	got := c
	got.SocialLinks = nil
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fields = %+v, want %+v", got, want)
	}

	wantSocial := map[string]string{
		PlatformLinkedIn:  "https://linkedin.com/in/jane",
		PlatformInstagram: "https://instagram.com/jane",
		PlatformTwitter:   "https://twitter.com/jane",
	}
	if len(c.SocialLinks) != len(wantSocial) {
		t.Errorf("social = %v", c.SocialLinks)
	}
	for p, u := range wantSocial {
		if c.Social(p) != u {
			t.Errorf("Social(%s) = %q, want %q", p, c.Social(p), u)
		}
	}
}

func TestIsVCard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{text: "BEGIN:VCARD\nFN:x\nEND:VCARD", want: true},
		{text: "\r\n  BEGIN:VCARD", want: true},
		{text: "\ufeffBEGIN:VCARD", want: true},
		{text: "hello BEGIN:VCARD", want: false},
		{text: "", want: false},
	}
	for _, tt := range tests {
		if got := IsVCard(tt.text); got != tt.want {
			t.Errorf("IsVCard(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestContactToken_VCard(t *testing.T) {
	t.Parallel()

	c := ContactToken{
		Name:    "Sam",
		Company: "Acme",
		SocialLinks: map[string]string{
			PlatformGitHub:   "https://github.com/sam",
			PlatformLinkedIn: "https://linkedin.com/in/sam",
		},
	}
	want := "BEGIN:VCARD\n" +
		"VERSION:3.0\n" +
		"FN:Sam\n" +
		"ORG:Acme\n" +
		"X-SOCIALPROFILE;type=linkedin:https://linkedin.com/in/sam\n" +
		"X-SOCIALPROFILE;type=github:https://github.com/sam\n" +
		"END:VCARD"
	if got := c.VCard(); got != want {
		t.Errorf("VCard() =\n%s\nwant\n%s", got, want)
	}
}

func TestParseVCard_ExampleCard(t *testing.T) {
	t.Parallel()

	text := "BEGIN:VCARD\nVERSION:3.0\nFN:Jane Doe\nTITLE:Engineer\nORG:Acme\n" +
		"TEL:+15551234567\nEMAIL:jane@acme.com\nX-NEXUS-ORG:org-42\nEND:VCARD"

	c := ParseVCard(text)
	if c.Name != "Jane Doe" || c.JobTitle != "Engineer" || c.Company != "Acme" ||
		c.Phone != "+15551234567" || c.Email != "jane@acme.com" || c.OrganizationID != "org-42" {
		t.Errorf("contact = %+v", c)
	}
	if c.Website != "" {
		t.Errorf("Website = %q, want empty", c.Website)
	}
	for _, p := range socialPlatforms {
		if got := c.Social(p); got != "" {
			t.Errorf("Social(%s) = %q, want empty", p, got)
		}
	}
}
