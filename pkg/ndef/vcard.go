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
	"strings"
)

const (
	vcardBegin   = "BEGIN:VCARD"
	vcardEnd     = "END:VCARD"
	vcardVersion = "VERSION:3.0"

	keyName         = "FN:"
	keyJobTitle     = "TITLE:"
	keyCompany      = "ORG:"
	keyPhone        = "TEL:"
	keyEmail        = "EMAIL:"
	keyWebsite      = "URL:"
	keyOrganization = "X-NEXUS-ORG:"
	keySocial       = "X-SOCIALPROFILE;type="
)

// Social platforms recognised in vCard lines, in encoding order.
const (
	PlatformLinkedIn  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformGitHub    = "github"
)

var socialPlatforms = []string{PlatformLinkedIn, PlatformInstagram, PlatformTwitter, PlatformGitHub}

// ContactToken is a contact card exchanged as a vCard. OrganizationID carries
// an enrollment reference. Missing fields are empty strings.
type ContactToken struct {
	SocialLinks    map[string]string `json:"socialLinks,omitempty"`
	Name           string            `json:"name"`
	JobTitle       string            `json:"jobTitle"`
	Company        string            `json:"company"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email"`
	Website        string            `json:"website"`
	OrganizationID string            `json:"organizationId"`
}

// Social returns the link for platform, or "".
func (c ContactToken) Social(platform string) string {
	return c.SocialLinks[strings.ToLower(platform)]
}

// IsVCard reports whether text starts with BEGIN:VCARD.
func IsVCard(text string) bool {
	return strings.HasPrefix(strings.TrimLeft(text, " \t\r\n\ufeff"), vcardBegin)
}

type vcardField struct {
	set func(c *ContactToken, v string)
	key string
}

// vcardFields maps line prefixes to contact fields.
var vcardFields = []vcardField{
	{key: keyName, set: func(c *ContactToken, v string) { c.Name = v }},
	{key: keyJobTitle, set: func(c *ContactToken, v string) { c.JobTitle = v }},
	{key: keyCompany, set: func(c *ContactToken, v string) { c.Company = v }},
	{key: keyPhone, set: func(c *ContactToken, v string) { c.Phone = v }},
	{key: keyEmail, set: func(c *ContactToken, v string) { c.Email = v }},
	{key: keyWebsite, set: func(c *ContactToken, v string) { c.Website = v }},
	{key: keyOrganization, set: func(c *ContactToken, v string) { c.OrganizationID = v }},
}

// ParseVCard extracts a ContactToken from vCard text. Lines that match no
// known key are ignored.
func ParseVCard(text string) ContactToken {
	c := ContactToken{SocialLinks: map[string]string{}}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if parseVCardField(&c, line) {
			continue
		}
		parseSocialLine(&c, line)
	}
	return c
}

func parseVCardField(c *ContactToken, line string) bool {
	for _, f := range vcardFields {
		if v, ok := strings.CutPrefix(line, f.key); ok {
			f.set(c, strings.TrimSpace(v))
			return true
		}
	}
	return false
}

func parseSocialLine(c *ContactToken, line string) {
	lower := strings.ToLower(line)
	for _, p := range socialPlatforms {
		if !strings.Contains(lower, "type="+p) {
			continue
		}
		if _, v, ok := strings.Cut(line, ":"); ok {
			c.SocialLinks[p] = strings.TrimSpace(v)
		}
		return
	}
}

// VCard renders the token as vCard 3.0 text. Only non-empty fields are
// written; FN is always present.
func (c ContactToken) VCard() string {
	var b strings.Builder
	writeLine := func(key, v string) {
		if v == "" {
			return
		}
		b.WriteString(key)
		b.WriteString(v)
		b.WriteByte('\n')
	}

	b.WriteString(vcardBegin + "\n" + vcardVersion + "\n")
	b.WriteString(keyName + c.Name + "\n")
	writeLine(keyJobTitle, c.JobTitle)
	writeLine(keyCompany, c.Company)
	writeLine(keyPhone, c.Phone)
	writeLine(keyEmail, c.Email)
	writeLine(keyWebsite, c.Website)
	writeLine(keyOrganization, c.OrganizationID)
	for _, p := range socialPlatforms {
		writeLine(keySocial+p+":", c.Social(p))
	}
	b.WriteString(vcardEnd)
	return b.String()
}
