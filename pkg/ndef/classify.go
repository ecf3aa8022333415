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
	"regexp"
	"strings"
)

// LineKind is the category assigned to a free-text contact line.
type LineKind int

// Line categories in classification precedence order.
const (
	LineEmail LineKind = iota
	LinePhone
	LineURL
	LineNote
)

func (k LineKind) String() string {
	switch k {
	case LineEmail:
		return "email"
	case LinePhone:
		return "phone"
	case LineURL:
		return "url"
	default:
		return "note"
	}
}

var phonePattern = regexp.MustCompile(`^[0-9+()\-\s]{7,}$`)

// ClassifyLine assigns a category to one line. The checks run in a fixed
// order (email, phone, URL, note) and the first match wins.
func ClassifyLine(line string) LineKind {
	line = strings.TrimSpace(line)
	switch {
	case strings.Contains(line, "@"):
		return LineEmail
	case isPhone(line):
		return LinePhone
	case isURL(line):
		return LineURL
	default:
		return LineNote
	}
}

func isPhone(line string) bool {
	return phonePattern.MatchString(line) && strings.ContainsAny(line, "0123456789")
}

func isURL(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}

// ClassifiedLine is a non-blank input line with its category.
type ClassifiedLine struct {
	Text string
	Kind LineKind
}

// ClassifyLines classifies every non-blank line, keeping input order.
func ClassifyLines(lines []string) []ClassifiedLine {
	out := make([]ClassifiedLine, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, ClassifiedLine{Text: l, Kind: ClassifyLine(l)})
	}
	return out
}

// ContactFromLines builds vCard text for name from unstructured lines:
// EMAIL, TEL and URL lines for the recognised categories and NOTE for the
// rest.
func ContactFromLines(name string, lines []string) string {
	var b strings.Builder
	b.WriteString(vcardBegin + "\n" + vcardVersion + "\n" + keyName + name + "\n")
	for _, cl := range ClassifyLines(lines) {
		switch cl.Kind {
		case LineEmail:
			b.WriteString(keyEmail)
		case LinePhone:
			b.WriteString(keyPhone)
		case LineURL:
			b.WriteString(keyWebsite)
		default:
			b.WriteString("NOTE:")
		}
		b.WriteString(cl.Text)
		b.WriteByte('\n')
	}
	b.WriteString(vcardEnd)
	return b.String()
}
