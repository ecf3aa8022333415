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

package tapcard

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// debugEnabled controls whether the package logger emits anything.
var debugEnabled atomic.Bool

var (
	pkgLogger atomic.Pointer[zerolog.Logger]
	nopLogger = zerolog.Nop()
)

func init() {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", "tapcard").Logger()
	pkgLogger.Store(&l)

	if os.Getenv("TAPCARD_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// SetDebugEnabled turns debug logging on or off at runtime.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger replaces the package logger. Debug output is written only when
// debug logging is enabled; dispatch failures are always written.
func SetLogger(l zerolog.Logger) {
	pkgLogger.Store(&l)
}

// logger returns the package logger, or a no-op logger when debug logging
// is off.
func logger() *zerolog.Logger {
	if !debugEnabled.Load() {
		return &nopLogger
	}
	return pkgLogger.Load()
}

// alwaysLogger returns the package logger regardless of the debug switch.
func alwaysLogger() *zerolog.Logger {
	return pkgLogger.Load()
}

func debugf(format string, args ...any) {
	logger().Debug().Msg(fmt.Sprintf(format, args...))
}
