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
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig controls Retry.
type RetryConfig struct {
	// MaxAttempts is the total number of calls (values below 1 mean one)
	MaxAttempts int
	// InitialBackoff is the pause after the first failure
	InitialBackoff time.Duration
	// MaxBackoff caps the pause between attempts
	MaxBackoff time.Duration
	// Jitter adds up to this fraction of the pause at random
	Jitter float64
}

// DefaultRetryConfig returns the retry settings used for reader setup.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     time.Second,
		Jitter:         0.1,
	}
}

// Retry calls fn until it succeeds, returns an error IsRetryable rejects,
// or the attempts run out. The pause doubles after every failure. When
// ctx ends during a pause, the last error from fn is returned.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := max(cfg.MaxAttempts, 1)
	backoff := cfg.InitialBackoff

	var err error
	for i := range attempts {
		if err = fn(ctx); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		debugf("retrying after %v: %v", backoff, err)
		timer := time.NewTimer(jitter(backoff, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}
	return err
}

func jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*factor*float64(d))
}
