// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

// RetryConfig configures the retry behavior for checkpoint writes.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts
	MaxRetries int
	// InitialBackoff is the initial backoff duration
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration
	MaxBackoff time.Duration
	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retry runs op until it succeeds, fails with an error that retrying cannot
// fix, or MaxRetries retries have failed. onRetry is called before each wait.
func (c *RetryConfig) retry(ctx context.Context, op func() error, onRetry func(attempt int, backoff time.Duration, err error)) error {
	var lastErr error

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == c.MaxRetries {
			break
		}

		backoff := c.calculateBackoff(attempt)
		if onRetry != nil {
			onRetry(attempt+1, backoff, err)
		}

		// Wait with context cancellation support
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed after %d retries: %w", c.MaxRetries, lastErr)
}

// shouldRetry reports whether err may be transient. Validation failures and
// cancellation are not.
func shouldRetry(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case gnfserrors.Classify(err) == gnfserrors.KindFatal:
		return false
	default:
		return true
	}
}

// calculateBackoff calculates the backoff duration for the given attempt.
func (c *RetryConfig) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}

	// Add jitter (±10%) so concurrent sessions do not retry in lockstep
	jitter := backoff * 0.1 * (2*float64(time.Now().UnixNano()%100)/100 - 1)
	backoff += jitter

	return time.Duration(backoff)
}
