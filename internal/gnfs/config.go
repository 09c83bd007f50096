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

package gnfs

import (
	"fmt"
	"math/big"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
)

const (
	defaultValueRange     = 200
	defaultRelationMargin = 10
)

// Config is the immutable configuration of a session. Zero values of the
// optional fields select a value derived from N.
type Config struct {
	// N is the number to factor. Required.
	N *big.Int

	// Base is the polynomial base m. Nil selects the degree-th root of N.
	Base *big.Int

	// Degree of the polynomial. Zero selects a degree from the size of N.
	Degree int

	// RationalBound is the rational factor base bound B. Zero selects a bound
	// from the size of N.
	RationalBound uint64

	// RelationTarget is the number of smooth relations to collect before the
	// first solve. Zero means the matrix column count plus RelationMargin.
	RelationTarget int

	// RelationMargin is how many relations beyond the column count to
	// collect, and the minimum step the target grows by after a failed round.
	RelationMargin int

	// ValueRange bounds |a| and is the number of b rows added each time the
	// sieve window grows.
	ValueRange int64

	// Workers bounds the goroutines used by the sieve and root finding.
	Workers int

	// KeepRough keeps rough relations, up to MaxRough, and pairs them after
	// each sieve round to derive extra smooth relations.
	KeepRough bool
	MaxRough  int

	// MaxRetries bounds the sieve rounds Run starts after a round without a
	// factor.
	MaxRetries int

	// PrimeLimit caps the shared prime sieve. Zero selects the sieve default.
	PrimeLimit uint64

	// Shortcuts checks the factor base primes as trial divisors of N before
	// sieving.
	Shortcuts bool

	// SessionID names the session in checkpoints. Empty generates one.
	SessionID string
}

// Validate rejects configurations no session can run with.
func (c Config) Validate() error {
	if c.N == nil || c.N.Cmp(big.NewInt(1)) <= 0 {
		return fmt.Errorf("n must be greater than 1: %w", gnfserrors.ErrInvalidParameter)
	}
	if c.Base != nil && c.Base.Cmp(big.NewInt(1)) <= 0 {
		return fmt.Errorf("base %v must be greater than 1: %w", c.Base, gnfserrors.ErrInvalidParameter)
	}
	if c.Degree < 0 {
		return fmt.Errorf("degree %d must not be negative: %w", c.Degree, gnfserrors.ErrInvalidParameter)
	}
	if c.RelationTarget < 0 || c.RelationMargin < 0 {
		return fmt.Errorf("relation target and margin must not be negative: %w", gnfserrors.ErrInvalidParameter)
	}
	if c.ValueRange < 0 {
		return fmt.Errorf("value range %d must not be negative: %w", c.ValueRange, gnfserrors.ErrInvalidParameter)
	}
	if c.Workers < 0 || c.MaxRough < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("workers, max rough and max retries must not be negative: %w", gnfserrors.ErrInvalidParameter)
	}
	return nil
}

func (c Config) withDefaults() Config {
	c.N = new(big.Int).Set(c.N)
	if c.Base != nil {
		c.Base = new(big.Int).Set(c.Base)
	}
	if c.ValueRange == 0 {
		c.ValueRange = defaultValueRange
	}
	if c.RelationMargin == 0 {
		c.RelationMargin = defaultRelationMargin
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	return c
}
