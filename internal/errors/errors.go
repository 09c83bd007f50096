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

// Package errors defines sentinel errors for consistent error handling across the
// factorization engine. Every failure the engine reports wraps exactly one of these
// sentinels, so callers can branch with errors.Is and the command can map them to
// exit codes for scripting.
package errors

import (
	"context"
	"errors"
)

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrInvalidParameter indicates an input value outside its domain: a degree below 1,
	// a base of 1 or less, a composite check that failed because N is prime.
	// Maps to exit code 2.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBounds indicates a factor base bound that is non-positive or larger than the
	// configured prime ceiling.
	// Maps to exit code 2.
	ErrBounds = errors.New("bound out of range")

	// ErrInsufficientRelations indicates the matrix has no more rows than columns, so a
	// dependency is not guaranteed. Recoverable by sieving further.
	// Maps to exit code 3.
	ErrInsufficientRelations = errors.New("insufficient relations")

	// ErrNoFactorFound indicates every dependency produced a trivial factor.
	// Recoverable by sieving further.
	// Maps to exit code 3.
	ErrNoFactorFound = errors.New("no non-trivial factor found")

	// ErrCancelled indicates the caller's context was cancelled. State is left
	// consistent and resumable.
	// Maps to exit code 130.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInvariantViolation indicates an internal consistency check failed, for
	// example a dependency whose parity vectors do not cancel.
	// Maps to exit code 1.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrCheckpointCorrupt indicates persisted state failed its version or checksum
	// validation.
	// Maps to exit code 1.
	ErrCheckpointCorrupt = errors.New("checkpoint corrupted")

	// ErrCheckpointNotFound indicates no persisted state exists for a session.
	// Maps to exit code 2.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Kind groups sentinel errors by how the controller reacts to them.
type Kind int

const (
	// KindUnknown is any error that wraps none of the sentinels.
	KindUnknown Kind = iota
	// KindFatal moves the session to the Failed phase.
	KindFatal
	// KindRecoverable sends the session back to sieving.
	KindRecoverable
	// KindCancelled stops the session without changing its phase.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRecoverable:
		return "recoverable"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Classify reports the Kind of err. Context errors count as cancellation.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInsufficientRelations),
		errors.Is(err, ErrNoFactorFound):
		return KindRecoverable
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrBounds),
		errors.Is(err, ErrInvariantViolation),
		errors.Is(err, ErrCheckpointCorrupt):
		return KindFatal
	default:
		return KindUnknown
	}
}

// IsRecoverable reports whether more sieving can cure err.
func IsRecoverable(err error) bool {
	return Classify(err) == KindRecoverable
}

// ExitCode maps err to the process exit status used by the command.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case Classify(err) == KindCancelled:
		return 130
	case errors.Is(err, ErrInvalidParameter),
		errors.Is(err, ErrBounds),
		errors.Is(err, ErrCheckpointNotFound):
		return 2
	case IsRecoverable(err):
		return 3
	default:
		return 1
	}
}
