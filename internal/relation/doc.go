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

// Package relation implements the (a, b) relation of a number field sieve
// session: its two norms, the trial division that decides smoothness, and the
// exponent-parity vector a smooth relation contributes to the matrix.
//
// A relation stands for the element a + b*theta, where theta is a root of f
// and maps to m under the ring homomorphism to Z/NZ. Its norms are
//
//	rational:  a + b*m
//	algebraic: F(a, -b) = (-b)^d * f(a/(-b))
//
// where F is the homogeneous form of f. The algebraic norm equals the leading
// coefficient times the field norm of a + b*theta, so a prime p that does not
// divide b divides it exactly when r = -a/b mod p is a root of f, which is
// the first degree prime ideal (p, r) the parity vector records.
//
// Relations are produced by the sieve, which owns each one until it is
// accepted; after that a relation is never mutated.
package relation
