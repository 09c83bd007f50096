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

// Package algebra implements the number field arithmetic needed to take the
// square root on the algebraic side of a congruence of squares.
//
// For f with leading coefficient c and degree d, the package works in the
// order Z[w] = Z[y]/(F(y)) of the monic polynomial
//
//	F(y) = c^(d-1) * f(y/c)
//
// whose root w = c*theta. A relation element a + b*theta becomes c*a + b*w,
// which keeps every product integral without fractions.
//
// Square roots are found p-adically. For a prime p at which F stays
// irreducible, Z[w]/(p) is the finite field of p^d elements; a root there is
// found with Tonelli-Shanks, its inverse is lifted by Newton iteration to
// p^(2^k), and the symmetric residues of gamma times that inverse give the
// integral square root once the modulus is large enough. Every result is
// checked by squaring it exactly.
package algebra
