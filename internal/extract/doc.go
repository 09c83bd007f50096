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

// Package extract turns dependencies among smooth relations into factors of N.
//
// For a dependency S of k relations the rational product X = prod(a + b*m)
// is a perfect square of integers, and on the algebraic side
//
//	gamma = F'(w)^2 * prod(c*a + b*w)        (times c when k is odd)
//
// is a square in Z[w]. With beta the square root of gamma and phi the map
// w -> c*m mod N,
//
//	x = F'(c*m) * c^ceil(k/2) * sqrt(X)   and   y = phi(beta)
//
// satisfy x^2 = y^2 (mod N), so gcd(x - y, N) and gcd(x + y, N) split N
// unless x = +-y. Such trivial outcomes are expected for some dependencies;
// Extract moves on to the next one and reports ErrNoFactorFound only when
// every dependency is exhausted.
package extract
