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

package poly

import "math/big"

// SelectDegree picks a polynomial degree from the number of decimal digits of n.
func SelectDegree(n *big.Int) int {
	digits := len(new(big.Int).Abs(n).String())
	switch {
	case digits < 65:
		return 3
	case digits < 125:
		return 4
	case digits < 225:
		return 5
	case digits < 315:
		return 6
	default:
		return 7
	}
}

// DefaultBase returns the integer degree-th root of n, the usual choice of m
// when none is configured. The result is at least 2.
func DefaultBase(n *big.Int, degree int) *big.Int {
	if degree < 1 || n.Sign() <= 0 {
		return big.NewInt(2)
	}
	root := nthRoot(n, degree)
	if root.Cmp(big.NewInt(2)) < 0 {
		return big.NewInt(2)
	}
	return root
}

// nthRoot returns floor(n^(1/k)) by Newton iteration.
func nthRoot(n *big.Int, k int) *big.Int {
	if k == 1 {
		return new(big.Int).Set(n)
	}
	kBig := big.NewInt(int64(k))
	km1 := big.NewInt(int64(k - 1))

	// Start above the root: 2^(ceil(bits/k)).
	x := new(big.Int).Lsh(bigOne, uint(n.BitLen()/k+1))
	for {
		// y = ((k-1)x + n / x^(k-1)) / k
		pow := new(big.Int).Exp(x, km1, nil)
		y := new(big.Int).Quo(n, pow)
		y.Add(y, new(big.Int).Mul(km1, x))
		y.Quo(y, kBig)
		if y.Cmp(x) >= 0 {
			return x
		}
		x = y
	}
}
