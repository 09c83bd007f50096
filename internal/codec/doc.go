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

// Package codec converts relations to and from versioned JSON records.
//
// The record schema is independent of the in-memory Relation type so that the
// two can evolve separately. A record carries the pair, both norms as decimal
// strings and both factorisations as [prime, exponent] lists:
//
//	{"v":1,"a":-3,"b":2,"rn":"37","an":"-205","rf":[[37,1]],"af":[[5,1],[41,1]]}
//
// Rough relations also carry their remaining quotients in "rq" and "aq".
// Decoding checks that each factorisation times its quotient gives the
// stored norm; checking the norms against (a, b) needs the polynomial and is
// left to relation.Verify.
package codec
