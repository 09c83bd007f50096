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

package codec

import (
	"encoding/json"
	"fmt"
	"math/big"

	gnfserrors "github.com/sirseerhq/sirseer-gnfs/internal/errors"
	"github.com/sirseerhq/sirseer-gnfs/internal/relation"
)

// Version is the record schema version written by this package.
const Version = 1

// Record is the serialised form of one relation.
type Record struct {
	V                 int         `json:"v"`
	A                 int64       `json:"a"`
	B                 int64       `json:"b"`
	RationalNorm      string      `json:"rn"`
	AlgebraicNorm     string      `json:"an"`
	RationalFactors   [][2]uint64 `json:"rf"`
	AlgebraicFactors  [][2]uint64 `json:"af"`
	RationalQuotient  string      `json:"rq,omitempty"`
	AlgebraicQuotient string      `json:"aq,omitempty"`
}

// Group is the serialised form of one free relation group.
type Group struct {
	V         int      `json:"v"`
	Relations []Record `json:"relations"`
}

// Encode converts r to a record.
func Encode(r *relation.Relation) Record {
	rec := Record{
		V:                Version,
		A:                r.A,
		B:                r.B,
		RationalNorm:     r.RationalNorm.String(),
		AlgebraicNorm:    r.AlgebraicNorm.String(),
		RationalFactors:  encodeFactors(r.RationalFactors),
		AlgebraicFactors: encodeFactors(r.AlgebraicFactors),
	}
	if !isUnit(r.RationalQuotient) {
		rec.RationalQuotient = r.RationalQuotient.String()
	}
	if !isUnit(r.AlgebraicQuotient) {
		rec.AlgebraicQuotient = r.AlgebraicQuotient.String()
	}
	return rec
}

// Decode converts a record back to a relation.
func (rec Record) Decode() (*relation.Relation, error) {
	if rec.V != Version {
		return nil, fmt.Errorf("relation record version %d is not supported (want %d): %w",
			rec.V, Version, gnfserrors.ErrCheckpointCorrupt)
	}
	if rec.B <= 0 {
		return nil, fmt.Errorf("relation record (%d, %d) has non-positive b: %w", rec.A, rec.B, gnfserrors.ErrCheckpointCorrupt)
	}

	r := &relation.Relation{A: rec.A, B: rec.B}
	var err error
	if r.RationalNorm, err = parseInt("rn", rec.RationalNorm); err != nil {
		return nil, err
	}
	if r.AlgebraicNorm, err = parseInt("an", rec.AlgebraicNorm); err != nil {
		return nil, err
	}
	if r.RationalFactors, err = decodeFactors("rf", rec.RationalFactors, r.RationalNorm); err != nil {
		return nil, err
	}
	if r.AlgebraicFactors, err = decodeFactors("af", rec.AlgebraicFactors, r.AlgebraicNorm); err != nil {
		return nil, err
	}
	if r.RationalQuotient, err = quotient("rq", rec.RationalQuotient, r.RationalNorm); err != nil {
		return nil, err
	}
	if r.AlgebraicQuotient, err = quotient("aq", rec.AlgebraicQuotient, r.AlgebraicNorm); err != nil {
		return nil, err
	}

	if !reproduces(r.RationalNorm, r.RationalQuotient, r.RationalFactors) ||
		!reproduces(r.AlgebraicNorm, r.AlgebraicQuotient, r.AlgebraicFactors) {
		return nil, fmt.Errorf("relation record (%d, %d) factorisation does not match its norms: %w",
			rec.A, rec.B, gnfserrors.ErrCheckpointCorrupt)
	}
	return r, nil
}

// Marshal encodes r as one JSON document without a trailing newline.
func Marshal(r *relation.Relation) ([]byte, error) {
	return json.Marshal(Encode(r))
}

// Unmarshal decodes a document produced by Marshal.
func Unmarshal(data []byte) (*relation.Relation, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("relation record is not valid JSON (%v): %w", err, gnfserrors.ErrCheckpointCorrupt)
	}
	return rec.Decode()
}

// EncodeGroup converts a free relation group to its record.
func EncodeGroup(rels []*relation.Relation) Group {
	g := Group{V: Version, Relations: make([]Record, len(rels))}
	for i, r := range rels {
		g.Relations[i] = Encode(r)
	}
	return g
}

// Decode converts a group record back to relations.
func (g Group) Decode() ([]*relation.Relation, error) {
	if g.V != Version {
		return nil, fmt.Errorf("group record version %d is not supported (want %d): %w",
			g.V, Version, gnfserrors.ErrCheckpointCorrupt)
	}
	rels := make([]*relation.Relation, len(g.Relations))
	for i, rec := range g.Relations {
		r, err := rec.Decode()
		if err != nil {
			return nil, fmt.Errorf("group member %d: %w", i, err)
		}
		rels[i] = r
	}
	return rels, nil
}

func encodeFactors(fs relation.Factorization) [][2]uint64 {
	out := make([][2]uint64, len(fs))
	for i, pp := range fs {
		out[i] = [2]uint64{pp.Prime, uint64(pp.Exp)}
	}
	return out
}

// decodeFactors checks the stored prime powers of norm. Every prime is at
// least 2, so the exponents of a divisor of norm add up to less than its
// bit length; larger ones are rejected before anything is multiplied out.
func decodeFactors(field string, in [][2]uint64, norm *big.Int) (relation.Factorization, error) {
	if len(in) == 0 {
		return nil, nil
	}
	limit := uint64(norm.BitLen())
	var total uint64
	fs := make(relation.Factorization, len(in))
	for i, pe := range in {
		if pe[0] < 2 || pe[1] == 0 || (i > 0 && pe[0] <= in[i-1][0]) {
			return nil, fmt.Errorf("field %q entry %d [%d, %d] is invalid: %w", field, i, pe[0], pe[1], gnfserrors.ErrCheckpointCorrupt)
		}
		if pe[1] > limit || total+pe[1] > limit {
			return nil, fmt.Errorf("field %q entry %d exponent %d exceeds the %d-bit norm: %w",
				field, i, pe[1], limit, gnfserrors.ErrCheckpointCorrupt)
		}
		total += pe[1]
		fs[i] = relation.PrimePower{Prime: pe[0], Exp: int(pe[1])}
	}
	return fs, nil
}

func parseInt(field, s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("field %q value %q is not an integer: %w", field, s, gnfserrors.ErrCheckpointCorrupt)
	}
	return v, nil
}

// quotient parses a stored quotient. An absent quotient is the unit with
// the sign of norm.
func quotient(field, s string, norm *big.Int) (*big.Int, error) {
	if s == "" {
		return big.NewInt(int64(norm.Sign())), nil
	}
	return parseInt(field, s)
}

func reproduces(norm, q *big.Int, fs relation.Factorization) bool {
	if norm.Sign() == 0 {
		return false
	}
	product := fs.Product()
	product.Mul(product, q)
	return product.Cmp(norm) == 0
}

func isUnit(v *big.Int) bool {
	return v != nil && v.IsInt64() && (v.Int64() == 1 || v.Int64() == -1)
}
