// Package wire implements the agent's canonical wire format: JSON with
// 256-bit integers as decimal strings and byte arrays as 0x-prefixed
// lowercase hex, plus gzip compression for trade blobs (spec.md §4.2).
package wire

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// BigInt marshals as a decimal string and unmarshals from either a decimal
// string or a JSON number, so a value round-trips losslessly regardless of
// which representation the sender chose.
type BigInt struct {
	big.Int
}

// NewBigInt wraps v.
func NewBigInt(v *big.Int) *BigInt {
	if v == nil {
		return &BigInt{}
	}
	return &BigInt{Int: *v}
}

// BigIntFromUint64 is a convenience constructor for small values.
func BigIntFromUint64(v uint64) *BigInt {
	return &BigInt{Int: *new(big.Int).SetUint64(v)}
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Int.String())
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return fmt.Errorf("wire: invalid bigint string %q", s)
		}
		b.Int = *v
		return nil
	}

	// Fall back to a raw JSON number for decoder leniency.
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("wire: bigint field is neither string nor number: %w", err)
	}
	v, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return fmt.Errorf("wire: invalid bigint number %q", n.String())
	}
	b.Int = *v
	return nil
}
