package wire

import (
	"encoding/hex"
	"fmt"
)

// HexBytes marshals as a 0x-prefixed lowercase hex string.
type HexBytes []byte

func (h HexBytes) MarshalJSON() ([]byte, error) {
	s := "0x" + hex.EncodeToString(h)
	return []byte(`"` + s + `"`), nil
}

func (h *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("wire: hex bytes field must be a JSON string")
	}
	s := string(data[1 : len(data)-1])
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("wire: invalid hex bytes: %w", err)
	}
	*h = b
	return nil
}

// Hash32 is a fixed 32-byte commitment root / digest, hex-encoded on the wire.
type Hash32 [32]byte

func (h Hash32) MarshalJSON() ([]byte, error) {
	return HexBytes(h[:]).MarshalJSON()
}

func (h *Hash32) UnmarshalJSON(data []byte) error {
	var b HexBytes
	if err := b.UnmarshalJSON(data); err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("wire: hash32 field must decode to 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return nil
}

func (h Hash32) Hex() string { return "0x" + hex.EncodeToString(h[:]) }
