package wire

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestBigIntRoundTripString(t *testing.T) {
	v := NewBigInt(new(big.Int).SetUint64(1_000_000_000_000_000_000))
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"1000000000000000000"` {
		t.Errorf("got %s, want decimal string", data)
	}

	var out BigInt
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Int.Cmp(&v.Int) != 0 {
		t.Errorf("round trip mismatch: got %s want %s", out.Int.String(), v.Int.String())
	}
}

func TestBigIntAcceptsJSONNumber(t *testing.T) {
	var out BigInt
	if err := json.Unmarshal([]byte("42"), &out); err != nil {
		t.Fatalf("unmarshal number: %v", err)
	}
	if out.Int.Uint64() != 42 {
		t.Errorf("got %s, want 42", out.Int.String())
	}
}

func TestHexBytesRoundTrip(t *testing.T) {
	orig := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"0xdeadbeef"` {
		t.Errorf("got %s", data)
	}

	var out HexBytes
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(out) != string(orig) {
		t.Errorf("round trip mismatch")
	}
}

func TestGzipRoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, many times over")
	compressed, err := Gzip(payload)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	decompressed, err := Gunzip(compressed)
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if string(decompressed) != string(payload) {
		t.Errorf("round trip mismatch")
	}
}
