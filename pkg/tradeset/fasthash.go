package tradeset

import "crypto/sha256"

// FastHash streams compact records (ticker ‖ method ‖ entryPrice:32B)
// through a single SHA-256 digest prefixed by snapshotID, skipping the
// Merkle tree entirely. No per-trade proof is produced; disputes in this
// mode require revealing the full trade list.
func FastHash(snapshotID string, trades []Trade) [32]byte {
	h := sha256.New()
	h.Write([]byte(snapshotID))
	for _, t := range trades {
		h.Write([]byte(t.Ticker))
		h.Write([]byte(t.Method))
		h.Write(uint256Bytes(t.EntryPrice))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
