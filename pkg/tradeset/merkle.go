package tradeset

import (
	"fmt"
	"math/big"

	"github.com/hyperlicked/betagent/pkg/cryptoutil"
)

// EmptyLeaf pads the leaf array up to a power of two.
var EmptyLeaf = cryptoutil.Keccak256(nil)

// MerkleProof is an inclusion proof for one leaf against a root.
type MerkleProof struct {
	Index    int
	Siblings [][32]byte
}

// LeafHash computes the Merkle leaf for one trade.
func LeafHash(t Trade) [32]byte {
	entry := uint256Bytes(t.EntryPrice)
	exit := uint256Bytes(t.ExitPrice)
	won := byte(0)
	if t.Won {
		won = 1
	}
	cancelled := byte(0)
	if t.Cancelled {
		cancelled = 1
	}
	return cryptoutil.Keccak256(
		t.TradeID[:],
		[]byte(t.Ticker),
		[]byte(t.Source),
		[]byte(t.Method),
		entry,
		exit,
		[]byte{won},
		[]byte{cancelled},
	)
}

func uint256Bytes(v *big.Int) []byte {
	buf := make([]byte, 32)
	if v == nil {
		return buf
	}
	v.FillBytes(buf)
	return buf
}

// BuildMerkleTree hashes snapshotID-derived trade IDs into leaves and
// returns the leaf array alongside the computed root. Empty input yields
// EmptyLeaf as both the sole leaf and the root.
func BuildMerkleTree(trades []Trade) (leaves [][32]byte, root [32]byte, err error) {
	if len(trades) > MaxMerkleTrades {
		return nil, [32]byte{}, fmt.Errorf("tradeset: %d trades exceeds merkle cap of %d", len(trades), MaxMerkleTrades)
	}
	if len(trades) == 0 {
		return [][32]byte{EmptyLeaf}, EmptyLeaf, nil
	}

	leaves = make([][32]byte, len(trades))
	for i, t := range trades {
		leaves[i] = LeafHash(t)
	}

	root = merkleRoot(padLeaves(leaves))
	return leaves, root, nil
}

func padLeaves(leaves [][32]byte) [][32]byte {
	size := nextPowerOfTwo(len(leaves))
	if size == len(leaves) {
		return leaves
	}
	padded := make([][32]byte, size)
	copy(padded, leaves)
	for i := len(leaves); i < size; i++ {
		padded[i] = EmptyLeaf
	}
	return padded
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func merkleRoot(layer [][32]byte) [32]byte {
	for len(layer) > 1 {
		next := make([][32]byte, len(layer)/2)
		for i := range next {
			next[i] = cryptoutil.Keccak256(layer[2*i][:], layer[2*i+1][:])
		}
		layer = next
	}
	return layer[0]
}

// GenerateProof builds an inclusion proof for leaves[index] against the
// tree rooted by padLeaves(leaves).
func GenerateProof(leaves [][32]byte, index int) (MerkleProof, error) {
	if index < 0 || index >= len(leaves) {
		return MerkleProof{}, fmt.Errorf("tradeset: proof index %d out of range [0,%d)", index, len(leaves))
	}
	layer := padLeaves(leaves)
	proof := MerkleProof{Index: index}
	i := index
	for len(layer) > 1 {
		siblingIdx := i ^ 1
		proof.Siblings = append(proof.Siblings, layer[siblingIdx])

		next := make([][32]byte, len(layer)/2)
		for j := range next {
			next[j] = cryptoutil.Keccak256(layer[2*j][:], layer[2*j+1][:])
		}
		layer = next
		i /= 2
	}
	return proof, nil
}

// VerifyProof recomputes the root from leaf and proof and compares it to
// root. The comparison is a plain byte equality over fixed-size arrays;
// it is not a constant-time comparison.
func VerifyProof(leaf [32]byte, proof MerkleProof, root [32]byte) bool {
	computed := leaf
	i := proof.Index
	for _, sibling := range proof.Siblings {
		if i%2 == 0 {
			computed = cryptoutil.Keccak256(computed[:], sibling[:])
		} else {
			computed = cryptoutil.Keccak256(sibling[:], computed[:])
		}
		i /= 2
	}
	return computed == root
}
