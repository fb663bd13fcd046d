// Package draw implements the deterministic draw-without-replacement sampler.
//
// The draw is safety-critical: it decides prize payouts, so anyone must be
// able to re-derive it off-chain from the two fulfilled random words. Keep the
// step-seed construction and the swap-removal order stable; lottoctl's `draw`
// command depends on them for audit.
package draw

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxN is the largest supported bag size. Numbers travel as uint8 in the
// commitment encoding, so values above 255 cannot be represented.
const MaxN = 255

// StepSeed returns the per-step seed for step i:
// keccak256(r0 || r1 || uint256(i)), interpreted as a big-endian integer.
func StepSeed(r0, r1 common.Hash, i uint64) *big.Int {
	var step common.Hash
	step[24] = byte(i >> 56)
	step[25] = byte(i >> 48)
	step[26] = byte(i >> 40)
	step[27] = byte(i >> 32)
	step[28] = byte(i >> 24)
	step[29] = byte(i >> 16)
	step[30] = byte(i >> 8)
	step[31] = byte(i)
	sum := crypto.Keccak256(r0[:], r1[:], step[:])
	return new(big.Int).SetBytes(sum)
}

// Draw samples k distinct values from [1,n] using a partial Fisher-Yates over
// a bag of n cards: at step i the seed modulo (n-i) indexes the remaining bag,
// and the picked slot is filled with the last remaining card. The result is
// sorted ascending.
//
// Identical (k, n, r0, r1) always yield an identical result. When n == k the
// modulo base shrinks to 1 at the last step and the draw degenerates to the
// full set 1..n without special-casing.
func Draw(k, n int, r0, r1 common.Hash) ([]int, error) {
	if k < 1 {
		return nil, fmt.Errorf("draw: k must be positive, got %d", k)
	}
	if n > MaxN {
		return nil, fmt.Errorf("draw: n too large: got %d max %d", n, MaxN)
	}
	if k > n {
		return nil, fmt.Errorf("draw: k exceeds n: k=%d n=%d", k, n)
	}

	bag := make([]int, n)
	for i := range bag {
		bag[i] = i + 1
	}

	picked := make([]int, 0, k)
	mod := new(big.Int)
	for i := 0; i < k; i++ {
		seed := StepSeed(r0, r1, uint64(i))
		remaining := n - i
		idx := mod.Mod(seed, big.NewInt(int64(remaining))).Int64()
		picked = append(picked, bag[idx])
		bag[idx] = bag[remaining-1]
	}

	sort.Ints(picked)
	return picked, nil
}
