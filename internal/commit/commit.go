// Package commit builds and verifies the binding commitment hash that links a
// round, a sorted number selection, a salt, and an owner address.
//
// The digest is keccak256 over the canonical ABI encoding
// (uint256 roundId, uint8[] numbers, bytes32 salt, address owner), so a
// commitment produced by any standard ABI encoder verifies here unchanged.
// Binding the round id and owner prevents replaying a leaked commitment in
// another round or under another identity.
package commit

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrMalformedNumbers rejects a selection that is not exactly k strictly
// ascending values in [1,n]. The check runs before hashing so a malformed
// selection can never produce a digest.
var ErrMalformedNumbers = errors.New("MALFORMED_NUMBERS")

var commitArgs abi.Arguments

func init() {
	uint256T, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	uint8ArrT, err := abi.NewType("uint8[]", "", nil)
	if err != nil {
		panic(err)
	}
	bytes32T, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	addressT, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	commitArgs = abi.Arguments{
		{Type: uint256T},
		{Type: uint8ArrT},
		{Type: bytes32T},
		{Type: addressT},
	}
}

// Codec validates selections against one round's (k, n) parameters.
type Codec struct {
	K int
	N int
}

// CheckNumbers returns ErrMalformedNumbers unless numbers is exactly k
// strictly ascending values in [1,n].
func (c Codec) CheckNumbers(numbers []int) error {
	if len(numbers) != c.K {
		return fmt.Errorf("%w: want %d numbers, got %d", ErrMalformedNumbers, c.K, len(numbers))
	}
	for i, v := range numbers {
		if v < 1 || v > c.N {
			return fmt.Errorf("%w: value %d out of range [1,%d]", ErrMalformedNumbers, v, c.N)
		}
		if i > 0 && numbers[i-1] >= v {
			return fmt.Errorf("%w: values must be strictly ascending", ErrMalformedNumbers)
		}
	}
	return nil
}

// Canonicalize sorts a raw selection ascending and validates it, so commit
// and reveal agree on ordering regardless of the order the caller typed.
func (c Codec) Canonicalize(numbers []int) ([]int, error) {
	out := make([]int, len(numbers))
	copy(out, numbers)
	sort.Ints(out)
	if err := c.CheckNumbers(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Hash computes the commitment digest for an already-canonical selection.
func (c Codec) Hash(roundID uint64, numbers []int, salt common.Hash, owner common.Address) (common.Hash, error) {
	if err := c.CheckNumbers(numbers); err != nil {
		return common.Hash{}, err
	}
	packed, err := pack(roundID, numbers, salt, owner)
	if err != nil {
		return common.Hash{}, fmt.Errorf("commit: encode: %w", err)
	}
	return crypto.Keccak256Hash(packed), nil
}

// Verify reports whether digest is the commitment of (roundID, numbers, salt,
// owner). A malformed selection never verifies.
func (c Codec) Verify(digest common.Hash, roundID uint64, numbers []int, salt common.Hash, owner common.Address) bool {
	got, err := c.Hash(roundID, numbers, salt, owner)
	if err != nil {
		return false
	}
	return got == digest
}

func pack(roundID uint64, numbers []int, salt common.Hash, owner common.Address) ([]byte, error) {
	nums := make([]uint8, len(numbers))
	for i, v := range numbers {
		nums[i] = uint8(v)
	}
	return commitArgs.Pack(
		new(big.Int).SetUint64(roundID),
		nums,
		[32]byte(salt),
		owner,
	)
}

// NormalizeSalt turns caller input into an opaque 32-byte salt:
//   - empty input draws 32 fresh random bytes,
//   - a 0x-prefixed hex string is left-padded to 32 bytes,
//   - anything else is hashed with keccak256 (one-way, so the original string
//     stays usable as a memorable passphrase).
//
// Callers must retain the salt themselves: without it a committed ticket can
// never be revealed.
func NormalizeSalt(input string) (common.Hash, error) {
	if input == "" {
		var salt common.Hash
		if _, err := rand.Read(salt[:]); err != nil {
			return common.Hash{}, fmt.Errorf("commit: random salt: %w", err)
		}
		return salt, nil
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		raw, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.TrimPrefix(input, "0x"), "0X"))
		if err != nil {
			return common.Hash{}, fmt.Errorf("commit: bad hex salt: %w", err)
		}
		if len(raw) > 32 {
			return common.Hash{}, fmt.Errorf("commit: hex salt longer than 32 bytes")
		}
		var salt common.Hash
		copy(salt[32-len(raw):], raw)
		return salt, nil
	}
	return crypto.Keccak256Hash([]byte(input)), nil
}
