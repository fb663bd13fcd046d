package commit

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	testOwner = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSalt  = crypto.Keccak256Hash([]byte("test salt"))
)

func TestCheckNumbers(t *testing.T) {
	cdc := Codec{K: 6, N: 55}

	require.NoError(t, cdc.CheckNumbers([]int{3, 8, 12, 23, 41, 55}))

	cases := map[string][]int{
		"too few":       {3, 8, 12, 23, 41},
		"too many":      {3, 8, 12, 23, 41, 50, 55},
		"duplicate":     {3, 8, 8, 23, 41, 55},
		"unsorted":      {8, 3, 12, 23, 41, 55},
		"below range":   {0, 8, 12, 23, 41, 55},
		"above range":   {3, 8, 12, 23, 41, 56},
		"empty":         {},
		"nil selection": nil,
	}
	for name, nums := range cases {
		err := cdc.CheckNumbers(nums)
		require.ErrorIs(t, err, ErrMalformedNumbers, name)
	}
}

func TestCanonicalize(t *testing.T) {
	cdc := Codec{K: 6, N: 55}

	got, err := cdc.Canonicalize([]int{55, 3, 41, 8, 23, 12})
	require.NoError(t, err)
	require.Equal(t, []int{3, 8, 12, 23, 41, 55}, got)

	// Sorting does not launder duplicates.
	_, err = cdc.Canonicalize([]int{55, 3, 3, 8, 23, 12})
	require.ErrorIs(t, err, ErrMalformedNumbers)

	// The input slice is left untouched.
	in := []int{55, 3, 41, 8, 23, 12}
	_, err = cdc.Canonicalize(in)
	require.NoError(t, err)
	require.Equal(t, []int{55, 3, 41, 8, 23, 12}, in)
}

func TestHashBindsEveryField(t *testing.T) {
	cdc := Codec{K: 6, N: 55}
	nums := []int{3, 8, 12, 23, 41, 55}

	base, err := cdc.Hash(1, nums, testSalt, testOwner)
	require.NoError(t, err)

	otherRound, err := cdc.Hash(2, nums, testSalt, testOwner)
	require.NoError(t, err)
	require.NotEqual(t, base, otherRound)

	otherNums, err := cdc.Hash(1, []int{3, 8, 12, 23, 41, 54}, testSalt, testOwner)
	require.NoError(t, err)
	require.NotEqual(t, base, otherNums)

	otherSalt, err := cdc.Hash(1, nums, crypto.Keccak256Hash([]byte("other")), testOwner)
	require.NoError(t, err)
	require.NotEqual(t, base, otherSalt)

	otherOwner, err := cdc.Hash(1, nums, testSalt, common.HexToAddress("0x2222222222222222222222222222222222222222"))
	require.NoError(t, err)
	require.NotEqual(t, base, otherOwner)
}

func TestHashRejectsMalformed(t *testing.T) {
	cdc := Codec{K: 6, N: 55}
	_, err := cdc.Hash(1, []int{8, 3, 12, 23, 41, 55}, testSalt, testOwner)
	require.ErrorIs(t, err, ErrMalformedNumbers)
}

func TestVerify(t *testing.T) {
	cdc := Codec{K: 6, N: 55}
	nums := []int{3, 8, 12, 23, 41, 55}

	digest, err := cdc.Hash(7, nums, testSalt, testOwner)
	require.NoError(t, err)

	require.True(t, cdc.Verify(digest, 7, nums, testSalt, testOwner))
	require.False(t, cdc.Verify(digest, 8, nums, testSalt, testOwner))
	require.False(t, cdc.Verify(digest, 7, nums, crypto.Keccak256Hash([]byte("no")), testOwner))
	require.False(t, cdc.Verify(digest, 7, []int{8, 3, 12, 23, 41, 55}, testSalt, testOwner))
}

func TestNormalizeSaltRandom(t *testing.T) {
	a, err := NormalizeSalt("")
	require.NoError(t, err)
	b, err := NormalizeSalt("")
	require.NoError(t, err)

	require.NotEqual(t, common.Hash{}, a)
	require.NotEqual(t, a, b)
}

func TestNormalizeSaltHex(t *testing.T) {
	got, err := NormalizeSalt("0x01")
	require.NoError(t, err)
	var want common.Hash
	want[31] = 1
	require.Equal(t, want, got)

	full := crypto.Keccak256Hash([]byte("full"))
	got, err = NormalizeSalt(full.Hex())
	require.NoError(t, err)
	require.Equal(t, full, got)

	_, err = NormalizeSalt("0x" + "00" + full.Hex()[2:])
	require.Error(t, err, "33 bytes must be rejected")
}

func TestNormalizeSaltPassphrase(t *testing.T) {
	got, err := NormalizeSalt("correct horse battery staple")
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash([]byte("correct horse battery staple")), got)
}
