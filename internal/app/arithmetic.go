package app

import (
	"fmt"
	"math"
	"math/bits"
)

func addInt64AndU64Checked(base int64, delta uint64, field string) (int64, error) {
	if delta > uint64(math.MaxInt64) {
		return 0, fmt.Errorf("%s overflows int64", field)
	}
	d := int64(delta)
	if base > math.MaxInt64-d {
		return 0, fmt.Errorf("%s overflows int64", field)
	}
	return base + d, nil
}

func mulU64Checked(a, b uint64, field string) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%s overflows uint64", field)
	}
	return lo, nil
}

func addU64Checked(a, b uint64, field string) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%s overflows uint64", field)
	}
	return sum, nil
}

// mulBpsFloor computes amount * bps / 10000 rounded down, exact in the full
// uint64 range. With bps <= 10000 the 128-bit quotient always fits.
func mulBpsFloor(amount uint64, bps uint32) uint64 {
	if amount == 0 || bps == 0 {
		return 0
	}
	hi, lo := bits.Mul64(amount, uint64(bps))
	q, _ := bits.Div64(hi, lo, 10000)
	return q
}
