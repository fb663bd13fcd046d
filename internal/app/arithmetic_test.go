package app

import (
	"math"
	"testing"
)

func TestMulBpsFloor(t *testing.T) {
	cases := []struct {
		amount uint64
		bps    uint32
		want   uint64
	}{
		{0, 7000, 0},
		{10000, 0, 0},
		{10000, 10000, 10000},
		{10000, 7000, 7000},
		{30, 7000, 21},
		{30, 2000, 6},
		{30, 500, 1},
		{10, 500, 0}, // floors to zero
		// The intermediate product exceeds 64 bits; the 128-bit path keeps
		// the quotient exact.
		{math.MaxUint64, 10000, math.MaxUint64},
		{math.MaxUint64, 5000, math.MaxUint64 / 2},
	}
	for _, c := range cases {
		if got := mulBpsFloor(c.amount, c.bps); got != c.want {
			t.Fatalf("mulBpsFloor(%d, %d) = %d, want %d", c.amount, c.bps, got, c.want)
		}
	}
}

func TestCheckedU64(t *testing.T) {
	if got, err := mulU64Checked(3, 7, "x"); err != nil || got != 21 {
		t.Fatalf("mul = %d, %v", got, err)
	}
	if _, err := mulU64Checked(math.MaxUint64, 2, "x"); err == nil {
		t.Fatalf("expected mul overflow")
	}

	if got, err := addU64Checked(3, 7, "x"); err != nil || got != 10 {
		t.Fatalf("add = %d, %v", got, err)
	}
	if _, err := addU64Checked(math.MaxUint64, 1, "x"); err == nil {
		t.Fatalf("expected add overflow")
	}
}

func TestAddInt64AndU64Checked(t *testing.T) {
	if got, err := addInt64AndU64Checked(100, 50, "x"); err != nil || got != 150 {
		t.Fatalf("got %d, %v", got, err)
	}
	if _, err := addInt64AndU64Checked(math.MaxInt64, 1, "x"); err == nil {
		t.Fatalf("expected overflow past MaxInt64")
	}
	if _, err := addInt64AndU64Checked(0, math.MaxUint64, "x"); err == nil {
		t.Fatalf("expected overflow for delta above MaxInt64")
	}
}
