package curves

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"bondcurve/native/common"
)

func TestDecimalPlacesFloorsTowardZero(t *testing.T) {
	places := NewDecimalPlaces(6, 2)

	got := places.FromSupply(uint256.NewInt(1_234_567))
	if !got.Equal(decimal.RequireFromString("1.234567")) {
		t.Fatalf("unexpected normalised supply %s", got)
	}

	reserve, err := places.ToReserve(decimal.RequireFromString("12.349999"))
	if err != nil {
		t.Fatalf("to reserve: %v", err)
	}
	if reserve.Uint64() != 1234 {
		t.Fatalf("expected floor to 1234, got %s", reserve.Dec())
	}

	supply, err := places.ToSupply(decimal.RequireFromString("0.0000009"))
	if err != nil {
		t.Fatalf("to supply: %v", err)
	}
	if !supply.IsZero() {
		t.Fatalf("expected sub-unit value to floor to zero, got %s", supply.Dec())
	}
}

func TestDecimalPlacesRejectsNegativeAndOversized(t *testing.T) {
	places := NewDecimalPlaces(0, 0)
	if _, err := places.ToSupply(decimal.NewFromInt(-1)); !errors.Is(err, common.ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	huge := decimal.NewFromBigInt(common.MaxAmount().ToBig(), 0).Add(decimal.NewFromInt(1))
	if _, err := places.ToReserve(huge); !errors.Is(err, common.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSquareRootFixedPrecision(t *testing.T) {
	cases := map[string]string{
		"2":        "1.414213",
		"100":      "10",
		"0.25":     "0.5",
		"0.000001": "0.001",
		"0":        "0",
	}
	for in, want := range cases {
		got, err := SquareRoot(decimal.RequireFromString(in))
		if err != nil {
			t.Fatalf("sqrt(%s): %v", in, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("sqrt(%s): expected %s, got %s", in, want, got)
		}
	}
}

func TestCubeRootFixedPrecision(t *testing.T) {
	cases := map[string]string{
		"2":        "1.259",
		"27":       "3",
		"1000000":  "100",
		"0.001":    "0.1",
		"0.000999": "0.099",
		"7":        "1.912",
	}
	for in, want := range cases {
		got, err := CubeRoot(decimal.RequireFromString(in))
		if err != nil {
			t.Fatalf("cbrt(%s): %v", in, err)
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("cbrt(%s): expected %s, got %s", in, want, got)
		}
	}
}

func TestIntegerCubeRootIsFloor(t *testing.T) {
	for n := uint64(0); n < 2000; n++ {
		root := integerCubeRoot(uint256.NewInt(n)).Uint64()
		if root*root*root > n || (root+1)*(root+1)*(root+1) <= n {
			t.Fatalf("cbrt(%d) = %d is not the floor root", n, root)
		}
	}
	wide := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	root := integerCubeRoot(wide)
	cube := new(uint256.Int).Mul(root, root)
	cube.Mul(cube, root)
	if cube.Gt(wide) {
		t.Fatalf("cube root of 2^255 overshoots: %s", root.Dec())
	}
}
