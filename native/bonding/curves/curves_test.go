package curves

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func mustResolve(t *testing.T, ct CurveType, places DecimalPlaces) Curve {
	t.Helper()
	curve, err := Resolve(ct, places)
	if err != nil {
		t.Fatalf("resolve %s: %v", ct.Kind, err)
	}
	return curve
}

func TestLinearWholeUnitScenario(t *testing.T) {
	curve := mustResolve(t, Linear(1, 0), NewDecimalPlaces(0, 0))

	price, err := curve.SpotPrice(uint256.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, uint64(100), price.Uint64())

	reserve, err := curve.Reserve(uint256.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, uint64(5000), reserve.Uint64())

	supply, err := curve.Supply(uint256.NewInt(5000))
	require.NoError(t, err)
	require.Equal(t, uint64(100), supply.Uint64())
}

type closedFormCase struct {
	name   string
	curve  CurveType
	places DecimalPlaces
	// unit is one whole supply token in minor units for the sampled range.
	unit uint64
}

func closedFormCases() []closedFormCase {
	return []closedFormCase{
		{name: "constant", curve: Constant(15, 1), places: NewDecimalPlaces(6, 6), unit: 1_000_000},
		{name: "linear", curve: Linear(1, 0), places: NewDecimalPlaces(6, 6), unit: 1_000_000},
		{name: "linear-steep", curve: Linear(2, 0), places: NewDecimalPlaces(6, 6), unit: 1_000_000},
		{name: "square-root", curve: SquareRootCurve(1, 0), places: NewDecimalPlaces(3, 6), unit: 1_000},
		{name: "square-root-half", curve: SquareRootCurve(5, 1), places: NewDecimalPlaces(3, 6), unit: 1_000},
		{name: "squared", curve: Squared(1, 0), places: NewDecimalPlaces(3, 6), unit: 1_000},
		{name: "squared-half", curve: Squared(5, 1), places: NewDecimalPlaces(3, 6), unit: 1_000},
	}
}

func TestClosedFormRoundTripWithinOneUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, tc := range closedFormCases() {
		t.Run(tc.name, func(t *testing.T) {
			curve := mustResolve(t, tc.curve, tc.places)
			for i := 0; i < 300; i++ {
				s := tc.unit + uint64(rng.Int63n(int64(tc.unit*1_000_000)))
				reserve, err := curve.Reserve(uint256.NewInt(s))
				if err != nil {
					t.Fatalf("reserve(%d): %v", s, err)
				}
				back, err := curve.Supply(reserve)
				if err != nil {
					t.Fatalf("supply(%s): %v", reserve.Dec(), err)
				}
				got := back.Uint64()
				diff := got - s
				if got < s {
					diff = s - got
				}
				if diff > 1 {
					t.Fatalf("round trip drifted: s=%d reserve=%s back=%d", s, reserve.Dec(), got)
				}
			}
		})
	}
}

func TestClosedFormReserveStrictlyIncreasing(t *testing.T) {
	for _, tc := range closedFormCases() {
		t.Run(tc.name, func(t *testing.T) {
			curve := mustResolve(t, tc.curve, tc.places)
			step := tc.unit / 10
			prev, err := curve.Reserve(uint256.NewInt(tc.unit))
			require.NoError(t, err)
			for s := tc.unit + step; s <= 20*tc.unit; s += step {
				next, err := curve.Reserve(uint256.NewInt(s))
				require.NoError(t, err)
				if !next.Gt(prev) {
					t.Fatalf("reserve not increasing at %d: %s <= %s", s, next.Dec(), prev.Dec())
				}
				prev = next
			}
		})
	}
}

func TestClosedFormSpotPriceTracksDerivative(t *testing.T) {
	curve := mustResolve(t, Squared(1, 0), NewDecimalPlaces(0, 0))
	price, err := curve.SpotPrice(uint256.NewInt(10))
	require.NoError(t, err)
	require.Equal(t, uint64(100), price.Uint64())

	curve = mustResolve(t, SquareRootCurve(1, 0), NewDecimalPlaces(0, 0))
	price, err = curve.SpotPrice(uint256.NewInt(16))
	require.NoError(t, err)
	require.Equal(t, uint64(4), price.Uint64())

	curve = mustResolve(t, Constant(15, 1), NewDecimalPlaces(0, 6))
	price, err = curve.SpotPrice(uint256.NewInt(12345))
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000), price.Uint64())
}

func TestZeroSupplyAndReserve(t *testing.T) {
	for _, tc := range closedFormCases() {
		curve := mustResolve(t, tc.curve, tc.places)
		reserve, err := curve.Reserve(uint256.NewInt(0))
		require.NoError(t, err)
		require.True(t, reserve.IsZero(), tc.name)
		supply, err := curve.Supply(uint256.NewInt(0))
		require.NoError(t, err)
		require.True(t, supply.IsZero(), tc.name)
	}
}

func TestResolveValidation(t *testing.T) {
	if _, err := Resolve(CurveType{Kind: 42}, NewDecimalPlaces(0, 0)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
	if err := Linear(0, 0).Validate(); !errors.Is(err, ErrInvalidCurve) {
		t.Fatalf("expected invalid curve for zero slope, got %v", err)
	}
	if err := SigmoidCurve().Validate(); err != nil {
		t.Fatalf("sigmoid should not need a slope: %v", err)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"constant":    KindConstant,
		" Linear ":    KindLinear,
		"square-root": KindSquareRoot,
		"sqrt":        KindSquareRoot,
		"squared":     KindSquared,
		"SIGMOID":     KindSigmoid,
	}
	for raw, want := range cases {
		got, err := ParseKind(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", raw, want, got)
		}
	}
	if _, err := ParseKind("exponential"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected unknown kind, got %v", err)
	}
}
