package curves

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"bondcurve/native/common"
)

const (
	// divisionPrecision is the number of fractional digits kept by every
	// decimal division. Quotients are truncated, never rounded.
	divisionPrecision int32 = 18

	// sqrtScale and sqrtRescale fix the extra digits carried through the
	// integer square root: x is scaled by 10^12 and the root by 10^-6.
	sqrtScale   int32 = 12
	sqrtRescale int32 = 6

	// cbrtScale and cbrtRescale fix the cube root budget: 10^9 in, 10^-3 out.
	cbrtScale   int32 = 9
	cbrtRescale int32 = 3
)

// DecimalPlaces converts between integer minor units and working decimals for
// the supply token and the reserve currency.
type DecimalPlaces struct {
	Supply  uint32
	Reserve uint32
}

// NewDecimalPlaces builds the normalizer for the given decimal place counts.
func NewDecimalPlaces(supply, reserve uint8) DecimalPlaces {
	return DecimalPlaces{Supply: uint32(supply), Reserve: uint32(reserve)}
}

func (d DecimalPlaces) FromSupply(amount *uint256.Int) decimal.Decimal {
	return fromAmount(amount, d.Supply)
}

func (d DecimalPlaces) FromReserve(amount *uint256.Int) decimal.Decimal {
	return fromAmount(amount, d.Reserve)
}

// ToSupply floors x to supply minor units.
func (d DecimalPlaces) ToSupply(x decimal.Decimal) (*uint256.Int, error) {
	return toAmount(x, d.Supply)
}

// ToReserve floors x to reserve minor units.
func (d DecimalPlaces) ToReserve(x decimal.Decimal) (*uint256.Int, error) {
	return toAmount(x, d.Reserve)
}

func fromAmount(amount *uint256.Int, places uint32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount.ToBig(), -int32(places))
}

func toAmount(x decimal.Decimal, places uint32) (*uint256.Int, error) {
	if x.IsNegative() {
		return nil, common.ErrUnderflow
	}
	return common.FromBig(floorInt(x.Shift(int32(places))))
}

// floorInt truncates a non-negative decimal to an integer.
func floorInt(x decimal.Decimal) *big.Int {
	return x.Floor().BigInt()
}

// quo divides a by b, truncating at divisionPrecision fractional digits.
func quo(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, common.ErrDivideByZero
	}
	q, _ := a.QuoRem(b, divisionPrecision)
	return q, nil
}

// SquareRoot returns floor(sqrt(floor(x*10^12)))/10^6.
func SquareRoot(x decimal.Decimal) (decimal.Decimal, error) {
	scaled, err := scaleToInt(x, sqrtScale)
	if err != nil {
		return decimal.Zero, err
	}
	root := new(uint256.Int).Sqrt(scaled)
	return decimal.NewFromBigInt(root.ToBig(), -sqrtRescale), nil
}

// CubeRoot returns floor(cbrt(floor(x*10^9)))/10^3.
func CubeRoot(x decimal.Decimal) (decimal.Decimal, error) {
	scaled, err := scaleToInt(x, cbrtScale)
	if err != nil {
		return decimal.Zero, err
	}
	root := integerCubeRoot(scaled)
	return decimal.NewFromBigInt(root.ToBig(), -cbrtRescale), nil
}

// scaleToInt floors x*10^digits into a 256-bit integer. Root inputs may be
// wider than an amount.
func scaleToInt(x decimal.Decimal, digits int32) (*uint256.Int, error) {
	if x.IsNegative() {
		return nil, common.ErrUnderflow
	}
	value, overflow := uint256.FromBig(floorInt(x.Shift(digits)))
	if overflow {
		return nil, common.ErrOverflow
	}
	return value, nil
}

// integerCubeRoot returns floor(cbrt(n)) by Newton iteration from above.
func integerCubeRoot(n *uint256.Int) *uint256.Int {
	if n.IsZero() {
		return new(uint256.Int)
	}
	one := uint256.NewInt(1)
	three := uint256.NewInt(3)
	x := new(uint256.Int).Lsh(one, uint((n.BitLen()+2)/3))
	for {
		square := new(uint256.Int).Mul(x, x)
		next := new(uint256.Int).Div(n, square)
		next.Add(next, new(uint256.Int).Lsh(x, 1))
		next.Div(next, three)
		if !next.Lt(x) {
			return x
		}
		x = next
	}
}
