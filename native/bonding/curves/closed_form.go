package curves

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"bondcurve/native/common"
)

var (
	decimalHalf       = decimal.New(5, -1)
	decimalOneAndHalf = decimal.New(15, -1)
	decimalThree      = decimal.NewFromInt(3)
)

// constantCurve charges a flat price per whole supply token.
type constantCurve struct {
	value  decimal.Decimal
	places DecimalPlaces
}

func (c constantCurve) SpotPrice(*uint256.Int) (*uint256.Int, error) {
	return c.places.ToReserve(c.value)
}

func (c constantCurve) Reserve(supply *uint256.Int) (*uint256.Int, error) {
	return c.places.ToReserve(c.places.FromSupply(supply).Mul(c.value))
}

func (c constantCurve) Supply(reserve *uint256.Int) (*uint256.Int, error) {
	tokens, err := quo(c.places.FromReserve(reserve), c.value)
	if err != nil {
		return nil, err
	}
	return c.places.ToSupply(tokens)
}

// linearCurve prices at slope*s, so reserve(s) = slope*s^2/2.
type linearCurve struct {
	slope  decimal.Decimal
	places DecimalPlaces
}

func (c linearCurve) SpotPrice(supply *uint256.Int) (*uint256.Int, error) {
	return c.places.ToReserve(c.places.FromSupply(supply).Mul(c.slope))
}

func (c linearCurve) Reserve(supply *uint256.Int) (*uint256.Int, error) {
	s := c.places.FromSupply(supply)
	return c.places.ToReserve(s.Mul(s).Mul(c.slope).Mul(decimalHalf))
}

func (c linearCurve) Supply(reserve *uint256.Int) (*uint256.Int, error) {
	double, err := common.Add(reserve, reserve)
	if err != nil {
		return nil, err
	}
	square, err := quo(c.places.FromReserve(double), c.slope)
	if err != nil {
		return nil, err
	}
	root, err := SquareRoot(square)
	if err != nil {
		return nil, err
	}
	return c.places.ToSupply(root)
}

// squareRootCurve prices at slope*sqrt(s), so reserve(s) = slope*s^1.5/1.5.
type squareRootCurve struct {
	slope  decimal.Decimal
	places DecimalPlaces
}

func (c squareRootCurve) SpotPrice(supply *uint256.Int) (*uint256.Int, error) {
	root, err := SquareRoot(c.places.FromSupply(supply))
	if err != nil {
		return nil, err
	}
	return c.places.ToReserve(c.slope.Mul(root))
}

func (c squareRootCurve) Reserve(supply *uint256.Int) (*uint256.Int, error) {
	s := c.places.FromSupply(supply)
	root, err := SquareRoot(s)
	if err != nil {
		return nil, err
	}
	reserve, err := quo(c.slope.Mul(s).Mul(root), decimalOneAndHalf)
	if err != nil {
		return nil, err
	}
	return c.places.ToReserve(reserve)
}

func (c squareRootCurve) Supply(reserve *uint256.Int) (*uint256.Int, error) {
	base, err := quo(c.places.FromReserve(reserve).Mul(decimalOneAndHalf), c.slope)
	if err != nil {
		return nil, err
	}
	root, err := CubeRoot(base.Mul(base))
	if err != nil {
		return nil, err
	}
	return c.places.ToSupply(root)
}

// squaredCurve prices at slope*s^2, so reserve(s) = slope*s^3/3.
type squaredCurve struct {
	slope  decimal.Decimal
	places DecimalPlaces
}

func (c squaredCurve) SpotPrice(supply *uint256.Int) (*uint256.Int, error) {
	s := c.places.FromSupply(supply)
	return c.places.ToReserve(c.slope.Mul(s).Mul(s))
}

func (c squaredCurve) Reserve(supply *uint256.Int) (*uint256.Int, error) {
	s := c.places.FromSupply(supply)
	reserve, err := quo(c.slope.Mul(s).Mul(s).Mul(s), decimalThree)
	if err != nil {
		return nil, err
	}
	return c.places.ToReserve(reserve)
}

func (c squaredCurve) Supply(reserve *uint256.Int) (*uint256.Int, error) {
	cube, err := quo(c.places.FromReserve(reserve).Mul(decimalThree), c.slope)
	if err != nil {
		return nil, err
	}
	root, err := CubeRoot(cube)
	if err != nil {
		return nil, err
	}
	return c.places.ToSupply(root)
}
