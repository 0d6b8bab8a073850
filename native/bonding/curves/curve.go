package curves

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownKind  = errors.New("curves: unknown curve kind")
	ErrInvalidCurve = errors.New("curves: invalid curve parameters")
)

// Curve prices a supply token against its reserve. Reserve is the integral
// of SpotPrice and Supply is its inverse.
type Curve interface {
	SpotPrice(supply *uint256.Int) (*uint256.Int, error)
	Reserve(supply *uint256.Int) (*uint256.Int, error)
	Supply(reserve *uint256.Int) (*uint256.Int, error)
}

// Kind selects one of the curve strategies.
type Kind uint8

const (
	KindConstant Kind = iota + 1
	KindLinear
	KindSquareRoot
	KindSquared
	KindSigmoid
)

var kindNames = map[Kind]string{
	KindConstant:   "constant",
	KindLinear:     "linear",
	KindSquareRoot: "square_root",
	KindSquared:    "squared",
	KindSigmoid:    "sigmoid",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a curve kind from its configuration name.
func ParseKind(raw string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "sqrt" || normalized == "squareroot" {
		normalized = "square_root"
	}
	for kind, name := range kindNames {
		if name == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// CurveType is the persisted curve choice. Slope doubles as the constant
// price for KindConstant and is interpreted as Slope*10^-Scale. Sigmoid
// ignores both.
type CurveType struct {
	Kind  Kind
	Slope *uint256.Int
	Scale uint32
}

func Constant(value uint64, scale uint32) CurveType {
	return CurveType{Kind: KindConstant, Slope: uint256.NewInt(value), Scale: scale}
}

func Linear(slope uint64, scale uint32) CurveType {
	return CurveType{Kind: KindLinear, Slope: uint256.NewInt(slope), Scale: scale}
}

func SquareRootCurve(slope uint64, scale uint32) CurveType {
	return CurveType{Kind: KindSquareRoot, Slope: uint256.NewInt(slope), Scale: scale}
}

func Squared(slope uint64, scale uint32) CurveType {
	return CurveType{Kind: KindSquared, Slope: uint256.NewInt(slope), Scale: scale}
}

func SigmoidCurve() CurveType {
	return CurveType{Kind: KindSigmoid}
}

// Validate rejects unknown kinds and zero slopes on the closed-form curves.
func (c CurveType) Validate() error {
	if _, ok := kindNames[c.Kind]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownKind, c.Kind)
	}
	if c.Kind == KindSigmoid {
		return nil
	}
	if c.Slope == nil || c.Slope.IsZero() {
		return fmt.Errorf("%w: %s slope must be positive", ErrInvalidCurve, c.Kind)
	}
	return nil
}

func (c CurveType) slope() decimal.Decimal {
	if c.Slope == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(c.Slope.ToBig(), -int32(c.Scale))
}

// Resolve binds the curve choice to the token's decimal places.
func Resolve(c CurveType, places DecimalPlaces) (Curve, error) {
	switch c.Kind {
	case KindConstant:
		return constantCurve{value: c.slope(), places: places}, nil
	case KindLinear:
		return linearCurve{slope: c.slope(), places: places}, nil
	case KindSquareRoot:
		return squareRootCurve{slope: c.slope(), places: places}, nil
	case KindSquared:
		return squaredCurve{slope: c.slope(), places: places}, nil
	case KindSigmoid:
		return sigmoidCurve{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, c.Kind)
	}
}
