package common

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// AmountBits is the width every settlement amount must fit in.
const AmountBits = 128

var (
	ErrOverflow      = errors.New("amount overflow")
	ErrUnderflow     = errors.New("amount underflow")
	ErrDivideByZero  = errors.New("division by zero")
	ErrInvalidAmount = errors.New("invalid amount")
)

var maxAmount = uint256.MustFromHex("0xffffffffffffffffffffffffffffffff")

// MaxAmount returns 2^128-1, the largest representable amount.
func MaxAmount() *uint256.Int {
	return new(uint256.Int).Set(maxAmount)
}

// NewAmount returns an amount holding v.
func NewAmount(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Zero returns a fresh zero amount.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// Copy returns a copy of a, treating nil as zero.
func Copy(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a)
}

// IsZero reports whether a is nil or zero.
func IsZero(a *uint256.Int) bool {
	return a == nil || a.IsZero()
}

func fits(a *uint256.Int) error {
	if a.BitLen() > AmountBits {
		return ErrOverflow
	}
	return nil
}

// CheckAmount rejects amounts wider than 128 bits.
func CheckAmount(a *uint256.Int) error {
	if a == nil {
		return nil
	}
	return fits(a)
}

// ParseAmount parses a base-10 amount and rejects values wider than 128 bits.
func ParseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if err := fits(value); err != nil {
		return nil, err
	}
	return value, nil
}

// FromBig converts a non-negative big integer into an amount.
func FromBig(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return new(uint256.Int), nil
	}
	if b.Sign() < 0 {
		return nil, ErrUnderflow
	}
	value, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrOverflow
	}
	if err := fits(value); err != nil {
		return nil, err
	}
	return value, nil
}

// Add returns a+b or ErrOverflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(Copy(a), Copy(b))
	if overflow {
		return nil, ErrOverflow
	}
	if err := fits(sum); err != nil {
		return nil, err
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow when b exceeds a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	x, y := Copy(a), Copy(b)
	if x.Lt(y) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(x, y), nil
}

// Mul returns a*b or ErrOverflow.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(Copy(a), Copy(b))
	if overflow {
		return nil, ErrOverflow
	}
	if err := fits(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Div returns floor(a/b) or ErrDivideByZero.
func Div(a, b *uint256.Int) (*uint256.Int, error) {
	y := Copy(b)
	if y.IsZero() {
		return nil, ErrDivideByZero
	}
	return new(uint256.Int).Div(Copy(a), y), nil
}

// MulDiv returns floor(a*b/c). The product must itself fit in 128 bits.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return Div(product, c)
}

// PerMille returns floor(a*permille/1000).
func PerMille(a *uint256.Int, permille uint64) (*uint256.Int, error) {
	return MulDiv(a, uint256.NewInt(permille), uint256.NewInt(1000))
}
