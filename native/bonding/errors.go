package bonding

import (
	"errors"
	"fmt"

	"bondcurve/crypto"
	"bondcurve/native/bonding/curves"
	"bondcurve/native/common"
	"bondcurve/native/token"
)

var (
	errNilState   = errors.New("bonding engine: state not configured")
	errNilLedger  = errors.New("bonding engine: token ledger not configured")
	errNoContract = errors.New("bonding engine: contract address not configured")

	ErrNotInstantiated     = errors.New("bonding engine: not instantiated")
	ErrAlreadyInstantiated = errors.New("bonding engine: already instantiated")
	ErrInvalidProtocolFee  = errors.New("bonding engine: protocol fee must not exceed 1000 per mille")

	ErrUnauthorized = errors.New("bonding engine: unauthorized")
	ErrWrongMinter  = errors.New("bonding engine: wrong minter")
	ErrMintPaused   = errors.New("bonding engine: minting is paused, use a DEX to buy")
	ErrBurnPaused   = errors.New("bonding engine: burning is paused, use a DEX to sell")
	ErrPresaleOver  = errors.New("bonding engine: presale has finished")
	ErrTooLittle    = errors.New("bonding engine: below presale minimum")
)

// PaymentKind enumerates the ways attached funds can be wrong.
type PaymentKind uint8

const (
	PaymentMissingDenom PaymentKind = iota + 1
	PaymentMultipleDenoms
	PaymentNoFunds
	PaymentNonPayable
)

// PaymentError reports a malformed payment.
type PaymentError struct {
	Kind  PaymentKind
	Denom string
}

func (e *PaymentError) Error() string {
	switch e.Kind {
	case PaymentMissingDenom:
		return fmt.Sprintf("bonding engine: must send reserve token %q", e.Denom)
	case PaymentMultipleDenoms:
		return "bonding engine: sent more than one denomination"
	case PaymentNoFunds:
		return "bonding engine: no funds sent"
	case PaymentNonPayable:
		return "bonding engine: this message does not accept funds"
	default:
		return "bonding engine: invalid payment"
	}
}

// Is matches any PaymentError of the same kind.
func (e *PaymentError) Is(target error) bool {
	other, ok := target.(*PaymentError)
	return ok && other.Kind == e.Kind
}

var (
	ErrMissingDenom   = &PaymentError{Kind: PaymentMissingDenom}
	ErrMultipleDenoms = &PaymentError{Kind: PaymentMultipleDenoms}
	ErrNoFunds        = &PaymentError{Kind: PaymentNoFunds}
	ErrNonPayable     = &PaymentError{Kind: PaymentNonPayable}
)

// Category groups an error for metrics and API responses.
type Category string

const (
	CategoryNone          Category = ""
	CategoryPayment       Category = "payment"
	CategoryAuthorization Category = "authorization"
	CategoryPolicy        Category = "policy"
	CategoryMarket        Category = "market"
	CategoryArithmetic    Category = "arithmetic"
	CategoryValidation    Category = "validation"
	CategoryLedger        Category = "ledger"
	CategoryInternal      Category = "internal"
)

// Classify maps err onto its category.
func Classify(err error) Category {
	var payment *PaymentError
	switch {
	case err == nil:
		return CategoryNone
	case errors.As(err, &payment):
		return CategoryPayment
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrWrongMinter), errors.Is(err, token.ErrUnauthorized):
		return CategoryAuthorization
	case errors.Is(err, ErrMintPaused), errors.Is(err, ErrBurnPaused):
		return CategoryPolicy
	case errors.Is(err, ErrPresaleOver), errors.Is(err, ErrTooLittle):
		return CategoryMarket
	case errors.Is(err, common.ErrOverflow), errors.Is(err, common.ErrUnderflow), errors.Is(err, common.ErrDivideByZero):
		return CategoryArithmetic
	case errors.Is(err, crypto.ErrInvalidAddress), errors.Is(err, curves.ErrInvalidCurve), errors.Is(err, curves.ErrUnknownKind),
		errors.Is(err, ErrAlreadyInstantiated), errors.Is(err, ErrNotInstantiated), errors.Is(err, ErrInvalidProtocolFee):
		return CategoryValidation
	case errors.Is(err, token.ErrInsufficientFunds), errors.Is(err, token.ErrNoAllowance), errors.Is(err, token.ErrInsufficientAllowed),
		errors.Is(err, token.ErrInvalidZeroAmount), errors.Is(err, token.ErrCapExceeded):
		return CategoryLedger
	default:
		return CategoryInternal
	}
}
