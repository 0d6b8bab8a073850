package bonding

import (
	"github.com/holiman/uint256"

	"bondcurve/native/common"
)

// OneCoin returns the single non-zero coin attached to the call.
func OneCoin(info MessageInfo) (Coin, error) {
	switch len(info.Funds) {
	case 0:
		return Coin{}, ErrNoFunds
	case 1:
		coin := info.Funds[0]
		if common.IsZero(coin.Amount) {
			return Coin{}, ErrNoFunds
		}
		return Coin{Denom: coin.Denom, Amount: common.Copy(coin.Amount)}, nil
	default:
		return Coin{}, ErrMultipleDenoms
	}
}

// MustPay returns the amount paid in denom, rejecting any other payment.
func MustPay(info MessageInfo, denom string) (*uint256.Int, error) {
	coin, err := OneCoin(info)
	if err != nil {
		return nil, err
	}
	if coin.Denom != denom {
		return nil, &PaymentError{Kind: PaymentMissingDenom, Denom: denom}
	}
	if err := common.CheckAmount(coin.Amount); err != nil {
		return nil, err
	}
	return coin.Amount, nil
}

// Nonpayable rejects calls that carry funds.
func Nonpayable(info MessageInfo) error {
	if len(info.Funds) != 0 {
		return ErrNonPayable
	}
	return nil
}
