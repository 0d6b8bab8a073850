package token

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"bondcurve/native/common"
)

// Allowance returns how much spender may still draw from owner.
func (l *Ledger) Allowance(owner, spender string) (*uint256.Int, error) {
	if err := l.withState(); err != nil {
		return nil, err
	}
	stored := new(big.Int)
	ok, err := l.state.KVGet(allowanceKey(owner, spender), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(stored)
}

func (l *Ledger) setAllowance(owner, spender string, amount *uint256.Int) error {
	if amount.IsZero() {
		return l.state.KVDelete(allowanceKey(owner, spender))
	}
	return l.state.KVPut(allowanceKey(owner, spender), amount.ToBig())
}

// IncreaseAllowance raises the spender's allowance and returns the new value.
func (l *Ledger) IncreaseAllowance(owner, spender string, amount *uint256.Int) (*uint256.Int, error) {
	if err := l.withState(); err != nil {
		return nil, err
	}
	if owner == spender {
		return nil, ErrOwnAllowance
	}
	if err := l.validate(spender); err != nil {
		return nil, err
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return nil, err
	}
	next, err := common.Add(current, amount)
	if err != nil {
		return nil, err
	}
	if err := l.setAllowance(owner, spender, next); err != nil {
		return nil, err
	}
	return next, nil
}

// DecreaseAllowance lowers the allowance, removing it once it reaches zero.
func (l *Ledger) DecreaseAllowance(owner, spender string, amount *uint256.Int) (*uint256.Int, error) {
	if err := l.withState(); err != nil {
		return nil, err
	}
	if owner == spender {
		return nil, ErrOwnAllowance
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return nil, err
	}
	next := common.Zero()
	if current.Gt(common.Copy(amount)) {
		if next, err = common.Sub(current, amount); err != nil {
			return nil, err
		}
	}
	if err := l.setAllowance(owner, spender, next); err != nil {
		return nil, err
	}
	return next, nil
}

// DeductAllowance consumes amount from the allowance granted by owner to
// spender. It fails without side effects when the allowance is short.
func (l *Ledger) DeductAllowance(owner, spender string, amount *uint256.Int) error {
	if err := l.withState(); err != nil {
		return err
	}
	current, err := l.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if current.IsZero() {
		return ErrNoAllowance
	}
	next, err := common.Sub(current, amount)
	if err != nil {
		return fmt.Errorf("%w: allowed %s, requested %s", ErrInsufficientAllowed, current.Dec(), common.Copy(amount).Dec())
	}
	return l.setAllowance(owner, spender, next)
}
