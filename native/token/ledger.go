package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"bondcurve/crypto"
	"bondcurve/native/common"
)

var (
	ErrNotInitialized      = errors.New("token ledger: token not initialised")
	ErrAlreadyInitialized  = errors.New("token ledger: token already initialised")
	ErrInvalidZeroAmount   = errors.New("token ledger: invalid zero amount")
	ErrInsufficientFunds   = errors.New("token ledger: insufficient balance")
	ErrNoAllowance         = errors.New("token ledger: no allowance for this account")
	ErrInsufficientAllowed = errors.New("token ledger: allowance exceeded")
	ErrOwnAllowance        = errors.New("token ledger: cannot set allowance to own account")
	ErrUnauthorized        = errors.New("token ledger: unauthorized")
	ErrCapExceeded         = errors.New("token ledger: minting cannot exceed the cap")
)

var (
	infoKey         = []byte("token/info")
	balancePrefix   = "token/balance/"
	allowancePrefix = "token/allowance/"
)

// State is the keyed record store the ledger persists into.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Info describes the supply token. Minter is empty when minting has been
// disabled; Cap is nil when uncapped.
type Info struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *uint256.Int
	Minter      string
	Cap         *uint256.Int
}

type storedInfo struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply *big.Int
	HasMinter   bool
	Minter      string
	HasCap      bool
	Cap         *big.Int
}

// Ledger keeps cw20-style balances, allowances and minter data.
type Ledger struct {
	state    State
	validate func(string) error
}

func NewLedger(state State) *Ledger {
	return &Ledger{state: state, validate: crypto.ValidateAddress}
}

// SetAddressValidator overrides the recipient address check.
func (l *Ledger) SetAddressValidator(fn func(string) error) {
	if fn == nil {
		fn = crypto.ValidateAddress
	}
	l.validate = fn
}

func balanceKey(addr string) []byte {
	return []byte(balancePrefix + addr)
}

func allowanceKey(owner, spender string) []byte {
	return []byte(allowancePrefix + owner + "/" + spender)
}

func (l *Ledger) withState() error {
	if l == nil || l.state == nil {
		return fmt.Errorf("token ledger: state not configured")
	}
	return nil
}

// Instantiate stores the token info. The total supply always starts at zero.
func (l *Ledger) Instantiate(info Info) error {
	if err := l.withState(); err != nil {
		return err
	}
	if ok, err := l.state.KVGet(infoKey, nil); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	if strings.TrimSpace(info.Name) == "" || strings.TrimSpace(info.Symbol) == "" {
		return fmt.Errorf("token ledger: name and symbol required")
	}
	info.TotalSupply = common.Zero()
	return l.saveInfo(&info)
}

// TokenInfo returns the stored token info.
func (l *Ledger) TokenInfo() (*Info, error) {
	if err := l.withState(); err != nil {
		return nil, err
	}
	var stored storedInfo
	ok, err := l.state.KVGet(infoKey, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	total, err := common.FromBig(stored.TotalSupply)
	if err != nil {
		return nil, err
	}
	info := &Info{
		Name:        stored.Name,
		Symbol:      stored.Symbol,
		Decimals:    stored.Decimals,
		TotalSupply: total,
	}
	if stored.HasMinter {
		info.Minter = stored.Minter
	}
	if stored.HasCap {
		if info.Cap, err = common.FromBig(stored.Cap); err != nil {
			return nil, err
		}
	}
	return info, nil
}

func (l *Ledger) saveInfo(info *Info) error {
	stored := storedInfo{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: common.Copy(info.TotalSupply).ToBig(),
		HasMinter:   info.Minter != "",
		Minter:      info.Minter,
		Cap:         new(big.Int),
	}
	if info.Cap != nil {
		stored.HasCap = true
		stored.Cap = info.Cap.ToBig()
	}
	return l.state.KVPut(infoKey, stored)
}

// Balance returns the balance held by addr.
func (l *Ledger) Balance(addr string) (*uint256.Int, error) {
	if err := l.withState(); err != nil {
		return nil, err
	}
	stored := new(big.Int)
	ok, err := l.state.KVGet(balanceKey(addr), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(stored)
}

func (l *Ledger) setBalance(addr string, amount *uint256.Int) error {
	if amount.IsZero() {
		return l.state.KVDelete(balanceKey(addr))
	}
	return l.state.KVPut(balanceKey(addr), amount.ToBig())
}

// Mint credits amount to recipient. Only the configured minter may mint.
func (l *Ledger) Mint(sender, recipient string, amount *uint256.Int) error {
	if err := l.withState(); err != nil {
		return err
	}
	if common.IsZero(amount) {
		return ErrInvalidZeroAmount
	}
	info, err := l.TokenInfo()
	if err != nil {
		return err
	}
	if info.Minter == "" || info.Minter != sender {
		return ErrUnauthorized
	}
	total, err := common.Add(info.TotalSupply, amount)
	if err != nil {
		return err
	}
	if info.Cap != nil && total.Gt(info.Cap) {
		return ErrCapExceeded
	}
	if err := l.validate(recipient); err != nil {
		return err
	}
	balance, err := l.Balance(recipient)
	if err != nil {
		return err
	}
	next, err := common.Add(balance, amount)
	if err != nil {
		return err
	}
	if err := l.setBalance(recipient, next); err != nil {
		return err
	}
	info.TotalSupply = total
	return l.saveInfo(info)
}

// Burn removes amount from holder and from the total supply.
func (l *Ledger) Burn(holder string, amount *uint256.Int) error {
	if err := l.withState(); err != nil {
		return err
	}
	if common.IsZero(amount) {
		return ErrInvalidZeroAmount
	}
	balance, err := l.Balance(holder)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, balance.Dec(), amount.Dec())
	}
	info, err := l.TokenInfo()
	if err != nil {
		return err
	}
	total, err := common.Sub(info.TotalSupply, amount)
	if err != nil {
		return err
	}
	next, err := common.Sub(balance, amount)
	if err != nil {
		return err
	}
	if err := l.setBalance(holder, next); err != nil {
		return err
	}
	info.TotalSupply = total
	return l.saveInfo(info)
}

// Transfer moves amount from sender to recipient.
func (l *Ledger) Transfer(sender, recipient string, amount *uint256.Int) error {
	if err := l.withState(); err != nil {
		return err
	}
	if common.IsZero(amount) {
		return ErrInvalidZeroAmount
	}
	if err := l.validate(recipient); err != nil {
		return err
	}
	from, err := l.Balance(sender)
	if err != nil {
		return err
	}
	if from.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientFunds, from.Dec(), amount.Dec())
	}
	remaining, err := common.Sub(from, amount)
	if err != nil {
		return err
	}
	if err := l.setBalance(sender, remaining); err != nil {
		return err
	}
	to, err := l.Balance(recipient)
	if err != nil {
		return err
	}
	credited, err := common.Add(to, amount)
	if err != nil {
		return err
	}
	return l.setBalance(recipient, credited)
}

// UpdateMinter replaces the minter. A nil minter disables minting for good;
// once disabled the minter can no longer be changed.
func (l *Ledger) UpdateMinter(newMinter *string) (*Info, error) {
	info, err := l.TokenInfo()
	if err != nil {
		return nil, err
	}
	if info.Minter == "" {
		return nil, ErrUnauthorized
	}
	if newMinter == nil {
		info.Minter = ""
		info.Cap = nil
	} else {
		if err := l.validate(*newMinter); err != nil {
			return nil, err
		}
		info.Minter = *newMinter
	}
	if err := l.saveInfo(info); err != nil {
		return nil, err
	}
	return info, nil
}
