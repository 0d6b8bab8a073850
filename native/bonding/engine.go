package bonding

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"bondcurve/core/events"
	"bondcurve/crypto"
	"bondcurve/native/bonding/curves"
	"bondcurve/native/common"
	"bondcurve/native/token"
)

// TokenLedger is the token collaborator the engine mints and burns through.
type TokenLedger interface {
	Instantiate(info token.Info) error
	TokenInfo() (*token.Info, error)
	Mint(sender, recipient string, amount *uint256.Int) error
	Burn(holder string, amount *uint256.Int) error
	DeductAllowance(owner, spender string, amount *uint256.Int) error
	UpdateMinter(minter *string) (*token.Info, error)
}

// Engine settles buys and sells against the configured bonding curve.
type Engine struct {
	contract    string
	store       *Store
	ledger      TokenLedger
	emitter     events.Emitter
	protocolFee uint64
	validate    func(string) error
}

// NewEngine constructs an engine acting as the contract at the given address.
func NewEngine(contract string) *Engine {
	return &Engine{
		contract:    contract,
		emitter:     events.NoopEmitter{},
		protocolFee: DefaultProtocolFee,
		validate:    crypto.ValidateAddress,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.store = NewStore(state) }

// SetLedger configures the token ledger.
func (e *Engine) SetLedger(ledger TokenLedger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetProtocolFee overrides the per-mille fee withheld from every buy.
func (e *Engine) SetProtocolFee(permille uint64) error {
	if permille > 1000 {
		return fmt.Errorf("%w: %d", ErrInvalidProtocolFee, permille)
	}
	e.protocolFee = permille
	return nil
}

// ProtocolFee returns the per-mille buy fee.
func (e *Engine) ProtocolFee() uint64 { return e.protocolFee }

// SetAddressValidator overrides the destination address check.
func (e *Engine) SetAddressValidator(fn func(string) error) {
	if fn == nil {
		fn = crypto.ValidateAddress
	}
	e.validate = fn
}

// Contract returns the address the engine mints as.
func (e *Engine) Contract() string { return e.contract }

func (e *Engine) ready() error {
	if e == nil || e.store == nil || e.store.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if strings.TrimSpace(e.contract) == "" {
		return errNoContract
	}
	return nil
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) validateAddress(addr string) error {
	if err := e.validate(addr); err != nil {
		return fmt.Errorf("%w: %q", crypto.ErrInvalidAddress, addr)
	}
	return nil
}

func (e *Engine) curve(cs *CurveState) (curves.Curve, error) {
	ct, err := e.store.CurveType()
	if err != nil {
		return nil, err
	}
	return curves.Resolve(ct, cs.Decimals)
}

// Instantiate writes the default policy records, an empty curve state and
// the token info naming the contract as minter. The sender becomes owner.
func (e *Engine) Instantiate(info MessageInfo, msg InstantiateMsg) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := Nonpayable(info); err != nil {
		return nil, err
	}
	exists, err := e.store.Instantiated()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInstantiated
	}
	if err := msg.CurveType.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(msg.ReserveDenom) == "" {
		return nil, fmt.Errorf("%w: reserve denom required", curves.ErrInvalidCurve)
	}
	if err := e.validateAddress(info.Sender); err != nil {
		return nil, err
	}
	if err := e.ledger.Instantiate(token.Info{
		Name:     msg.Name,
		Symbol:   msg.Symbol,
		Decimals: msg.Decimals,
		Minter:   e.contract,
	}); err != nil {
		return nil, err
	}

	places := curves.NewDecimalPlaces(msg.Decimals, msg.ReserveDecimals)
	if err := e.store.SaveCurveState(NewCurveState(msg.ReserveDenom, places)); err != nil {
		return nil, err
	}
	if err := e.store.SaveCurveType(msg.CurveType); err != nil {
		return nil, err
	}
	if err := e.store.SaveParamConfig(ParamConfig{PresalePrice: DefaultPresalePrice}); err != nil {
		return nil, err
	}
	if err := e.store.SaveAcctConfig(AcctConfig{
		Owner:       info.Sender,
		PresaleAcct: PlaceholderAccount,
		YieldAcct:   PlaceholderAccount,
		BurnAcct:    PlaceholderAccount,
		SocialAcct:  PlaceholderAccount,
		ExpenseAcct: PlaceholderAccount,
		StakeAcct:   PlaceholderAccount,
		UnstakeAcct: PlaceholderAccount,
	}); err != nil {
		return nil, err
	}
	if err := e.store.SaveDexferConfig(DexferConfig{
		DexferManager: PlaceholderAccount,
		TaxExempt:     PlaceholderAccount,
		TokenMinter:   ContractMinter,
	}); err != nil {
		return nil, err
	}
	if err := e.store.SaveSafetyConfig(SafetyConfig{CanBuy: info.Sender, CanSell: info.Sender}); err != nil {
		return nil, err
	}

	resp := &Response{Action: "instantiate"}
	resp.addAttribute("action", "instantiate")
	resp.addAttribute("owner", info.Sender)
	resp.addAttribute("curve", msg.CurveType.Kind.String())
	resp.addAttribute("reserve_denom", msg.ReserveDenom)
	return resp, nil
}

func amountString(a *uint256.Int) string {
	return common.Copy(a).Dec()
}
