package bonding

import (
	"github.com/holiman/uint256"

	"bondcurve/native/bonding/curves"
	"bondcurve/native/common"
)

// CurveInfo reports the settlement record together with the current spot
// price.
func (e *Engine) CurveInfo() (*CurveInfo, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	cs, err := e.store.CurveState()
	if err != nil {
		return nil, err
	}
	curve, err := e.curve(cs)
	if err != nil {
		return nil, err
	}
	spot, err := curve.SpotPrice(cs.Supply)
	if err != nil {
		return nil, err
	}
	return &CurveInfo{
		Reserve:      cs.Reserve,
		Supply:       cs.Supply,
		SpotPrice:    spot,
		ReserveDenom: cs.ReserveDenom,
		TaxCollected: cs.TaxCollected,
	}, nil
}

// CurveState returns the raw settlement record.
func (e *Engine) CurveState() (*CurveState, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.store.CurveState()
}

// CurveType returns the configured curve.
func (e *Engine) CurveType() (curves.CurveType, error) {
	if e == nil || e.store == nil {
		return curves.CurveType{}, errNilState
	}
	return e.store.CurveType()
}

func (e *Engine) ParamInfo() (ParamConfig, error) {
	if e == nil || e.store == nil {
		return ParamConfig{}, errNilState
	}
	return e.store.ParamConfig()
}

func (e *Engine) AcctInfo() (AcctConfig, error) {
	if e == nil || e.store == nil {
		return AcctConfig{}, errNilState
	}
	return e.store.AcctConfig()
}

func (e *Engine) DexferInfo() (DexferConfig, error) {
	if e == nil || e.store == nil {
		return DexferConfig{}, errNilState
	}
	return e.store.DexferConfig()
}

func (e *Engine) SafetyInfo() (SafetyConfig, error) {
	if e == nil || e.store == nil {
		return SafetyConfig{}, errNilState
	}
	return e.store.SafetyConfig()
}

// Quote estimates the supply a curve-mode buy of payment would mint at the
// current state, before tax and affiliate deductions.
func (e *Engine) Quote(payment *uint256.Int) (*uint256.Int, error) {
	cs, err := e.CurveState()
	if err != nil {
		return nil, err
	}
	curve, err := e.curve(cs)
	if err != nil {
		return nil, err
	}
	return QuoteMint(curve, cs.Reserve, cs.Supply, payment, e.protocolFee)
}

// QuoteMint prices a curve-mode buy against an explicit reserve and supply.
// The protocol fee is withheld first; a curve whose inverse lands below the
// current supply quotes zero.
func QuoteMint(curve curves.Curve, reserve, supply, payment *uint256.Int, feePermille uint64) (*uint256.Int, error) {
	if feePermille > 1000 {
		return nil, ErrInvalidProtocolFee
	}
	if err := common.CheckAmount(payment); err != nil {
		return nil, err
	}
	net, err := common.MulDiv(payment, uint256.NewInt(1000-feePermille), uint256.NewInt(1000))
	if err != nil {
		return nil, err
	}
	nextReserve, err := common.Add(reserve, net)
	if err != nil {
		return nil, err
	}
	nextSupply, err := curve.Supply(nextReserve)
	if err != nil {
		return nil, err
	}
	if nextSupply.Lt(supply) {
		return common.Zero(), nil
	}
	return common.Sub(nextSupply, supply)
}
