package bonding

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"bondcurve/core/events"
	"bondcurve/native/common"
)

func (e *Engine) checkSell(caller string) error {
	safety, err := e.store.SafetyConfig()
	if err != nil {
		return err
	}
	if err := common.Guard(safety.CanSell, caller); err != nil {
		if errors.Is(err, common.ErrGateClosed) {
			return ErrBurnPaused
		}
		return err
	}
	return nil
}

// Sell burns amount of the caller's supply against the curve.
func (e *Engine) Sell(info MessageInfo, amount *uint256.Int) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.checkSell(info.Sender); err != nil {
		return nil, err
	}
	if err := Nonpayable(info); err != nil {
		return nil, err
	}
	return e.sell(info.Sender, "", amount)
}

// SellFrom burns amount of owner's supply on their behalf, consuming the
// allowance owner granted to the caller.
func (e *Engine) SellFrom(info MessageInfo, owner string, amount *uint256.Int) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := Nonpayable(info); err != nil {
		return nil, err
	}
	if err := e.validateAddress(owner); err != nil {
		return nil, err
	}
	if err := e.checkSell(info.Sender); err != nil {
		return nil, err
	}
	if err := e.ledger.DeductAllowance(owner, info.Sender, amount); err != nil {
		return nil, err
	}
	return e.sell(owner, info.Sender, amount)
}

func (e *Engine) sell(holder, spender string, amount *uint256.Int) (*Response, error) {
	if err := common.CheckAmount(amount); err != nil {
		return nil, err
	}
	amount = common.Copy(amount)
	cs, err := e.store.CurveState()
	if err != nil {
		return nil, err
	}
	params, err := e.store.ParamConfig()
	if err != nil {
		return nil, err
	}
	accts, err := e.store.AcctConfig()
	if err != nil {
		return nil, err
	}
	dexfer, err := e.store.DexferConfig()
	if err != nil {
		return nil, err
	}
	curve, err := e.curve(cs)
	if err != nil {
		return nil, err
	}

	if err := e.ledger.Burn(holder, amount); err != nil {
		return nil, err
	}

	if cs.Supply, err = common.Sub(cs.Supply, amount); err != nil {
		return nil, fmt.Errorf("bonding engine: burn exceeds curve supply: %w", err)
	}
	newReserve, err := curve.Reserve(cs.Supply)
	if err != nil {
		return nil, err
	}
	released, err := common.Sub(cs.Reserve, newReserve)
	if err != nil {
		return nil, err
	}
	cs.Reserve = newReserve

	isDexfer := holder == dexfer.DexferManager
	isExempt := holder == dexfer.TaxExempt
	result := &SellResult{
		Seller:      holder,
		Spender:     spender,
		Dexfer:      isDexfer,
		Burned:      amount,
		Released:    released,
		Tax:         zeroTax(),
		NetReleased: common.Zero(),
	}

	if !isDexfer && !isExempt {
		tax, err := common.PerMille(released, uint64(params.TaxPercent))
		if err != nil {
			return nil, err
		}
		split, err := SplitTax(tax, params)
		if err != nil {
			return nil, err
		}
		for _, addr := range []string{accts.YieldAcct, accts.BurnAcct, accts.SocialAcct, accts.ExpenseAcct} {
			if err := e.validateAddress(addr); err != nil {
				return nil, err
			}
		}
		if cs.TaxCollected, err = common.Add(cs.TaxCollected, split.Total); err != nil {
			return nil, err
		}
		result.Tax = split
	}

	resp := &Response{Action: "burn", Sell: result}
	if spender != "" {
		resp.Action = "burn_from"
	}
	if isDexfer {
		resp.Transfers = append(resp.Transfers, Transfer{To: dexfer.DexferManager, Denom: cs.ReserveDenom, Amount: uint256.NewInt(DexferMarker)})
	} else {
		if err := e.validateAddress(accts.UnstakeAcct); err != nil {
			return nil, err
		}
		resp.Transfers = append(resp.Transfers, Transfer{To: accts.UnstakeAcct, Denom: cs.ReserveDenom, Amount: uint256.NewInt(UnstakeMarker)})
	}

	if err := e.store.SaveCurveState(cs); err != nil {
		return nil, err
	}

	resp.addAttribute("action", resp.Action)
	resp.addAttribute("from", holder)
	if spender != "" {
		resp.addAttribute("by", spender)
	}
	resp.addAttribute("burned", amountString(amount))
	resp.addAttribute("released", amountString(released))
	resp.addAttribute("tax", amountString(result.Tax.Total))
	resp.addAttribute("net_released", amountString(result.NetReleased))
	resp.addAttribute("unstake_period", UnstakePeriod)

	e.emit(events.BondingSell{
		Seller:   holder,
		Spender:  spender,
		Burned:   amount.ToBig(),
		Released: released.ToBig(),
		Tax:      result.Tax.Total.ToBig(),
		Reserve:  cs.Reserve.ToBig(),
		Supply:   cs.Supply.ToBig(),
	})
	return resp, nil
}
