package bonding

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"bondcurve/core/events"
	"bondcurve/native/common"
)

type buyContext struct {
	state  *CurveState
	params ParamConfig
	accts  AcctConfig
	dexfer DexferConfig
}

func (e *Engine) loadBuyContext() (*buyContext, error) {
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
	return &buyContext{state: cs, params: params, accts: accts, dexfer: dexfer}, nil
}

// Buy exchanges the attached reserve payment for newly minted supply. An
// empty affiliate skips the affiliate reward.
func (e *Engine) Buy(info MessageInfo, affiliate string) (*Response, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	safety, err := e.store.SafetyConfig()
	if err != nil {
		return nil, err
	}
	if err := common.Guard(safety.CanBuy, info.Sender); err != nil {
		if errors.Is(err, common.ErrGateClosed) {
			return nil, ErrMintPaused
		}
		return nil, err
	}
	ctx, err := e.loadBuyContext()
	if err != nil {
		return nil, err
	}
	cs := ctx.state
	gross, err := MustPay(info, cs.ReserveDenom)
	if err != nil {
		return nil, err
	}
	curve, err := e.curve(cs)
	if err != nil {
		return nil, err
	}

	isDexfer := info.Sender == ctx.dexfer.DexferManager
	isExempt := info.Sender == ctx.dexfer.TaxExempt
	presale := ctx.params.PresalePrice != 0

	if presale && !isDexfer {
		spot, err := curve.SpotPrice(cs.Supply)
		if err != nil {
			return nil, err
		}
		if uint256.NewInt(uint64(ctx.params.PresalePrice)).Lt(spot) {
			return nil, ErrPresaleOver
		}
	}

	payment, err := common.MulDiv(gross, uint256.NewInt(1000-e.protocolFee), uint256.NewInt(1000))
	if err != nil {
		return nil, err
	}
	fee, err := common.Sub(gross, payment)
	if err != nil {
		return nil, err
	}

	result := &BuyResult{
		Buyer:           info.Sender,
		Affiliate:       affiliate,
		Presale:         presale && !isDexfer,
		Dexfer:          isDexfer,
		GrossIn:         common.Copy(gross),
		ProtocolFee:     fee,
		Tax:             zeroTax(),
		AffiliateReward: common.Zero(),
		Deposit:         common.Zero(),
		DexTransfer:     common.Zero(),
		Staked:          common.Zero(),
		PresaleFund:     common.Zero(),
	}
	resp := &Response{Action: "buy", Buy: result}
	denom := cs.ReserveDenom

	if !presale && !isDexfer && !isExempt {
		tax, err := common.PerMille(payment, uint64(ctx.params.TaxPercent))
		if err != nil {
			return nil, err
		}
		split, err := SplitTax(tax, ctx.params)
		if err != nil {
			return nil, err
		}
		for _, addr := range []string{ctx.accts.YieldAcct, ctx.accts.BurnAcct, ctx.accts.SocialAcct, ctx.accts.ExpenseAcct} {
			if err := e.validateAddress(addr); err != nil {
				return nil, err
			}
		}
		if cs.TaxCollected, err = common.Add(cs.TaxCollected, split.Total); err != nil {
			return nil, err
		}
		resp.Transfers = append(resp.Transfers,
			Transfer{To: ctx.accts.YieldAcct, Denom: denom, Amount: split.Yield},
			Transfer{To: ctx.accts.BurnAcct, Denom: denom, Amount: split.Burn},
			Transfer{To: ctx.accts.SocialAcct, Denom: denom, Amount: split.Social},
			Transfer{To: ctx.accts.ExpenseAcct, Denom: denom, Amount: split.Expense},
		)
		if payment, err = common.Sub(payment, split.Total); err != nil {
			return nil, err
		}
		result.Tax = split
	}

	if affiliate != "" && !isDexfer && !isExempt {
		if err := e.validateAddress(affiliate); err != nil {
			return nil, err
		}
		reward, err := common.PerMille(payment, uint64(ctx.params.AffiliatePercent))
		if err != nil {
			return nil, err
		}
		resp.Transfers = append(resp.Transfers, Transfer{To: affiliate, Denom: denom, Amount: reward})
		if payment, err = common.Sub(payment, reward); err != nil {
			return nil, err
		}
		result.AffiliateReward = reward
	}

	var minted *uint256.Int
	if !presale || isDexfer {
		if cs.Reserve, err = common.Add(cs.Reserve, payment); err != nil {
			return nil, err
		}
		newSupply, err := curve.Supply(cs.Reserve)
		if err != nil {
			return nil, err
		}
		if minted, err = common.Sub(newSupply, cs.Supply); err != nil {
			return nil, fmt.Errorf("bonding engine: curve supply fell below current supply: %w", err)
		}
		cs.Supply = newSupply
	} else {
		price := uint256.NewInt(uint64(ctx.params.PresalePrice))
		minimum, err := common.Mul(price, uint256.NewInt(2))
		if err != nil {
			return nil, err
		}
		if payment.Lt(minimum) {
			return nil, fmt.Errorf("%w: need at least %s %s after fees", ErrTooLittle, minimum.Dec(), denom)
		}
		if minted, err = presaleMint(payment, price, cs.Decimals.Supply); err != nil {
			return nil, err
		}
		before, err := curve.Reserve(cs.Supply)
		if err != nil {
			return nil, err
		}
		newSupply, err := common.Add(cs.Supply, minted)
		if err != nil {
			return nil, err
		}
		after, err := curve.Reserve(newSupply)
		if err != nil {
			return nil, err
		}
		delta, err := common.Sub(after, before)
		if err != nil {
			return nil, err
		}
		fund, err := common.Sub(payment, delta)
		if err != nil {
			return nil, fmt.Errorf("bonding engine: presale price below curve price: %w", err)
		}
		if cs.Reserve, err = common.Add(cs.Reserve, delta); err != nil {
			return nil, err
		}
		cs.Supply = newSupply
		if err := e.validateAddress(ctx.accts.PresaleAcct); err != nil {
			return nil, err
		}
		resp.Transfers = append(resp.Transfers, Transfer{To: ctx.accts.PresaleAcct, Denom: denom, Amount: fund})
		result.PresaleFund = fund
		payment = delta
	}

	if isDexfer {
		deposit, err := common.PerMille(payment, uint64(ctx.dexfer.DepositPercent))
		if err != nil {
			return nil, err
		}
		returned, err := common.Sub(payment, deposit)
		if err != nil {
			return nil, err
		}
		resp.Transfers = append(resp.Transfers, Transfer{To: ctx.dexfer.DexferManager, Denom: denom, Amount: returned})
		result.Deposit = deposit
		result.DexTransfer = returned
	} else {
		if err := e.validateAddress(ctx.accts.StakeAcct); err != nil {
			return nil, err
		}
		resp.Transfers = append(resp.Transfers, Transfer{To: ctx.accts.StakeAcct, Denom: denom, Amount: payment})
		result.Staked = payment
	}

	if ctx.dexfer.TokenMinter != ContractMinter {
		return nil, ErrWrongMinter
	}
	if err := e.store.SaveCurveState(cs); err != nil {
		return nil, err
	}
	if err := e.ledger.Mint(e.contract, info.Sender, minted); err != nil {
		return nil, err
	}
	result.Minted = minted
	resp.Mint = &MintInstruction{Recipient: info.Sender, Amount: common.Copy(minted)}

	resp.addAttribute("action", "buy")
	resp.addAttribute("from", info.Sender)
	resp.addAttribute("gross_in", amountString(gross))
	resp.addAttribute("tax", amountString(result.Tax.Total))
	if affiliate != "" && !isDexfer && !isExempt {
		resp.addAttribute("affiliate_reward", amountString(result.AffiliateReward))
	}
	if isDexfer {
		resp.addAttribute("deposit", amountString(result.Deposit))
		resp.addAttribute("dex_transfer", amountString(result.DexTransfer))
	} else {
		resp.addAttribute("staked", amountString(result.Staked))
	}
	if result.Presale {
		resp.addAttribute("presale_fund", amountString(result.PresaleFund))
	}
	resp.addAttribute("minted", amountString(minted))

	e.emit(events.BondingBuy{
		Buyer:     info.Sender,
		Affiliate: affiliate,
		Presale:   result.Presale,
		Dexfer:    isDexfer,
		GrossIn:   gross.ToBig(),
		Tax:       result.Tax.Total.ToBig(),
		Reward:    result.AffiliateReward.ToBig(),
		Staked:    result.Staked.ToBig(),
		Minted:    minted.ToBig(),
		Reserve:   cs.Reserve.ToBig(),
		Supply:    cs.Supply.ToBig(),
	})
	return resp, nil
}

// presaleMint converts a payment into supply units at the fixed presale
// price, quoted in reserve units per whole token.
func presaleMint(payment, price *uint256.Int, supplyDecimals uint32) (*uint256.Int, error) {
	scaled, err := common.Mul(payment, uint256.NewInt(100))
	if err != nil {
		return nil, err
	}
	whole, err := common.Div(scaled, price)
	if err != nil {
		return nil, err
	}
	units := whole
	for i := uint32(0); i < supplyDecimals; i++ {
		if units, err = common.Mul(units, uint256.NewInt(10)); err != nil {
			return nil, err
		}
	}
	return common.Div(units, uint256.NewInt(100))
}
