package bonding

import (
	"bondcurve/core/events"
)

func (e *Engine) requireOwner(info MessageInfo) (AcctConfig, error) {
	if err := e.ready(); err != nil {
		return AcctConfig{}, err
	}
	accts, err := e.store.AcctConfig()
	if err != nil {
		return AcctConfig{}, err
	}
	if info.Sender == "" || info.Sender != accts.Owner {
		return AcctConfig{}, ErrUnauthorized
	}
	return accts, nil
}

func (e *Engine) configUpdated(record, owner string) *Response {
	e.emit(events.BondingConfigUpdated{Record: record, Owner: owner})
	resp := &Response{Action: "update_" + record}
	resp.addAttribute("action", resp.Action)
	resp.addAttribute("owner", owner)
	return resp
}

// UpdateParamConfig replaces the fee percentages and presale price.
func (e *Engine) UpdateParamConfig(info MessageInfo, cfg ParamConfig) (*Response, error) {
	if _, err := e.requireOwner(info); err != nil {
		return nil, err
	}
	if err := e.store.SaveParamConfig(cfg); err != nil {
		return nil, err
	}
	return e.configUpdated("param_config", info.Sender), nil
}

// UpdateAcctConfig replaces the fee routing. The owner cannot be changed.
func (e *Engine) UpdateAcctConfig(info MessageInfo, routing AcctRouting) (*Response, error) {
	accts, err := e.requireOwner(info)
	if err != nil {
		return nil, err
	}
	next := AcctConfig{
		Owner:       accts.Owner,
		PresaleAcct: routing.PresaleAcct,
		YieldAcct:   routing.YieldAcct,
		BurnAcct:    routing.BurnAcct,
		SocialAcct:  routing.SocialAcct,
		ExpenseAcct: routing.ExpenseAcct,
		StakeAcct:   routing.StakeAcct,
		UnstakeAcct: routing.UnstakeAcct,
	}
	if err := e.store.SaveAcctConfig(next); err != nil {
		return nil, err
	}
	return e.configUpdated("acct_config", info.Sender), nil
}

// UpdateDexferConfig replaces the liquidity-transfer configuration.
func (e *Engine) UpdateDexferConfig(info MessageInfo, cfg DexferConfig) (*Response, error) {
	if _, err := e.requireOwner(info); err != nil {
		return nil, err
	}
	if err := e.store.SaveDexferConfig(cfg); err != nil {
		return nil, err
	}
	return e.configUpdated("dexfer_config", info.Sender), nil
}

// UpdateSafetyConfig replaces the buy and sell switches.
func (e *Engine) UpdateSafetyConfig(info MessageInfo, cfg SafetyConfig) (*Response, error) {
	if _, err := e.requireOwner(info); err != nil {
		return nil, err
	}
	if err := e.store.SaveSafetyConfig(cfg); err != nil {
		return nil, err
	}
	return e.configUpdated("safety_config", info.Sender), nil
}

// UpdateMinter reassigns the token minter. A nil minter removes it and
// cannot be undone.
func (e *Engine) UpdateMinter(info MessageInfo, minter *string) (*Response, error) {
	if _, err := e.requireOwner(info); err != nil {
		return nil, err
	}
	updated, err := e.ledger.UpdateMinter(minter)
	if err != nil {
		return nil, err
	}
	e.emit(events.BondingMinterUpdated{Minter: updated.Minter})
	resp := &Response{Action: "update_minter"}
	resp.addAttribute("action", resp.Action)
	if updated.Minter == "" {
		resp.addAttribute("new_minter", "None")
	} else {
		resp.addAttribute("new_minter", updated.Minter)
	}
	return resp, nil
}
