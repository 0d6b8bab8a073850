package events

import (
	"math/big"

	"bondcurve/core/types"
)

const (
	// TypeBondingBuy is emitted when reserve tokens are exchanged for minted supply.
	TypeBondingBuy = "bonding.buy"
	// TypeBondingSell is emitted when supply is burned against the curve.
	TypeBondingSell = "bonding.sell"
	// TypeBondingConfig is emitted when the owner replaces a policy record.
	TypeBondingConfig = "bonding.config"
	// TypeBondingMinter is emitted when the token minter changes.
	TypeBondingMinter = "bonding.minter"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// BondingBuy summarises a settled buy.
type BondingBuy struct {
	Buyer     string
	Affiliate string
	Presale   bool
	Dexfer    bool
	GrossIn   *big.Int
	Tax       *big.Int
	Reward    *big.Int
	Staked    *big.Int
	Minted    *big.Int
	Reserve   *big.Int
	Supply    *big.Int
}

func (BondingBuy) EventType() string { return TypeBondingBuy }

func (e BondingBuy) Event() *types.Event {
	mode := "curve"
	switch {
	case e.Dexfer:
		mode = "dexfer"
	case e.Presale:
		mode = "presale"
	}
	return &types.Event{
		Type: TypeBondingBuy,
		Attributes: map[string]string{
			"buyer":     e.Buyer,
			"affiliate": e.Affiliate,
			"mode":      mode,
			"grossIn":   amountString(e.GrossIn),
			"tax":       amountString(e.Tax),
			"reward":    amountString(e.Reward),
			"staked":    amountString(e.Staked),
			"minted":    amountString(e.Minted),
			"reserve":   amountString(e.Reserve),
			"supply":    amountString(e.Supply),
		},
	}
}

// BondingSell summarises a settled sell.
type BondingSell struct {
	Seller   string
	Spender  string
	Burned   *big.Int
	Released *big.Int
	Tax      *big.Int
	Reserve  *big.Int
	Supply   *big.Int
}

func (BondingSell) EventType() string { return TypeBondingSell }

func (e BondingSell) Event() *types.Event {
	attrs := map[string]string{
		"seller":   e.Seller,
		"burned":   amountString(e.Burned),
		"released": amountString(e.Released),
		"tax":      amountString(e.Tax),
		"reserve":  amountString(e.Reserve),
		"supply":   amountString(e.Supply),
	}
	if e.Spender != "" {
		attrs["spender"] = e.Spender
	}
	return &types.Event{Type: TypeBondingSell, Attributes: attrs}
}

// BondingConfigUpdated records which policy record the owner replaced.
type BondingConfigUpdated struct {
	Record string
	Owner  string
}

func (BondingConfigUpdated) EventType() string { return TypeBondingConfig }

func (e BondingConfigUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingConfig,
		Attributes: map[string]string{
			"record": e.Record,
			"owner":  e.Owner,
		},
	}
}

// BondingMinterUpdated records a minter change. An empty Minter means the
// minter was cleared.
type BondingMinterUpdated struct {
	Minter string
}

func (BondingMinterUpdated) EventType() string { return TypeBondingMinter }

func (e BondingMinterUpdated) Event() *types.Event {
	return &types.Event{
		Type:       TypeBondingMinter,
		Attributes: map[string]string{"minter": e.Minter},
	}
}

// Buffer collects events until the caller decides to flush or drop them.
type Buffer struct {
	events []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards buffered events to target and empties the buffer.
func (b *Buffer) Flush(target Emitter) {
	if b == nil {
		return
	}
	if target != nil {
		for _, evt := range b.events {
			target.Emit(evt)
		}
	}
	b.events = nil
}

// Reset drops buffered events.
func (b *Buffer) Reset() {
	if b != nil {
		b.events = nil
	}
}
