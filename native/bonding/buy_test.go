package bonding

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"bondcurve/core/events"
	"bondcurve/crypto"
	"bondcurve/native/common"
)

func transferAmounts(resp *Response) map[string]uint64 {
	out := make(map[string]uint64, len(resp.Transfers))
	for _, tr := range resp.Transfers {
		out[tr.To] += tr.Amount.Uint64()
	}
	return out
}

func TestBuyLinearScenario(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.engine.Buy(pay(buyerAddr, 5000), "")
	require.NoError(t, err)

	cs := env.curveState(t)
	require.Equal(t, uint64(5000), cs.Reserve.Uint64())
	require.Equal(t, uint64(100), cs.Supply.Uint64())
	require.Equal(t, uint64(100), env.balance(t, buyerAddr))

	require.NotNil(t, resp.Mint)
	require.Equal(t, buyerAddr, resp.Mint.Recipient)
	require.Equal(t, uint64(100), resp.Mint.Amount.Uint64())
	require.Equal(t, "buy", attr(t, resp, "action"))
	require.Equal(t, buyerAddr, attr(t, resp, "from"))
	require.Equal(t, "5000", attr(t, resp, "gross_in"))
	require.Equal(t, "0", attr(t, resp, "tax"))
	require.Equal(t, "5000", attr(t, resp, "staked"))
	require.Equal(t, "100", attr(t, resp, "minted"))

	// Four zero tax transfers followed by the stake transfer.
	require.Len(t, resp.Transfers, 5)
	last := resp.Transfers[4]
	require.Equal(t, routing.StakeAcct, last.To)
	require.Equal(t, testDenom, last.Denom)
	require.Equal(t, uint64(5000), last.Amount.Uint64())

	emitted := env.events.Events()
	require.Len(t, emitted, 1)
	buy, ok := emitted[0].(events.BondingBuy)
	require.True(t, ok)
	require.Equal(t, "100", buy.Minted.String())
	require.Equal(t, "curve", buy.Event().Attributes["mode"])
}

func TestBuyProtocolFee(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.engine.SetProtocolFee(DefaultProtocolFee))

	resp, err := env.engine.Buy(pay(buyerAddr, 5000), "")
	require.NoError(t, err)

	// 5000 * 995 / 1000 = 4975 enters the curve; floor(sqrt(9950)) = 99.
	require.Equal(t, uint64(25), resp.Buy.ProtocolFee.Uint64())
	require.Equal(t, "4975", attr(t, resp, "staked"))
	require.Equal(t, "99", attr(t, resp, "minted"))
	cs := env.curveState(t)
	require.Equal(t, uint64(4975), cs.Reserve.Uint64())
	require.Equal(t, uint64(99), cs.Supply.Uint64())
}

func TestBuyTaxAndAffiliate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{
		YieldPercent:     250,
		BurnPercent:      250,
		SocialPercent:    250,
		TaxPercent:       100,
		AffiliatePercent: 100,
	})
	require.NoError(t, err)

	resp, err := env.engine.Buy(pay(buyerAddr, 5000), affAddr)
	require.NoError(t, err)

	// tax 500 split 125 each, affiliate 10% of 4500, 4050 enters the curve.
	amounts := transferAmounts(resp)
	require.Equal(t, uint64(125), amounts[routing.YieldAcct])
	require.Equal(t, uint64(125), amounts[routing.BurnAcct])
	require.Equal(t, uint64(125), amounts[routing.SocialAcct])
	require.Equal(t, uint64(125), amounts[routing.ExpenseAcct])
	require.Equal(t, uint64(450), amounts[affAddr])
	require.Equal(t, uint64(4050), amounts[routing.StakeAcct])

	require.Equal(t, "500", attr(t, resp, "tax"))
	require.Equal(t, "450", attr(t, resp, "affiliate_reward"))
	require.Equal(t, "90", attr(t, resp, "minted"))

	cs := env.curveState(t)
	require.Equal(t, uint64(4050), cs.Reserve.Uint64())
	require.Equal(t, uint64(90), cs.Supply.Uint64())
	require.Equal(t, uint64(500), cs.TaxCollected.Uint64())

	split := resp.Buy.Tax
	sum := new(uint256.Int).Add(split.Yield, split.Burn)
	sum.Add(sum, split.Social)
	sum.Add(sum, split.Expense)
	require.True(t, sum.Eq(split.Total))
}

func TestBuyTaxExemptSkipsFees(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{TaxPercent: 100, AffiliatePercent: 100})
	require.NoError(t, err)
	_, err = env.engine.UpdateDexferConfig(ownerInfo(), DexferConfig{
		DexferManager: PlaceholderAccount,
		TaxExempt:     exemptAddr,
		TokenMinter:   ContractMinter,
	})
	require.NoError(t, err)

	resp, err := env.engine.Buy(pay(exemptAddr, 5000), affAddr)
	require.NoError(t, err)
	require.Len(t, resp.Transfers, 1)
	require.Equal(t, "100", attr(t, resp, "minted"))
	_, ok := resp.Attribute("affiliate_reward")
	require.False(t, ok)
	require.True(t, env.curveState(t).TaxCollected.IsZero())
}

func TestBuyPresaleBoundary(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{PresalePrice: 200, TaxPercent: 100})
	require.NoError(t, err)

	if _, err := env.engine.Buy(pay(buyerAddr, 399), ""); !errors.Is(err, ErrTooLittle) {
		t.Fatalf("expected below-minimum rejection, got %v", err)
	}
	require.True(t, env.curveState(t).Supply.IsZero())

	resp, err := env.engine.Buy(pay(buyerAddr, 400), "")
	require.NoError(t, err)

	// Two whole tokens at the presale price; the curve takes reserve(2) = 2.
	require.Equal(t, "2", attr(t, resp, "minted"))
	require.Equal(t, "398", attr(t, resp, "presale_fund"))
	require.Equal(t, "2", attr(t, resp, "staked"))
	require.Equal(t, "0", attr(t, resp, "tax"))
	amounts := transferAmounts(resp)
	require.Equal(t, uint64(398), amounts[routing.PresaleAcct])
	require.Equal(t, uint64(2), amounts[routing.StakeAcct])

	cs := env.curveState(t)
	require.Equal(t, uint64(2), cs.Reserve.Uint64())
	require.Equal(t, uint64(2), cs.Supply.Uint64())
	require.Equal(t, uint64(2), env.balance(t, buyerAddr))
}

func TestBuyPresaleOver(t *testing.T) {
	env := newTestEnv(t)

	// floor(sqrt(2 * 20402)) = 202, above the presale price of 200.
	_, err := env.engine.Buy(pay(buyerAddr, 20402), "")
	require.NoError(t, err)
	require.Equal(t, uint64(202), env.curveState(t).Supply.Uint64())

	_, err = env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{PresalePrice: 200})
	require.NoError(t, err)
	if _, err := env.engine.Buy(pay(buyerAddr, 1000), ""); !errors.Is(err, ErrPresaleOver) {
		t.Fatalf("expected presale over, got %v", err)
	}
}

func TestBuyDexferSplitsDeposit(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{TaxPercent: 100, PresalePrice: 200})
	require.NoError(t, err)
	_, err = env.engine.UpdateDexferConfig(ownerInfo(), DexferConfig{
		DexferManager:  dexAddr,
		DepositPercent: 100,
		TaxExempt:      PlaceholderAccount,
		TokenMinter:    ContractMinter,
	})
	require.NoError(t, err)

	resp, err := env.engine.Buy(pay(dexAddr, 5000), "")
	require.NoError(t, err)

	require.Equal(t, "500", attr(t, resp, "deposit"))
	require.Equal(t, "4500", attr(t, resp, "dex_transfer"))
	require.Equal(t, "100", attr(t, resp, "minted"))
	require.Len(t, resp.Transfers, 1)
	require.Equal(t, dexAddr, resp.Transfers[0].To)
	require.Equal(t, uint64(4500), resp.Transfers[0].Amount.Uint64())
	_, staked := resp.Attribute("staked")
	require.False(t, staked)

	cs := env.curveState(t)
	require.Equal(t, uint64(5000), cs.Reserve.Uint64())
	require.Equal(t, uint64(100), cs.Supply.Uint64())
}

func TestBuySafetySwitch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateSafetyConfig(ownerInfo(), SafetyConfig{CanBuy: buyerAddr, CanSell: common.OpenGate})
	require.NoError(t, err)

	if _, err := env.engine.Buy(pay(spenderAddr, 5000), ""); !errors.Is(err, ErrMintPaused) {
		t.Fatalf("expected paused mint, got %v", err)
	}
	_, err = env.engine.Buy(pay(buyerAddr, 5000), "")
	require.NoError(t, err)

	_, err = env.engine.UpdateSafetyConfig(ownerInfo(), SafetyConfig{CanBuy: common.OpenGate, CanSell: common.OpenGate})
	require.NoError(t, err)
	resp, err := env.engine.Buy(pay(spenderAddr, 201), "")
	require.NoError(t, err)
	require.Equal(t, "1", attr(t, resp, "minted"))
}

func TestBuyPaymentErrors(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		info MessageInfo
		want error
	}{
		{"no funds", MessageInfo{Sender: buyerAddr}, ErrNoFunds},
		{"zero amount", pay(buyerAddr, 0), ErrNoFunds},
		{"wrong denom", MessageInfo{Sender: buyerAddr, Funds: []Coin{NewCoin("uluna", 10)}}, ErrMissingDenom},
		{"two coins", MessageInfo{Sender: buyerAddr, Funds: []Coin{NewCoin(testDenom, 10), NewCoin("uluna", 10)}}, ErrMultipleDenoms},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.Buy(tc.info, ""); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	require.Equal(t, CategoryPayment, Classify(ErrMissingDenom))
}

func TestBuyRejectsUnroutedAccounts(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateAcctConfig(ownerInfo(), AcctRouting{
		YieldAcct:   routing.YieldAcct,
		BurnAcct:    routing.BurnAcct,
		SocialAcct:  routing.SocialAcct,
		ExpenseAcct: routing.ExpenseAcct,
		StakeAcct:   PlaceholderAccount,
	})
	require.NoError(t, err)
	if _, err := env.engine.Buy(pay(buyerAddr, 5000), ""); !errors.Is(err, crypto.ErrInvalidAddress) {
		t.Fatalf("expected invalid stake account, got %v", err)
	}
	if _, err := env.engine.Buy(pay(buyerAddr, 5000), "none"); !errors.Is(err, crypto.ErrInvalidAddress) {
		t.Fatalf("expected invalid affiliate, got %v", err)
	}
}

func TestBuyWrongMinter(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateDexferConfig(ownerInfo(), DexferConfig{
		DexferManager: PlaceholderAccount,
		TaxExempt:     PlaceholderAccount,
		TokenMinter:   "cw20",
	})
	require.NoError(t, err)
	env.events.Reset()

	if _, err := env.engine.Buy(pay(buyerAddr, 5000), ""); !errors.Is(err, ErrWrongMinter) {
		t.Fatalf("expected wrong minter, got %v", err)
	}
	require.Empty(t, env.events.Events())
	require.Zero(t, env.balance(t, buyerAddr))
}

func TestBuyOverlappingTaxSharesUnderflow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{
		YieldPercent:  400,
		BurnPercent:   400,
		SocialPercent: 400,
		TaxPercent:    100,
	})
	require.NoError(t, err)
	_, err = env.engine.Buy(pay(buyerAddr, 5000), "")
	if !errors.Is(err, common.ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	require.Equal(t, CategoryArithmetic, Classify(err))
}

func TestPresaleMintScalesByDecimals(t *testing.T) {
	minted, err := presaleMint(uint256.NewInt(400), uint256.NewInt(200), 6)
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000), minted.Uint64())

	minted, err = presaleMint(uint256.NewInt(450), uint256.NewInt(200), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), minted.Uint64())
}
