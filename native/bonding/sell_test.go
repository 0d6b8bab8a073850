package bonding

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"bondcurve/core/events"
	"bondcurve/crypto"
	"bondcurve/native/common"
	"bondcurve/native/token"
)

// newFundedEnv buys 100 tokens for buyerAddr against a 5000 reserve.
func newFundedEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	_, err := env.engine.Buy(pay(buyerAddr, 5000), "")
	require.NoError(t, err)
	env.events.Reset()
	return env
}

func TestSellReleasesCurveReserve(t *testing.T) {
	env := newFundedEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{
		YieldPercent:  250,
		BurnPercent:   250,
		SocialPercent: 250,
		TaxPercent:    100,
	})
	require.NoError(t, err)
	env.events.Reset()

	resp, err := env.engine.Sell(MessageInfo{Sender: buyerAddr}, uint256.NewInt(50))
	require.NoError(t, err)

	// reserve(50) = 1250, so 3750 is released and 10% of it is taxed.
	require.Equal(t, "burn", attr(t, resp, "action"))
	require.Equal(t, buyerAddr, attr(t, resp, "from"))
	require.Equal(t, "50", attr(t, resp, "burned"))
	require.Equal(t, "3750", attr(t, resp, "released"))
	require.Equal(t, "375", attr(t, resp, "tax"))
	require.Equal(t, "0", attr(t, resp, "net_released"))
	require.Equal(t, UnstakePeriod, attr(t, resp, "unstake_period"))
	require.Nil(t, resp.Mint)

	require.Len(t, resp.Transfers, 1)
	require.Equal(t, routing.UnstakeAcct, resp.Transfers[0].To)
	require.Equal(t, UnstakeMarker, resp.Transfers[0].Amount.Uint64())

	cs := env.curveState(t)
	require.Equal(t, uint64(1250), cs.Reserve.Uint64())
	require.Equal(t, uint64(50), cs.Supply.Uint64())
	require.Equal(t, uint64(375), cs.TaxCollected.Uint64())
	require.Equal(t, uint64(50), env.balance(t, buyerAddr))

	emitted := env.events.Events()
	require.Len(t, emitted, 1)
	require.Equal(t, events.TypeBondingSell, emitted[0].EventType())
}

func TestSellInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	env := newFundedEnv(t)

	_, err := env.engine.Sell(MessageInfo{Sender: buyerAddr}, uint256.NewInt(101))
	if !errors.Is(err, token.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	require.Equal(t, CategoryLedger, Classify(err))

	cs := env.curveState(t)
	require.Equal(t, uint64(5000), cs.Reserve.Uint64())
	require.Equal(t, uint64(100), cs.Supply.Uint64())
	require.Equal(t, uint64(100), env.balance(t, buyerAddr))
	require.Empty(t, env.events.Events())
}

func TestSellChecks(t *testing.T) {
	env := newFundedEnv(t)

	if _, err := env.engine.Sell(pay(buyerAddr, 1), uint256.NewInt(1)); !errors.Is(err, ErrNonPayable) {
		t.Fatalf("expected non-payable, got %v", err)
	}
	if _, err := env.engine.Sell(MessageInfo{Sender: buyerAddr}, uint256.NewInt(0)); !errors.Is(err, token.ErrInvalidZeroAmount) {
		t.Fatalf("expected zero amount rejection, got %v", err)
	}

	_, err := env.engine.UpdateSafetyConfig(ownerInfo(), SafetyConfig{CanBuy: common.OpenGate, CanSell: ownerAddr})
	require.NoError(t, err)
	_, err = env.engine.Sell(MessageInfo{Sender: buyerAddr}, uint256.NewInt(1))
	if !errors.Is(err, ErrBurnPaused) {
		t.Fatalf("expected paused burn, got %v", err)
	}
	require.Equal(t, CategoryPolicy, Classify(err))
}

func TestSellDexferSendsMarker(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.UpdateParamConfig(ownerInfo(), ParamConfig{TaxPercent: 100})
	require.NoError(t, err)
	_, err = env.engine.UpdateDexferConfig(ownerInfo(), DexferConfig{
		DexferManager: dexAddr,
		TaxExempt:     PlaceholderAccount,
		TokenMinter:   ContractMinter,
	})
	require.NoError(t, err)
	_, err = env.engine.Buy(pay(dexAddr, 5000), "")
	require.NoError(t, err)

	resp, err := env.engine.Sell(MessageInfo{Sender: dexAddr}, uint256.NewInt(100))
	require.NoError(t, err)
	require.Equal(t, "5000", attr(t, resp, "released"))
	require.Equal(t, "0", attr(t, resp, "tax"))
	require.Len(t, resp.Transfers, 1)
	require.Equal(t, dexAddr, resp.Transfers[0].To)
	require.Equal(t, DexferMarker, resp.Transfers[0].Amount.Uint64())

	cs := env.curveState(t)
	require.True(t, cs.Reserve.IsZero())
	require.True(t, cs.Supply.IsZero())
	require.True(t, cs.TaxCollected.IsZero())
}

func TestSellFromConsumesAllowance(t *testing.T) {
	env := newFundedEnv(t)
	_, err := env.ledger.IncreaseAllowance(buyerAddr, spenderAddr, uint256.NewInt(30))
	require.NoError(t, err)

	resp, err := env.engine.SellFrom(MessageInfo{Sender: spenderAddr}, buyerAddr, uint256.NewInt(20))
	require.NoError(t, err)
	require.Equal(t, "burn_from", attr(t, resp, "action"))
	require.Equal(t, buyerAddr, attr(t, resp, "from"))
	require.Equal(t, spenderAddr, attr(t, resp, "by"))
	require.Equal(t, spenderAddr, resp.Sell.Spender)

	remaining, err := env.ledger.Allowance(buyerAddr, spenderAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(10), remaining.Uint64())
	require.Equal(t, uint64(80), env.balance(t, buyerAddr))
	require.Equal(t, uint64(80), env.curveState(t).Supply.Uint64())

	if _, err := env.engine.SellFrom(MessageInfo{Sender: spenderAddr}, buyerAddr, uint256.NewInt(20)); !errors.Is(err, token.ErrInsufficientAllowed) {
		t.Fatalf("expected allowance exceeded, got %v", err)
	}
	if _, err := env.engine.SellFrom(MessageInfo{Sender: affAddr}, buyerAddr, uint256.NewInt(1)); !errors.Is(err, token.ErrNoAllowance) {
		t.Fatalf("expected missing allowance, got %v", err)
	}
}

func TestSellFromChecks(t *testing.T) {
	env := newFundedEnv(t)
	_, err := env.ledger.IncreaseAllowance(buyerAddr, spenderAddr, uint256.NewInt(30))
	require.NoError(t, err)

	if _, err := env.engine.SellFrom(pay(spenderAddr, 1), buyerAddr, uint256.NewInt(1)); !errors.Is(err, ErrNonPayable) {
		t.Fatalf("expected non-payable, got %v", err)
	}
	if _, err := env.engine.SellFrom(MessageInfo{Sender: spenderAddr}, "none", uint256.NewInt(1)); !errors.Is(err, crypto.ErrInvalidAddress) {
		t.Fatalf("expected invalid owner, got %v", err)
	}

	// The switch is checked against the caller, not the token owner.
	_, err = env.engine.UpdateSafetyConfig(ownerInfo(), SafetyConfig{CanBuy: common.OpenGate, CanSell: buyerAddr})
	require.NoError(t, err)
	if _, err := env.engine.SellFrom(MessageInfo{Sender: spenderAddr}, buyerAddr, uint256.NewInt(1)); !errors.Is(err, ErrBurnPaused) {
		t.Fatalf("expected paused burn, got %v", err)
	}
	remaining, err := env.ledger.Allowance(buyerAddr, spenderAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(30), remaining.Uint64())
}

func TestBuySellRoundTripNeverGains(t *testing.T) {
	env := newTestEnv(t)
	for _, amount := range []uint64{1234, 777, 5001, 98765} {
		before := env.curveState(t)
		resp, err := env.engine.Buy(pay(buyerAddr, amount), "")
		require.NoError(t, err)
		minted := resp.Buy.Minted

		sold, err := env.engine.Sell(MessageInfo{Sender: buyerAddr}, minted)
		require.NoError(t, err)
		if sold.Sell.Released.Uint64() > amount {
			t.Fatalf("round trip of %d released %s", amount, sold.Sell.Released.Dec())
		}
		after := env.curveState(t)
		require.True(t, after.Supply.Eq(before.Supply))
	}
}
