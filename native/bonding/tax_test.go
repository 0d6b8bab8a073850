package bonding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"bondcurve/crypto"
	"bondcurve/native/common"
	"bondcurve/native/token"
)

func TestSplitTaxSumsExactly(t *testing.T) {
	params := ParamConfig{YieldPercent: 333, BurnPercent: 333, SocialPercent: 333}
	for _, total := range []uint64{0, 1, 7, 999, 1000, 123457} {
		split, err := SplitTax(uint256.NewInt(total), params)
		require.NoError(t, err)
		sum := new(uint256.Int).Add(split.Yield, split.Burn)
		sum.Add(sum, split.Social)
		sum.Add(sum, split.Expense)
		if sum.Uint64() != total {
			t.Fatalf("split of %d sums to %d", total, sum.Uint64())
		}
	}

	split, err := SplitTax(uint256.NewInt(1000), ParamConfig{YieldPercent: 100, BurnPercent: 200, SocialPercent: 300})
	require.NoError(t, err)
	require.Equal(t, uint64(100), split.Yield.Uint64())
	require.Equal(t, uint64(200), split.Burn.Uint64())
	require.Equal(t, uint64(300), split.Social.Uint64())
	require.Equal(t, uint64(400), split.Expense.Uint64())
}

func TestSplitTaxRejectsOversubscribedShares(t *testing.T) {
	_, err := SplitTax(uint256.NewInt(100), ParamConfig{YieldPercent: 600, BurnPercent: 600})
	if !errors.Is(err, common.ErrUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
}

func TestPaymentHelpers(t *testing.T) {
	amount, err := MustPay(pay(buyerAddr, 42), testDenom)
	require.NoError(t, err)
	require.Equal(t, uint64(42), amount.Uint64())

	_, err = MustPay(MessageInfo{Funds: []Coin{NewCoin("uluna", 1)}}, testDenom)
	var payment *PaymentError
	require.True(t, errors.As(err, &payment))
	require.Equal(t, PaymentMissingDenom, payment.Kind)
	require.Contains(t, err.Error(), testDenom)

	wide := Coin{Denom: testDenom, Amount: new(uint256.Int).Lsh(uint256.NewInt(1), 130)}
	if _, err := MustPay(MessageInfo{Funds: []Coin{wide}}, testDenom); !errors.Is(err, common.ErrOverflow) {
		t.Fatalf("expected overflow on oversized payment, got %v", err)
	}

	require.NoError(t, Nonpayable(MessageInfo{Sender: buyerAddr}))
	if err := Nonpayable(pay(buyerAddr, 1)); !errors.Is(err, ErrNonPayable) {
		t.Fatalf("expected non-payable, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{nil, CategoryNone},
		{ErrNoFunds, CategoryPayment},
		{fmt.Errorf("wrapped: %w", ErrNonPayable), CategoryPayment},
		{ErrUnauthorized, CategoryAuthorization},
		{ErrWrongMinter, CategoryAuthorization},
		{token.ErrUnauthorized, CategoryAuthorization},
		{ErrMintPaused, CategoryPolicy},
		{ErrPresaleOver, CategoryMarket},
		{ErrTooLittle, CategoryMarket},
		{common.ErrOverflow, CategoryArithmetic},
		{crypto.ErrInvalidAddress, CategoryValidation},
		{ErrAlreadyInstantiated, CategoryValidation},
		{token.ErrNoAllowance, CategoryLedger},
		{errors.New("disk on fire"), CategoryInternal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
