package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"bondcurve/core/state"
	"bondcurve/crypto"
	"bondcurve/storage"
)

func testAddr(b byte) string {
	raw := make([]byte, 20)
	raw[0] = b
	raw[19] = b
	return crypto.MustNewAddress(crypto.DefaultPrefix, raw).String()
}

func newTestLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	ledger := NewLedger(state.NewManager(storage.NewMemDB()))
	minter := testAddr(0xC0)
	require.NoError(t, ledger.Instantiate(Info{Name: "Base", Symbol: "BASE", Decimals: 6, Minter: minter}))
	return ledger, minter
}

func TestMintRequiresMinter(t *testing.T) {
	ledger, minter := newTestLedger(t)
	alice := testAddr(0x01)

	if err := ledger.Mint(alice, alice, uint256.NewInt(5)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized mint, got %v", err)
	}
	require.NoError(t, ledger.Mint(minter, alice, uint256.NewInt(5)))

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(5), balance.Uint64())

	info, err := ledger.TokenInfo()
	require.NoError(t, err)
	require.Equal(t, uint64(5), info.TotalSupply.Uint64())

	if err := ledger.Mint(minter, alice, uint256.NewInt(0)); !errors.Is(err, ErrInvalidZeroAmount) {
		t.Fatalf("expected zero amount rejection, got %v", err)
	}
	if err := ledger.Mint(minter, "none", uint256.NewInt(1)); !errors.Is(err, crypto.ErrInvalidAddress) {
		t.Fatalf("expected invalid recipient, got %v", err)
	}
}

func TestBurnChecksBalance(t *testing.T) {
	ledger, minter := newTestLedger(t)
	alice := testAddr(0x01)
	require.NoError(t, ledger.Mint(minter, alice, uint256.NewInt(10)))

	if err := ledger.Burn(alice, uint256.NewInt(11)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	require.NoError(t, ledger.Burn(alice, uint256.NewInt(10)))

	balance, err := ledger.Balance(alice)
	require.NoError(t, err)
	require.True(t, balance.IsZero())
	info, err := ledger.TokenInfo()
	require.NoError(t, err)
	require.True(t, info.TotalSupply.IsZero())
}

func TestTransfer(t *testing.T) {
	ledger, minter := newTestLedger(t)
	alice, bob := testAddr(0x01), testAddr(0x02)
	require.NoError(t, ledger.Mint(minter, alice, uint256.NewInt(10)))
	require.NoError(t, ledger.Transfer(alice, bob, uint256.NewInt(4)))

	a, err := ledger.Balance(alice)
	require.NoError(t, err)
	b, err := ledger.Balance(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(6), a.Uint64())
	require.Equal(t, uint64(4), b.Uint64())
}

func TestAllowanceLifecycle(t *testing.T) {
	ledger, _ := newTestLedger(t)
	owner, spender := testAddr(0x01), testAddr(0x02)

	if err := ledger.DeductAllowance(owner, spender, uint256.NewInt(1)); !errors.Is(err, ErrNoAllowance) {
		t.Fatalf("expected no allowance, got %v", err)
	}
	if _, err := ledger.IncreaseAllowance(owner, owner, uint256.NewInt(1)); !errors.Is(err, ErrOwnAllowance) {
		t.Fatalf("expected own allowance rejection, got %v", err)
	}

	allowed, err := ledger.IncreaseAllowance(owner, spender, uint256.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, uint64(7), allowed.Uint64())

	if err := ledger.DeductAllowance(owner, spender, uint256.NewInt(8)); !errors.Is(err, ErrInsufficientAllowed) {
		t.Fatalf("expected allowance exceeded, got %v", err)
	}
	require.NoError(t, ledger.DeductAllowance(owner, spender, uint256.NewInt(3)))

	remaining, err := ledger.Allowance(owner, spender)
	require.NoError(t, err)
	require.Equal(t, uint64(4), remaining.Uint64())

	remaining, err = ledger.DecreaseAllowance(owner, spender, uint256.NewInt(100))
	require.NoError(t, err)
	require.True(t, remaining.IsZero())
}

func TestUpdateMinter(t *testing.T) {
	ledger, minter := newTestLedger(t)
	next := testAddr(0x03)

	info, err := ledger.UpdateMinter(&next)
	require.NoError(t, err)
	require.Equal(t, next, info.Minter)

	if err := ledger.Mint(minter, testAddr(0x01), uint256.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old minter should be revoked, got %v", err)
	}

	info, err = ledger.UpdateMinter(nil)
	require.NoError(t, err)
	require.Empty(t, info.Minter)

	if _, err := ledger.UpdateMinter(&next); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("clearing the minter must be irreversible, got %v", err)
	}
}

func TestCapEnforced(t *testing.T) {
	ledger := NewLedger(state.NewManager(storage.NewMemDB()))
	minter := testAddr(0xC0)
	require.NoError(t, ledger.Instantiate(Info{Name: "Base", Symbol: "BASE", Decimals: 6, Minter: minter, Cap: uint256.NewInt(10)}))
	require.NoError(t, ledger.Mint(minter, testAddr(0x01), uint256.NewInt(10)))
	if err := ledger.Mint(minter, testAddr(0x01), uint256.NewInt(1)); !errors.Is(err, ErrCapExceeded) {
		t.Fatalf("expected cap exceeded, got %v", err)
	}
	if err := ledger.Instantiate(Info{Name: "Again", Symbol: "AGN"}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected already initialised, got %v", err)
	}
}
