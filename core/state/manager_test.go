package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"bondcurve/storage"
)

type sampleRecord struct {
	Denom  string
	Amount *big.Int
	Places uint32
}

func TestManagerStagesUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	mgr := NewManager(db)
	record := sampleRecord{Denom: "uluna", Amount: big.NewInt(5000), Places: 6}
	require.NoError(t, mgr.KVPut([]byte("bonding/curve-state"), record))

	var staged sampleRecord
	ok, err := mgr.KVGet([]byte("bonding/curve-state"), &staged)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "uluna", staged.Denom)

	if len(db.Keys()) != 0 {
		t.Fatalf("expected nothing written before commit, found %d keys", len(db.Keys()))
	}

	require.NoError(t, mgr.Commit())
	require.Len(t, db.Keys(), 1)

	fresh := NewManager(db)
	var stored sampleRecord
	ok, err = fresh.KVGet([]byte("bonding/curve-state"), &stored)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, stored.Amount.Cmp(big.NewInt(5000)))
	require.Equal(t, uint32(6), stored.Places)
}

func TestManagerDiscardLeavesBackendUntouched(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	seed := NewManager(db)
	require.NoError(t, seed.KVPut([]byte("k"), uint64(1)))
	require.NoError(t, seed.Commit())

	mgr := NewManager(db)
	require.NoError(t, mgr.KVPut([]byte("k"), uint64(2)))
	require.NoError(t, mgr.KVPut([]byte("other"), uint64(3)))
	require.Equal(t, 2, mgr.Dirty())
	mgr.Discard()
	require.Equal(t, 0, mgr.Dirty())

	var value uint64
	ok, err := NewManager(db).KVGet([]byte("k"), &value)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), value)

	ok, err = NewManager(db).KVGet([]byte("other"), nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerDelete(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	require.NoError(t, mgr.KVPut([]byte("allowance"), uint64(9)))
	require.NoError(t, mgr.Commit())

	require.NoError(t, mgr.KVDelete([]byte("allowance")))
	ok, err := mgr.KVGet([]byte("allowance"), nil)
	require.NoError(t, err)
	require.False(t, ok, "staged delete must hide the committed value")

	require.NoError(t, mgr.Commit())
	require.Empty(t, db.Keys())
}

func TestReadOnlyManagerRejectsWrites(t *testing.T) {
	mgr := NewReadOnlyManager(storage.NewMemDB())
	if err := mgr.KVPut([]byte("k"), uint64(1)); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
	if err := mgr.KVDelete([]byte("k")); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected read-only error, got %v", err)
	}
	if _, err := mgr.KVGet(nil, nil); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}

func TestEnsureStateVersion(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, EnsureStateVersion(db, false))

	version, ok, err := NewManager(db).StateVersion()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, StateVersion, version)

	mgr := NewManager(db)
	require.NoError(t, mgr.SetStateVersion(StateVersion+1))
	require.NoError(t, mgr.Commit())

	if err := EnsureStateVersion(db, false); !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
	require.NoError(t, EnsureStateVersion(db, true))
}
