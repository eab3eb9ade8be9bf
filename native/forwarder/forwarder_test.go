package forwarder

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"farmledger/core/state"
	"farmledger/native/token"
	"farmledger/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func setup(t *testing.T) (*Forwarder, *token.Ledger) {
	t.Helper()
	tx := state.NewManager(storage.NewMemDB()).Begin()
	t.Cleanup(tx.Discard)
	require.NoError(t, tx.RegisterToken("FARM", "Farm Reward", 18, addr(0xCC)))
	ledger := token.NewLedger(tx)
	require.NoError(t, ledger.Mint("FARM", addr(0xCC), addr(0xBB), big.NewInt(100)))
	f := New(tx, ledger, addr(0xBB), "FARM")
	require.NoError(t, f.Register(addr(0xCC)))
	return f, ledger
}

func TestSafeTransferTruncatesToBalance(t *testing.T) {
	f, ledger := setup(t)

	_, err := f.SafeTransfer(addr(1), addr(1), big.NewInt(5))
	require.ErrorIs(t, err, ErrUnauthorized)

	sent, err := f.SafeTransfer(addr(0xCC), addr(1), big.NewInt(30))
	require.NoError(t, err)
	require.Equal(t, int64(30), sent.Int64())

	sent, err = f.SafeTransfer(addr(0xCC), addr(1), big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, int64(70), sent.Int64())

	bal, err := ledger.BalanceOf("FARM", addr(1))
	require.NoError(t, err)
	require.Equal(t, int64(100), bal.Int64())

	sent, err = f.SafeTransfer(addr(0xCC), addr(1), big.NewInt(1))
	require.NoError(t, err)
	require.Zero(t, sent.Sign())
}

func TestSweepAndOwnership(t *testing.T) {
	f, ledger := setup(t)

	require.Error(t, f.Register(addr(2)), "second registration must fail")
	require.NoError(t, f.TransferOwnership(addr(0xCC), addr(2)))
	owner, err := f.Owner()
	require.NoError(t, err)
	require.Equal(t, addr(2), owner)

	swept, err := f.Sweep(addr(2))
	require.NoError(t, err)
	require.Equal(t, int64(100), swept.Int64())
	bal, _ := ledger.BalanceOf("FARM", addr(2))
	require.Equal(t, int64(100), bal.Int64())

	require.ErrorIs(t, f.TransferOwnership(addr(2), [20]byte{}), ErrZeroOwner)
	require.NoError(t, f.RenounceOwnership(addr(2)))
	_, err = f.Sweep(addr(2))
	require.ErrorIs(t, err, ErrUnauthorized)
}
