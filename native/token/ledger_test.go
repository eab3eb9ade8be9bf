package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"farmledger/core/events"
	"farmledger/core/state"
	"farmledger/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

type sink struct{ types []string }

func (s *sink) Emit(evt events.Event) { s.types = append(s.types, evt.EventType()) }

func newLedger(t *testing.T) (*Ledger, *state.Tx, *sink) {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	tx := mgr.Begin()
	t.Cleanup(tx.Discard)
	require.NoError(t, tx.RegisterToken("FARM", "Farm Reward", 18, addr(0xCC)))
	require.NoError(t, tx.RegisterToken("LPT", "LP Token", 18, addr(0xDD)))
	l := NewLedger(tx)
	s := &sink{}
	l.SetEmitter(s)
	return l, tx, s
}

func TestMintRequiresAuthority(t *testing.T) {
	l, _, s := newLedger(t)

	require.ErrorIs(t, l.Mint("FARM", addr(1), addr(1), big.NewInt(5)), ErrMintUnauthorized)
	require.NoError(t, l.Mint("farm", addr(0xCC), addr(1), big.NewInt(5)))

	bal, err := l.BalanceOf("FARM", addr(1))
	require.NoError(t, err)
	require.Equal(t, int64(5), bal.Int64())
	supply, err := l.TotalSupply("FARM")
	require.NoError(t, err)
	require.Equal(t, int64(5), supply.Int64())
	require.Equal(t, []string{EventTypeMint}, s.types)

	require.NoError(t, l.SetMintAuthority("FARM", addr(0xCC), addr(0xEE)))
	require.ErrorIs(t, l.Mint("FARM", addr(0xCC), addr(1), big.NewInt(1)), ErrMintUnauthorized)
}

func TestTransferChecksBalance(t *testing.T) {
	l, tx, _ := newLedger(t)
	require.NoError(t, tx.SetBalance("LPT", addr(1), big.NewInt(10)))

	require.ErrorIs(t, l.Transfer("LPT", addr(1), addr(2), big.NewInt(11)), ErrInsufficientBalance)
	require.ErrorIs(t, l.Transfer("NOPE", addr(1), addr(2), big.NewInt(1)), ErrUnknownToken)
	require.ErrorIs(t, l.Transfer("LPT", addr(1), addr(2), big.NewInt(-1)), ErrInvalidAmount)
	require.NoError(t, l.Transfer("LPT", addr(1), addr(2), big.NewInt(4)))

	from, _ := l.BalanceOf("LPT", addr(1))
	to, _ := l.BalanceOf("LPT", addr(2))
	require.Equal(t, int64(6), from.Int64())
	require.Equal(t, int64(4), to.Int64())
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	l, tx, _ := newLedger(t)
	owner, spender, vault := addr(1), addr(2), addr(3)
	require.NoError(t, tx.SetBalance("LPT", owner, big.NewInt(100)))

	require.ErrorIs(t, l.TransferFrom("LPT", spender, owner, vault, big.NewInt(1)), ErrInsufficientAllowance)
	require.NoError(t, l.Approve("LPT", owner, spender, big.NewInt(150)))
	require.ErrorIs(t, l.TransferFrom("LPT", spender, owner, vault, big.NewInt(120)), ErrInsufficientBalance)

	allowance, err := l.Allowance("LPT", owner, spender)
	require.NoError(t, err)
	require.Equal(t, int64(150), allowance.Int64(), "failed transfer must not consume allowance")

	require.NoError(t, l.TransferFrom("LPT", spender, owner, vault, big.NewInt(60)))
	allowance, _ = l.Allowance("LPT", owner, spender)
	require.Equal(t, int64(90), allowance.Int64())
	bal, _ := l.BalanceOf("LPT", vault)
	require.Equal(t, int64(60), bal.Int64())
}

func TestCreditGrowsSupplyWithoutAuthority(t *testing.T) {
	l, _, s := newLedger(t)

	require.NoError(t, l.Credit("lpt", addr(7), big.NewInt(40)))
	supply, err := l.TotalSupply("LPT")
	require.NoError(t, err)
	require.Equal(t, int64(40), supply.Int64())
	require.Empty(t, s.types)

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(t, l.Credit("LPT", addr(7), new(big.Int).Sub(huge, big.NewInt(1))), ErrOverflow)
	bal, _ := l.BalanceOf("LPT", addr(7))
	require.Equal(t, int64(40), bal.Int64(), "overflowing credit must not change the balance")
}
