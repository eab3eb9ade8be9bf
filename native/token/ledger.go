package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"farmledger/core/events"
	"farmledger/core/state"
	"farmledger/core/types"
	"farmledger/crypto"
)

var (
	ErrUnknownToken          = errors.New("token: unknown asset")
	ErrInvalidAmount         = errors.New("token: amount must be non-negative")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrMintUnauthorized      = errors.New("token: caller is not the mint authority")
	ErrMintPaused            = errors.New("token: minting paused")
	ErrOverflow              = errors.New("token: balance overflow")
)

const (
	EventTypeTransfer = "token.transfer"
	EventTypeApproval = "token.approval"
	EventTypeMint     = "token.mint"
)

type ledgerState interface {
	Token(symbol string) (*state.TokenMetadata, error)
	PutToken(meta *state.TokenMetadata) error
	Balance(symbol string, addr [20]byte) (*big.Int, error)
	SetBalance(symbol string, addr [20]byte, amount *big.Int) error
	Allowance(symbol string, owner, spender [20]byte) (*big.Int, error)
	SetAllowance(symbol string, owner, spender [20]byte, amount *big.Int) error
}

// Ledger is the fungible-token ledger backing every asset the farm moves. A
// failed call never leaves a partial balance update in state.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger binds a ledger to the provided state.
func NewLedger(st ledgerState) *Ledger {
	return &Ledger{state: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the ledger.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

type tokenEvent struct{ evt *types.Event }

func (e tokenEvent) EventType() string   { return e.evt.Type }
func (e tokenEvent) Event() *types.Event { return e.evt }

func (l *Ledger) emit(kind string, attrs map[string]string) {
	l.emitter.Emit(tokenEvent{evt: &types.Event{Type: kind, Attributes: attrs}})
}

func (l *Ledger) metadata(asset string) (*state.TokenMetadata, string, error) {
	symbol := state.NormalizeSymbol(asset)
	meta, err := l.state.Token(symbol)
	if err != nil {
		return nil, symbol, err
	}
	if meta == nil {
		return nil, symbol, fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return meta, symbol, nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// add returns a+b, failing when the sum leaves the 256-bit range.
func add(a, b *big.Int) (*big.Int, error) {
	x, overflow := uint256.FromBig(a)
	if overflow {
		return nil, ErrOverflow
	}
	y, overflow := uint256.FromBig(b)
	if overflow {
		return nil, ErrOverflow
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return sum.ToBig(), nil
}

// BalanceOf returns the balance of account in asset.
func (l *Ledger) BalanceOf(asset string, account [20]byte) (*big.Int, error) {
	if _, _, err := l.metadata(asset); err != nil {
		return nil, err
	}
	return l.state.Balance(asset, account)
}

// Transfer moves amount of asset from one account to another.
func (l *Ledger) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, symbol, err := l.metadata(asset)
	if err != nil {
		return err
	}
	if err := l.move(symbol, from, to, amount); err != nil {
		return err
	}
	l.emit(EventTypeTransfer, map[string]string{
		"asset":  symbol,
		"from":   crypto.FromRaw(from).String(),
		"to":     crypto.FromRaw(to).String(),
		"amount": amount.String(),
	})
	return nil
}

// TransferFrom moves amount of asset out of from's balance on behalf of
// spender, consuming the allowance from granted to spender.
func (l *Ledger) TransferFrom(asset string, spender, from, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, symbol, err := l.metadata(asset)
	if err != nil {
		return err
	}
	allowance, err := l.state.Allowance(symbol, from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientAllowance, allowance, amount)
	}
	balance, err := l.state.Balance(symbol, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}
	if err := l.state.SetAllowance(symbol, from, spender, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	if err := l.move(symbol, from, to, amount); err != nil {
		return err
	}
	l.emit(EventTypeTransfer, map[string]string{
		"asset":   symbol,
		"from":    crypto.FromRaw(from).String(),
		"to":      crypto.FromRaw(to).String(),
		"spender": crypto.FromRaw(spender).String(),
		"amount":  amount.String(),
	})
	return nil
}

// Approve sets the allowance owner grants to spender.
func (l *Ledger) Approve(asset string, owner, spender [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	_, symbol, err := l.metadata(asset)
	if err != nil {
		return err
	}
	if err := l.state.SetAllowance(symbol, owner, spender, amount); err != nil {
		return err
	}
	l.emit(EventTypeApproval, map[string]string{
		"asset":   symbol,
		"owner":   crypto.FromRaw(owner).String(),
		"spender": crypto.FromRaw(spender).String(),
		"amount":  amount.String(),
	})
	return nil
}

// Allowance returns the amount spender may still move out of owner's balance.
func (l *Ledger) Allowance(asset string, owner, spender [20]byte) (*big.Int, error) {
	if _, _, err := l.metadata(asset); err != nil {
		return nil, err
	}
	return l.state.Allowance(asset, owner, spender)
}

// Mint creates amount of asset in to's balance. Only the registered mint
// authority may mint.
func (l *Ledger) Mint(asset string, minter, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	meta, symbol, err := l.metadata(asset)
	if err != nil {
		return err
	}
	if meta.MintAuthority != minter {
		return ErrMintUnauthorized
	}
	if meta.MintPaused {
		return ErrMintPaused
	}
	balance, err := l.state.Balance(symbol, to)
	if err != nil {
		return err
	}
	if err := l.credit(meta, symbol, to, balance, amount); err != nil {
		return err
	}
	l.emit(EventTypeMint, map[string]string{
		"asset":  symbol,
		"to":     crypto.FromRaw(to).String(),
		"amount": amount.String(),
		"supply": meta.Supply.String(),
	})
	return nil
}

// Credit creates amount of asset in to's balance without an authority check.
// It exists for genesis allocations and is not reachable over RPC.
func (l *Ledger) Credit(asset string, to [20]byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	meta, symbol, err := l.metadata(asset)
	if err != nil {
		return err
	}
	balance, err := l.state.Balance(symbol, to)
	if err != nil {
		return err
	}
	return l.credit(meta, symbol, to, balance, amount)
}

func (l *Ledger) credit(meta *state.TokenMetadata, symbol string, to [20]byte, balance, amount *big.Int) error {
	supply, err := add(meta.Supply, amount)
	if err != nil {
		return err
	}
	next, err := add(balance, amount)
	if err != nil {
		return err
	}
	meta.Supply = supply
	if err := l.state.PutToken(meta); err != nil {
		return err
	}
	return l.state.SetBalance(symbol, to, next)
}

// SetMintAuthority hands mint rights for asset to next. Only the current
// authority may do so.
func (l *Ledger) SetMintAuthority(asset string, caller, next [20]byte) error {
	meta, _, err := l.metadata(asset)
	if err != nil {
		return err
	}
	if meta.MintAuthority != caller {
		return ErrMintUnauthorized
	}
	meta.MintAuthority = next
	return l.state.PutToken(meta)
}

// TotalSupply returns the minted supply of asset.
func (l *Ledger) TotalSupply(asset string) (*big.Int, error) {
	meta, _, err := l.metadata(asset)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(meta.Supply), nil
}

func (l *Ledger) move(symbol string, from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}
	src, err := l.state.Balance(symbol, from)
	if err != nil {
		return err
	}
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, src, amount)
	}
	dst, err := l.state.Balance(symbol, to)
	if err != nil {
		return err
	}
	next, err := add(dst, amount)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(symbol, from, new(big.Int).Sub(src, amount)); err != nil {
		return err
	}
	return l.state.SetBalance(symbol, to, next)
}
