package forwarder

import (
	"errors"
	"fmt"
	"math/big"

	"farmledger/core/events"
	"farmledger/core/types"
	"farmledger/crypto"
)

var (
	ErrUnauthorized = errors.New("forwarder: caller is not the owner")
	ErrZeroOwner    = errors.New("forwarder: new owner is the zero address")
	ErrNotFound     = errors.New("forwarder: account not registered")
)

const (
	EventTypeTransfer             = "forwarder.transfer"
	EventTypeOwnershipTransferred = "forwarder.ownershipTransferred"
)

type forwarderState interface {
	ForwarderOwner(forwarder [20]byte) ([20]byte, bool, error)
	SetForwarderOwner(forwarder, owner [20]byte) error
}

// TokenLedger is the subset of the token ledger a forwarder needs.
type TokenLedger interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	BalanceOf(asset string, account [20]byte) (*big.Int, error)
}

// Forwarder holds a balance of a single asset and releases it only on the
// owner's instruction. Transfers never fail for lack of funds: they are
// truncated to what the account holds.
type Forwarder struct {
	state   forwarderState
	token   TokenLedger
	emitter events.Emitter
	account [20]byte
	asset   string
}

// New binds a forwarder for asset held at account.
func New(st forwarderState, token TokenLedger, account [20]byte, asset string) *Forwarder {
	return &Forwarder{state: st, token: token, emitter: events.NoopEmitter{}, account: account, asset: asset}
}

// SetEmitter configures the event emitter.
func (f *Forwarder) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	f.emitter = emitter
}

type forwarderEvent struct{ evt *types.Event }

func (e forwarderEvent) EventType() string   { return e.evt.Type }
func (e forwarderEvent) Event() *types.Event { return e.evt }

// Register records the initial owner. Registering twice is rejected.
func (f *Forwarder) Register(owner [20]byte) error {
	if owner == ([20]byte{}) {
		return ErrZeroOwner
	}
	if _, ok, err := f.state.ForwarderOwner(f.account); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("forwarder: %x already registered", f.account)
	}
	return f.setOwner([20]byte{}, owner)
}

// Owner returns the current owner. A renounced forwarder reports the zero
// address.
func (f *Forwarder) Owner() ([20]byte, error) {
	owner, ok, err := f.state.ForwarderOwner(f.account)
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrNotFound
	}
	return owner, nil
}

func (f *Forwarder) authorize(caller [20]byte) ([20]byte, error) {
	owner, err := f.Owner()
	if err != nil {
		return owner, err
	}
	if owner == ([20]byte{}) || owner != caller {
		return owner, ErrUnauthorized
	}
	return owner, nil
}

// SafeTransfer sends up to amount of the held asset to recipient and returns
// the amount actually sent.
func (f *Forwarder) SafeTransfer(caller, recipient [20]byte, amount *big.Int) (*big.Int, error) {
	if _, err := f.authorize(caller); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	balance, err := f.token.BalanceOf(f.asset, f.account)
	if err != nil {
		return nil, err
	}
	sent := new(big.Int).Set(amount)
	if sent.Cmp(balance) > 0 {
		sent.Set(balance)
	}
	if sent.Sign() == 0 {
		return sent, nil
	}
	if err := f.token.Transfer(f.asset, f.account, recipient, sent); err != nil {
		return nil, err
	}
	f.emitter.Emit(forwarderEvent{evt: &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"asset":     f.asset,
			"account":   crypto.FromRaw(f.account).String(),
			"recipient": crypto.FromRaw(recipient).String(),
			"requested": amount.String(),
			"sent":      sent.String(),
		},
	}})
	return sent, nil
}

// Sweep forwards the entire held balance to the owner.
func (f *Forwarder) Sweep(caller [20]byte) (*big.Int, error) {
	owner, err := f.authorize(caller)
	if err != nil {
		return nil, err
	}
	balance, err := f.token.BalanceOf(f.asset, f.account)
	if err != nil {
		return nil, err
	}
	return f.SafeTransfer(caller, owner, balance)
}

// TransferOwnership hands control to next.
func (f *Forwarder) TransferOwnership(caller, next [20]byte) error {
	owner, err := f.authorize(caller)
	if err != nil {
		return err
	}
	if next == ([20]byte{}) {
		return ErrZeroOwner
	}
	return f.setOwner(owner, next)
}

// RenounceOwnership leaves the forwarder without an owner. Held funds become
// permanently locked.
func (f *Forwarder) RenounceOwnership(caller [20]byte) error {
	owner, err := f.authorize(caller)
	if err != nil {
		return err
	}
	return f.setOwner(owner, [20]byte{})
}

func (f *Forwarder) setOwner(previous, next [20]byte) error {
	if err := f.state.SetForwarderOwner(f.account, next); err != nil {
		return err
	}
	f.emitter.Emit(forwarderEvent{evt: &types.Event{
		Type: EventTypeOwnershipTransferred,
		Attributes: map[string]string{
			"account":       crypto.FromRaw(f.account).String(),
			"previousOwner": crypto.FromRaw(previous).String(),
			"newOwner":      crypto.FromRaw(next).String(),
		},
	}})
	return nil
}
