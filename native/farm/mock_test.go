package farm

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"farmledger/core/events"
)

type mockState struct {
	params    *Params
	pools     map[uint64]*Pool
	assets    map[string]uint64
	positions map[string]*UserPosition
}

func newMockState() *mockState {
	return &mockState{
		pools:     make(map[uint64]*Pool),
		assets:    make(map[string]uint64),
		positions: make(map[string]*UserPosition),
	}
}

func (m *mockState) FarmParams() (*Params, bool, error) {
	if m.params == nil {
		return nil, false, nil
	}
	return m.params.Clone(), true, nil
}

func (m *mockState) FarmPutParams(params *Params) error {
	m.params = params.Clone()
	return nil
}

func (m *mockState) FarmPoolCount() (uint64, error) {
	return uint64(len(m.pools)), nil
}

func (m *mockState) FarmPool(index uint64) (*Pool, bool, error) {
	pool, ok := m.pools[index]
	if !ok {
		return nil, false, nil
	}
	return pool.Clone(), true, nil
}

func (m *mockState) FarmPutPool(index uint64, pool *Pool) error {
	m.pools[index] = pool.Clone()
	return nil
}

func (m *mockState) FarmPoolByAsset(asset string) (uint64, bool, error) {
	index, ok := m.assets[asset]
	return index, ok, nil
}

func (m *mockState) FarmPutPoolAsset(asset string, index uint64) error {
	m.assets[asset] = index
	return nil
}

func positionKey(pool uint64, account [20]byte) string {
	return fmt.Sprintf("%d/%x", pool, account)
}

func (m *mockState) FarmPosition(pool uint64, account [20]byte) (*UserPosition, bool, error) {
	pos, ok := m.positions[positionKey(pool, account)]
	if !ok {
		return nil, false, nil
	}
	return pos.Clone(), true, nil
}

func (m *mockState) FarmPutPosition(position *UserPosition) error {
	m.positions[positionKey(position.Pool, position.Account)] = position.Clone()
	return nil
}

var errMockInsufficient = errors.New("insufficient balance")

type mockToken struct {
	balances map[string]map[[20]byte]*big.Int
	// skipMint simulates a ledger that has not credited emissions yet.
	skipMint bool
	minted   *big.Int
}

func newMockToken() *mockToken {
	return &mockToken{balances: make(map[string]map[[20]byte]*big.Int), minted: big.NewInt(0)}
}

func (m *mockToken) balance(asset string, account [20]byte) *big.Int {
	if bals, ok := m.balances[asset]; ok {
		if bal, ok := bals[account]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return big.NewInt(0)
}

func (m *mockToken) set(asset string, account [20]byte, amount *big.Int) {
	if _, ok := m.balances[asset]; !ok {
		m.balances[asset] = make(map[[20]byte]*big.Int)
	}
	m.balances[asset][account] = new(big.Int).Set(amount)
}

func (m *mockToken) credit(asset string, account [20]byte, amount int64) {
	m.set(asset, account, new(big.Int).Add(m.balance(asset, account), big.NewInt(amount)))
}

func (m *mockToken) move(asset string, from, to [20]byte, amount *big.Int) error {
	src := m.balance(asset, from)
	if src.Cmp(amount) < 0 {
		return errMockInsufficient
	}
	m.set(asset, from, src.Sub(src, amount))
	m.set(asset, to, new(big.Int).Add(m.balance(asset, to), amount))
	return nil
}

func (m *mockToken) Transfer(asset string, from, to [20]byte, amount *big.Int) error {
	return m.move(asset, from, to, amount)
}

func (m *mockToken) TransferFrom(asset string, _ [20]byte, from, to [20]byte, amount *big.Int) error {
	return m.move(asset, from, to, amount)
}

func (m *mockToken) BalanceOf(asset string, account [20]byte) (*big.Int, error) {
	return m.balance(asset, account), nil
}

func (m *mockToken) Mint(asset string, _ [20]byte, to [20]byte, amount *big.Int) error {
	if m.skipMint {
		return nil
	}
	m.minted.Add(m.minted, amount)
	m.set(asset, to, new(big.Int).Add(m.balance(asset, to), amount))
	return nil
}

type recorder struct {
	events []events.Event
}

func (r *recorder) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recorder) count(eventType string) int {
	n := 0
	for _, evt := range r.events {
		if evt.EventType() == eventType {
			n++
		}
	}
	return n
}

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

const (
	rewardAsset = "FARM"
	lpAsset     = "LPT"
)

var (
	admin  = addr(0xA0)
	feeTo  = addr(0xFE)
	module = addr(0xCC)
	alice  = addr(0x01)
	bob    = addr(0x02)
)

type harness struct {
	engine *Engine
	state  *mockState
	token  *mockToken
	events *recorder
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Admin = admin
	cfg.RewardAsset = rewardAsset
	cfg.RewardPerBlock = big.NewInt(100)
	cfg.StartBlock = 1000
	cfg.MaxMint = big.NewInt(1_000_000)
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		engine: NewEngine(module),
		state:  newMockState(),
		token:  newMockToken(),
		events: &recorder{},
	}
	h.engine.SetState(h.state)
	h.engine.SetTokenLedger(h.token)
	h.engine.SetEmitter(h.events)
	h.engine.SetBlockHeight(cfg.StartBlock)
	if err := h.engine.Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return h
}

func (h *harness) at(height uint64) *harness {
	h.engine.SetBlockHeight(height)
	return h
}

func (h *harness) addPool(t *testing.T, asset string, alloc uint64) uint64 {
	t.Helper()
	index, err := h.engine.AddPool(admin, asset, alloc, true)
	if err != nil {
		t.Fatalf("add pool %s: %v", asset, err)
	}
	return index
}

func (h *harness) deposit(t *testing.T, pool uint64, who [20]byte, amount int64) *Receipt {
	t.Helper()
	receipt, err := h.engine.Deposit(pool, who, big.NewInt(amount))
	if err != nil {
		t.Fatalf("deposit %d into pool %d: %v", amount, pool, err)
	}
	return receipt
}

func (h *harness) withdraw(t *testing.T, pool uint64, who [20]byte, amount int64) *Receipt {
	t.Helper()
	receipt, err := h.engine.Withdraw(pool, who, big.NewInt(amount))
	if err != nil {
		t.Fatalf("withdraw %d from pool %d: %v", amount, pool, err)
	}
	return receipt
}

func (h *harness) pending(t *testing.T, pool uint64, who [20]byte) int64 {
	t.Helper()
	pending, err := h.engine.PendingReward(pool, who)
	if err != nil {
		t.Fatalf("pending reward: %v", err)
	}
	return pending.Int64()
}

func expectBalance(t *testing.T, token *mockToken, asset string, who [20]byte, want int64) {
	t.Helper()
	if got := token.balance(asset, who); got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("%s balance: expected %d, got %s", asset, want, got)
	}
}
