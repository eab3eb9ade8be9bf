package farm

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"farmledger/core/events"
	"farmledger/core/types"
	nativecommon "farmledger/native/common"
)

const moduleName = "farm"

// DefaultModuleAddress is the custody account of the farm: staked principal
// and minted rewards are held here.
var DefaultModuleAddress = moduleAddress(moduleName)

func moduleAddress(name string) [20]byte {
	var out [20]byte
	copy(out[:], ethcrypto.Keccak256([]byte("module/" + name))[12:])
	return out
}

type engineState interface {
	FarmParams() (*Params, bool, error)
	FarmPutParams(params *Params) error
	FarmPoolCount() (uint64, error)
	FarmPool(index uint64) (*Pool, bool, error)
	FarmPutPool(index uint64, pool *Pool) error
	FarmPoolByAsset(asset string) (uint64, bool, error)
	FarmPutPoolAsset(asset string, index uint64) error
	FarmPosition(pool uint64, account [20]byte) (*UserPosition, bool, error)
	FarmPutPosition(position *UserPosition) error
}

// TokenLedger is the fungible-token capability the farm relies on for every
// asset movement. Implementations must fail without side effects.
type TokenLedger interface {
	Transfer(asset string, from, to [20]byte, amount *big.Int) error
	TransferFrom(asset string, spender, from, to [20]byte, amount *big.Int) error
	BalanceOf(asset string, account [20]byte) (*big.Int, error)
	Mint(asset string, minter, to [20]byte, amount *big.Int) error
}

// Engine implements the multi-pool reward ledger. An Engine is not safe for
// concurrent use; callers serialize operations in block order.
type Engine struct {
	state         engineState
	token         TokenLedger
	emitter       events.Emitter
	pauses        nativecommon.PauseView
	moduleAddress [20]byte
	blockHeight   uint64
}

// NewEngine constructs a farm engine holding custody at moduleAddr.
func NewEngine(moduleAddr [20]byte) *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		moduleAddress: moduleAddr,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the token capability used for asset movements.
func (e *Engine) SetTokenLedger(token TokenLedger) { e.token = token }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires an external pause switch in addition to Params.Paused.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetBlockHeight records the block height subsequent operations execute at.
func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.blockHeight = height
}

// BlockHeight returns the configured block height.
func (e *Engine) BlockHeight() uint64 {
	if e == nil {
		return 0
	}
	return e.blockHeight
}

// ModuleAddress returns the custody account of the farm.
func (e *Engine) ModuleAddress() [20]byte {
	return e.moduleAddress
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.token == nil {
		return errNilToken
	}
	return nil
}

// Initialize constructs the farm: it stores the global parameters and creates
// pool 0 staking the reward asset itself.
func (e *Engine) Initialize(cfg Config) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, ok, err := e.state.FarmParams(); err != nil {
		return err
	} else if ok {
		return ErrAlreadyInitialized
	}
	params := cfg.params()
	params.TotalAllocPoint = cfg.InitialAllocPoint
	pool := &Pool{
		Asset:             params.RewardAsset,
		AllocPoint:        cfg.InitialAllocPoint,
		LastRewardBlock:   maxUint64(e.blockHeight, params.StartBlock),
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
	}
	if err := e.state.FarmPutParams(params); err != nil {
		return err
	}
	if err := e.state.FarmPutPool(0, pool); err != nil {
		return err
	}
	if err := e.state.FarmPutPoolAsset(pool.Asset, 0); err != nil {
		return err
	}
	e.emit(PoolAddedEvent(0, pool, params.TotalAllocPoint))
	return nil
}

// Params returns a copy of the global parameters.
func (e *Engine) Params() (*Params, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	return params.Clone(), nil
}

// PoolCount returns the number of registered pools.
func (e *Engine) PoolCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.FarmPoolCount()
}

// PoolInfo returns a copy of the pool at index as currently persisted.
func (e *Engine) PoolInfo(index uint64) (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool(index)
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// UserInfo returns the position of account in pool. Accounts that never
// deposited yield a zero position.
func (e *Engine) UserInfo(index uint64, account [20]byte) (*UserPosition, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, err := e.loadPool(index); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(index, account)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}

func (e *Engine) loadParams() (*Params, error) {
	params, ok, err := e.state.FarmParams()
	if err != nil {
		return nil, err
	}
	if !ok || params == nil {
		return nil, ErrNotInitialized
	}
	params = params.Clone()
	return params, nil
}

func (e *Engine) loadPool(index uint64) (*Pool, error) {
	pool, ok, err := e.state.FarmPool(index)
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, index)
	}
	pool = pool.Clone()
	pool.ensureDefaults()
	return pool, nil
}

func (e *Engine) loadPosition(index uint64, account [20]byte) (*UserPosition, error) {
	pos, ok, err := e.state.FarmPosition(index, account)
	if err != nil {
		return nil, err
	}
	if !ok || pos == nil {
		return newPosition(index, account), nil
	}
	pos = pos.Clone()
	pos.Pool = index
	pos.Account = account
	pos.ensureDefaults()
	return pos, nil
}

func (e *Engine) paused(params *Params) error {
	if params.Paused {
		return ErrModulePaused
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return fmt.Errorf("%w: %v", ErrModulePaused, err)
	}
	return nil
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
