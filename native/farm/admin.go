package farm

import (
	"fmt"
	"math/big"
	"strconv"
)

func (e *Engine) authorize(caller [20]byte) (*Params, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	if caller != params.Admin {
		return nil, ErrUnauthorized
	}
	return params, nil
}

// AddPool registers a new pool staking asset with the supplied weight. When
// withUpdate is set every existing pool is synchronised first so the new
// weight applies only to future blocks.
func (e *Engine) AddPool(caller [20]byte, asset string, allocPoint uint64, withUpdate bool) (uint64, error) {
	params, err := e.authorize(caller)
	if err != nil {
		return 0, err
	}
	asset = normalizeAsset(asset)
	if asset == "" {
		return 0, fmt.Errorf("%w: asset required", ErrInvalidParams)
	}
	if _, exists, err := e.state.FarmPoolByAsset(asset); err != nil {
		return 0, err
	} else if exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicatePool, asset)
	}
	total := params.TotalAllocPoint + allocPoint
	if total < params.TotalAllocPoint {
		return 0, ErrInvariantViolation
	}
	if withUpdate {
		if err := e.massUpdate(params); err != nil {
			return 0, err
		}
	}
	index, err := e.state.FarmPoolCount()
	if err != nil {
		return 0, err
	}
	pool := &Pool{
		Asset:             asset,
		AllocPoint:        allocPoint,
		LastRewardBlock:   maxUint64(e.blockHeight, params.StartBlock),
		AccRewardPerShare: big.NewInt(0),
		TotalStaked:       big.NewInt(0),
	}
	params.TotalAllocPoint = total
	if err := e.state.FarmPutPool(index, pool); err != nil {
		return 0, err
	}
	if err := e.state.FarmPutPoolAsset(asset, index); err != nil {
		return 0, err
	}
	if err := e.state.FarmPutParams(params); err != nil {
		return 0, err
	}
	e.emit(PoolAddedEvent(index, pool, total))
	return index, nil
}

// SetPoolWeight changes the allocation weight of an existing pool.
func (e *Engine) SetPoolWeight(caller [20]byte, index uint64, allocPoint uint64, withUpdate bool) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if _, err := e.loadPool(index); err != nil {
		return err
	}
	if withUpdate {
		if err := e.massUpdate(params); err != nil {
			return err
		}
	}
	pool, err := e.loadPool(index)
	if err != nil {
		return err
	}
	previous := pool.AllocPoint
	if params.TotalAllocPoint < previous {
		return ErrInvariantViolation
	}
	total := params.TotalAllocPoint - previous + allocPoint
	if total < allocPoint {
		return ErrInvariantViolation
	}
	pool.AllocPoint = allocPoint
	params.TotalAllocPoint = total
	if err := e.state.FarmPutPool(index, pool); err != nil {
		return err
	}
	if err := e.state.FarmPutParams(params); err != nil {
		return err
	}
	e.emit(PoolUpdatedEvent(index, previous, allocPoint, total))
	return nil
}

// SetEmissionRate updates the reward emitted per block. Every pool is
// synchronised at the old rate before the change takes effect.
func (e *Engine) SetEmissionRate(caller [20]byte, rate *big.Int) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if !fitsU256(rate) {
		return fmt.Errorf("%w: reward per block out of range", ErrInvalidParams)
	}
	if err := e.massUpdate(params); err != nil {
		return err
	}
	params.RewardPerBlock = newBigInt(rate)
	return e.storeParams(params, "rewardPerBlock", rate.String())
}

// SetMaxMint updates the lifetime mint cap. Lowering it below the amount
// already minted halts further emission but never claws back rewards.
func (e *Engine) SetMaxMint(caller [20]byte, maxMint *big.Int) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if !fitsU256(maxMint) {
		return fmt.Errorf("%w: max mint out of range", ErrInvalidParams)
	}
	params.MaxMint = newBigInt(maxMint)
	return e.storeParams(params, "maxMint", maxMint.String())
}

// SetFeeAddress sets the early-withdrawal fee recipient. The zero address
// disables fees.
func (e *Engine) SetFeeAddress(caller [20]byte, recipient [20]byte) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	params.FeeAddress = recipient
	value := ""
	if recipient != ([20]byte{}) {
		value = addrString(recipient)
	}
	return e.storeParams(params, "feeAddress", value)
}

// SetFeeWindow sets the number of blocks after a deposit during which
// withdrawals are charged.
func (e *Engine) SetFeeWindow(caller [20]byte, blocks uint64) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	params.FeeBlockWindow = blocks
	return e.storeParams(params, "feeBlockWindow", strconv.FormatUint(blocks, 10))
}

// SetFeeRate sets the share of withdrawn principal charged inside the fee window.
func (e *Engine) SetFeeRate(caller [20]byte, bps uint64) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if bps > basisPointsDenom {
		return fmt.Errorf("%w: fee rate must not exceed %d bps", ErrInvalidParams, basisPointsDenom)
	}
	params.FeeRateBps = bps
	return e.storeParams(params, "feeRateBps", strconv.FormatUint(bps, 10))
}

// SetRewardFee sets the share of harvested reward charged inside the fee window.
func (e *Engine) SetRewardFee(caller [20]byte, bps uint64) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if bps > basisPointsDenom {
		return fmt.Errorf("%w: reward fee must not exceed %d bps", ErrInvalidParams, basisPointsDenom)
	}
	params.RewardFeeBps = bps
	return e.storeParams(params, "rewardFeeBps", strconv.FormatUint(bps, 10))
}

// SetPaused toggles the farm-wide pause switch. Emergency withdrawals remain
// available while paused.
func (e *Engine) SetPaused(caller [20]byte, paused bool) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	params.Paused = paused
	return e.storeParams(params, "paused", strconv.FormatBool(paused))
}

// TransferAdmin hands the administrative role to next.
func (e *Engine) TransferAdmin(caller [20]byte, next [20]byte) error {
	params, err := e.authorize(caller)
	if err != nil {
		return err
	}
	if next == ([20]byte{}) {
		return fmt.Errorf("%w: admin identity required", ErrInvalidParams)
	}
	params.Admin = next
	return e.storeParams(params, "admin", addrString(next))
}

func (e *Engine) storeParams(params *Params, field, value string) error {
	if err := e.state.FarmPutParams(params); err != nil {
		return err
	}
	e.emit(ParamsUpdatedEvent(field, value))
	return nil
}
