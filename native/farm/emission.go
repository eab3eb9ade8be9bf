package farm

import (
	"fmt"
	"math/big"
)

// emission is the outcome of bringing one pool's accumulator up to a height.
type emission struct {
	attempted *big.Int
	minted    *big.Int
	capped    bool
}

// sync advances pool (in memory) to height and charges the minted amount to
// params.TotalMinted. No token is minted here: callers invoke mintRewards once
// the rest of the operation has been validated.
func (e *Engine) sync(params *Params, pool *Pool, height uint64) (*emission, error) {
	out := &emission{attempted: big.NewInt(0), minted: big.NewInt(0)}
	if height <= pool.LastRewardBlock {
		return out, nil
	}
	from := maxUint64(pool.LastRewardBlock, params.StartBlock)
	var elapsed uint64
	if height > from {
		elapsed = height - from
	}
	pool.LastRewardBlock = height
	if elapsed == 0 || pool.TotalStaked.Sign() == 0 {
		// Windows that elapse while a pool is empty are forfeited.
		return out, nil
	}
	reward, err := emissionFor(elapsed, params.RewardPerBlock, pool.AllocPoint, params.TotalAllocPoint)
	if err != nil {
		return nil, err
	}
	out.attempted = reward
	room := headroom(params.MaxMint, params.TotalMinted)
	if reward.Cmp(room) > 0 {
		out.capped = room.Sign() > 0
		reward = room
	}
	if reward.Sign() == 0 {
		return out, nil
	}
	acc, err := accumulate(pool.AccRewardPerShare, reward, pool.TotalStaked)
	if err != nil {
		return nil, err
	}
	minted, err := checkedAdd(params.TotalMinted, reward)
	if err != nil {
		return nil, err
	}
	pool.AccRewardPerShare = acc
	params.TotalMinted = minted
	out.minted = reward
	return out, nil
}

// mintRewards mints the synced emission into module custody and emits the
// accounting events.
func (e *Engine) mintRewards(params *Params, index uint64, pool *Pool, em *emission) error {
	if em == nil {
		return nil
	}
	if em.minted.Sign() > 0 {
		if err := e.token.Mint(params.RewardAsset, e.moduleAddress, e.moduleAddress, em.minted); err != nil {
			return fmt.Errorf("%w: mint rewards: %v", ErrTransferFailed, err)
		}
		e.emit(RewardMintedEvent(index, em.minted, params.TotalMinted, pool.AccRewardPerShare, e.blockHeight))
	}
	if em.capped {
		e.emit(MintCapReachedEvent(index, em.attempted, em.minted, params.MaxMint))
	}
	return nil
}

// UpdatePool synchronises a single pool's accumulator to the current height.
// Any caller may trigger it.
func (e *Engine) UpdatePool(index uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	pool, err := e.loadPool(index)
	if err != nil {
		return err
	}
	em, err := e.sync(params, pool, e.blockHeight)
	if err != nil {
		return err
	}
	if err := e.mintRewards(params, index, pool, em); err != nil {
		return err
	}
	if err := e.state.FarmPutPool(index, pool); err != nil {
		return err
	}
	return e.state.FarmPutParams(params)
}

// MassUpdatePools synchronises every pool to the current height.
func (e *Engine) MassUpdatePools() error {
	if err := e.ready(); err != nil {
		return err
	}
	params, err := e.loadParams()
	if err != nil {
		return err
	}
	if err := e.massUpdate(params); err != nil {
		return err
	}
	return e.state.FarmPutParams(params)
}

// massUpdate syncs and persists every pool; params is updated in memory and
// must be persisted by the caller.
func (e *Engine) massUpdate(params *Params) error {
	count, err := e.state.FarmPoolCount()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		pool, err := e.loadPool(i)
		if err != nil {
			return err
		}
		em, err := e.sync(params, pool, e.blockHeight)
		if err != nil {
			return err
		}
		if err := e.mintRewards(params, i, pool, em); err != nil {
			return err
		}
		if err := e.state.FarmPutPool(i, pool); err != nil {
			return err
		}
	}
	return nil
}

// PendingReward returns the gross reward account is owed in pool at the
// current height. It does not mutate state. A harvest pays exactly this
// amount split as Reward + RewardFee + Shortfall: inside the fee window the
// reward fee is diverted to the fee address, and a custody shortfall
// truncates the payout.
func (e *Engine) PendingReward(index uint64, account [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(index)
	if err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(index, account)
	if err != nil {
		return nil, err
	}
	// params and pool are private copies; the simulated sync is discarded.
	if _, err := e.sync(params, pool, e.blockHeight); err != nil {
		return nil, err
	}
	return pendingFor(pos.Amount, pool.AccRewardPerShare, pos.RewardDebt)
}
