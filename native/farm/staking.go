package farm

import (
	"fmt"
	"math/big"
)

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !fitsU256(amount) {
		return fmt.Errorf("%w: amount out of range", ErrInvalidAmount)
	}
	return nil
}

// Deposit stakes amount of the pool asset on behalf of account. Rewards
// pending on the existing stake are paid out first.
func (e *Engine) Deposit(index uint64, account [20]byte, amount *big.Int) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := validAmount(amount); err != nil {
		return nil, err
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	if err := e.paused(params); err != nil {
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
	em, err := e.sync(params, pool, e.blockHeight)
	if err != nil {
		return nil, err
	}
	pending, err := pendingFor(pos.Amount, pool.AccRewardPerShare, pos.RewardDebt)
	if err != nil {
		return nil, err
	}
	if err := e.token.TransferFrom(pool.Asset, e.moduleAddress, account, e.moduleAddress, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if pos.Amount, err = checkedAdd(pos.Amount, amount); err != nil {
		return nil, err
	}
	if pool.TotalStaked, err = checkedAdd(pool.TotalStaked, amount); err != nil {
		return nil, err
	}
	if err := e.mintRewards(params, index, pool, em); err != nil {
		return nil, err
	}
	receipt := newReceipt(index, account)
	receipt.Principal = newBigInt(amount)
	receipt.Minted = newBigInt(em.minted)
	if err := e.payReward(params, index, pool, account, pending, 0, receipt); err != nil {
		return nil, err
	}
	pos.DepositBlock = e.blockHeight
	if pos.RewardDebt, err = accruedFor(pos.Amount, pool.AccRewardPerShare); err != nil {
		return nil, err
	}
	if err := e.commit(params, index, pool, pos); err != nil {
		return nil, err
	}
	receipt.Position = pos.Clone()
	e.emit(DepositEvent(receipt))
	if receipt.Reward.Sign() > 0 {
		e.emit(HarvestEvent(receipt))
	}
	return receipt, nil
}

// Withdraw returns amount of staked principal to account together with all
// pending rewards. A zero amount harvests without touching the stake.
func (e *Engine) Withdraw(index uint64, account [20]byte, amount *big.Int) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	params, err := e.loadParams()
	if err != nil {
		return nil, err
	}
	if err := e.paused(params); err != nil {
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
	if amount.Cmp(pos.Amount) > 0 {
		return nil, ErrInsufficientStake
	}
	em, err := e.sync(params, pool, e.blockHeight)
	if err != nil {
		return nil, err
	}
	pending, err := pendingFor(pos.Amount, pool.AccRewardPerShare, pos.RewardDebt)
	if err != nil {
		return nil, err
	}
	if err := e.mintRewards(params, index, pool, em); err != nil {
		return nil, err
	}
	receipt := newReceipt(index, account)
	receipt.Principal = newBigInt(amount)
	receipt.Minted = newBigInt(em.minted)
	inWindow := e.inFeeWindow(params, pos)

	if amount.Sign() > 0 {
		payout := newBigInt(amount)
		if inWindow {
			fee, err := bpsShare(amount, params.FeeRateBps)
			if err != nil {
				return nil, err
			}
			if fee.Sign() > 0 {
				if err := e.token.Transfer(pool.Asset, e.moduleAddress, params.FeeAddress, fee); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
				}
				payout.Sub(payout, fee)
				receipt.Fee = fee
			}
		}
		if payout.Sign() > 0 {
			if err := e.token.Transfer(pool.Asset, e.moduleAddress, account, payout); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
			}
		}
		if pos.Amount, err = checkedSub(pos.Amount, amount); err != nil {
			return nil, err
		}
		if pool.TotalStaked, err = checkedSub(pool.TotalStaked, amount); err != nil {
			return nil, err
		}
	}
	var rewardFeeBps uint64
	if inWindow {
		rewardFeeBps = params.RewardFeeBps
	}
	if err := e.payReward(params, index, pool, account, pending, rewardFeeBps, receipt); err != nil {
		return nil, err
	}
	if pos.RewardDebt, err = accruedFor(pos.Amount, pool.AccRewardPerShare); err != nil {
		return nil, err
	}
	if err := e.commit(params, index, pool, pos); err != nil {
		return nil, err
	}
	receipt.Position = pos.Clone()
	if amount.Sign() > 0 {
		e.emit(WithdrawEvent(receipt))
	}
	if receipt.Fee.Sign() > 0 || receipt.RewardFee.Sign() > 0 {
		e.emit(FeeChargedEvent(index, account, params.FeeAddress, receipt.Fee, receipt.RewardFee))
	}
	if receipt.Reward.Sign() > 0 || receipt.RewardFee.Sign() > 0 {
		e.emit(HarvestEvent(receipt))
	}
	return receipt, nil
}

// Harvest pays out pending rewards without changing the stake.
func (e *Engine) Harvest(index uint64, account [20]byte) (*Receipt, error) {
	return e.Withdraw(index, account, big.NewInt(0))
}

// EmergencyWithdraw returns the full stake of account and forfeits every
// pending reward. It is available even while the farm is paused.
func (e *Engine) EmergencyWithdraw(index uint64, account [20]byte) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
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
	amount := newBigInt(pos.Amount)
	if amount.Sign() > 0 {
		if err := e.token.Transfer(pool.Asset, e.moduleAddress, account, amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	if pool.TotalStaked, err = checkedSub(pool.TotalStaked, amount); err != nil {
		return nil, err
	}
	pos.Amount = big.NewInt(0)
	pos.RewardDebt = big.NewInt(0)
	if err := e.commit(params, index, pool, pos); err != nil {
		return nil, err
	}
	receipt := newReceipt(index, account)
	receipt.Principal = amount
	receipt.Position = pos.Clone()
	e.emit(EmergencyWithdrawEvent(index, account, amount))
	return receipt, nil
}

func (e *Engine) inFeeWindow(params *Params, pos *UserPosition) bool {
	if !params.FeesEnabled() || params.FeeBlockWindow == 0 {
		return false
	}
	if e.blockHeight < pos.DepositBlock {
		return true
	}
	return e.blockHeight-pos.DepositBlock < params.FeeBlockWindow
}

// payReward transfers owed reward units from custody to account. The payout
// is truncated to the reward balance custody can spare; principal staked in
// the reward-asset pool is never used to pay rewards.
func (e *Engine) payReward(params *Params, index uint64, pool *Pool, account [20]byte, owed *big.Int, feeBps uint64, receipt *Receipt) error {
	if owed == nil || owed.Sign() == 0 {
		return nil
	}
	available, err := e.rewardCustody(params, index, pool)
	if err != nil {
		return err
	}
	paid := minBig(owed, available)
	if paid.Cmp(owed) < 0 {
		receipt.Shortfall = new(big.Int).Sub(owed, paid)
		e.emit(PayoutShortfallEvent(index, account, owed, paid))
	}
	if paid.Sign() == 0 {
		return nil
	}
	fee, err := bpsShare(paid, feeBps)
	if err != nil {
		return err
	}
	if fee.Sign() > 0 {
		if err := e.token.Transfer(params.RewardAsset, e.moduleAddress, params.FeeAddress, fee); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		receipt.RewardFee = fee
	}
	net := new(big.Int).Sub(paid, fee)
	if net.Sign() > 0 {
		if err := e.token.Transfer(params.RewardAsset, e.moduleAddress, account, net); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}
	receipt.Reward = net
	return nil
}

// rewardCustody returns the module's reward-asset balance less the principal
// staked in the reward-asset pool. pool is the in-flight copy of index.
func (e *Engine) rewardCustody(params *Params, index uint64, pool *Pool) (*big.Int, error) {
	balance, err := e.token.BalanceOf(params.RewardAsset, e.moduleAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	balance = newBigInt(balance)
	var staked *big.Int
	if pool.Asset == params.RewardAsset {
		staked = pool.TotalStaked
	} else {
		rewardIndex, ok, err := e.state.FarmPoolByAsset(params.RewardAsset)
		if err != nil {
			return nil, err
		}
		if ok && rewardIndex != index {
			rewardPool, err := e.loadPool(rewardIndex)
			if err != nil {
				return nil, err
			}
			staked = rewardPool.TotalStaked
		}
	}
	if staked == nil || balance.Cmp(staked) <= 0 {
		if staked == nil {
			return balance, nil
		}
		return big.NewInt(0), nil
	}
	return balance.Sub(balance, staked), nil
}

func (e *Engine) commit(params *Params, index uint64, pool *Pool, pos *UserPosition) error {
	if err := e.state.FarmPutPool(index, pool); err != nil {
		return err
	}
	if err := e.state.FarmPutPosition(pos); err != nil {
		return err
	}
	return e.state.FarmPutParams(params)
}
