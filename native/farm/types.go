package farm

import "math/big"

// Params is the singleton global state of a farm. It is created once by
// Initialize and afterwards mutated only by administration operations and the
// emission engine.
type Params struct {
	Admin           [20]byte `json:"admin"`
	RewardAsset     string   `json:"rewardAsset"`
	RewardPerBlock  *big.Int `json:"rewardPerBlock"`
	StartBlock      uint64   `json:"startBlock"`
	MaxMint         *big.Int `json:"maxMint"`
	TotalMinted     *big.Int `json:"totalMinted"`
	TotalAllocPoint uint64   `json:"totalAllocPoint"`
	FeeAddress      [20]byte `json:"feeAddress"`
	FeeBlockWindow  uint64   `json:"feeBlockWindow"`
	FeeRateBps      uint64   `json:"feeRateBps"`
	RewardFeeBps    uint64   `json:"rewardFeeBps"`
	Paused          bool     `json:"paused"`
}

// Clone returns a deep copy of the parameters.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	clone.RewardPerBlock = newBigInt(p.RewardPerBlock)
	clone.MaxMint = newBigInt(p.MaxMint)
	clone.TotalMinted = newBigInt(p.TotalMinted)
	return &clone
}

// FeesEnabled reports whether a fee recipient is configured.
func (p *Params) FeesEnabled() bool {
	return p != nil && p.FeeAddress != [20]byte{}
}

// Pool is one staking market for a single asset.
type Pool struct {
	Asset             string   `json:"asset"`
	AllocPoint        uint64   `json:"allocPoint"`
	LastRewardBlock   uint64   `json:"lastRewardBlock"`
	AccRewardPerShare *big.Int `json:"accRewardPerShare"`
	TotalStaked       *big.Int `json:"totalStaked"`
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.AccRewardPerShare = newBigInt(p.AccRewardPerShare)
	clone.TotalStaked = newBigInt(p.TotalStaked)
	return &clone
}

func (p *Pool) ensureDefaults() {
	if p.AccRewardPerShare == nil {
		p.AccRewardPerShare = big.NewInt(0)
	}
	if p.TotalStaked == nil {
		p.TotalStaked = big.NewInt(0)
	}
}

// UserPosition is the per (pool, depositor) accounting record.
type UserPosition struct {
	Pool         uint64   `json:"pool"`
	Account      [20]byte `json:"account"`
	Amount       *big.Int `json:"amount"`
	RewardDebt   *big.Int `json:"rewardDebt"`
	DepositBlock uint64   `json:"depositBlock"`
}

// Clone returns a deep copy of the position.
func (u *UserPosition) Clone() *UserPosition {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Amount = newBigInt(u.Amount)
	clone.RewardDebt = newBigInt(u.RewardDebt)
	return &clone
}

func newPosition(pool uint64, account [20]byte) *UserPosition {
	return &UserPosition{
		Pool:       pool,
		Account:    account,
		Amount:     big.NewInt(0),
		RewardDebt: big.NewInt(0),
	}
}

func (u *UserPosition) ensureDefaults() {
	if u.Amount == nil {
		u.Amount = big.NewInt(0)
	}
	if u.RewardDebt == nil {
		u.RewardDebt = big.NewInt(0)
	}
}

// Receipt summarises the token movements performed by a staking operation.
type Receipt struct {
	Pool      uint64        `json:"pool"`
	Account   [20]byte      `json:"account"`
	Principal *big.Int      `json:"principal"`
	Fee       *big.Int      `json:"fee"`
	Reward    *big.Int      `json:"reward"`
	RewardFee *big.Int      `json:"rewardFee"`
	Shortfall *big.Int      `json:"shortfall"`
	Minted    *big.Int      `json:"minted"`
	Position  *UserPosition `json:"position"`
}

func newReceipt(pool uint64, account [20]byte) *Receipt {
	return &Receipt{
		Pool:      pool,
		Account:   account,
		Principal: big.NewInt(0),
		Fee:       big.NewInt(0),
		Reward:    big.NewInt(0),
		RewardFee: big.NewInt(0),
		Shortfall: big.NewInt(0),
		Minted:    big.NewInt(0),
	}
}
