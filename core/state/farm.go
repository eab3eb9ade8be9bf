package state

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"farmledger/native/farm"
)

var (
	farmParamsKey    = []byte("farm/params")
	farmPoolCountKey = []byte("farm/pools/count")
	farmPoolPrefix   = []byte("farm/pool/")
	farmAssetPrefix  = []byte("farm/asset/")
	farmUserPrefix   = []byte("farm/user/")
)

func farmPoolKey(index uint64) []byte {
	buf := make([]byte, len(farmPoolPrefix)+8)
	copy(buf, farmPoolPrefix)
	binary.BigEndian.PutUint64(buf[len(farmPoolPrefix):], index)
	return buf
}

func farmAssetKey(asset string) []byte {
	return append(append([]byte(nil), farmAssetPrefix...), asset...)
}

func farmPositionKey(pool uint64, account [20]byte) []byte {
	buf := make([]byte, len(farmUserPrefix)+8+len(account))
	copy(buf, farmUserPrefix)
	binary.BigEndian.PutUint64(buf[len(farmUserPrefix):], pool)
	copy(buf[len(farmUserPrefix)+8:], account[:])
	return buf
}

type storedFarmParams struct {
	Admin           [20]byte
	RewardAsset     string
	RewardPerBlock  *big.Int
	StartBlock      uint64
	MaxMint         *big.Int
	TotalMinted     *big.Int
	TotalAllocPoint uint64
	FeeAddress      [20]byte
	FeeBlockWindow  uint64
	FeeRateBps      uint64
	RewardFeeBps    uint64
	Paused          bool
}

type storedFarmPool struct {
	Asset             string
	AllocPoint        uint64
	LastRewardBlock   uint64
	AccRewardPerShare *big.Int
	TotalStaked       *big.Int
}

type storedFarmPosition struct {
	Amount       *big.Int
	RewardDebt   *big.Int
	DepositBlock uint64
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// FarmParams loads the farm's global parameters.
func (tx *Tx) FarmParams() (*farm.Params, bool, error) {
	var rec storedFarmParams
	ok, err := tx.KVGet(farmParamsKey, &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &farm.Params{
		Admin:           rec.Admin,
		RewardAsset:     rec.RewardAsset,
		RewardPerBlock:  nonNil(rec.RewardPerBlock),
		StartBlock:      rec.StartBlock,
		MaxMint:         nonNil(rec.MaxMint),
		TotalMinted:     nonNil(rec.TotalMinted),
		TotalAllocPoint: rec.TotalAllocPoint,
		FeeAddress:      rec.FeeAddress,
		FeeBlockWindow:  rec.FeeBlockWindow,
		FeeRateBps:      rec.FeeRateBps,
		RewardFeeBps:    rec.RewardFeeBps,
		Paused:          rec.Paused,
	}, true, nil
}

// FarmPutParams persists the farm's global parameters.
func (tx *Tx) FarmPutParams(params *farm.Params) error {
	if params == nil {
		return fmt.Errorf("farm: nil params")
	}
	return tx.KVPut(farmParamsKey, &storedFarmParams{
		Admin:           params.Admin,
		RewardAsset:     params.RewardAsset,
		RewardPerBlock:  nonNil(params.RewardPerBlock),
		StartBlock:      params.StartBlock,
		MaxMint:         nonNil(params.MaxMint),
		TotalMinted:     nonNil(params.TotalMinted),
		TotalAllocPoint: params.TotalAllocPoint,
		FeeAddress:      params.FeeAddress,
		FeeBlockWindow:  params.FeeBlockWindow,
		FeeRateBps:      params.FeeRateBps,
		RewardFeeBps:    params.RewardFeeBps,
		Paused:          params.Paused,
	})
}

// FarmPoolCount returns the number of registered pools.
func (tx *Tx) FarmPoolCount() (uint64, error) {
	var count uint64
	if _, err := tx.KVGet(farmPoolCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// FarmPool loads the pool stored at index.
func (tx *Tx) FarmPool(index uint64) (*farm.Pool, bool, error) {
	var rec storedFarmPool
	ok, err := tx.KVGet(farmPoolKey(index), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &farm.Pool{
		Asset:             rec.Asset,
		AllocPoint:        rec.AllocPoint,
		LastRewardBlock:   rec.LastRewardBlock,
		AccRewardPerShare: nonNil(rec.AccRewardPerShare),
		TotalStaked:       nonNil(rec.TotalStaked),
	}, true, nil
}

// FarmPutPool persists a pool. Writing the next free index extends the
// registry; pools are never removed.
func (tx *Tx) FarmPutPool(index uint64, pool *farm.Pool) error {
	if pool == nil {
		return fmt.Errorf("farm: nil pool")
	}
	count, err := tx.FarmPoolCount()
	if err != nil {
		return err
	}
	if index > count {
		return fmt.Errorf("farm: pool index %d leaves a gap after %d pools", index, count)
	}
	if err := tx.KVPut(farmPoolKey(index), &storedFarmPool{
		Asset:             pool.Asset,
		AllocPoint:        pool.AllocPoint,
		LastRewardBlock:   pool.LastRewardBlock,
		AccRewardPerShare: nonNil(pool.AccRewardPerShare),
		TotalStaked:       nonNil(pool.TotalStaked),
	}); err != nil {
		return err
	}
	if index == count {
		return tx.KVPut(farmPoolCountKey, count+1)
	}
	return nil
}

// FarmPoolByAsset resolves the pool index staking asset.
func (tx *Tx) FarmPoolByAsset(asset string) (uint64, bool, error) {
	var index uint64
	ok, err := tx.KVGet(farmAssetKey(asset), &index)
	return index, ok, err
}

// FarmPutPoolAsset records the pool index for asset.
func (tx *Tx) FarmPutPoolAsset(asset string, index uint64) error {
	return tx.KVPut(farmAssetKey(asset), index)
}

// FarmPosition loads the position of account in pool.
func (tx *Tx) FarmPosition(pool uint64, account [20]byte) (*farm.UserPosition, bool, error) {
	var rec storedFarmPosition
	ok, err := tx.KVGet(farmPositionKey(pool, account), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &farm.UserPosition{
		Pool:         pool,
		Account:      account,
		Amount:       nonNil(rec.Amount),
		RewardDebt:   nonNil(rec.RewardDebt),
		DepositBlock: rec.DepositBlock,
	}, true, nil
}

// FarmPutPosition persists a position. Zero positions are kept so that the
// deposit block survives a full withdrawal.
func (tx *Tx) FarmPutPosition(position *farm.UserPosition) error {
	if position == nil {
		return fmt.Errorf("farm: nil position")
	}
	return tx.KVPut(farmPositionKey(position.Pool, position.Account), &storedFarmPosition{
		Amount:       nonNil(position.Amount),
		RewardDebt:   nonNil(position.RewardDebt),
		DepositBlock: position.DepositBlock,
	})
}
