package core

import (
	"math/big"

	"farmledger/native/farm"
)

// PoolView pairs a pool with its index for listing.
type PoolView struct {
	Index uint64     `json:"index"`
	Pool  *farm.Pool `json:"pool"`
}

func (n *Node) FarmParams() (*farm.Params, error) {
	var out *farm.Params
	err := n.view(func(x *execution) error {
		params, err := x.farm.Params()
		out = params
		return err
	})
	return out, err
}

func (n *Node) FarmPoolCount() (uint64, error) {
	var out uint64
	err := n.view(func(x *execution) error {
		count, err := x.farm.PoolCount()
		out = count
		return err
	})
	return out, err
}

func (n *Node) FarmPoolInfo(index uint64) (*farm.Pool, error) {
	var out *farm.Pool
	err := n.view(func(x *execution) error {
		pool, err := x.farm.PoolInfo(index)
		out = pool
		return err
	})
	return out, err
}

// FarmPools lists every registered pool in index order.
func (n *Node) FarmPools() ([]PoolView, error) {
	var out []PoolView
	err := n.view(func(x *execution) error {
		count, err := x.farm.PoolCount()
		if err != nil {
			return err
		}
		out = make([]PoolView, 0, count)
		for i := uint64(0); i < count; i++ {
			pool, err := x.farm.PoolInfo(i)
			if err != nil {
				return err
			}
			out = append(out, PoolView{Index: i, Pool: pool})
		}
		return nil
	})
	return out, err
}

func (n *Node) FarmUserInfo(index uint64, account [20]byte) (*farm.UserPosition, error) {
	var out *farm.UserPosition
	err := n.view(func(x *execution) error {
		pos, err := x.farm.UserInfo(index, account)
		out = pos
		return err
	})
	return out, err
}

// FarmPendingReward simulates a sync at the current height without writing.
func (n *Node) FarmPendingReward(index uint64, account [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(func(x *execution) error {
		pending, err := x.farm.PendingReward(index, account)
		out = pending
		return err
	})
	return out, err
}

func (n *Node) FarmDeposit(index uint64, account [20]byte, amount *big.Int) (*farm.Receipt, error) {
	var out *farm.Receipt
	err := n.execute("deposit", func(x *execution) error {
		receipt, err := x.farm.Deposit(index, account, amount)
		out = receipt
		return err
	})
	return out, err
}

func (n *Node) FarmWithdraw(index uint64, account [20]byte, amount *big.Int) (*farm.Receipt, error) {
	var out *farm.Receipt
	err := n.execute("withdraw", func(x *execution) error {
		receipt, err := x.farm.Withdraw(index, account, amount)
		out = receipt
		return err
	})
	return out, err
}

func (n *Node) FarmHarvest(index uint64, account [20]byte) (*farm.Receipt, error) {
	var out *farm.Receipt
	err := n.execute("harvest", func(x *execution) error {
		receipt, err := x.farm.Harvest(index, account)
		out = receipt
		return err
	})
	return out, err
}

func (n *Node) FarmEmergencyWithdraw(index uint64, account [20]byte) (*farm.Receipt, error) {
	var out *farm.Receipt
	err := n.execute("emergencyWithdraw", func(x *execution) error {
		receipt, err := x.farm.EmergencyWithdraw(index, account)
		out = receipt
		return err
	})
	return out, err
}

func (n *Node) FarmUpdatePool(index uint64) error {
	return n.execute("updatePool", func(x *execution) error {
		return x.farm.UpdatePool(index)
	})
}

func (n *Node) FarmMassUpdatePools() error {
	return n.execute("massUpdatePools", func(x *execution) error {
		return x.farm.MassUpdatePools()
	})
}

func (n *Node) FarmAddPool(caller [20]byte, asset string, allocPoint uint64, withUpdate bool) (uint64, error) {
	var out uint64
	err := n.execute("addPool", func(x *execution) error {
		index, err := x.farm.AddPool(caller, asset, allocPoint, withUpdate)
		out = index
		return err
	})
	return out, err
}

func (n *Node) FarmSetPoolWeight(caller [20]byte, index, allocPoint uint64, withUpdate bool) error {
	return n.execute("setPoolWeight", func(x *execution) error {
		return x.farm.SetPoolWeight(caller, index, allocPoint, withUpdate)
	})
}

func (n *Node) FarmSetEmissionRate(caller [20]byte, rate *big.Int) error {
	return n.execute("setEmissionRate", func(x *execution) error {
		return x.farm.SetEmissionRate(caller, rate)
	})
}

func (n *Node) FarmSetMaxMint(caller [20]byte, maxMint *big.Int) error {
	return n.execute("setMaxMint", func(x *execution) error {
		return x.farm.SetMaxMint(caller, maxMint)
	})
}

func (n *Node) FarmSetFeeAddress(caller, recipient [20]byte) error {
	return n.execute("setFeeAddress", func(x *execution) error {
		return x.farm.SetFeeAddress(caller, recipient)
	})
}

func (n *Node) FarmSetFeeWindow(caller [20]byte, blocks uint64) error {
	return n.execute("setFeeWindow", func(x *execution) error {
		return x.farm.SetFeeWindow(caller, blocks)
	})
}

func (n *Node) FarmSetFeeRate(caller [20]byte, bps uint64) error {
	return n.execute("setFeeRate", func(x *execution) error {
		return x.farm.SetFeeRate(caller, bps)
	})
}

func (n *Node) FarmSetRewardFee(caller [20]byte, bps uint64) error {
	return n.execute("setRewardFee", func(x *execution) error {
		return x.farm.SetRewardFee(caller, bps)
	})
}

func (n *Node) FarmSetPaused(caller [20]byte, paused bool) error {
	return n.execute("setPaused", func(x *execution) error {
		return x.farm.SetPaused(caller, paused)
	})
}

func (n *Node) FarmTransferAdmin(caller, next [20]byte) error {
	return n.execute("transferAdmin", func(x *execution) error {
		return x.farm.TransferAdmin(caller, next)
	})
}
