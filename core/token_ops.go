package core

import (
	"math/big"

	"farmledger/core/state"
)

func (n *Node) TokenBalance(asset string, account [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(func(x *execution) error {
		bal, err := x.ledger.BalanceOf(asset, account)
		out = bal
		return err
	})
	return out, err
}

func (n *Node) TokenAllowance(asset string, owner, spender [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.view(func(x *execution) error {
		allowance, err := x.ledger.Allowance(asset, owner, spender)
		out = allowance
		return err
	})
	return out, err
}

func (n *Node) TokenSupply(asset string) (*big.Int, error) {
	var out *big.Int
	err := n.view(func(x *execution) error {
		supply, err := x.ledger.TotalSupply(asset)
		out = supply
		return err
	})
	return out, err
}

// TokenList returns the registered token metadata in symbol order.
func (n *Node) TokenList() ([]*state.TokenMetadata, error) {
	var out []*state.TokenMetadata
	err := n.view(func(x *execution) error {
		symbols, err := x.tx.TokenList()
		if err != nil {
			return err
		}
		for _, sym := range symbols {
			meta, err := x.tx.Token(sym)
			if err != nil {
				return err
			}
			if meta != nil {
				out = append(out, meta)
			}
		}
		return nil
	})
	return out, err
}

func (n *Node) TokenTransfer(asset string, from, to [20]byte, amount *big.Int) error {
	return n.execute("tokenTransfer", func(x *execution) error {
		return x.ledger.Transfer(asset, from, to, amount)
	})
}

// TokenApprove lets spender move amount of owner's asset. Approving the farm
// custody account is how depositors authorise principal pulls.
func (n *Node) TokenApprove(asset string, owner, spender [20]byte, amount *big.Int) error {
	return n.execute("tokenApprove", func(x *execution) error {
		return x.ledger.Approve(asset, owner, spender, amount)
	})
}

func (n *Node) ForwarderOwner(account [20]byte) ([20]byte, error) {
	var out [20]byte
	err := n.view(func(x *execution) error {
		f, err := x.forwarder(account)
		if err != nil {
			return err
		}
		out, err = f.Owner()
		return err
	})
	return out, err
}

func (n *Node) ForwarderTransfer(caller, account, recipient [20]byte, amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.execute("forwarderTransfer", func(x *execution) error {
		f, err := x.forwarder(account)
		if err != nil {
			return err
		}
		out, err = f.SafeTransfer(caller, recipient, amount)
		return err
	})
	return out, err
}

func (n *Node) ForwarderSweep(caller, account [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.execute("forwarderSweep", func(x *execution) error {
		f, err := x.forwarder(account)
		if err != nil {
			return err
		}
		out, err = f.Sweep(caller)
		return err
	})
	return out, err
}

func (n *Node) ForwarderTransferOwnership(caller, account, next [20]byte) error {
	return n.execute("forwarderTransferOwnership", func(x *execution) error {
		f, err := x.forwarder(account)
		if err != nil {
			return err
		}
		return f.TransferOwnership(caller, next)
	})
}

func (n *Node) ForwarderRenounceOwnership(caller, account [20]byte) error {
	return n.execute("forwarderRenounceOwnership", func(x *execution) error {
		f, err := x.forwarder(account)
		if err != nil {
			return err
		}
		return f.RenounceOwnership(caller)
	})
}
