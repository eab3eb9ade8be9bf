package state

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"farmledger/native/farm"
	"farmledger/storage"
)

func addr(last byte) [20]byte {
	var out [20]byte
	out[19] = last
	return out
}

func TestTxIsolatesUncommittedWrites(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())

	tx := mgr.Begin()
	if err := tx.SetBalance("farm", addr(1), big.NewInt(42)); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	got, err := tx.Balance("FARM", addr(1))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got.Int64() != 42 {
		t.Fatalf("overlay read: expected 42, got %s", got)
	}

	err = mgr.View(func(view *Tx) error {
		bal, err := view.Balance("FARM", addr(1))
		if err != nil {
			return err
		}
		if bal.Sign() != 0 {
			t.Fatalf("uncommitted write leaked: %s", bal)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	tx.Discard()
	if _, err := tx.Balance("FARM", addr(1)); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed, got %v", err)
	}
	if err := tx.Commit(); !errors.Is(err, ErrTxClosed) {
		t.Fatalf("expected ErrTxClosed on commit, got %v", err)
	}
}

func TestUpdateCommitsOnlyOnSuccess(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	boom := errors.New("boom")

	err := mgr.Update(func(tx *Tx) error {
		if err := tx.SetBalance("FARM", addr(1), big.NewInt(5)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mgr.Update(func(tx *Tx) error {
		return tx.SetBalance("FARM", addr(2), big.NewInt(7))
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	_ = mgr.View(func(tx *Tx) error {
		first, _ := tx.Balance("FARM", addr(1))
		second, _ := tx.Balance("FARM", addr(2))
		if first.Sign() != 0 || second.Int64() != 7 {
			t.Fatalf("unexpected balances after update: %s %s", first, second)
		}
		return nil
	})
}

func TestFarmRecordsSurviveReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	db, err := storage.NewLevelDB(dir)
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	mgr := NewManager(db)
	pool := &farm.Pool{Asset: "LPT", AllocPoint: 500, LastRewardBlock: 7, AccRewardPerShare: big.NewInt(11), TotalStaked: big.NewInt(13)}
	params := &farm.Params{Admin: addr(0xA0), RewardAsset: "FARM", RewardPerBlock: big.NewInt(1), MaxMint: big.NewInt(2), TotalMinted: big.NewInt(1), FeeRateBps: 200, Paused: true}
	if err := mgr.Update(func(tx *Tx) error {
		if err := tx.FarmPutParams(params); err != nil {
			return err
		}
		if err := tx.FarmPutPool(0, pool); err != nil {
			return err
		}
		if err := tx.FarmPutPoolAsset("LPT", 0); err != nil {
			return err
		}
		return tx.FarmPutPosition(&farm.UserPosition{Pool: 0, Account: addr(1), Amount: big.NewInt(13), RewardDebt: big.NewInt(2), DepositBlock: 5})
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = storage.NewLevelDB(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	mgr = NewManager(db)
	err = mgr.View(func(tx *Tx) error {
		count, err := tx.FarmPoolCount()
		if err != nil {
			return err
		}
		if count != 1 {
			t.Fatalf("expected one pool, got %d", count)
		}
		got, ok, err := tx.FarmPool(0)
		if err != nil || !ok {
			t.Fatalf("load pool: ok=%v err=%v", ok, err)
		}
		if got.Asset != "LPT" || got.AllocPoint != 500 || got.AccRewardPerShare.Int64() != 11 || got.TotalStaked.Int64() != 13 {
			t.Fatalf("unexpected pool: %+v", got)
		}
		loaded, ok, err := tx.FarmParams()
		if err != nil || !ok {
			t.Fatalf("load params: ok=%v err=%v", ok, err)
		}
		if loaded.Admin != params.Admin || !loaded.Paused || loaded.FeeRateBps != 200 || loaded.TotalMinted.Int64() != 1 {
			t.Fatalf("unexpected params: %+v", loaded)
		}
		index, ok, err := tx.FarmPoolByAsset("LPT")
		if err != nil || !ok || index != 0 {
			t.Fatalf("asset index: %d %v %v", index, ok, err)
		}
		pos, ok, err := tx.FarmPosition(0, addr(1))
		if err != nil || !ok {
			t.Fatalf("load position: ok=%v err=%v", ok, err)
		}
		if pos.Amount.Int64() != 13 || pos.RewardDebt.Int64() != 2 || pos.DepositBlock != 5 || pos.Account != addr(1) {
			t.Fatalf("unexpected position: %+v", pos)
		}
		if _, ok, _ := tx.FarmPosition(0, addr(2)); ok {
			t.Fatalf("unexpected position for unknown account")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestFarmPoolIndexMustBeContiguous(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	err := mgr.Update(func(tx *Tx) error {
		return tx.FarmPutPool(1, &farm.Pool{Asset: "LPT"})
	})
	if err == nil {
		t.Fatalf("expected gap to be rejected")
	}
}

func TestTokenRegistry(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	err := mgr.Update(func(tx *Tx) error {
		if err := tx.RegisterToken("lpt", "LP Token", 18, addr(9)); err != nil {
			return err
		}
		if err := tx.RegisterToken("farm", "Farm Reward", 18, addr(8)); err != nil {
			return err
		}
		if err := tx.RegisterToken("FARM", "dup", 18, addr(8)); err == nil {
			t.Fatalf("expected duplicate registration to fail")
		}
		if err := tx.RegisterToken("\uff26\uff21\uff32\uff2d", "fullwidth dup", 18, addr(8)); err == nil {
			t.Fatalf("expected fullwidth spelling to collide with FARM")
		}
		return tx.SetAllowance("LPT", addr(1), addr(2), big.NewInt(30))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	_ = mgr.View(func(tx *Tx) error {
		list, err := tx.TokenList()
		if err != nil {
			t.Fatalf("token list: %v", err)
		}
		if len(list) != 2 || list[0] != "FARM" || list[1] != "LPT" {
			t.Fatalf("unexpected token list: %v", list)
		}
		meta, err := tx.Token("lpt")
		if err != nil || meta == nil {
			t.Fatalf("token: %v", err)
		}
		if meta.MintAuthority != addr(9) || meta.Decimals != 18 || meta.Supply.Sign() != 0 {
			t.Fatalf("unexpected metadata: %+v", meta)
		}
		allowance, _ := tx.Allowance("lpt", addr(1), addr(2))
		if allowance.Int64() != 30 {
			t.Fatalf("unexpected allowance: %s", allowance)
		}
		return nil
	})
}

func TestForwarderOwner(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.Update(func(tx *Tx) error { return tx.SetForwarderOwner(addr(5), addr(6)) }); err != nil {
		t.Fatalf("update: %v", err)
	}
	_ = mgr.View(func(tx *Tx) error {
		owner, ok, err := tx.ForwarderOwner(addr(5))
		if err != nil || !ok || owner != addr(6) {
			t.Fatalf("unexpected owner: %x %v %v", owner, ok, err)
		}
		return nil
	})
}
