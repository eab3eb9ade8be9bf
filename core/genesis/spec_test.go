package genesis

import (
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"farmledger/core/state"
	"farmledger/crypto"
	"farmledger/native/farm"
	"farmledger/storage"
)

func testAddr(b byte) string {
	return crypto.MustNewAddress(crypto.FarmPrefix, bytes.Repeat([]byte{b}, 20)).String()
}

func sampleGenesis() string {
	return `startHeight: 1
tokens:
  - symbol: CDZ
    name: CDz Reward
    decimals: 18
    mintAuthority: module:farm
    balances:
      ` + testAddr(0x01) + `: "1000"
  - symbol: lpt
    name: LP Token
    decimals: 18
    balances:
      ` + testAddr(0x01) + `: "5e3"
      ` + testAddr(0x02) + `: "250"
farm:
  admin: ` + testAddr(0x0A) + `
  rewardAsset: CDZ
  rewardPerBlock: 12e18
  startBlock: 1
  maxMint: 12e24
  feeAddress: ` + testAddr(0x0F) + `
  feeBlockWindow: 100
  rewardFeeBps: 200
pools:
  - asset: LPT
    allocPoint: 1000
forwarders:
  - address: ` + testAddr(0x0B) + `
    owner: ` + testAddr(0x0A) + `
`
}

func TestLoadGenesisSpecAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(sampleGenesis()), 0o600); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	spec, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}

	mgr := state.NewManager(storage.NewMemDB())
	if err := mgr.Update(func(tx *state.Tx) error {
		return Apply(tx, spec, farm.DefaultModuleAddress, nil)
	}); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}

	err = mgr.View(func(tx *state.Tx) error {
		meta, err := tx.Token("cdz")
		if err != nil || meta == nil {
			t.Fatalf("reward token missing: %v", err)
		}
		if meta.MintAuthority != farm.DefaultModuleAddress {
			t.Fatalf("reward token authority = %x, want farm module", meta.MintAuthority)
		}
		raw, _ := crypto.ParseAddress(testAddr(0x01))
		bal, err := tx.Balance("LPT", raw)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if bal.Cmp(big.NewInt(5000)) != 0 {
			t.Fatalf("lpt balance = %s, want 5000", bal)
		}

		params, ok, err := tx.FarmParams()
		if err != nil || !ok {
			t.Fatalf("farm params missing: %v", err)
		}
		want, _ := new(big.Int).SetString("12000000000000000000", 10)
		if params.RewardPerBlock.Cmp(want) != 0 {
			t.Fatalf("reward per block = %s, want %s", params.RewardPerBlock, want)
		}
		if params.FeeRateBps != farm.DefaultFeeRateBps || params.RewardFeeBps != 200 || params.FeeBlockWindow != 100 {
			t.Fatalf("unexpected fees %d/%d window %d", params.FeeRateBps, params.RewardFeeBps, params.FeeBlockWindow)
		}
		if params.TotalAllocPoint != 2000 {
			t.Fatalf("total alloc = %d, want 2000", params.TotalAllocPoint)
		}
		count, _ := tx.FarmPoolCount()
		if count != 2 {
			t.Fatalf("pool count = %d, want 2", count)
		}
		if idx, ok, _ := tx.FarmPoolByAsset("LPT"); !ok || idx != 1 {
			t.Fatalf("lpt pool index = %d/%v, want 1", idx, ok)
		}

		fwd, _ := crypto.ParseAddress(testAddr(0x0B))
		owner, ok, err := tx.ForwarderOwner(fwd)
		if err != nil || !ok {
			t.Fatalf("forwarder not registered: %v", err)
		}
		if owner != params.Admin {
			t.Fatalf("forwarder owner = %x, want admin", owner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestParseGenesisSpecRejectsInvalidDocuments(t *testing.T) {
	base := sampleGenesis()
	cases := map[string]string{
		"unknown field":        base + "extra: true\n",
		"pool of unknown":      strings.Replace(base, "asset: LPT", "asset: NOPE", 1),
		"duplicate reward":     strings.Replace(base, "asset: LPT", "asset: CDZ", 1),
		"bad admin":            strings.Replace(base, "admin: "+testAddr(0x0A), "admin: nobody", 1),
		"negative balance":     strings.Replace(base, `"250"`, `"-1"`, 1),
		"fee above 100%":       strings.Replace(base, "rewardFeeBps: 200", "rewardFeeBps: 10001", 1),
		"missing reward asset": strings.Replace(base, "rewardAsset: CDZ", "rewardAsset: ETH", 1),
		"uncapped emission":    strings.Replace(base, "  maxMint: 12e24\n", "", 1),
		"zero mint cap":        strings.Replace(base, "maxMint: 12e24", "maxMint: \"0\"", 1),
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseGenesisSpec([]byte(doc)); err == nil {
				t.Fatalf("expected %s to be rejected", name)
			}
		})
	}
}

func TestFarmSpecFeeWindowDefaults(t *testing.T) {
	doc := strings.Replace(sampleGenesis(), "  feeBlockWindow: 100\n", "", 1)
	spec, err := ParseGenesisSpec([]byte(doc))
	if err != nil {
		t.Fatalf("parse genesis: %v", err)
	}
	cfg, err := spec.Farm.Config()
	if err != nil {
		t.Fatalf("farm config: %v", err)
	}
	if cfg.FeeBlockWindow != farm.DefaultFeeBlockWindow {
		t.Fatalf("fee window = %d, want default %d", cfg.FeeBlockWindow, farm.DefaultFeeBlockWindow)
	}

	doc = strings.Replace(sampleGenesis(), "feeBlockWindow: 100", "feeBlockWindow: 0", 1)
	if spec, err = ParseGenesisSpec([]byte(doc)); err != nil {
		t.Fatalf("parse genesis: %v", err)
	}
	if cfg, err = spec.Farm.Config(); err != nil || cfg.FeeBlockWindow != 0 {
		t.Fatalf("explicit zero window = %d (%v), want 0", cfg.FeeBlockWindow, err)
	}
}

func TestParseAmountString(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "0"},
		{in: " 42 ", want: "42"},
		{in: "12e18", want: "12000000000000000000"},
		{in: "1E3", want: "1000"},
		{in: "-5", wantErr: true},
		{in: "1e-2", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseAmountString(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseAmountString(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseAmountString(%q): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("parseAmountString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
