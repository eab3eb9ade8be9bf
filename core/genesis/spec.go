// core/genesis/spec.go
package genesis

import (
	"bytes"
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"farmledger/core/state"
	"farmledger/crypto"
	"farmledger/native/farm"
)

// ModuleAuthority is the mintAuthority keyword granting mint rights to the
// farm's custody account.
const ModuleAuthority = "module:farm"

type GenesisSpec struct {
	StartHeight uint64          `yaml:"startHeight"`
	Tokens      []TokenSpec     `yaml:"tokens"`
	Farm        FarmSpec        `yaml:"farm"`
	Pools       []PoolSpec      `yaml:"pools"`
	Forwarders  []ForwarderSpec `yaml:"forwarders"`
}

type TokenSpec struct {
	Symbol        string            `yaml:"symbol"`
	Name          string            `yaml:"name"`
	Decimals      uint8             `yaml:"decimals"`
	MintAuthority string            `yaml:"mintAuthority,omitempty"`
	Balances      map[string]string `yaml:"balances,omitempty"` // addr -> amount
}

type FarmSpec struct {
	Admin             string  `yaml:"admin"`
	RewardAsset       string  `yaml:"rewardAsset"`
	RewardPerBlock    string  `yaml:"rewardPerBlock"`
	StartBlock        uint64  `yaml:"startBlock"`
	MaxMint           string  `yaml:"maxMint"`
	InitialAllocPoint *uint64 `yaml:"initialAllocPoint,omitempty"`
	FeeAddress        string  `yaml:"feeAddress,omitempty"`
	FeeBlockWindow    *uint64 `yaml:"feeBlockWindow,omitempty"`
	FeeRateBps        *uint64 `yaml:"feeRateBps,omitempty"`
	RewardFeeBps      uint64  `yaml:"rewardFeeBps"`
}

type PoolSpec struct {
	Asset      string `yaml:"asset"`
	AllocPoint uint64 `yaml:"allocPoint"`
}

// ForwarderSpec registers a reward forwarder account. Forwarders always hold
// the farm's reward asset.
type ForwarderSpec struct {
	Address string `yaml:"address"`
	Owner   string `yaml:"owner"`
}

func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a YAML genesis document.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func (s *GenesisSpec) validate() error {
	tokenSymbols := make(map[string]struct{}, len(s.Tokens))
	for i := range s.Tokens {
		if err := s.Tokens[i].validate(); err != nil {
			return fmt.Errorf("tokens[%d]: %w", i, err)
		}
		key := state.NormalizeSymbol(s.Tokens[i].Symbol)
		if _, exists := tokenSymbols[key]; exists {
			return fmt.Errorf("tokens[%d]: duplicate symbol %q", i, s.Tokens[i].Symbol)
		}
		tokenSymbols[key] = struct{}{}
	}

	cfg, err := s.Farm.Config()
	if err != nil {
		return fmt.Errorf("farm: %w", err)
	}
	if _, ok := tokenSymbols[state.NormalizeSymbol(cfg.RewardAsset)]; !ok {
		return fmt.Errorf("farm: reward asset %q is not a genesis token", cfg.RewardAsset)
	}

	seen := map[string]struct{}{state.NormalizeSymbol(cfg.RewardAsset): {}}
	for i, pool := range s.Pools {
		key := state.NormalizeSymbol(pool.Asset)
		if _, ok := tokenSymbols[key]; !ok {
			return fmt.Errorf("pools[%d]: asset %q is not a genesis token", i, pool.Asset)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("pools[%d]: duplicate pool for %q", i, pool.Asset)
		}
		seen[key] = struct{}{}
	}

	for i, fwd := range s.Forwarders {
		if _, err := crypto.ParseAddress(fwd.Address); err != nil {
			return fmt.Errorf("forwarders[%d].address: %w", i, err)
		}
		if _, err := crypto.ParseAddress(fwd.Owner); err != nil {
			return fmt.Errorf("forwarders[%d].owner: %w", i, err)
		}
	}
	return nil
}

func (t *TokenSpec) validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol must be provided")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name must be provided")
	}
	if t.Decimals > 18 {
		return fmt.Errorf("decimals must be 18 or fewer")
	}
	if _, err := t.Authority(); err != nil {
		return fmt.Errorf("mintAuthority: %w", err)
	}
	for addr, amount := range t.Balances {
		if _, err := crypto.ParseAddress(addr); err != nil {
			return fmt.Errorf("balances[%q]: %w", addr, err)
		}
		if _, err := parseAmountString(amount); err != nil {
			return fmt.Errorf("balances[%q]: %w", addr, err)
		}
	}
	return nil
}

// Authority resolves the configured mint authority. The module keyword maps to
// the farm custody account.
func (t *TokenSpec) Authority() ([20]byte, error) {
	trimmed := strings.TrimSpace(t.MintAuthority)
	switch trimmed {
	case "":
		return [20]byte{}, nil
	case ModuleAuthority:
		return farm.DefaultModuleAddress, nil
	}
	return crypto.ParseAddress(trimmed)
}

// Config converts the farm section into engine constructor arguments.
func (f *FarmSpec) Config() (farm.Config, error) {
	cfg := farm.DefaultConfig()
	admin, err := crypto.ParseAddress(f.Admin)
	if err != nil {
		return cfg, fmt.Errorf("admin: %w", err)
	}
	cfg.Admin = admin
	cfg.RewardAsset = f.RewardAsset
	if cfg.RewardPerBlock, err = parseAmountString(f.RewardPerBlock); err != nil {
		return cfg, fmt.Errorf("rewardPerBlock: %w", err)
	}
	if cfg.MaxMint, err = parseAmountString(f.MaxMint); err != nil {
		return cfg, fmt.Errorf("maxMint: %w", err)
	}
	cfg.StartBlock = f.StartBlock
	if f.InitialAllocPoint != nil {
		cfg.InitialAllocPoint = *f.InitialAllocPoint
	}
	if strings.TrimSpace(f.FeeAddress) != "" {
		if cfg.FeeAddress, err = crypto.ParseAddress(f.FeeAddress); err != nil {
			return cfg, fmt.Errorf("feeAddress: %w", err)
		}
	}
	if f.FeeBlockWindow != nil {
		cfg.FeeBlockWindow = *f.FeeBlockWindow
	}
	if f.FeeRateBps != nil {
		cfg.FeeRateBps = *f.FeeRateBps
	}
	cfg.RewardFeeBps = f.RewardFeeBps
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// parseAmountString accepts plain decimal integers as well as the
// mantissa-exponent shorthand used in deployment files ("12e18").
func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	if mantissa, exp, ok := strings.Cut(strings.ToLower(trimmed), "e"); ok {
		m, okM := new(big.Int).SetString(mantissa, 10)
		e, okE := new(big.Int).SetString(exp, 10)
		if !okM || !okE || e.Sign() < 0 || e.Cmp(big.NewInt(77)) > 0 {
			return nil, fmt.Errorf("invalid amount %q", value)
		}
		trimmedAmount := m.Mul(m, new(big.Int).Exp(big.NewInt(10), e, nil))
		if trimmedAmount.Sign() < 0 {
			return nil, fmt.Errorf("amount must not be negative")
		}
		return trimmedAmount, nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
