package rpc

import (
	"encoding/json"
	"math/big"
	"strings"

	"farmledger/core"
	"farmledger/crypto"
	"farmledger/native/farm"
)

// decodeParams unmarshals the single object parameter of a request.
func decodeParams(params []json.RawMessage, dst interface{}) error {
	if len(params) != 1 {
		return invalidParams("expected a single parameter object")
	}
	dec := json.NewDecoder(strings.NewReader(string(params[0])))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams("invalid parameter object: %v", err)
	}
	return nil
}

func parseAddressParam(field, value string) ([20]byte, error) {
	if strings.TrimSpace(value) == "" {
		return [20]byte{}, invalidParams("%s is required", field)
	}
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, invalidParams("invalid %s: %v", field, err)
	}
	return addr, nil
}

// parseAmountParam accepts non-negative base-10 integer strings.
func parseAmountParam(field, value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, invalidParams("%s is required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, invalidParams("invalid %s %q", field, value)
	}
	return amount, nil
}

func formatAddress(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return crypto.FromRaw(addr).String()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

type ParamsResult struct {
	Admin           string `json:"admin"`
	ModuleAddress   string `json:"moduleAddress"`
	RewardAsset     string `json:"rewardAsset"`
	RewardPerBlock  string `json:"rewardPerBlock"`
	StartBlock      uint64 `json:"startBlock"`
	MaxMint         string `json:"maxMint"`
	TotalMinted     string `json:"totalMinted"`
	TotalAllocPoint uint64 `json:"totalAllocPoint"`
	FeeAddress      string `json:"feeAddress,omitempty"`
	FeeBlockWindow  uint64 `json:"feeBlockWindow"`
	FeeRateBps      uint64 `json:"feeRateBps"`
	RewardFeeBps    uint64 `json:"rewardFeeBps"`
	Paused          bool   `json:"paused"`
}

func newParamsResult(p *farm.Params, module [20]byte) *ParamsResult {
	return &ParamsResult{
		Admin:           formatAddress(p.Admin),
		ModuleAddress:   formatAddress(module),
		RewardAsset:     p.RewardAsset,
		RewardPerBlock:  formatAmount(p.RewardPerBlock),
		StartBlock:      p.StartBlock,
		MaxMint:         formatAmount(p.MaxMint),
		TotalMinted:     formatAmount(p.TotalMinted),
		TotalAllocPoint: p.TotalAllocPoint,
		FeeAddress:      formatAddress(p.FeeAddress),
		FeeBlockWindow:  p.FeeBlockWindow,
		FeeRateBps:      p.FeeRateBps,
		RewardFeeBps:    p.RewardFeeBps,
		Paused:          p.Paused,
	}
}

type PoolResult struct {
	Index             uint64 `json:"index"`
	Asset             string `json:"asset"`
	AllocPoint        uint64 `json:"allocPoint"`
	LastRewardBlock   uint64 `json:"lastRewardBlock"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	TotalStaked       string `json:"totalStaked"`
}

func newPoolResult(index uint64, p *farm.Pool) *PoolResult {
	return &PoolResult{
		Index:             index,
		Asset:             p.Asset,
		AllocPoint:        p.AllocPoint,
		LastRewardBlock:   p.LastRewardBlock,
		AccRewardPerShare: formatAmount(p.AccRewardPerShare),
		TotalStaked:       formatAmount(p.TotalStaked),
	}
}

func newPoolResults(views []core.PoolView) []*PoolResult {
	out := make([]*PoolResult, 0, len(views))
	for _, v := range views {
		out = append(out, newPoolResult(v.Index, v.Pool))
	}
	return out
}

type PositionResult struct {
	Pool         uint64 `json:"pool"`
	Account      string `json:"account"`
	Amount       string `json:"amount"`
	RewardDebt   string `json:"rewardDebt"`
	DepositBlock uint64 `json:"depositBlock"`
}

func newPositionResult(u *farm.UserPosition) *PositionResult {
	if u == nil {
		return nil
	}
	return &PositionResult{
		Pool:         u.Pool,
		Account:      formatAddress(u.Account),
		Amount:       formatAmount(u.Amount),
		RewardDebt:   formatAmount(u.RewardDebt),
		DepositBlock: u.DepositBlock,
	}
}

type ReceiptResult struct {
	Pool      uint64          `json:"pool"`
	Account   string          `json:"account"`
	Principal string          `json:"principal"`
	Fee       string          `json:"fee"`
	Reward    string          `json:"reward"`
	RewardFee string          `json:"rewardFee"`
	Shortfall string          `json:"shortfall"`
	Minted    string          `json:"minted"`
	Position  *PositionResult `json:"position,omitempty"`
}

func newReceiptResult(r *farm.Receipt) *ReceiptResult {
	return &ReceiptResult{
		Pool:      r.Pool,
		Account:   formatAddress(r.Account),
		Principal: formatAmount(r.Principal),
		Fee:       formatAmount(r.Fee),
		Reward:    formatAmount(r.Reward),
		RewardFee: formatAmount(r.RewardFee),
		Shortfall: formatAmount(r.Shortfall),
		Minted:    formatAmount(r.Minted),
		Position:  newPositionResult(r.Position),
	}
}

type EventResult struct {
	Seq        uint64            `json:"seq"`
	ID         string            `json:"id"`
	Height     uint64            `json:"height"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
