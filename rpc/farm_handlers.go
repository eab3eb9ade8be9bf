package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"farmledger/indexer"
)

func (s *Server) registerFarm() {
	s.methods["farm_params"] = method{fn: s.farmParams}
	s.methods["farm_poolCount"] = method{fn: s.farmPoolCount}
	s.methods["farm_poolInfo"] = method{fn: s.farmPoolInfo}
	s.methods["farm_pools"] = method{fn: s.farmPools}
	s.methods["farm_userInfo"] = method{fn: s.farmUserInfo}
	s.methods["farm_pendingReward"] = method{fn: s.farmPendingReward}
	s.methods["farm_events"] = method{fn: s.farmEvents}
	// Accrual sync is permissionless.
	s.methods["farm_updatePool"] = method{fn: s.farmUpdatePool}
	s.methods["farm_massUpdatePools"] = method{fn: s.farmMassUpdatePools}

	s.methods["farm_deposit"] = method{auth: true, fn: s.farmDeposit}
	s.methods["farm_withdraw"] = method{auth: true, fn: s.farmWithdraw}
	s.methods["farm_harvest"] = method{auth: true, fn: s.farmHarvest}
	s.methods["farm_emergencyWithdraw"] = method{auth: true, fn: s.farmEmergencyWithdraw}

	s.methods["farm_addPool"] = method{auth: true, fn: s.farmAddPool}
	s.methods["farm_setPoolWeight"] = method{auth: true, fn: s.farmSetPoolWeight}
	s.methods["farm_setEmissionRate"] = method{auth: true, fn: s.farmSetEmissionRate}
	s.methods["farm_setMaxMint"] = method{auth: true, fn: s.farmSetMaxMint}
	s.methods["farm_setFeeAddress"] = method{auth: true, fn: s.farmSetFeeAddress}
	s.methods["farm_setFeeWindow"] = method{auth: true, fn: s.farmSetFeeWindow}
	s.methods["farm_setFeeRate"] = method{auth: true, fn: s.farmSetFeeRate}
	s.methods["farm_setRewardFee"] = method{auth: true, fn: s.farmSetRewardFee}
	s.methods["farm_setPaused"] = method{auth: true, fn: s.farmSetPaused}
	s.methods["farm_transferAdmin"] = method{auth: true, fn: s.farmTransferAdmin}
}

type poolParams struct {
	Pool    *uint64 `json:"pool"`
	Account string  `json:"account,omitempty"`
	Amount  string  `json:"amount,omitempty"`
}

func (p *poolParams) index() (uint64, error) {
	if p.Pool == nil {
		return 0, invalidParams("pool is required")
	}
	return *p.Pool, nil
}

func decodePool(params []json.RawMessage) (*poolParams, uint64, error) {
	var p poolParams
	if err := decodeParams(params, &p); err != nil {
		return nil, 0, err
	}
	index, err := p.index()
	if err != nil {
		return nil, 0, err
	}
	return &p, index, nil
}

func (s *Server) farmParams(context.Context, [20]byte, []json.RawMessage) (interface{}, error) {
	params, err := s.node.FarmParams()
	if err != nil {
		return nil, err
	}
	return newParamsResult(params, s.node.ModuleAddress()), nil
}

func (s *Server) farmPoolCount(context.Context, [20]byte, []json.RawMessage) (interface{}, error) {
	return s.node.FarmPoolCount()
}

func (s *Server) farmPoolInfo(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	_, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	pool, err := s.node.FarmPoolInfo(index)
	if err != nil {
		return nil, err
	}
	return newPoolResult(index, pool), nil
}

func (s *Server) farmPools(context.Context, [20]byte, []json.RawMessage) (interface{}, error) {
	views, err := s.node.FarmPools()
	if err != nil {
		return nil, err
	}
	return newPoolResults(views), nil
}

func (s *Server) farmUserInfo(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	p, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	account, err := parseAddressParam("account", p.Account)
	if err != nil {
		return nil, err
	}
	pos, err := s.node.FarmUserInfo(index, account)
	if err != nil {
		return nil, err
	}
	return newPositionResult(pos), nil
}

func (s *Server) farmPendingReward(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	p, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	account, err := parseAddressParam("account", p.Account)
	if err != nil {
		return nil, err
	}
	pending, err := s.node.FarmPendingReward(index, account)
	if err != nil {
		return nil, err
	}
	return formatAmount(pending), nil
}

func (s *Server) farmUpdatePool(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	_, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	if err := s.node.FarmUpdatePool(index); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) farmMassUpdatePools(context.Context, [20]byte, []json.RawMessage) (interface{}, error) {
	if err := s.node.FarmMassUpdatePools(); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Server) farmDeposit(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountParam("amount", p.Amount)
	if err != nil {
		return nil, err
	}
	receipt, err := s.node.FarmDeposit(index, caller, amount)
	if err != nil {
		return nil, err
	}
	return newReceiptResult(receipt), nil
}

func (s *Server) farmWithdraw(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountParam("amount", p.Amount)
	if err != nil {
		return nil, err
	}
	receipt, err := s.node.FarmWithdraw(index, caller, amount)
	if err != nil {
		return nil, err
	}
	return newReceiptResult(receipt), nil
}

func (s *Server) farmHarvest(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	_, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	receipt, err := s.node.FarmHarvest(index, caller)
	if err != nil {
		return nil, err
	}
	return newReceiptResult(receipt), nil
}

func (s *Server) farmEmergencyWithdraw(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	_, index, err := decodePool(params)
	if err != nil {
		return nil, err
	}
	receipt, err := s.node.FarmEmergencyWithdraw(index, caller)
	if err != nil {
		return nil, err
	}
	return newReceiptResult(receipt), nil
}

type addPoolParams struct {
	Asset      string `json:"asset"`
	AllocPoint uint64 `json:"allocPoint"`
	WithUpdate bool   `json:"withUpdate"`
}

func (s *Server) farmAddPool(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	var p addPoolParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Asset) == "" {
		return nil, invalidParams("asset is required")
	}
	index, err := s.node.FarmAddPool(caller, p.Asset, p.AllocPoint, p.WithUpdate)
	if err != nil {
		return nil, err
	}
	return map[string]uint64{"pool": index}, nil
}

type poolWeightParams struct {
	Pool       *uint64 `json:"pool"`
	AllocPoint uint64  `json:"allocPoint"`
	WithUpdate bool    `json:"withUpdate"`
}

func (s *Server) farmSetPoolWeight(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	var p poolWeightParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Pool == nil {
		return nil, invalidParams("pool is required")
	}
	if err := s.node.FarmSetPoolWeight(caller, *p.Pool, p.AllocPoint, p.WithUpdate); err != nil {
		return nil, err
	}
	return true, nil
}

// adminParams carries the single value of a parameter setter.
type adminParams struct {
	RewardPerBlock string `json:"rewardPerBlock,omitempty"`
	MaxMint        string `json:"maxMint,omitempty"`
	FeeAddress     string `json:"feeAddress,omitempty"`
	Admin          string `json:"admin,omitempty"`
	Blocks         uint64 `json:"blocks,omitempty"`
	Bps            uint64 `json:"bps,omitempty"`
	Paused         bool   `json:"paused,omitempty"`
}

func decodeAdmin(params []json.RawMessage) (*adminParams, error) {
	var p adminParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Server) farmSetEmissionRate(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	rate, err := parseAmountParam("rewardPerBlock", p.RewardPerBlock)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmSetEmissionRate(caller, rate)
}

func (s *Server) farmSetMaxMint(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	maxMint, err := parseAmountParam("maxMint", p.MaxMint)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmSetMaxMint(caller, maxMint)
}

// farmSetFeeAddress clears the fee recipient when feeAddress is empty.
func (s *Server) farmSetFeeAddress(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	var recipient [20]byte
	if strings.TrimSpace(p.FeeAddress) != "" {
		if recipient, err = parseAddressParam("feeAddress", p.FeeAddress); err != nil {
			return nil, err
		}
	}
	return true, s.node.FarmSetFeeAddress(caller, recipient)
}

func (s *Server) farmSetFeeWindow(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmSetFeeWindow(caller, p.Blocks)
}

func (s *Server) farmSetFeeRate(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmSetFeeRate(caller, p.Bps)
}

func (s *Server) farmSetRewardFee(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmSetRewardFee(caller, p.Bps)
}

func (s *Server) farmSetPaused(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmSetPaused(caller, p.Paused)
}

func (s *Server) farmTransferAdmin(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeAdmin(params)
	if err != nil {
		return nil, err
	}
	next, err := parseAddressParam("admin", p.Admin)
	if err != nil {
		return nil, err
	}
	return true, s.node.FarmTransferAdmin(caller, next)
}

type eventsParams struct {
	Type    string  `json:"type,omitempty"`
	Account string  `json:"account,omitempty"`
	Pool    *uint64 `json:"pool,omitempty"`
	Before  uint64  `json:"before,omitempty"`
	Limit   int     `json:"limit,omitempty"`
}

func (s *Server) farmEvents(ctx context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	if s.events == nil {
		return nil, &RPCError{Code: codeServerError, Message: "event indexer disabled"}
	}
	var p eventsParams
	if len(params) > 0 {
		if err := decodeParams(params, &p); err != nil {
			return nil, err
		}
	}
	filter := indexer.Filter{Type: p.Type, Pool: p.Pool, Before: p.Before, Limit: p.Limit}
	if strings.TrimSpace(p.Account) != "" {
		account, err := parseAddressParam("account", p.Account)
		if err != nil {
			return nil, err
		}
		filter.Account = formatAddress(account)
	}
	records, err := s.events.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]EventResult, 0, len(records))
	for i := range records {
		rec := &records[i]
		out = append(out, EventResult{
			Seq:        rec.Seq,
			ID:         rec.ID.String(),
			Height:     rec.Height,
			Type:       rec.Type,
			Attributes: rec.Decoded(),
		})
	}
	return out, nil
}
