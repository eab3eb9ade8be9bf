package rpc

import (
	"context"
	"encoding/json"
	"strings"
)

func (s *Server) registerToken() {
	s.methods["token_balance"] = method{fn: s.tokenBalance}
	s.methods["token_allowance"] = method{fn: s.tokenAllowance}
	s.methods["token_supply"] = method{fn: s.tokenSupply}
	s.methods["token_list"] = method{fn: s.tokenList}
	s.methods["token_transfer"] = method{auth: true, fn: s.tokenTransfer}
	s.methods["token_approve"] = method{auth: true, fn: s.tokenApprove}

	s.methods["forwarder_owner"] = method{fn: s.forwarderOwner}
	s.methods["forwarder_transfer"] = method{auth: true, fn: s.forwarderTransfer}
	s.methods["forwarder_sweep"] = method{auth: true, fn: s.forwarderSweep}
	s.methods["forwarder_transferOwnership"] = method{auth: true, fn: s.forwarderTransferOwnership}
	s.methods["forwarder_renounceOwnership"] = method{auth: true, fn: s.forwarderRenounceOwnership}
}

type tokenParams struct {
	Asset   string `json:"asset,omitempty"`
	Account string `json:"account,omitempty"`
	Owner   string `json:"owner,omitempty"`
	Spender string `json:"spender,omitempty"`
	To      string `json:"to,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

func decodeToken(params []json.RawMessage, requireAsset bool) (*tokenParams, error) {
	var p tokenParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if requireAsset && strings.TrimSpace(p.Asset) == "" {
		return nil, invalidParams("asset is required")
	}
	return &p, nil
}

type TokenResult struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Decimals      uint8  `json:"decimals"`
	MintAuthority string `json:"mintAuthority,omitempty"`
	MintPaused    bool   `json:"mintPaused"`
	Supply        string `json:"supply"`
}

func (s *Server) tokenBalance(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeToken(params, true)
	if err != nil {
		return nil, err
	}
	account, err := parseAddressParam("account", p.Account)
	if err != nil {
		return nil, err
	}
	balance, err := s.node.TokenBalance(p.Asset, account)
	if err != nil {
		return nil, err
	}
	return formatAmount(balance), nil
}

func (s *Server) tokenAllowance(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeToken(params, true)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddressParam("owner", p.Owner)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddressParam("spender", p.Spender)
	if err != nil {
		return nil, err
	}
	allowance, err := s.node.TokenAllowance(p.Asset, owner, spender)
	if err != nil {
		return nil, err
	}
	return formatAmount(allowance), nil
}

func (s *Server) tokenSupply(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeToken(params, true)
	if err != nil {
		return nil, err
	}
	supply, err := s.node.TokenSupply(p.Asset)
	if err != nil {
		return nil, err
	}
	return formatAmount(supply), nil
}

func (s *Server) tokenList(context.Context, [20]byte, []json.RawMessage) (interface{}, error) {
	tokens, err := s.node.TokenList()
	if err != nil {
		return nil, err
	}
	out := make([]TokenResult, 0, len(tokens))
	for _, meta := range tokens {
		out = append(out, TokenResult{
			Symbol:        meta.Symbol,
			Name:          meta.Name,
			Decimals:      meta.Decimals,
			MintAuthority: formatAddress(meta.MintAuthority),
			MintPaused:    meta.MintPaused,
			Supply:        formatAmount(meta.Supply),
		})
	}
	return out, nil
}

func (s *Server) tokenTransfer(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeToken(params, true)
	if err != nil {
		return nil, err
	}
	to, err := parseAddressParam("to", p.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountParam("amount", p.Amount)
	if err != nil {
		return nil, err
	}
	return true, s.node.TokenTransfer(p.Asset, caller, to, amount)
}

func (s *Server) tokenApprove(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, err := decodeToken(params, true)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddressParam("spender", p.Spender)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountParam("amount", p.Amount)
	if err != nil {
		return nil, err
	}
	return true, s.node.TokenApprove(p.Asset, caller, spender, amount)
}

type forwarderParams struct {
	Forwarder string `json:"forwarder"`
	To        string `json:"to,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Owner     string `json:"owner,omitempty"`
}

func decodeForwarder(params []json.RawMessage) (*forwarderParams, [20]byte, error) {
	var p forwarderParams
	if err := decodeParams(params, &p); err != nil {
		return nil, [20]byte{}, err
	}
	account, err := parseAddressParam("forwarder", p.Forwarder)
	if err != nil {
		return nil, [20]byte{}, err
	}
	return &p, account, nil
}

func (s *Server) forwarderOwner(_ context.Context, _ [20]byte, params []json.RawMessage) (interface{}, error) {
	_, account, err := decodeForwarder(params)
	if err != nil {
		return nil, err
	}
	owner, err := s.node.ForwarderOwner(account)
	if err != nil {
		return nil, err
	}
	return formatAddress(owner), nil
}

// forwarderTransfer returns the amount actually sent, which is capped at the
// forwarder's balance.
func (s *Server) forwarderTransfer(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, account, err := decodeForwarder(params)
	if err != nil {
		return nil, err
	}
	to, err := parseAddressParam("to", p.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmountParam("amount", p.Amount)
	if err != nil {
		return nil, err
	}
	sent, err := s.node.ForwarderTransfer(caller, account, to, amount)
	if err != nil {
		return nil, err
	}
	return formatAmount(sent), nil
}

func (s *Server) forwarderSweep(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	_, account, err := decodeForwarder(params)
	if err != nil {
		return nil, err
	}
	sent, err := s.node.ForwarderSweep(caller, account)
	if err != nil {
		return nil, err
	}
	return formatAmount(sent), nil
}

func (s *Server) forwarderTransferOwnership(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	p, account, err := decodeForwarder(params)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddressParam("owner", p.Owner)
	if err != nil {
		return nil, err
	}
	return true, s.node.ForwarderTransferOwnership(caller, account, owner)
}

func (s *Server) forwarderRenounceOwnership(_ context.Context, caller [20]byte, params []json.RawMessage) (interface{}, error) {
	_, account, err := decodeForwarder(params)
	if err != nil {
		return nil, err
	}
	return true, s.node.ForwarderRenounceOwnership(caller, account)
}
