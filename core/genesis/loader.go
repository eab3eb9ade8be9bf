package genesis

import (
	"fmt"
	"sort"

	"farmledger/core/events"
	"farmledger/core/state"
	"farmledger/crypto"
	"farmledger/native/farm"
	"farmledger/native/forwarder"
	"farmledger/native/token"
)

// Apply writes the genesis document into tx. Tokens, balances and forwarders
// are applied in sorted order so two nodes loading the same file produce
// identical state. The farm is constructed at the genesis start height with custody at
// moduleAddr.
func Apply(tx *state.Tx, spec *GenesisSpec, moduleAddr [20]byte, emitter events.Emitter) error {
	if tx == nil {
		return fmt.Errorf("genesis: state transaction required")
	}
	if spec == nil {
		return fmt.Errorf("genesis: document required")
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	tokens := append([]TokenSpec(nil), spec.Tokens...)
	sort.Slice(tokens, func(i, j int) bool {
		return state.NormalizeSymbol(tokens[i].Symbol) < state.NormalizeSymbol(tokens[j].Symbol)
	})

	ledger := token.NewLedger(tx)
	ledger.SetEmitter(emitter)

	for _, tok := range tokens {
		authority, err := tok.Authority()
		if err != nil {
			return fmt.Errorf("token %s: %w", tok.Symbol, err)
		}
		if err := tx.RegisterToken(tok.Symbol, tok.Name, tok.Decimals, authority); err != nil {
			return fmt.Errorf("register token %s: %w", tok.Symbol, err)
		}
		holders := make([]string, 0, len(tok.Balances))
		for holder := range tok.Balances {
			holders = append(holders, holder)
		}
		sort.Strings(holders)
		for _, holder := range holders {
			addr, err := crypto.ParseAddress(holder)
			if err != nil {
				return fmt.Errorf("token %s balance %q: %w", tok.Symbol, holder, err)
			}
			amount, err := parseAmountString(tok.Balances[holder])
			if err != nil {
				return fmt.Errorf("token %s balance %q: %w", tok.Symbol, holder, err)
			}
			if err := ledger.Credit(tok.Symbol, addr, amount); err != nil {
				return fmt.Errorf("token %s balance %q: %w", tok.Symbol, holder, err)
			}
		}
	}

	cfg, err := spec.Farm.Config()
	if err != nil {
		return fmt.Errorf("farm: %w", err)
	}
	engine := farm.NewEngine(moduleAddr)
	engine.SetState(tx)
	engine.SetTokenLedger(ledger)
	engine.SetEmitter(emitter)
	engine.SetBlockHeight(spec.StartHeight)
	if err := engine.Initialize(cfg); err != nil {
		return fmt.Errorf("farm: %w", err)
	}
	// Pool order is significant: it fixes the pool indices.
	for i, pool := range spec.Pools {
		if _, err := engine.AddPool(cfg.Admin, pool.Asset, pool.AllocPoint, false); err != nil {
			return fmt.Errorf("pools[%d]: %w", i, err)
		}
	}

	fwds := append([]ForwarderSpec(nil), spec.Forwarders...)
	sort.Slice(fwds, func(i, j int) bool { return fwds[i].Address < fwds[j].Address })
	for _, fwd := range fwds {
		account, err := crypto.ParseAddress(fwd.Address)
		if err != nil {
			return fmt.Errorf("forwarder %s: %w", fwd.Address, err)
		}
		owner, err := crypto.ParseAddress(fwd.Owner)
		if err != nil {
			return fmt.Errorf("forwarder %s owner: %w", fwd.Address, err)
		}
		f := forwarder.New(tx, ledger, account, cfg.RewardAsset)
		f.SetEmitter(emitter)
		if err := f.Register(owner); err != nil {
			return fmt.Errorf("forwarder %s: %w", fwd.Address, err)
		}
	}
	return nil
}
