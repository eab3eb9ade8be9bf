package state

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TokenMetadata describes a registered fungible asset.
type TokenMetadata struct {
	Symbol        string
	Name          string
	Decimals      uint8
	MintAuthority [20]byte
	MintPaused    bool
	Supply        *big.Int
}

var (
	tokenPrefix     = []byte("token/meta/")
	tokenListKey    = []byte("token/list")
	balancePrefix   = []byte("token/balance/")
	allowancePrefix = []byte("token/allowance/")
)

// NormalizeSymbol trims a token symbol, folds Unicode compatibility forms
// (NFKC) and upper-cases it.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(norm.NFKC.String(strings.TrimSpace(symbol)))
}

func tokenMetadataKey(symbol string) []byte {
	return append(append([]byte(nil), tokenPrefix...), symbol...)
}

func balanceKey(symbol string, addr [20]byte) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(symbol)+1+len(addr))
	buf = append(buf, balancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	return append(buf, addr[:]...)
}

func allowanceKey(symbol string, owner, spender [20]byte) []byte {
	buf := make([]byte, 0, len(allowancePrefix)+len(symbol)+1+2*len(owner))
	buf = append(buf, allowancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	buf = append(buf, owner[:]...)
	return append(buf, spender[:]...)
}

// RegisterToken stores the metadata for a token and records it in the index.
func (tx *Tx) RegisterToken(symbol, name string, decimals uint8, authority [20]byte) error {
	normalized := NormalizeSymbol(symbol)
	if normalized == "" {
		return fmt.Errorf("token symbol must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("token %s: name must not be empty", normalized)
	}
	if existing, err := tx.Token(normalized); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("token %s already registered", normalized)
	}
	list, err := tx.TokenList()
	if err != nil {
		return err
	}
	list = append(list, normalized)
	sort.Strings(list)
	if err := tx.KVPut(tokenListKey, list); err != nil {
		return err
	}
	return tx.PutToken(&TokenMetadata{
		Symbol:        normalized,
		Name:          name,
		Decimals:      decimals,
		MintAuthority: authority,
		Supply:        big.NewInt(0),
	})
}

// Token retrieves metadata for a registered token, or nil when unknown.
func (tx *Tx) Token(symbol string) (*TokenMetadata, error) {
	meta := new(TokenMetadata)
	ok, err := tx.KVGet(tokenMetadataKey(NormalizeSymbol(symbol)), meta)
	if err != nil || !ok {
		return nil, err
	}
	if meta.Supply == nil {
		meta.Supply = big.NewInt(0)
	}
	return meta, nil
}

// PutToken overwrites the metadata of a token.
func (tx *Tx) PutToken(meta *TokenMetadata) error {
	if meta == nil {
		return fmt.Errorf("token: nil metadata")
	}
	stored := *meta
	stored.Supply = nonNil(meta.Supply)
	return tx.KVPut(tokenMetadataKey(meta.Symbol), &stored)
}

// TokenList returns all registered token symbols in sorted order.
func (tx *Tx) TokenList() ([]string, error) {
	var list []string
	if _, err := tx.KVGet(tokenListKey, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// Balance retrieves the balance of addr in symbol.
func (tx *Tx) Balance(symbol string, addr [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := tx.KVGet(balanceKey(NormalizeSymbol(symbol), addr), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetBalance stores the balance of addr in symbol.
func (tx *Tx) SetBalance(symbol string, addr [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	return tx.KVPut(balanceKey(NormalizeSymbol(symbol), addr), amount)
}

// Allowance returns how much spender may move out of owner's balance.
func (tx *Tx) Allowance(symbol string, owner, spender [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := tx.KVGet(allowanceKey(NormalizeSymbol(symbol), owner, spender), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetAllowance stores the spending allowance of spender over owner's balance.
func (tx *Tx) SetAllowance(symbol string, owner, spender [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative allowance not allowed")
	}
	return tx.KVPut(allowanceKey(NormalizeSymbol(symbol), owner, spender), amount)
}
