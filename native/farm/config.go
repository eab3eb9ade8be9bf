package farm

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultFeeRateBps is the early-withdrawal fee applied to principal (2%).
	DefaultFeeRateBps uint64 = 200
	// DefaultInitialAllocPoint is the weight of the reward-asset pool created at construction.
	DefaultInitialAllocPoint uint64 = 1000
	// DefaultFeeBlockWindow is the number of blocks after a deposit during
	// which withdrawals are charged, roughly one day of blocks.
	DefaultFeeBlockWindow uint64 = 28800
)

// Config captures the constructor arguments of a farm.
type Config struct {
	Admin             [20]byte
	RewardAsset       string
	RewardPerBlock    *big.Int
	StartBlock        uint64
	MaxMint           *big.Int
	InitialAllocPoint uint64
	FeeAddress        [20]byte
	FeeBlockWindow    uint64
	FeeRateBps        uint64
	RewardFeeBps      uint64
}

// DefaultConfig returns a configuration with the observed fee defaults. The
// caller must still provide the admin, reward asset and emission values; fees
// start applying as soon as a fee address is set.
func DefaultConfig() Config {
	return Config{
		RewardPerBlock:    big.NewInt(0),
		MaxMint:           big.NewInt(0),
		InitialAllocPoint: DefaultInitialAllocPoint,
		FeeBlockWindow:    DefaultFeeBlockWindow,
		FeeRateBps:        DefaultFeeRateBps,
	}
}

// Validate ensures the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Admin == ([20]byte{}) {
		return fmt.Errorf("%w: admin identity required", ErrInvalidParams)
	}
	if strings.TrimSpace(c.RewardAsset) == "" {
		return fmt.Errorf("%w: reward asset required", ErrInvalidParams)
	}
	if !fitsU256(newBigInt(c.RewardPerBlock)) {
		return fmt.Errorf("%w: reward per block out of range", ErrInvalidParams)
	}
	if !fitsU256(newBigInt(c.MaxMint)) {
		return fmt.Errorf("%w: max mint out of range", ErrInvalidParams)
	}
	if newBigInt(c.RewardPerBlock).Sign() > 0 && newBigInt(c.MaxMint).Sign() == 0 {
		return fmt.Errorf("%w: max mint must be positive when rewards are emitted", ErrInvalidParams)
	}
	if c.FeeRateBps > basisPointsDenom {
		return fmt.Errorf("%w: fee rate must not exceed %d bps", ErrInvalidParams, basisPointsDenom)
	}
	if c.RewardFeeBps > basisPointsDenom {
		return fmt.Errorf("%w: reward fee must not exceed %d bps", ErrInvalidParams, basisPointsDenom)
	}
	return nil
}

func (c Config) params() *Params {
	return &Params{
		Admin:          c.Admin,
		RewardAsset:    normalizeAsset(c.RewardAsset),
		RewardPerBlock: newBigInt(c.RewardPerBlock),
		StartBlock:     c.StartBlock,
		MaxMint:        newBigInt(c.MaxMint),
		TotalMinted:    big.NewInt(0),
		FeeAddress:     c.FeeAddress,
		FeeBlockWindow: c.FeeBlockWindow,
		FeeRateBps:     c.FeeRateBps,
		RewardFeeBps:   c.RewardFeeBps,
	}
}

// normalizeAsset folds compatibility forms before upper-casing so that the
// farm and the token ledger agree on one spelling per symbol.
func normalizeAsset(asset string) string {
	return strings.ToUpper(norm.NFKC.String(strings.TrimSpace(asset)))
}
