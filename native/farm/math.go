package farm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// AccPrecision is the fixed-point scale applied to accRewardPerShare.
const AccPrecision = 1_000_000_000_000

const basisPointsDenom = 10_000

var (
	accScale = uint256.NewInt(AccPrecision)
	bpsDenom = uint256.NewInt(basisPointsDenom)
	maxU256  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// toU256 converts a ledger quantity into the 256-bit working width. Negative
// values and values wider than 256 bits cannot be represented and are treated
// as invariant violations rather than being truncated.
func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrInvariantViolation
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrInvariantViolation
	}
	return out, nil
}

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrInvariantViolation
	}
	return sum.ToBig(), nil
}

func checkedSub(a, b *big.Int) (*big.Int, error) {
	x, err := toU256(a)
	if err != nil {
		return nil, err
	}
	y, err := toU256(b)
	if err != nil {
		return nil, err
	}
	diff, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrInvariantViolation
	}
	return diff.ToBig(), nil
}

// mulDiv returns a*b/d with a full-width intermediate product. Division by
// zero yields zero; callers guard the cases where that is not acceptable.
func mulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return new(uint256.Int), nil
	}
	out, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, ErrInvariantViolation
	}
	return out, nil
}

// accumulate advances the per-share accumulator by delta spread across
// totalStaked units. An empty pool leaves the accumulator unchanged.
func accumulate(acc, delta, totalStaked *big.Int) (*big.Int, error) {
	current, err := toU256(acc)
	if err != nil {
		return nil, err
	}
	staked, err := toU256(totalStaked)
	if err != nil {
		return nil, err
	}
	if staked.IsZero() {
		return current.ToBig(), nil
	}
	reward, err := toU256(delta)
	if err != nil {
		return nil, err
	}
	perShare, err := mulDiv(reward, accScale, staked)
	if err != nil {
		return nil, err
	}
	next, overflow := new(uint256.Int).AddOverflow(current, perShare)
	if overflow {
		return nil, ErrInvariantViolation
	}
	return next.ToBig(), nil
}

// accruedFor returns amount*acc/scale, the reward attributable to a stake of
// amount since the accumulator's inception.
func accruedFor(amount, acc *big.Int) (*big.Int, error) {
	a, err := toU256(amount)
	if err != nil {
		return nil, err
	}
	s, err := toU256(acc)
	if err != nil {
		return nil, err
	}
	out, err := mulDiv(a, s, accScale)
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

// pendingFor returns the reward accrued since the position's last interaction.
func pendingFor(amount, acc, debt *big.Int) (*big.Int, error) {
	accrued, err := accruedFor(amount, acc)
	if err != nil {
		return nil, err
	}
	return checkedSub(accrued, debt)
}

// emissionFor returns elapsed*rate*alloc/totalAlloc truncated toward zero.
func emissionFor(elapsed uint64, rate *big.Int, alloc, totalAlloc uint64) (*big.Int, error) {
	if elapsed == 0 || alloc == 0 || totalAlloc == 0 {
		return big.NewInt(0), nil
	}
	r, err := toU256(rate)
	if err != nil {
		return nil, err
	}
	gross, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(elapsed), r)
	if overflow {
		return nil, ErrInvariantViolation
	}
	out, err := mulDiv(gross, uint256.NewInt(alloc), uint256.NewInt(totalAlloc))
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

// bpsShare returns amount*bps/10000.
func bpsShare(amount *big.Int, bps uint64) (*big.Int, error) {
	if bps == 0 {
		return big.NewInt(0), nil
	}
	a, err := toU256(amount)
	if err != nil {
		return nil, err
	}
	out, err := mulDiv(a, uint256.NewInt(bps), bpsDenom)
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// headroom returns max(cap-minted, 0).
func headroom(limit, minted *big.Int) *big.Int {
	c := newBigInt(limit)
	m := newBigInt(minted)
	if c.Cmp(m) <= 0 {
		return big.NewInt(0)
	}
	return c.Sub(c, m)
}

func newBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func fitsU256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(maxU256) <= 0
}
