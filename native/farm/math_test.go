package farm

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestCheckedArithmeticRejectsOutOfRange(t *testing.T) {
	top := new(big.Int).Set(maxU256)
	maxWord, _ := uint256.FromBig(top)
	cases := []struct {
		name string
		run  func() error
		ok   bool
	}{
		{"sub in range", func() error { _, err := checkedSub(big.NewInt(5), big.NewInt(5)); return err }, true},
		{"sub underflow", func() error { _, err := checkedSub(big.NewInt(1), big.NewInt(2)); return err }, false},
		{"add overflow", func() error { _, err := checkedAdd(top, big.NewInt(1)); return err }, false},
		{"negative operand", func() error { _, err := checkedAdd(big.NewInt(-1), big.NewInt(1)); return err }, false},
		{"wider than 256 bits", func() error { _, err := toU256(new(big.Int).Lsh(big.NewInt(1), 256)); return err }, false},
		{"muldiv full-width product", func() error {
			_, err := mulDiv(maxWord, uint256.NewInt(2), uint256.NewInt(2))
			return err
		}, true},
		{"muldiv overflow", func() error {
			_, err := mulDiv(maxWord, uint256.NewInt(2), uint256.NewInt(1))
			return err
		}, false},
		{"pending below debt", func() error { _, err := pendingFor(big.NewInt(1), big.NewInt(AccPrecision), big.NewInt(2)); return err }, false},
		{"emission overflow", func() error { _, err := emissionFor(2, top, 1, 1); return err }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvariantViolation) {
				t.Fatalf("expected ErrInvariantViolation, got %v", err)
			}
		})
	}
}
