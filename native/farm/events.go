package farm

import (
	"math/big"
	"strconv"

	"farmledger/core/events"
	"farmledger/core/types"
	"farmledger/crypto"
)

const (
	// EventTypePoolAdded is emitted when a new pool joins the registry.
	EventTypePoolAdded = "farm.poolAdded"
	// EventTypePoolUpdated is emitted when a pool weight changes.
	EventTypePoolUpdated = "farm.poolUpdated"
	// EventTypeRewardMinted is emitted when a pool sync mints rewards into custody.
	EventTypeRewardMinted = "farm.rewardMinted"
	// EventTypeMintCapReached is emitted when the lifetime cap truncated an emission.
	EventTypeMintCapReached = "farm.mintCapReached"
	// EventTypeDeposit is emitted for every successful deposit.
	EventTypeDeposit = "farm.deposit"
	// EventTypeWithdraw is emitted for withdrawals of a positive amount.
	EventTypeWithdraw = "farm.withdraw"
	// EventTypeHarvest is emitted when pending rewards are paid out.
	EventTypeHarvest = "farm.harvest"
	// EventTypeEmergencyWithdraw is emitted when a depositor forfeits rewards to exit.
	EventTypeEmergencyWithdraw = "farm.emergencyWithdraw"
	// EventTypeFeeCharged is emitted when an early-withdrawal fee is collected.
	EventTypeFeeCharged = "farm.feeCharged"
	// EventTypePayoutShortfall is emitted when custody could not cover a reward payout.
	EventTypePayoutShortfall = "farm.payoutShortfall"
	// EventTypeParamsUpdated is emitted for every administrative parameter change.
	EventTypeParamsUpdated = "farm.paramsUpdated"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func addrString(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func poolString(index uint64) string {
	return strconv.FormatUint(index, 10)
}

// PoolAddedEvent returns the payload announcing a new pool.
func PoolAddedEvent(index uint64, pool *Pool, totalAlloc uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolAdded,
		Attributes: map[string]string{
			"pool":            poolString(index),
			"asset":           pool.Asset,
			"allocPoint":      strconv.FormatUint(pool.AllocPoint, 10),
			"lastRewardBlock": strconv.FormatUint(pool.LastRewardBlock, 10),
			"totalAllocPoint": strconv.FormatUint(totalAlloc, 10),
		},
	}
}

// PoolUpdatedEvent returns the payload describing a pool reweighting.
func PoolUpdatedEvent(index uint64, previous, next, totalAlloc uint64) *types.Event {
	return &types.Event{
		Type: EventTypePoolUpdated,
		Attributes: map[string]string{
			"pool":            poolString(index),
			"previousAlloc":   strconv.FormatUint(previous, 10),
			"allocPoint":      strconv.FormatUint(next, 10),
			"totalAllocPoint": strconv.FormatUint(totalAlloc, 10),
		},
	}
}

// RewardMintedEvent returns the payload for an emission minted into custody.
func RewardMintedEvent(index uint64, minted, totalMinted, acc *big.Int, height uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRewardMinted,
		Attributes: map[string]string{
			"pool":              poolString(index),
			"amount":            amountString(minted),
			"totalMinted":       amountString(totalMinted),
			"accRewardPerShare": amountString(acc),
			"height":            strconv.FormatUint(height, 10),
		},
	}
}

// MintCapReachedEvent returns the payload for an emission truncated by the mint cap.
func MintCapReachedEvent(index uint64, attempted, minted, maxMint *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMintCapReached,
		Attributes: map[string]string{
			"pool":      poolString(index),
			"attempted": amountString(attempted),
			"minted":    amountString(minted),
			"maxMint":   amountString(maxMint),
		},
	}
}

// DepositEvent returns the payload for a deposit.
func DepositEvent(r *Receipt) *types.Event {
	return &types.Event{
		Type: EventTypeDeposit,
		Attributes: map[string]string{
			"pool":    poolString(r.Pool),
			"account": addrString(r.Account),
			"amount":  amountString(r.Principal),
			"reward":  amountString(r.Reward),
			"staked":  amountString(r.Position.Amount),
		},
	}
}

// WithdrawEvent returns the payload for a withdrawal of principal.
func WithdrawEvent(r *Receipt) *types.Event {
	return &types.Event{
		Type: EventTypeWithdraw,
		Attributes: map[string]string{
			"pool":    poolString(r.Pool),
			"account": addrString(r.Account),
			"amount":  amountString(r.Principal),
			"fee":     amountString(r.Fee),
			"staked":  amountString(r.Position.Amount),
		},
	}
}

// HarvestEvent returns the payload for a reward payout.
func HarvestEvent(r *Receipt) *types.Event {
	return &types.Event{
		Type: EventTypeHarvest,
		Attributes: map[string]string{
			"pool":      poolString(r.Pool),
			"account":   addrString(r.Account),
			"reward":    amountString(r.Reward),
			"rewardFee": amountString(r.RewardFee),
		},
	}
}

// EmergencyWithdrawEvent returns the payload for an emergency exit.
func EmergencyWithdrawEvent(index uint64, account [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEmergencyWithdraw,
		Attributes: map[string]string{
			"pool":    poolString(index),
			"account": addrString(account),
			"amount":  amountString(amount),
		},
	}
}

// FeeChargedEvent returns the payload for a collected early-withdrawal fee.
func FeeChargedEvent(index uint64, account, recipient [20]byte, principalFee, rewardFee *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeeCharged,
		Attributes: map[string]string{
			"pool":         poolString(index),
			"account":      addrString(account),
			"recipient":    addrString(recipient),
			"principalFee": amountString(principalFee),
			"rewardFee":    amountString(rewardFee),
		},
	}
}

// PayoutShortfallEvent returns the payload for a reward truncated by custody.
func PayoutShortfallEvent(index uint64, account [20]byte, owed, paid *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePayoutShortfall,
		Attributes: map[string]string{
			"pool":    poolString(index),
			"account": addrString(account),
			"owed":    amountString(owed),
			"paid":    amountString(paid),
		},
	}
}

// ParamsUpdatedEvent returns the payload for an administrative parameter change.
func ParamsUpdatedEvent(field, value string) *types.Event {
	return &types.Event{
		Type: EventTypeParamsUpdated,
		Attributes: map[string]string{
			"field": field,
			"value": value,
		},
	}
}
