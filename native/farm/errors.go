package farm

import "errors"

var (
	// ErrInvalidAmount is returned for zero deposits and malformed quantities.
	ErrInvalidAmount = errors.New("farm engine: amount must be positive")
	// ErrInsufficientStake is returned when withdrawing more than the staked amount.
	ErrInsufficientStake = errors.New("farm engine: withdraw exceeds staked amount")
	// ErrUnauthorized is returned when a privileged operation is invoked by a non-admin identity.
	ErrUnauthorized = errors.New("farm engine: caller is not the administrator")
	// ErrTransferFailed wraps any failure reported by the token ledger capability.
	ErrTransferFailed = errors.New("farm engine: token transfer failed")
	// ErrInvariantViolation signals arithmetic overflow or underflow in accrual math.
	ErrInvariantViolation = errors.New("farm engine: invariant violation")
	// ErrPoolNotFound is returned for pool indices outside the registry.
	ErrPoolNotFound = errors.New("farm engine: pool not found")
	// ErrDuplicatePool is returned when adding a pool for an asset that already has one.
	ErrDuplicatePool = errors.New("farm engine: pool already exists for asset")
	// ErrModulePaused is returned for deposits and withdrawals while the farm is paused.
	ErrModulePaused = errors.New("farm engine: module paused")
	// ErrInvalidParams is returned for configuration values outside their allowed range.
	ErrInvalidParams = errors.New("farm engine: invalid parameters")
	// ErrNotInitialized is returned before the farm has been constructed.
	ErrNotInitialized = errors.New("farm engine: not initialised")
	// ErrAlreadyInitialized is returned when constructing an existing farm.
	ErrAlreadyInitialized = errors.New("farm engine: already initialised")

	errNilState = errors.New("farm engine: state not configured")
	errNilToken = errors.New("farm engine: token ledger not configured")
)
