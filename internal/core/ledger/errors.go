package ledger

import "errors"

// Error kinds surfaced by ledger operations. Every failure leaves state
// byte-for-byte unchanged; retry policy belongs to the caller.
var (
	// ErrNotInitialized indicates the ledger has not been initialized yet.
	ErrNotInitialized = errors.New("ledger not initialized")

	// ErrAlreadyInitialized indicates a second initialization attempt.
	ErrAlreadyInitialized = errors.New("ledger already initialized")

	// ErrUnauthorized indicates the caller is not the admin.
	ErrUnauthorized = errors.New("caller is not authorized")

	// ErrDuplicateTier indicates the tier symbol already exists.
	ErrDuplicateTier = errors.New("tier already exists")

	// ErrNotFound indicates an unknown tier symbol or token id.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInvalid indicates the ticket was already refunded.
	ErrAlreadyInvalid = errors.New("ticket is already invalid")

	// ErrTierInactive indicates minting against a deactivated tier.
	ErrTierInactive = errors.New("tier is not active")

	// ErrSoldOut indicates the tier has reached its supply cap.
	ErrSoldOut = errors.New("tier is sold out")

	// ErrSaleFrozen indicates the ledger is frozen for mutations.
	ErrSaleFrozen = errors.New("sales are frozen")

	// ErrRefundWindowClosed indicates the refund cutoff has passed.
	ErrRefundWindowClosed = errors.New("refund window is closed")

	// ErrOracleUnavailable indicates both price sources failed during a
	// price update; the persisted price is unchanged and the call is
	// safe to retry.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrArithmeticOverflow indicates a fixed-point computation left the
	// representable range.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrInvalidArgument indicates a structurally invalid request, such
	// as an empty tier symbol or a zero supply cap.
	ErrInvalidArgument = errors.New("invalid argument")
)
