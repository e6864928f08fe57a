package domain

import "errors"

var (
	// ErrPoolNotFound is returned when an event references a pool that was never created
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPoolAlreadyExists is returned when attempting to create a pool that already exists
	ErrPoolAlreadyExists = errors.New("pool already exists")

	// ErrPoolConfigImmutable is returned when a mutation touches pool configuration after creation
	ErrPoolConfigImmutable = errors.New("pool configuration is immutable")

	// ErrUserNotFound is returned when a user record must exist but does not
	ErrUserNotFound = errors.New("user not found")

	// ErrRequestNotFound is returned when a pool creation request is unknown
	ErrRequestNotFound = errors.New("request not found")

	// ErrRequestAlreadyExists is returned when a request id is submitted twice for the same factory
	ErrRequestAlreadyExists = errors.New("request already exists")

	// ErrRequestFrozen is returned when a deployed request receives another status change
	ErrRequestFrozen = errors.New("request already deployed")

	// ErrUnknownFactory is returned when the pool kind of a factory cannot be resolved
	ErrUnknownFactory = errors.New("unknown factory")

	// ErrHistoryExists is returned when a history record with the same id is appended twice
	ErrHistoryExists = errors.New("history record already exists")

	// ErrEventAlreadyProcessed is returned when the same (tx hash, log index) is delivered again
	ErrEventAlreadyProcessed = errors.New("event already processed")

	// ErrInvalidEvent is returned when an inbound event fails validation
	ErrInvalidEvent = errors.New("invalid event")

	// ErrUnknownEventKind is returned when an event kind has no handler
	ErrUnknownEventKind = errors.New("unknown event kind")

	// ErrInvalidRequestStatus is returned when a wire status cannot be mapped
	ErrInvalidRequestStatus = errors.New("invalid request status")

	// ErrArithmeticUnderflow is returned when an unsigned subtraction would go negative
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")

	// ErrArithmeticOverflow is returned when a result does not fit in 256 bits
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrAccumulatorDecreased is returned when a pool update would move accRewardPerShare backwards
	ErrAccumulatorDecreased = errors.New("accumulated reward per share decreased")
)

// IsFatal reports whether err must abort processing of the current event.
// Everything except a duplicate delivery is fatal for the event being handled.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrEventAlreadyProcessed)
}

// IsRetryable reports whether redelivering the event could succeed.
// Validation failures and accounting invariant violations never heal on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInvalidEvent),
		errors.Is(err, ErrUnknownEventKind),
		errors.Is(err, ErrInvalidRequestStatus),
		errors.Is(err, ErrUnknownFactory),
		errors.Is(err, ErrEventAlreadyProcessed),
		errors.Is(err, ErrArithmeticUnderflow),
		errors.Is(err, ErrArithmeticOverflow),
		errors.Is(err, ErrAccumulatorDecreased),
		errors.Is(err, ErrPoolConfigImmutable):
		return false
	}
	return true
}
