package lanternservice

import (
	"errors"
	"fmt"
)

// Failure classes. Every domain error returned by the service wraps exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrExhausted    = errors.New("no tries left")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrStationNotFound = fmt.Errorf("station %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("hack session %w", ErrNotFound)
	ErrTeamNotFound    = fmt.Errorf("team %w", ErrNotFound)

	ErrSessionExhausted = fmt.Errorf("hack session has %w", ErrExhausted)

	ErrStationStale  = fmt.Errorf("station changed since the session was issued: %w", ErrConflict)
	ErrRoundInactive = fmt.Errorf("round is not active: %w", ErrConflict)
	ErrTeamNameTaken = fmt.Errorf("team name already taken: %w", ErrConflict)

	ErrInvalidStationID   = fmt.Errorf("malformed station id: %w", ErrInvalidInput)
	ErrInvalidTeamID      = fmt.Errorf("malformed team id: %w", ErrInvalidInput)
	ErrInvalidBoost       = fmt.Errorf("boosting signal must be at least 1: %w", ErrInvalidInput)
	ErrEmptyPassword      = fmt.Errorf("password must not be empty: %w", ErrInvalidInput)
	ErrInvalidRoundWindow = fmt.Errorf("round start must be before its end: %w", ErrInvalidInput)
	ErrRoundAlreadyEnded  = fmt.Errorf("cannot activate a round whose end time has passed: %w", ErrInvalidInput)
	ErrRoundNotStarted    = fmt.Errorf("cannot activate a round before its start time: %w", ErrInvalidInput)
	ErrInvalidName        = fmt.Errorf("name must not be empty: %w", ErrInvalidInput)
	ErrInvalidBaseline    = fmt.Errorf("baseline signal must be within [0,100]: %w", ErrInvalidInput)
	ErrMissingOwner       = fmt.Errorf("owner id must not be empty: %w", ErrInvalidInput)
)

// Wire codes reported to clients.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeExhausted    = "EXHAUSTED"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeInvalidInput = "INVALID_INPUT"
	CodeInternal     = "INTERNAL"
)

// ErrorCode maps err onto its wire code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrExhausted):
		return CodeExhausted
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternal
	}
}

// IsDomainError reports whether err is a typed failure rather than an infrastructure error.
func IsDomainError(err error) bool {
	code := ErrorCode(err)
	return code != "" && code != CodeInternal
}
