package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed domain error that knows the HTTP status it should produce.
// Services return these; the response layer maps anything else to a 500.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a fresh typed error.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a typed classification to an underlying error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Clone copies a sentinel error, optionally overriding its message. Used when
// a shared sentinel needs request-specific wording.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// FromError normalises any error into an *Error, defaulting to internal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Shared sentinels.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Decision-engine sentinels. Each is a definite rejection of the request,
// never a retryable condition.
var (
	ErrAlreadyVoted       = New("ALREADY_VOTED", http.StatusConflict, "officer has already voted on this proposal")
	ErrProposalNotVotable = New("PROPOSAL_NOT_VOTABLE", http.StatusConflict, "proposal is not open for voting")
	ErrOfficerInactive    = New("OFFICER_INACTIVE", http.StatusForbidden, "officer account is not active")
	ErrProposalLocked     = New("PROPOSAL_LOCKED", http.StatusConflict, "proposal is locked")
)

// Investor-surface sentinels.
var (
	ErrAlreadyInvested     = New("ALREADY_INVESTED", http.StatusConflict, "investor has already invested in this proposal")
	ErrProposalNotFundable = New("PROPOSAL_NOT_FUNDABLE", http.StatusConflict, "proposal is not open for investment")
)

var (
	ErrOTPExpired    = New("OTP_EXPIRED", http.StatusUnauthorized, "one-time password expired or not requested")
	ErrOTPMismatch   = New("OTP_MISMATCH", http.StatusUnauthorized, "one-time password does not match")
	ErrOTPThrottled  = New("OTP_THROTTLED", http.StatusTooManyRequests, "one-time password recently sent, wait before retrying")
	ErrCacheMiss     = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrReportPending = New("REPORT_PENDING", http.StatusConflict, "report is not finished yet")
)
