package services

import "fmt"

// Machine-readable reason codes returned alongside every scan failure.
// Clients branch on these, never on the message text.
const (
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeBadCode         = "bad_code"
	ErrCodeUnknownCode     = "unknown_code"
	ErrCodeUnknownUser     = "unknown_participant"
	ErrCodeInFlight        = "in_flight"
	ErrCodeStaleTimeout    = "stale_timeout"
	ErrCodeOutOfOrder      = "out_of_order"
	ErrCodeWrongPhase      = "wrong_phase"
	ErrCodeRailUnavailable = "rail_unavailable"
	ErrCodeRailDeclined    = "rail_declined"
	ErrCodeNotFound        = "not_found"
	ErrCodeInternal        = "internal"
)

// ScanError is the orchestrator's failure result. Status is the HTTP-style
// class the handler should return; Retryable tells the caller whether
// resubmitting the same code can ever succeed without changing input.
type ScanError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func scanErrorf(status int, code string, retryable bool, format string, args ...interface{}) *ScanError {
	return &ScanError{
		Status:    status,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
	}
}
