package pipeline

import "errors"

// ErrConflict signals that another submission holds the dedup lock for the
// same token and no cached record appeared within the wait budget. Callers
// should retry shortly.
var ErrConflict = errors.New("report with this clientReportId is processing, retry shortly")

// ValidationError rejects malformed input before any side effect happens.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationErr(msg string) error {
	return &ValidationError{msg: msg}
}
