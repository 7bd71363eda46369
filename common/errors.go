package common

const (
	ErrCodeBadRequestInvalidBody = "bad_request.body.invalid"
	ErrCodeBadRequestValidation  = "bad_request.body.validation"
	ErrCodeUnauthorized          = "unauthorized"
	ErrCodeUnavailable           = "unavailable"
	ErrCodeInternal              = "internal"
)

var (
	ErrBadRequestValidation = &LeadflowError{Code: ErrCodeBadRequestValidation}
	ErrInternal             = &LeadflowError{Code: ErrCodeInternal}
)

type LeadflowError struct {
	Code string
}

func (le *LeadflowError) Error() string {
	return le.Code
}
