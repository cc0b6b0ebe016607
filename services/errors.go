package services

import "net/http"

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindUpstream   ErrorKind = "upstream"
	KindInternal   ErrorKind = "internal"
)

const genericErrorMessage = "Something went wrong"

// ServiceError is a typed error with an HTTP status code. Message is safe to
// show to the caller; Err keeps the cause for logs.
type ServiceError struct {
	StatusCode int
	Message    string
	Kind       ErrorKind
	Retryable  bool
	Err        error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

func NewValidationError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg, Kind: KindValidation}
}

func NewNotFoundError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: msg, Kind: KindNotFound}
}

// NewConflictError is for a status precondition that retrying cannot fix,
// such as cancelling a cancelled order.
func NewConflictError(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusConflict, Message: msg, Kind: KindConflict}
}

// NewRetryableConflict is for a lost conditional write.
func NewRetryableConflict(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusConflict, Message: msg, Kind: KindConflict, Retryable: true}
}

// NewUpstreamError reports a gateway or storage failure as a bad request.
func NewUpstreamError(msg string, err error) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg, Kind: KindUpstream, Err: err}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: genericErrorMessage, Kind: KindInternal, Err: err}
}
