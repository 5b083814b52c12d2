package cinetpay

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrNetwork       = errors.New("network error")
	ErrGateway       = errors.New("gateway error")
	ErrOperation     = errors.New("operation error")
)

var (
	ErrMissingConfiguration  = fmt.Errorf("%w: all configuration fields are required: apikey, site_id, notify_url, return_url, lang", ErrConfiguration)
	ErrRequiredFields        = fmt.Errorf("%w: required fields missing: transaction_id, amount, currency, description, channels", ErrValidation)
	ErrInvalidAmount         = fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	ErrTransactionIDRequired = fmt.Errorf("%w: transaction_id or payment_token is required", ErrValidation)
)

const (
	opMakePayment = "payment initialization"
	opCheckStatus = "payment status check"
)

// GatewayError means the gateway answered, but not with HTTP 200.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// NetworkError means no response was received at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: unable to reach payment server: %v", e.Op, e.Err)
}

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

func (e *NetworkError) Unwrap() error { return e.Err }

// OperationError wraps anything unexpected: request building, body reading,
// decoding.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Op, e.Err)
}

func (e *OperationError) Is(target error) bool { return target == ErrOperation }

func (e *OperationError) Unwrap() error { return e.Err }
