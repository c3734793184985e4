package services

import "errors"

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrGatewayConfigNotFound = errors.New("payment gateway configuration not found")
)

// RejectReason classifies a client-attributable IPN failure.
type RejectReason string

const (
	ReasonMalformedPayload      RejectReason = "malformed_payload"
	ReasonOrderNotFound         RejectReason = "order_not_found"
	ReasonGatewayConfigNotFound RejectReason = "gateway_config_not_found"
	ReasonSignatureInvalid      RejectReason = "signature_invalid"
)

// RejectionError is a notification refused before anything was written.
// The provider should not expect a retry to succeed.
type RejectionError struct {
	Reason RejectReason
	Err    error
}

func (e *RejectionError) Error() string {
	return string(e.Reason) + ": " + e.Err.Error()
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(reason RejectReason, err error) error {
	return &RejectionError{Reason: reason, Err: err}
}
