package payment

import (
	"errors"
	"fmt"
)

// GatewayErrorKind partitions gateway failures by how the caller must react.
type GatewayErrorKind string

const (
	// GatewayDeclined: the processor rejected the operation. Terminal; report,
	// never retry.
	GatewayDeclined GatewayErrorKind = "declined"
	// GatewayUnavailable: timeout or processor-side outage before the request
	// was accepted. Retry with the same idempotency key, never a new one.
	GatewayUnavailable GatewayErrorKind = "unavailable"
	// GatewayAmbiguous: the response was lost after the processor may have
	// acted. Reconcile against processor state before any fresh attempt.
	GatewayAmbiguous GatewayErrorKind = "ambiguous"
)

// GatewayError carries the processor's error detail for the ledger trail.
type GatewayError struct {
	Kind    GatewayErrorKind
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the caller may safely retry with the same
// idempotency key.
func (e *GatewayError) Retryable() bool {
	return e.Kind == GatewayUnavailable
}

// AsGatewayError unwraps err into a *GatewayError if it is one.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
