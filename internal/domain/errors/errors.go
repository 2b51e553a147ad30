package errors

import (
	"errors"
	"fmt"
)

var (
	// Precondition errors
	ErrMissingBookingReference  = errors.New("missing booking reference")
	ErrMissingPaymentIdentifier = errors.New("missing payment identifier")
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrInvalidStateTransition   = errors.New("invalid state transition")

	// Backend errors
	ErrNetworkUnavailable  = errors.New("no response from payment backend")
	ErrServerRejected      = errors.New("payment backend rejected the request")
	ErrMalformedResponse   = errors.New("malformed payment backend response")
	ErrVerificationTimeout = errors.New("payment verification timed out")

	// Widget loader errors
	ErrScriptLoadTimeout       = errors.New("payment script load timed out")
	ErrSdkUnavailableAfterLoad = errors.New("payment sdk not available after script load")
	ErrNoInjectionPoint        = errors.New("no script injection point available")

	// Provider errors
	ErrPaymentFailed = errors.New("payment failed at provider")
)

// DomainError wraps errors with a stable code and a message safe to show users.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ServerRejected wraps a backend-supplied rejection message so callers can
// surface it verbatim while still matching ErrServerRejected.
func ServerRejected(message string) *DomainError {
	if message == "" {
		message = "the payment service rejected the request"
	}
	return NewDomainError("server_rejected", message, ErrServerRejected)
}

// PaymentFailed wraps a provider-reported failure description.
func PaymentFailed(reason string) *DomainError {
	if reason == "" {
		reason = "the payment could not be completed"
	}
	return NewDomainError("payment_failed", reason, ErrPaymentFailed)
}

// UserMessage maps an error to copy that is safe to show to a paying user.
// Verification timeouts must never read like a failed charge: the payment may
// have gone through and verification is still catching up.
func UserMessage(err error) string {
	var de *DomainError
	switch {
	case errors.Is(err, ErrVerificationTimeout):
		return "Your payment may have succeeded. Verification is still processing; please do not retry the payment."
	case errors.Is(err, ErrNetworkUnavailable):
		return "We could not reach the payment service. Please check your connection and try again."
	case errors.Is(err, ErrScriptLoadTimeout), errors.Is(err, ErrSdkUnavailableAfterLoad):
		return "The payment window could not be loaded. Please try again."
	case errors.Is(err, ErrMissingBookingReference):
		return "This payment is not linked to a booking. Please restart the booking flow."
	case errors.Is(err, ErrMissingPaymentIdentifier):
		return "The payment response was incomplete. If you were charged, please contact support."
	case errors.As(err, &de):
		return de.Message
	default:
		return "The payment could not be completed. Please try again."
	}
}
