package payment

import "strings"

// Completion is the normalized provider completion callback. The raw payload
// shape is not uniform across contexts: web completions use razorpay_* field
// names and carry a signature, embedded-app completions often use camelCase
// names and legitimately omit the signature. Normalizing here keeps the alias
// branching out of the launcher.
type Completion struct {
	PaymentID string
	OrderID   string
	Signature string
}

var (
	paymentIDAliases = []string{"razorpay_payment_id", "paymentId", "payment_id"}
	orderIDAliases   = []string{"razorpay_order_id", "orderId", "order_id"}
	signatureAliases = []string{"razorpay_signature", "signature"}
)

// ParseCompletion extracts the normalized fields from a raw callback payload.
// PaymentID is the only strictly required field; the caller decides how to
// treat its absence. OrderID may be recovered from the in-memory order and
// a missing signature is omitted downstream, not treated as an error.
func ParseCompletion(raw map[string]any) Completion {
	return Completion{
		PaymentID: firstAlias(raw, paymentIDAliases),
		OrderID:   firstAlias(raw, orderIDAliases),
		Signature: firstAlias(raw, signatureAliases),
	}
}

// HasSignature reports whether a non-empty signature was supplied.
func (c Completion) HasSignature() bool {
	return c.Signature != ""
}

func firstAlias(raw map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}
