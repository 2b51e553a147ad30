package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rentflow/checkout/internal/domain/errors"
)

// OrderStatus is the backend's view of an order after the fact, used by the
// recovery pass to reconcile pending records the process lost track of.
type OrderStatus struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"` // created, paid, expired
	PaymentID string `json:"paymentId"`
}

// Paid reports whether the order has a settled payment behind it.
func (s *OrderStatus) Paid() bool {
	return s.Status == "paid" && s.PaymentID != ""
}

// OrderStatus fetches the current status of an order.
func (c *OrderClient) OrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: order id missing", errors.ErrMalformedResponse)
	}

	url := c.cfg.OrderURL() + "/" + orderID + "/status"
	data, err := c.client.getJSON(ctx, url, c.cfg.RequestTimeout)
	if err != nil {
		if stderrors.Is(err, errRequestTimeout) {
			return nil, fmt.Errorf("%w: %v", errors.ErrNetworkUnavailable, err)
		}
		return nil, err
	}

	var status OrderStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedResponse, err)
	}
	if status.OrderID == "" {
		status.OrderID = orderID
	}
	return &status, nil
}
