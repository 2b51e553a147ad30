package gatewaysim

import (
	"crypto/hmac"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/observability"
	"github.com/rentflow/checkout/internal/widget"
)

// Gateway is an in-memory stand-in for the booking backend's payment
// endpoints: order creation, completion verification and status lookup. It
// signs and checks completions with the same HMAC scheme the real provider
// uses, so the client stack can be exercised end to end without credentials.
type Gateway struct {
	secret string
	logger zerolog.Logger

	mu     sync.Mutex
	orders map[string]*simOrder
	byRcpt map[string]string // receipt -> order id, for idempotent creates
}

type simOrder struct {
	OrderID       string
	BookingID     string
	Amount        int64
	Currency      string
	Receipt       string
	TransactionID string
	Status        string // created, paid, expired
	PaymentID     string
	CreatedAt     time.Time
}

func New(secret string, logger zerolog.Logger) *Gateway {
	return &Gateway{
		secret: secret,
		logger: logger.With().Str("component", "gateway_sim").Logger(),
		orders: make(map[string]*simOrder),
		byRcpt: make(map[string]string),
	}
}

// NewRouter wires the gateway behind the standard middleware stack.
func NewRouter(gw *Gateway, corsCfg config.CORSConfig, metrics *observability.Metrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           300,
	}))
	if metrics != nil {
		r.Use(metricsMiddleware(metrics))
	}

	r.Get("/health", gw.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/payments", func(r chi.Router) {
		r.Post("/order", gw.CreateOrder)
		r.Get("/order/{id}/status", gw.OrderStatus)
		r.Post("/verify", gw.Verify)
	})

	// Redirect transport lands here with the completion in the query string.
	r.Get("/payment/callback", gw.Callback)

	return r
}

type createOrderRequest struct {
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
}

// CreateOrder handles POST /api/payments/order. Repeating a receipt returns
// the original order instead of minting a second charge.
func (g *Gateway) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookingID == "" {
		writeFailure(w, http.StatusBadRequest, "bookingId is required")
		return
	}
	if req.Amount <= 0 {
		writeFailure(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if req.Receipt != "" {
		if id, ok := g.byRcpt[req.Receipt]; ok {
			g.logger.Info().Str("order_id", id).Str("receipt", req.Receipt).Msg("order replayed for receipt")
			writeSuccess(w, orderPayload(g.orders[id]))
			return
		}
	}

	order := &simOrder{
		OrderID:       "order_" + uuid.New().String()[:14],
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Receipt:       req.Receipt,
		TransactionID: "txn_" + uuid.New().String()[:14],
		Status:        "created",
		CreatedAt:     time.Now(),
	}
	g.orders[order.OrderID] = order
	if order.Receipt != "" {
		g.byRcpt[order.Receipt] = order.OrderID
	}

	g.logger.Info().Str("order_id", order.OrderID).Str("booking_id", order.BookingID).Int64("amount", order.Amount).Msg("order created")
	writeSuccess(w, orderPayload(order))
}

func orderPayload(o *simOrder) map[string]any {
	return map[string]any{
		"orderId":       o.OrderID,
		"amount":        o.Amount,
		"currency":      o.Currency,
		"receipt":       o.Receipt,
		"transactionId": o.TransactionID,
		"bookingId":     o.BookingID,
		"keyId":         "rzp_test_simulated",
	}
}

type verifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	BookingID string `json:"bookingId"`
	Source    string `json:"source"`
}

// Verify handles POST /api/payments/verify. Signed completions are checked
// against the HMAC; unsigned ones (embedded and recovery flows) are accepted
// when the order is known, standing in for a provider API lookup.
func (g *Gateway) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g.settle(w, req)
}

// Callback handles GET /payment/callback, the landing point of redirect
// transport. The provider puts the completion in the query string.
func (g *Gateway) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g.settle(w, verifyRequest{
		OrderID:   q.Get("razorpay_order_id"),
		PaymentID: q.Get("razorpay_payment_id"),
		Signature: q.Get("razorpay_signature"),
		Source:    "redirect",
	})
}

func (g *Gateway) settle(w http.ResponseWriter, req verifyRequest) {
	if req.PaymentID == "" {
		writeFailure(w, http.StatusBadRequest, "razorpay_payment_id is required")
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[req.OrderID]
	if !ok {
		writeFailure(w, http.StatusNotFound, "unknown order")
		return
	}

	if req.Signature != "" {
		expected := widget.Sign(g.secret, req.OrderID, req.PaymentID)
		if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
			g.logger.Warn().Str("order_id", req.OrderID).Msg("signature mismatch")
			writeFailure(w, http.StatusBadRequest, "signature mismatch")
			return
		}
	}

	order.Status = "paid"
	order.PaymentID = req.PaymentID

	g.logger.Info().
		Str("order_id", order.OrderID).
		Str("payment_id", req.PaymentID).
		Str("source", req.Source).
		Msg("payment verified")

	writeSuccess(w, map[string]any{
		"transactionId": order.TransactionID,
		"orderId":       order.OrderID,
		"paymentId":     req.PaymentID,
		"bookingId":     order.BookingID,
		"amount":        order.Amount,
		"currency":      order.Currency,
		"status":        "captured",
	})
}

// OrderStatus handles GET /api/payments/order/{id}/status.
func (g *Gateway) OrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, "unknown order")
		return
	}
	writeSuccess(w, map[string]any{
		"orderId":   order.OrderID,
		"status":    order.Status,
		"paymentId": order.PaymentID,
	})
}

func (g *Gateway) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"status": "ok"})
}

// MarkPaid settles an order out-of-band, simulating a user who completed a
// redirect flow in another tab. Returns the generated payment id.
func (g *Gateway) MarkPaid(orderID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return "", false
	}
	order.Status = "paid"
	order.PaymentID = "pay_" + uuid.New().String()[:14]
	return order.PaymentID, true
}

// Expire marks an order dead, simulating provider-side order expiry.
func (g *Gateway) Expire(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, ok := g.orders[orderID]
	if !ok {
		return false
	}
	order.Status = "expired"
	return true
}

func metricsMiddleware(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = r.URL.Path
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
