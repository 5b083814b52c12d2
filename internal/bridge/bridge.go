// Package bridge exposes the payment client and the checkout detector over
// HTTP for hosts that embed the payment page outside of Go.
package bridge

import (
	"context"
	"net/http"

	"cinetpay-checkout/internal/cinetpay"
	"cinetpay-checkout/internal/checkout"
	"cinetpay-checkout/internal/metrics"
)

const (
	familyPayments = "payments_initialized"
	familyOutcomes = "checkout_outcomes"
	familyErrors   = "bridge_errors"
	familySessions = "checkout_sessions"
)

// PaymentService is the part of *cinetpay.Client the bridge needs.
type PaymentService interface {
	MakePayment(ctx context.Context, req cinetpay.PaymentRequest) (*cinetpay.PaymentResponse, error)
	CheckPayStatus(ctx context.Context, transactionID string) (*cinetpay.PaymentStatusResponse, error)
	StoredPaymentData(ctx context.Context) (*cinetpay.LatestPayment, error)
	StoredPaymentStatus(ctx context.Context, transactionID string) (*cinetpay.StoredStatus, error)
	ClearStoredPaymentData(ctx context.Context) error
	ClearPaymentDataForTransaction(ctx context.Context, transactionID string) error
}

type Handler struct {
	payments  PaymentService
	sessions  *checkout.Sessions
	returnURL string
	metrics   *metrics.Registry
}

// NewHandler serves payments and sessions. returnURL is used for sessions
// opened without their own return URL.
func NewHandler(payments PaymentService, sessions *checkout.Sessions, returnURL string) *Handler {
	return &Handler{
		payments:  payments,
		sessions:  sessions,
		returnURL: returnURL,
		metrics:   metrics.NewRegistry(),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /metrics", h.snapshot)

	mux.HandleFunc("POST /payments", h.makePayment)
	mux.HandleFunc("GET /payments/{id}/status", h.checkStatus)

	mux.HandleFunc("GET /records/latest", h.latestRecord)
	mux.HandleFunc("GET /records/status/{id}", h.statusRecord)
	mux.HandleFunc("DELETE /records/status/{id}", h.clearStatusRecord)
	mux.HandleFunc("DELETE /records", h.clearRecords)

	mux.HandleFunc("POST /sessions", h.openSession)
	mux.HandleFunc("GET /sessions/{id}", h.getSession)
	mux.HandleFunc("DELETE /sessions/{id}", h.closeSession)
	mux.HandleFunc("POST /sessions/{id}/navigation", h.navigation)
	mux.HandleFunc("POST /sessions/{id}/load-error", h.loadError)
	mux.HandleFunc("POST /sessions/{id}/http-error", h.httpError)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// snapshot reports the counters plus the number of sessions still held.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.metrics.Snapshot()
	snap[familySessions] = map[string]uint64{"open": uint64(h.sessions.Len())}
	writeJSON(w, http.StatusOK, snap)
}
