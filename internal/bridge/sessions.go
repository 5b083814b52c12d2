package bridge

import (
	"errors"
	"net/http"
	"time"

	"cinetpay-checkout/internal/checkout"
	"cinetpay-checkout/internal/logger"
	"cinetpay-checkout/internal/middleware"

	"go.uber.org/zap"
)

type openSessionRequest struct {
	PaymentURL    string `json:"payment_url"`
	TransactionID string `json:"transaction_id"`
	ReturnURL     string `json:"return_url"`
}

type sessionView struct {
	ID            string            `json:"id"`
	TransactionID string            `json:"transaction_id,omitempty"`
	PaymentURL    string            `json:"payment_url"`
	ReturnURL     string            `json:"return_url"`
	CreatedAt     time.Time         `json:"created_at"`
	State         string            `json:"state"`
	Outcome       *checkout.Outcome `json:"outcome,omitempty"`
}

func viewOf(s *checkout.Session) sessionView {
	v := sessionView{
		ID:            s.ID,
		TransactionID: s.TransactionID,
		PaymentURL:    s.PaymentURL,
		ReturnURL:     s.ReturnURL,
		CreatedAt:     s.CreatedAt,
		State:         s.Detector.State().String(),
	}
	if o, done := s.Detector.Result(); done {
		v.Outcome = &o
	}
	return v
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.ReturnURL == "" {
		req.ReturnURL = h.returnURL
	}

	sess, err := h.sessions.Open(req.PaymentURL, req.ReturnURL, req.TransactionID)
	if errors.Is(err, checkout.ErrPaymentURLRequired) || errors.Is(err, checkout.ErrReturnURLRequired) {
		h.countOutcome(sess, checkout.Pending)
		// the session exists and already carries its Failed outcome
		writeJSON(w, http.StatusBadRequest, viewOf(sess))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	log := logger.FromCtx(r.Context()).With(
		zap.String("session_id", sess.ID),
		zap.String("transaction_id", sess.TransactionID),
	)
	if sub, ok := middleware.SubjectFromContext(r.Context()); ok {
		log = log.With(zap.String("subject", sub))
	}
	log.Info("Checkout session opened")
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.session(w, r); !ok {
		return
	}
	h.sessions.Close(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev checkout.NavigationEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx := logger.WithTransactionID(r.Context(), sess.TransactionID)
	before := sess.Detector.State()
	sess.Detector.HandleNavigation(ctx, ev)
	h.countOutcome(sess, before)
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (h *Handler) loadError(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev checkout.LoadError
	if err := decodeJSON(w, r, &ev); err != nil {
		h.writeError(w, r, err)
		return
	}

	before := sess.Detector.State()
	sess.Detector.HandleLoadError(ev)
	h.countOutcome(sess, before)
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (h *Handler) httpError(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var ev checkout.HTTPError
	if err := decodeJSON(w, r, &ev); err != nil {
		h.writeError(w, r, err)
		return
	}

	before := sess.Detector.State()
	sess.Detector.HandleHTTPError(ev)
	h.countOutcome(sess, before)
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// countOutcome records the session outcome if it became terminal since before.
func (h *Handler) countOutcome(sess *checkout.Session, before checkout.State) {
	if before.Terminal() {
		return
	}
	if o, done := sess.Detector.Result(); done {
		h.metrics.Counter(familyOutcomes, string(o.Kind)).Inc()
	}
}
