package bridge

import (
	"errors"
	"net/http"

	"cinetpay-checkout/internal/cinetpay"
)

var errRecordNotFound = errors.New("no stored record")

func (h *Handler) makePayment(w http.ResponseWriter, r *http.Request) {
	var opts cinetpay.PaymentOptions
	if err := decodeJSON(w, r, &opts); err != nil {
		h.writeError(w, r, err)
		return
	}
	if opts.TransactionID == "" {
		opts.TransactionID = cinetpay.GenerateTransactionID()
	}

	req, err := cinetpay.NewPaymentRequest(opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.payments.MakePayment(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.metrics.Counter(familyPayments, res.Code.String()).Inc()
	writeJSON(w, http.StatusOK, paymentResult{TransactionID: req.TransactionID(), PaymentResponse: res})
}

type paymentResult struct {
	TransactionID string `json:"transaction_id"`
	*cinetpay.PaymentResponse
}

func (h *Handler) checkStatus(w http.ResponseWriter, r *http.Request) {
	res, err := h.payments.CheckPayStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) latestRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.payments.StoredPaymentData(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rec == nil {
		h.writeError(w, r, errRecordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) statusRecord(w http.ResponseWriter, r *http.Request) {
	st, err := h.payments.StoredPaymentStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if st == nil {
		h.writeError(w, r, errRecordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) clearStatusRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.payments.ClearPaymentDataForTransaction(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.payments.ClearStoredPaymentData(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
