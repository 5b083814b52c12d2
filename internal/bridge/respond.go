package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cinetpay-checkout/internal/cinetpay"
	"cinetpay-checkout/internal/checkout"
	"cinetpay-checkout/internal/logger"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("invalid JSON body")

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code, counts it and logs server-side
// failures.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	h.metrics.Counter(familyErrors, kind).Inc()
	if status >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("Bridge request failed",
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: kind})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, cinetpay.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, checkout.ErrPaymentURLRequired):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, checkout.ErrSessionNotFound), errors.Is(err, errRecordNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, cinetpay.ErrGateway):
		return http.StatusBadGateway, "gateway"
	case errors.Is(err, cinetpay.ErrNetwork):
		return http.StatusGatewayTimeout, "network"
	case errors.Is(err, cinetpay.ErrConfiguration):
		return http.StatusInternalServerError, "configuration"
	default:
		return http.StatusInternalServerError, "operation"
	}
}
