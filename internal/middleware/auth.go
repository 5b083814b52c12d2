package middleware

import (
	"context"
	"net/http"

	"cinetpay-checkout/internal/auth"
	"cinetpay-checkout/internal/logger"

	"go.uber.org/zap"
)

type contextKey string

const (
	SubjectKey     contextKey = "subject"
	TokenClaimsKey contextKey = "jwtClaims"
)

// NewAuthMiddleware requires an HS256 token signed with secret on every
// request, from the bridge cookie or a bearer header. An empty secret
// disables the check.
func NewAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.ParseToken(secret, auth.ExtractAccessToken(r))
			if err != nil {
				logger.FromCtx(r.Context()).Debug("Rejected bridge request", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), TokenClaimsKey, claims)
			if claims.Subject != "" {
				ctx = context.WithValue(ctx, SubjectKey, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated caller, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(SubjectKey).(string)
	return sub, ok && sub != ""
}
