package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cinetpay-checkout/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	t.Run("Disabled without secret", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		w := httptest.NewRecorder()

		NewAuthMiddleware("")(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Missing Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		tokenString := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
			"sub": "pos-terminal-7",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := SubjectFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "pos-terminal-7", sub)
			claims, ok := r.Context().Value(TokenClaimsKey).(*auth.BridgeClaims)
			assert.True(t, ok)
			assert.Equal(t, "pos-terminal-7", claims.Subject)
			w.WriteHeader(http.StatusOK)
		})

		NewAuthMiddleware(testSecret)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		tokenString := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
			"sub": "pos-terminal-7",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		tokenString := signToken(t, jwt.SigningMethodHS256, "other", jwt.MapClaims{"sub": "x"})

		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Other HMAC method rejected", func(t *testing.T) {
		tokenString := signToken(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{"sub": "x"})

		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		tokenString, err := auth.IssueToken(testSecret, "webview-1", time.Hour, time.Now())
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tokenString})
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()

		NewAuthMiddleware(testSecret)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	t.Run("Strict tier for payment initialization", func(t *testing.T) {
		handler := NewRateLimiter().Middleware(okHandler())

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest("POST", "/payments", nil)
			req.RemoteAddr = "10.0.0.1:5555"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		for _, c := range codes[:burstStrict] {
			assert.Equal(t, http.StatusOK, c)
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])
	})

	t.Run("Separate buckets per identity", func(t *testing.T) {
		handler := NewRateLimiter().Middleware(okHandler())

		for i := 0; i < burstStrict; i++ {
			req := httptest.NewRequest("POST", "/payments", nil)
			req.Header.Set("X-Device-ID", "device-a")
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest("POST", "/payments", nil)
		req.Header.Set("X-Device-ID", "device-b")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Separate buckets per tier", func(t *testing.T) {
		handler := NewRateLimiter().Middleware(okHandler())

		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest("POST", "/payments", nil)
			req.RemoteAddr = "10.0.0.2:1"
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest("GET", "/payments/TX1/status", nil)
		req.RemoteAddr = "10.0.0.2:1"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestResolveRateTier(t *testing.T) {
	tests := []struct {
		method string
		path   string
		tier   string
	}{
		{"POST", "/payments", "strict"},
		{"GET", "/payments/TX1/status", "general"},
		{"POST", "/sessions/abc/navigation", "navigation"},
		{"POST", "/sessions", "general"},
	}

	for _, tt := range tests {
		_, _, tier := resolveRateTier(httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.tier, tier, tt.method+" "+tt.path)
	}
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.9:443"
	assert.Equal(t, "ip:192.168.1.9", identity(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "ip:no-port", identity(req))

	req.Header.Set("X-Device-ID", "d1")
	assert.Equal(t, "device:d1", identity(req))
}

func TestCleanup(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	rl.getVisitor("ip:a:general", limitGeneral, burstGeneral)
	now = now.Add(2 * time.Minute)
	rl.getVisitor("ip:b:general", limitGeneral, burstGeneral)
	now = now.Add(2 * time.Minute)

	rl.Cleanup()

	_, hasA := rl.visitors["ip:a:general"]
	_, hasB := rl.visitors["ip:b:general"]
	assert.False(t, hasA)
	assert.True(t, hasB)
}
