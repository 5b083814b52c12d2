package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cinetpay-checkout/internal/auth"
	"cinetpay-checkout/internal/cinetpay"
	"cinetpay-checkout/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/payment":
			io.WriteString(w, `{"code":"201","message":"CREATED","data":{"payment_url":"https://checkout.cinetpay.com/payment/abc","payment_token":"tok"}}`)
		case "/payment/check":
			io.WriteString(w, `{"code":"00","message":"SUCCES","data":{"cpm_trans_id":"`+r.FormValue("transaction_id")+`","cpm_result":"00","cpm_amount":1000}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"not found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	mr := miniredis.RunT(t)
	return &config.Config{
		CinetPayAPIKey:    "key",
		CinetPaySiteID:    123,
		CinetPayNotifyURL: "https://merchant.example/notify",
		CinetPayReturnURL: "https://merchant.example/return",
		CinetPayLang:      "fr",
		CinetPayBaseURL:   baseURL,
		GatewayTimeout:    time.Second,
		StoreDriver:       "redis",
		RedisAddr:         mr.Addr(),
	}
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), cfg, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRun_Usage(t *testing.T) {
	cfg := testConfig(t, "")

	_, stderr, err := runCLI(t, cfg)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "usage: cinetpay")

	_, stderr, err = runCLI(t, cfg, "refund")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, `unknown command "refund"`)

	_, _, err = runCLI(t, cfg, "status", "-nope")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_InvalidMerchant(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.CinetPayAPIKey = ""

	_, _, err := runCLI(t, cfg, "stored")
	assert.ErrorIs(t, err, cinetpay.ErrConfiguration)
}

func TestRun_PayStoredStatusClear(t *testing.T) {
	gw := newGateway(t)
	cfg := testConfig(t, gw.URL)

	out, _, err := runCLI(t, cfg, "pay", "-id", "TX1", "-amount", "1000", "-description", "Order 1",
		"-metadata", `{"order":42}`)
	require.NoError(t, err)
	assert.Contains(t, out, "transaction_id: TX1")
	assert.Contains(t, out, `"payment_url": "https://checkout.cinetpay.com/payment/abc"`)

	out, _, err = runCLI(t, cfg, "stored")
	require.NoError(t, err)
	assert.Contains(t, out, `"transaction_id": "TX1"`)

	out, _, err = runCLI(t, cfg, "status", "-id", "TX1")
	require.NoError(t, err)
	assert.Contains(t, out, `"code": "00"`)

	out, _, err = runCLI(t, cfg, "stored", "-id", "TX1")
	require.NoError(t, err)
	assert.Contains(t, out, `"cpm_trans_id": "TX1"`)

	out, _, err = runCLI(t, cfg, "clear", "-id", "TX1")
	require.NoError(t, err)
	assert.Equal(t, "cleared TX1\n", out)

	out, _, err = runCLI(t, cfg, "stored", "-id", "TX1")
	require.NoError(t, err)
	assert.Equal(t, "no stored record\n", out)

	out, _, err = runCLI(t, cfg, "clear")
	require.NoError(t, err)
	assert.Equal(t, "cleared all records\n", out)

	out, _, err = runCLI(t, cfg, "stored")
	require.NoError(t, err)
	assert.Equal(t, "no stored record\n", out)
}

func TestRun_PayValidation(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	tests := []struct {
		name string
		args []string
	}{
		{"amount not a number", []string{"pay", "-amount", "abc", "-description", "d"}},
		{"zero amount", []string{"pay", "-amount", "0", "-description", "d"}},
		{"missing description", []string{"pay", "-amount", "10"}},
		{"bad currency", []string{"pay", "-amount", "10", "-description", "d", "-currency", "EUR"}},
		{"bad email", []string{"pay", "-amount", "10", "-description", "d", "-customer-email", "nope"}},
		{"bad phone", []string{"pay", "-amount", "10", "-description", "d", "-customer-phone", "12"}},
		{"bad metadata", []string{"pay", "-amount", "10", "-description", "d", "-metadata", "[1]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, cfg, tt.args...)
			assert.ErrorIs(t, err, cinetpay.ErrValidation)
		})
	}
}

func TestRun_StatusErrors(t *testing.T) {
	gw := newGateway(t)

	_, _, err := runCLI(t, testConfig(t, gw.URL), "status")
	assert.ErrorIs(t, err, cinetpay.ErrTransactionIDRequired)

	_, _, err = runCLI(t, testConfig(t, gw.URL+"/missing"), "status", "-id", "TX1")
	assert.ErrorIs(t, err, cinetpay.ErrGateway)

	_, _, err = runCLI(t, testConfig(t, "http://127.0.0.1:1"), "status", "-id", "TX1")
	assert.ErrorIs(t, err, cinetpay.ErrNetwork)
}

func TestRun_Token(t *testing.T) {
	cfg := &config.Config{JWTSecret: "bridge-secret"}

	out, _, err := runCLI(t, cfg, "token", "-sub", "pos-1", "-ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.ParseToken("bridge-secret", strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "pos-1", claims.Subject)

	_, stderr, err := runCLI(t, cfg, "token")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "-sub is required")

	_, _, err = runCLI(t, &config.Config{}, "token", "-sub", "pos-1")
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}
