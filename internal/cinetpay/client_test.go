package cinetpay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"cinetpay-checkout/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRoundTripper allows us to mock the HTTP response
type MockRoundTripper func(req *http.Request) *http.Response

func (f MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

type MockRoundTripperWithError func(req *http.Request) (*http.Response, error)

func (f MockRoundTripperWithError) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, store storage.Store, rt http.RoundTripper) *Client {
	t.Helper()
	c, err := NewClient(validMerchant(), store,
		WithHTTPClient(&http.Client{Transport: rt, Timeout: time.Second}),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return c
}

func mustRequest(t *testing.T, opts PaymentOptions) PaymentRequest {
	t.Helper()
	req, err := NewPaymentRequest(opts)
	require.NoError(t, err)
	return req
}

const paymentCreatedBody = `{
	"code": "201",
	"message": "CREATED",
	"description": "Transaction created with success",
	"data": {
		"payment_token": "tok-123",
		"payment_url": "https://checkout.cinetpay.com/payment/tok-123"
	},
	"api_response_id": "1663156565.2565"
}`

func TestClient_MakePayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		store := storage.NewMemoryStore()
		c := newTestClient(t, store, MockRoundTripper(func(req *http.Request) *http.Response {
			assert.Equal(t, "POST", req.Method)
			assert.Equal(t, "https://api-checkout.cinetpay.com/v2/payment", req.URL.String())
			assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

			raw, err := io.ReadAll(req.Body)
			require.NoError(t, err)
			form, err := url.ParseQuery(string(raw))
			require.NoError(t, err)
			assert.Equal(t, "T1", form.Get("transaction_id"))
			assert.Equal(t, "100", form.Get("amount"))
			assert.Equal(t, "659913", form.Get("site_id"))

			return jsonResponse(http.StatusOK, paymentCreatedBody)
		}))

		resp, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		require.NoError(t, err)
		assert.Equal(t, FlexString("201"), resp.Code)
		require.NotNil(t, resp.Data)
		assert.Equal(t, "https://checkout.cinetpay.com/payment/tok-123", resp.Data.PaymentURL)
		assert.Equal(t, "tok-123", resp.Data.PaymentToken)

		stored, err := c.StoredPaymentData(context.Background())
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "T1", stored.TransactionID)
		assert.Equal(t, "tok-123", stored.Data.PaymentToken)
		require.NotNil(t, stored.StoredAt)
		assert.True(t, fixedNow.Equal(*stored.StoredAt))
	})

	t.Run("NotCreated_NothingStored", func(t *testing.T) {
		store := storage.NewMemoryStore()
		c := newTestClient(t, store, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `{"code":"608","message":"MINIMUM_REQUIRED_FIELDS","description":"amount too low","data":[]}`)
		}))

		resp, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		require.NoError(t, err)
		assert.Equal(t, FlexString("608"), resp.Code)
		assert.Nil(t, resp.Data)
		assert.Equal(t, "amount too low", resp.Description)

		stored, err := c.StoredPaymentData(context.Background())
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("GatewayError", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusBadRequest, `{"code":"624","message":"INVALID_API_KEY"}`)
		}))

		_, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrGateway)
		assert.NotErrorIs(t, err, ErrNetwork)

		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.Equal(t, "INVALID_API_KEY", gwErr.Message)
		assert.Contains(t, err.Error(), "HTTP 400")
	})

	t.Run("Non200Success_IsGatewayError", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusCreated, `not json`)
		}))

		_, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, http.StatusCreated, gwErr.StatusCode)
		assert.Equal(t, "Created", gwErr.Message)
	})

	t.Run("NetworkError", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}))

		_, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNetwork)
		assert.NotErrorIs(t, err, ErrGateway)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("Timeout_IsNetworkError", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := c.MakePayment(ctx, mustRequest(t, validPayment()))
		assert.ErrorIs(t, err, ErrNetwork)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("InvalidJSONResponse", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `{invalid-json`)
		}))

		_, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		assert.ErrorIs(t, err, ErrOperation)
		assert.NotErrorIs(t, err, ErrGateway)
	})

	t.Run("StoreFailureIsSwallowed", func(t *testing.T) {
		store := new(StoreMock)
		store.On("Set", mock.Anything, "@cinetpay_payment_latest", mock.AnythingOfType("string")).
			Return(errors.New("disk full"))

		c := newTestClient(t, store, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, paymentCreatedBody)
		}))

		resp, err := c.MakePayment(context.Background(), mustRequest(t, validPayment()))
		require.NoError(t, err)
		assert.Equal(t, FlexString("201"), resp.Code)
		store.AssertExpectations(t)
	})
}

const statusSuccessBody = `{
	"code": "00",
	"message": "SUCCES",
	"data": {
		"cpm_site_id": "659913",
		"cpm_amount": 100,
		"cpm_trans_id": "T1",
		"cpm_currency": "XOF",
		"payment_method": "OM",
		"cpm_result": "00",
		"cpm_trans_status": "ACCEPTED",
		"buyer_name": "Awa"
	},
	"api_response_id": "1663156565.9999"
}`

func TestClient_CheckPayStatus(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c := newTestClient(t, storage.NewMemoryStore(), MockRoundTripper(func(req *http.Request) *http.Response {
			assert.Equal(t, "https://api-checkout.cinetpay.com/v2/payment/check", req.URL.String())

			raw, _ := io.ReadAll(req.Body)
			form, err := url.ParseQuery(string(raw))
			require.NoError(t, err)
			assert.Equal(t, "T1", form.Get("transaction_id"))
			assert.Equal(t, "T1", form.Get("token"))
			assert.Equal(t, "5579980505863a3f6aabd82.89189525", form.Get("apikey"))

			return jsonResponse(http.StatusOK, statusSuccessBody)
		}))

		resp, err := c.CheckPayStatus(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal(t, FlexString("00"), resp.Code)
		require.NotNil(t, resp.Data)
		assert.Equal(t, FlexString("100"), resp.Data.Amount)
		assert.Equal(t, FlexString("ACCEPTED"), resp.Data.TransStatus)

		stored, err := c.StoredPaymentStatus(context.Background(), "T1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, FlexString("T1"), stored.TransactionID)
		assert.True(t, fixedNow.Equal(stored.CheckedAt))
	})

	t.Run("EmptyTransactionID_NoNetworkCall", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, nil, MockRoundTripper(func(req *http.Request) *http.Response {
			atomic.AddInt32(&calls, 1)
			return jsonResponse(http.StatusOK, statusSuccessBody)
		}))

		for _, id := range []string{"", "   ", "\t\n"} {
			_, err := c.CheckPayStatus(context.Background(), id)
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorIs(t, err, ErrTransactionIDRequired)
		}
		assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	})

	t.Run("NotSuccess_NothingStored", func(t *testing.T) {
		c := newTestClient(t, storage.NewMemoryStore(), MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusOK, `{"code":"662","message":"WAITING_CUSTOMER_PAYMENT"}`)
		}))

		resp, err := c.CheckPayStatus(context.Background(), "T2")
		require.NoError(t, err)
		assert.Equal(t, "WAITING_CUSTOMER_PAYMENT", resp.Message)

		stored, err := c.StoredPaymentStatus(context.Background(), "T2")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("GatewayError", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripper(func(req *http.Request) *http.Response {
			return jsonResponse(http.StatusNotFound, `{"code":"627","message":"TRANSACTION_NOT_FOUND"}`)
		}))

		_, err := c.CheckPayStatus(context.Background(), "T1")
		var gwErr *GatewayError
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "TRANSACTION_NOT_FOUND", gwErr.Message)
		assert.Contains(t, err.Error(), "payment status check failed")
	})

	t.Run("NetworkError", func(t *testing.T) {
		c := newTestClient(t, nil, MockRoundTripperWithError(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("no such host")
		}))

		_, err := c.CheckPayStatus(context.Background(), "T1")
		assert.ErrorIs(t, err, ErrNetwork)
	})
}

func TestClient_ClearRecords(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "unrelated", "keep"))

	c := newTestClient(t, store, MockRoundTripper(func(req *http.Request) *http.Response {
		if req.URL.Path == "/v2/payment" {
			return jsonResponse(http.StatusOK, paymentCreatedBody)
		}
		return jsonResponse(http.StatusOK, statusSuccessBody)
	}))

	_, err := c.MakePayment(ctx, mustRequest(t, validPayment()))
	require.NoError(t, err)
	_, err = c.CheckPayStatus(ctx, "T1")
	require.NoError(t, err)
	_, err = c.CheckPayStatus(ctx, "T2")
	require.NoError(t, err)

	require.NoError(t, c.ClearPaymentDataForTransaction(ctx, "T1"))
	st, err := c.StoredPaymentStatus(ctx, "T1")
	require.NoError(t, err)
	assert.Nil(t, st)
	latest, err := c.StoredPaymentData(ctx)
	require.NoError(t, err)
	assert.NotNil(t, latest)

	require.NoError(t, c.ClearStoredPaymentData(ctx))
	latest, err = c.StoredPaymentData(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	v, err := store.Get(ctx, "unrelated")
	require.NoError(t, err)
	assert.Equal(t, "keep", v)
}

func TestWithBaseURL(t *testing.T) {
	c := newTestClient(t, nil, MockRoundTripper(func(req *http.Request) *http.Response {
		assert.Equal(t, "http://sandbox.local/v2/payment/check", req.URL.String())
		return jsonResponse(http.StatusOK, `{"code":"00","message":"SUCCES"}`)
	}))
	WithBaseURL("http://sandbox.local/v2")(c)

	_, err := c.CheckPayStatus(context.Background(), "T1")
	assert.NoError(t, err)
}
