package cinetpay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cinetpay-checkout/internal/logger"
	"cinetpay-checkout/internal/storage"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api-checkout.cinetpay.com/v2/"

	// mobile networks are lossy, keep well above typical RTTs
	defaultTimeout = 10 * time.Second

	endpointPayment      = "payment"
	endpointPaymentCheck = "payment/check"
)

// Client talks to the CinetPay checkout API on behalf of one merchant. It
// holds no per-payment state and is safe for concurrent use.
type Client struct {
	merchant   MerchantConfig
	baseURL    string
	httpClient *http.Client
	storage    *PaymentStorage
	now        func() time.Time
}

type Option func(*Client)

// WithBaseURL points the client at another API root (sandbox, test server).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient validates opts and returns a client persisting records to store.
// A nil store keeps records in memory.
func NewClient(opts MerchantOptions, store storage.Store, options ...Option) (*Client, error) {
	merchant, err := NewMerchantConfig(opts)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	c := &Client{
		merchant:   merchant,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		storage:    NewPaymentStorage(store),
		now:        time.Now,
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

func (c *Client) Merchant() MerchantConfig { return c.merchant }

// Storage exposes the record namespaces shared with the checkout detector.
func (c *Client) Storage() *PaymentStorage { return c.storage }

// ----------------- MakePayment -----------------

// MakePayment initiates req at the gateway. A "201" answer carrying data is
// also written to the latest-payment slot; failing to write it is logged only.
func (c *Client) MakePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	ctx = logger.WithTransactionID(ctx, req.TransactionID())
	log := logger.FromCtx(ctx).With(
		zap.String("endpoint", endpointPayment),
		zap.String("amount", req.Amount().String()),
		zap.String("currency", string(req.Currency())),
		zap.String("channels", string(req.Channels())),
	)

	body, err := paymentForm(req, c.merchant)
	if err != nil {
		log.Error("Failed to encode payment request", zap.Error(err))
		return nil, &OperationError{Op: opMakePayment, Err: err}
	}

	log.Info("Sending payment request to CinetPay")

	var res PaymentResponse
	if err := c.post(ctx, log, opMakePayment, endpointPayment, body, &res); err != nil {
		return nil, err
	}

	log.Info("CinetPay payment initialized",
		zap.String("code", res.Code.String()),
		zap.String("message", res.Message),
	)

	if res.Code == codePaymentCreated && res.Data != nil {
		storedAt := c.now().UTC()
		rec := LatestPayment{
			TransactionID: req.TransactionID(),
			Code:          res.Code,
			Message:       res.Message,
			Description:   res.Description,
			Data:          res.Data,
			APIResponseID: res.APIResponseID,
			StoredAt:      &storedAt,
		}
		if err := c.storage.StorePaymentData(ctx, rec); err != nil {
			log.Warn("Failed to store payment data", zap.Error(err))
		}
	}

	return &res, nil
}

// ----------------- CheckPayStatus -----------------

// CheckPayStatus polls the gateway for transactionID (a transaction id or
// payment token). A "00" answer carrying data is stored under the id.
func (c *Client) CheckPayStatus(ctx context.Context, transactionID string) (*PaymentStatusResponse, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, ErrTransactionIDRequired
	}

	ctx = logger.WithTransactionID(ctx, transactionID)
	log := logger.FromCtx(ctx).With(zap.String("endpoint", endpointPaymentCheck))

	var res PaymentStatusResponse
	if err := c.post(ctx, log, opCheckStatus, endpointPaymentCheck, statusForm(transactionID, c.merchant), &res); err != nil {
		return nil, err
	}

	log.Info("CinetPay payment status received", zap.String("code", res.Code.String()))

	if res.Code == codeStatusSuccess && res.Data != nil {
		st := StoredStatus{PaymentStatusData: *res.Data, CheckedAt: c.now().UTC()}
		if err := c.storage.StorePaymentStatus(ctx, transactionID, st); err != nil {
			log.Warn("Failed to store payment status", zap.Error(err))
		}
	}

	return &res, nil
}

// ----------------- Stored records -----------------

func (c *Client) StoredPaymentData(ctx context.Context) (*LatestPayment, error) {
	return c.storage.PaymentData(ctx)
}

func (c *Client) StoredPaymentStatus(ctx context.Context, transactionID string) (*StoredStatus, error) {
	return c.storage.PaymentStatus(ctx, transactionID)
}

func (c *Client) ClearStoredPaymentData(ctx context.Context) error {
	return c.storage.ClearAll(ctx)
}

func (c *Client) ClearPaymentDataForTransaction(ctx context.Context, transactionID string) error {
	return c.storage.Clear(ctx, transactionID)
}

// ----------------- transport -----------------

// post sends a form-encoded body and decodes an HTTP 200 answer into out.
// Failures are classified as NetworkError (no response), GatewayError
// (non-200) or OperationError (anything else).
func (c *Client) post(ctx context.Context, log *zap.Logger, op, endpoint, body string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(body))
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return &OperationError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("CinetPay request failed", zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return &OperationError{Op: op, Err: fmt.Errorf("read cinetpay response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		log.Error("CinetPay returned non-success status",
			zap.Int("http_status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: gatewayMessage(bodyBytes, resp.StatusCode)}
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		log.Error("Failed decoding CinetPay response", zap.Error(err))
		return &OperationError{Op: op, Err: fmt.Errorf("decode cinetpay response: %w", err)}
	}
	return nil
}

// gatewayMessage picks the most useful text out of an error body.
func gatewayMessage(body []byte, status int) string {
	var e struct {
		Message     string `json:"message"`
		Description string `json:"description"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Description != "" {
			return e.Description
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected response"
}
