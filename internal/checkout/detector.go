// Package checkout follows the hosted payment page rendered in an embedded
// browser view and decides, from its navigation, how the payment ended.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"cinetpay-checkout/internal/cinetpay"
	"cinetpay-checkout/internal/logger"

	"go.uber.org/zap"
)

const (
	DefaultGatewayDomain = "cinetpay.com"

	statusCompleted = "completed"

	msgPaymentURLRequired = "Payment URL is required"
	msgReturnURLRequired  = "Return URL is required"
	msgUnexpectedRedirect = "Payment was redirected to an unexpected URL"
)

var (
	ErrPaymentURLRequired = errors.New("payment url is required")
	ErrReturnURLRequired  = errors.New("return url is required")
)

var defaultCancelMarkers = []string{"cancel", "error"}

type State int

const (
	Pending State = iota
	Succeeded
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool { return s != Pending }

// NavigationEvent is one navigation state change reported by the browser view.
type NavigationEvent struct {
	URL     string `json:"url"`
	Loading bool   `json:"loading"`
}

// LoadError is a page load failure below HTTP (DNS, TLS, offline).
type LoadError struct {
	Description string `json:"description"`
}

// HTTPError is an HTTP error status returned for the page itself.
type HTTPError struct {
	StatusCode  int    `json:"status_code"`
	Description string `json:"description"`
}

// Recorder receives the completion record on success.
type Recorder interface {
	StorePaymentData(ctx context.Context, p cinetpay.LatestPayment) error
}

type Option func(*Detector)

// WithGatewayDomain sets the host (and its subdomains) considered part of the
// hosted payment flow.
func WithGatewayDomain(domain string) Option {
	return func(d *Detector) { d.gatewayDomain = strings.ToLower(domain) }
}

// WithCancelMarkers replaces the substrings that flag a cancelled payment.
func WithCancelMarkers(markers ...string) Option {
	return func(d *Detector) { d.cancelMarkers = markers }
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// Detector is a one-shot classifier for a single payment session. Once it
// reaches a terminal state it ignores every further event and its outcome is
// delivered exactly once.
type Detector struct {
	returnURL     string
	gatewayDomain string
	cancelMarkers []string
	recorder      Recorder
	now           func() time.Time

	mu          sync.Mutex
	state       State
	outcome     Outcome
	outcomes    chan Outcome
	paymentHost string
	seen        bool
}

// NewDetector watches for returnURL. recorder may be nil, in which case the
// completion record is not persisted.
func NewDetector(returnURL string, recorder Recorder, opts ...Option) *Detector {
	d := &Detector{
		returnURL:     returnURL,
		gatewayDomain: DefaultGatewayDomain,
		cancelMarkers: defaultCancelMarkers,
		recorder:      recorder,
		now:           time.Now,
		state:         Pending,
		outcomes:      make(chan Outcome, 1),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Result returns the outcome once the detector is terminal.
func (d *Detector) Result() (Outcome, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome, d.state.Terminal()
}

// Outcomes yields the single outcome, then is closed.
func (d *Detector) Outcomes() <-chan Outcome {
	return d.outcomes
}

// Wait blocks until the outcome is known or ctx is done.
func (d *Detector) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case o, ok := <-d.outcomes:
		if !ok {
			o, _ = d.Result()
		}
		return o, nil
	}
}

// Start checks the payment and return URLs before the view loads the page.
// An empty URL fails the session immediately and nothing must be rendered.
func (d *Detector) Start(paymentURL string) error {
	if strings.TrimSpace(paymentURL) == "" {
		d.finish(Failure(msgPaymentURLRequired))
		return ErrPaymentURLRequired
	}
	if strings.TrimSpace(d.returnURL) == "" {
		d.finish(Failure(msgReturnURLRequired))
		return ErrReturnURLRequired
	}

	d.mu.Lock()
	d.paymentHost = hostOf(paymentURL)
	d.seen = true
	d.mu.Unlock()
	return nil
}

// HandleNavigation classifies ev and returns the resulting state.
func (d *Detector) HandleNavigation(ctx context.Context, ev NavigationEvent) State {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state.Terminal() {
		return d.state
	}

	log := logger.FromCtx(ctx).With(zap.String("url", ev.URL), zap.Bool("loading", ev.Loading))

	// without Start, the first page loaded is the payment page
	if !d.seen {
		d.seen = true
		d.paymentHost = hostOf(ev.URL)
	}

	switch {
	// an empty prefix would match every page
	case strings.TrimSpace(d.returnURL) == "":
		d.finishLocked(Failure(msgReturnURLRequired))
	case strings.HasPrefix(ev.URL, d.returnURL):
		params := parseReturnParams(ev.URL, log)
		d.record(ctx, log, params)
		d.finishLocked(Success(params))
	case d.isCancel(ev.URL):
		d.finishLocked(Cancellation())
	case !d.onGatewayDomain(ev.URL):
		d.finishLocked(Failure(msgUnexpectedRedirect))
	}

	if d.state.Terminal() {
		log.Info("Checkout finished", zap.Stringer("state", d.state))
	}
	return d.state
}

// HandleLoadError reports a browser-level load failure as is.
func (d *Detector) HandleLoadError(ev LoadError) State {
	desc := ev.Description
	if desc == "" {
		desc = "Unknown error"
	}
	return d.finish(Failure("WebView error: " + desc))
}

// HandleHTTPError reports an HTTP error on the page as is.
func (d *Detector) HandleHTTPError(ev HTTPError) State {
	return d.finish(Failure(fmt.Sprintf("HTTP error: %d - %s", ev.StatusCode, ev.Description)))
}

func (d *Detector) finish(o Outcome) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.state.Terminal() {
		d.finishLocked(o)
	}
	return d.state
}

func (d *Detector) finishLocked(o Outcome) {
	d.state = o.state()
	d.outcome = o
	d.outcomes <- o
	close(d.outcomes)
}

func (d *Detector) isCancel(rawURL string) bool {
	for _, m := range d.cancelMarkers {
		if m != "" && strings.Contains(rawURL, m) {
			return true
		}
	}
	return false
}

// onGatewayDomain reports whether rawURL is still part of the hosted flow:
// the gateway domain, its subdomains or the payment page's own host.
func (d *Detector) onGatewayDomain(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return strings.Contains(rawURL, d.gatewayDomain)
	}
	if d.paymentHost != "" && host == d.paymentHost {
		return true
	}
	return host == d.gatewayDomain || strings.HasSuffix(host, "."+d.gatewayDomain)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// record persists the completion. A store failure never turns the success
// into something else.
func (d *Detector) record(ctx context.Context, log *zap.Logger, params map[string]string) {
	if d.recorder == nil {
		return
	}
	completedAt := d.now().UTC()
	err := d.recorder.StorePaymentData(ctx, cinetpay.LatestPayment{
		TransactionID: params["transaction_id"],
		Status:        statusCompleted,
		CompletedAt:   &completedAt,
		ReturnParams:  params,
	})
	if err != nil {
		log.Warn("Failed to store payment completion", zap.Error(err))
	}
}

// parseReturnParams flattens the query string of rawURL, keeping the last
// value of repeated keys. Malformed pairs are dropped; the well-formed ones
// are kept.
func parseReturnParams(rawURL string, log *zap.Logger) map[string]string {
	params := map[string]string{}

	_, query, found := strings.Cut(rawURL, "?")
	if !found {
		return params
	}
	query, _, _ = strings.Cut(query, "#")

	values, err := url.ParseQuery(query)
	if err != nil {
		log.Warn("Error processing payment success", zap.Error(err))
	}
	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[len(vs)-1]
		}
	}
	return params
}
