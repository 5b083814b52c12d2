package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"cinetpay-checkout/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// sessions nobody has looked at for this long are dropped
	sessionIdleTTL     = 30 * time.Minute
	// finished sessions stay readable this long after their last access
	sessionTerminalTTL = 5 * time.Minute
)

var ErrSessionNotFound = errors.New("checkout session not found")

// Session pairs a detector with the payment page it is following.
type Session struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	PaymentURL    string    `json:"payment_url"`
	ReturnURL     string    `json:"return_url"`
	CreatedAt     time.Time `json:"created_at"`

	Detector *Detector `json:"-"`

	lastSeen time.Time
}

// Sessions keeps the open checkout sessions of a bridge process.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	recorder Recorder
	opts     []Option
	now      func() time.Time
}

func NewSessions(recorder Recorder, opts ...Option) *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
		recorder: recorder,
		opts:     opts,
		now:      time.Now,
	}
}

// Open registers a new session. The session is kept even when a URL is
// missing so that the caller can read its Failed outcome; the start error is
// returned alongside.
func (s *Sessions) Open(paymentURL, returnURL, transactionID string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		PaymentURL:    paymentURL,
		ReturnURL:     returnURL,
		CreatedAt:     now.UTC(),
		Detector:      NewDetector(returnURL, s.recorder, s.opts...),
		lastSeen:      now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess, sess.Detector.Start(paymentURL)
}

// Get returns the session and marks it as seen.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

func (s *Sessions) Close(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup drops finished sessions unread for sessionTerminalTTL and any
// session idle for longer than sessionIdleTTL. It returns how many were
// dropped.
func (s *Sessions) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	evicted := 0
	for id, sess := range s.sessions {
		idle := now.Sub(sess.lastSeen)
		if idle > sessionIdleTTL || (idle > sessionTerminalTTL && sess.Detector.State().Terminal()) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run calls Cleanup every minute until ctx is done.
func (s *Sessions) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 {
				logger.L().Debug("Evicted checkout sessions",
					zap.Int("evicted", n),
					zap.Int("open", s.Len()),
				)
			}
		}
	}
}
