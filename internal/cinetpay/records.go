package cinetpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cinetpay-checkout/internal/storage"
)

const (
	PaymentStoragePrefix = "@cinetpay_payment_"
	PaymentStatusPrefix  = "@cinetpay_status_"

	latestPaymentKey = PaymentStoragePrefix + "latest"
)

// PaymentStorage maps payment records onto a key/value store: one
// latest-payment slot and one status entry per transaction id. Every method
// reports store failures; callers decide whether they matter.
type PaymentStorage struct {
	store storage.Store
}

func NewPaymentStorage(store storage.Store) *PaymentStorage {
	return &PaymentStorage{store: store}
}

func statusKey(transactionID string) string {
	return PaymentStatusPrefix + transactionID
}

func (s *PaymentStorage) StorePaymentData(ctx context.Context, p LatestPayment) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payment data: %w", err)
	}
	if err := s.store.Set(ctx, latestPaymentKey, string(b)); err != nil {
		return fmt.Errorf("store payment data: %w", err)
	}
	return nil
}

func (s *PaymentStorage) StorePaymentStatus(ctx context.Context, transactionID string, st StoredStatus) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode payment status: %w", err)
	}
	if err := s.store.Set(ctx, statusKey(transactionID), string(b)); err != nil {
		return fmt.Errorf("store payment status: %w", err)
	}
	return nil
}

// PaymentData returns the latest-payment slot, or nil when it is empty.
func (s *PaymentStorage) PaymentData(ctx context.Context) (*LatestPayment, error) {
	var p LatestPayment
	ok, err := s.load(ctx, latestPaymentKey, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// PaymentStatus returns the stored status for transactionID, or nil when none
// was captured.
func (s *PaymentStorage) PaymentStatus(ctx context.Context, transactionID string) (*StoredStatus, error) {
	var st StoredStatus
	ok, err := s.load(ctx, statusKey(transactionID), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *PaymentStorage) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// ClearAll removes every payment and status record, leaving foreign keys alone.
func (s *PaymentStorage) ClearAll(ctx context.Context) error {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	var owned []string
	for _, k := range keys {
		if strings.HasPrefix(k, PaymentStoragePrefix) || strings.HasPrefix(k, PaymentStatusPrefix) {
			owned = append(owned, k)
		}
	}
	if len(owned) == 0 {
		return nil
	}
	if err := s.store.RemoveMany(ctx, owned); err != nil {
		return fmt.Errorf("clear payment data: %w", err)
	}
	return nil
}

// Clear removes the status record of one transaction. The latest-payment
// slot is left untouched.
func (s *PaymentStorage) Clear(ctx context.Context, transactionID string) error {
	if err := s.store.Remove(ctx, statusKey(transactionID)); err != nil {
		return fmt.Errorf("clear payment data: %w", err)
	}
	return nil
}
