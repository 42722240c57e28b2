package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/furnish-backend/internal/modules/payment"
)

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, tx *payment.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.payments[tx.ID]; exists {
		return fmt.Errorf("insert payment transaction: id %s already exists", tx.ID)
	}
	if tx.ProviderRef != "" && r.s.paymentByRefLocked(tx.ProviderRef) != nil {
		return fmt.Errorf("insert payment transaction: provider ref %s already exists", tx.ProviderRef)
	}
	cp := *tx
	r.s.payments[tx.ID] = &cp
	return nil
}

func (s *Store) paymentByRefLocked(ref string) *payment.Transaction {
	for _, tx := range s.payments {
		if tx.ProviderRef == ref {
			return tx
		}
	}
	return nil
}

func (s *Store) paymentLocked(id string) (*payment.Transaction, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, payment.ErrNotFound
	}
	tx, ok := s.payments[uid]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return tx, nil
}

func (r paymentRepo) GetByID(_ context.Context, id string) (*payment.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, err := r.s.paymentLocked(id)
	if err != nil {
		return nil, err
	}
	return copyTx(tx), nil
}

func (r paymentRepo) GetByProviderRef(_ context.Context, ref string) (*payment.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ref == "" {
		return nil, payment.ErrNotFound
	}
	tx := r.s.paymentByRefLocked(ref)
	if tx == nil {
		return nil, payment.ErrNotFound
	}
	return copyTx(tx), nil
}

func (r paymentRepo) ListByOrder(_ context.Context, orderID string) ([]*payment.Transaction, error) {
	uid, err := uuid.Parse(orderID)
	if err != nil {
		return []*payment.Transaction{}, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*payment.Transaction{}
	for _, tx := range r.s.payments {
		if tx.OrderID == uid {
			out = append(out, copyTx(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Updates on a missing id are no-ops, like an UPDATE matching no rows.

func (r paymentRepo) UpdateStatus(_ context.Context, id string, status payment.TxStatus, providerStatus string, lastError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, err := r.s.paymentLocked(id)
	if err != nil {
		return nil
	}
	tx.Status = status
	if providerStatus != "" {
		tx.ProviderStatus = providerStatus
	}
	if lastError != "" {
		tx.LastError = lastError
	}
	tx.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r paymentRepo) UpdateSession(_ context.Context, id string, sess *payment.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, err := r.s.paymentLocked(id)
	if err != nil {
		return nil
	}
	if other := r.s.paymentByRefLocked(sess.ProviderRef); other != nil && other != tx {
		return fmt.Errorf("update payment session: provider ref %s already exists", sess.ProviderRef)
	}
	tx.ProviderRef = sess.ProviderRef
	tx.ProviderStatus = sess.ProviderStatus
	tx.PaymentURL = sess.PaymentURL
	tx.Status = payment.TxProcessing
	tx.UpdatedAt = r.s.now().UTC()
	return nil
}

func (r paymentRepo) RecordWebhook(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, err := r.s.paymentLocked(id)
	if err != nil {
		return nil
	}
	at = at.UTC()
	tx.WebhookReceivedAt = &at
	tx.UpdatedAt = at
	return nil
}

func copyTx(tx *payment.Transaction) *payment.Transaction {
	cp := *tx
	if tx.WebhookReceivedAt != nil {
		at := *tx.WebhookReceivedAt
		cp.WebhookReceivedAt = &at
	}
	return &cp
}
