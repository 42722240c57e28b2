package payment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository defines data access for payment transactions.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetByProviderRef(ctx context.Context, ref string) (*Transaction, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Transaction, error)
	UpdateStatus(ctx context.Context, id string, status TxStatus, providerStatus string, lastError string) error
	UpdateSession(ctx context.Context, id string, s *Session) error
	RecordWebhook(ctx context.Context, id string, at time.Time) error
}

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, tx *Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_transactions
		  (id, order_id, provider, provider_ref, provider_status, status,
		   amount, currency, payment_url, last_error, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		tx.ID, tx.OrderID, tx.Provider, nilIfEmpty(tx.ProviderRef), nilIfEmpty(tx.ProviderStatus),
		tx.Status, tx.Amount, tx.Currency, nilIfEmpty(tx.PaymentURL), nilIfEmpty(tx.LastError),
		tx.CreatedAt, tx.UpdatedAt)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Transaction, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, selectSQL+" WHERE id=$1", uid)
}

func (r *postgresRepo) GetByProviderRef(ctx context.Context, ref string) (*Transaction, error) {
	return r.getOne(ctx, selectSQL+" WHERE provider_ref=$1", ref)
}

func (r *postgresRepo) ListByOrder(ctx context.Context, orderID string) ([]*Transaction, error) {
	uid, err := uuid.Parse(orderID)
	if err != nil {
		return []*Transaction{}, nil
	}
	rows, err := r.db.QueryContext(ctx, selectSQL+" WHERE order_id=$1 ORDER BY created_at DESC", uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanRows(rows)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status TxStatus, providerStatus string, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status=$1, provider_status=COALESCE(NULLIF($2,''), provider_status),
		    last_error=COALESCE(NULLIF($3,''), last_error), updated_at=$4
		WHERE id=$5`,
		status, providerStatus, lastError, time.Now(), id)
	return err
}

func (r *postgresRepo) UpdateSession(ctx context.Context, id string, s *Session) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions
		SET provider_ref=$1, provider_status=$2, payment_url=$3, status=$4, updated_at=$5
		WHERE id=$6`,
		s.ProviderRef, s.ProviderStatus, s.PaymentURL, TxProcessing, time.Now(), id)
	return err
}

func (r *postgresRepo) RecordWebhook(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions SET webhook_received_at=$1, updated_at=$1 WHERE id=$2`, at, id)
	return err
}

// ── Scanner ───────────────────────────────────────────────────────────────────

const selectSQL = `
	SELECT id, order_id, provider, provider_ref, provider_status, status,
	       amount, currency, payment_url, last_error, webhook_received_at,
	       created_at, updated_at
	FROM payment_transactions`

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) getOne(ctx context.Context, query string, arg interface{}) (*Transaction, error) {
	tx, err := r.scan(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tx, err
}

func (r *postgresRepo) scan(row rowScanner) (*Transaction, error) {
	tx := &Transaction{}
	var providerRef, providerStatus, paymentURL, lastErr sql.NullString
	var webhookAt sql.NullTime

	err := row.Scan(
		&tx.ID, &tx.OrderID, &tx.Provider, &providerRef, &providerStatus, &tx.Status,
		&tx.Amount, &tx.Currency, &paymentURL, &lastErr, &webhookAt,
		&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tx.ProviderRef = providerRef.String
	tx.ProviderStatus = providerStatus.String
	tx.PaymentURL = paymentURL.String
	tx.LastError = lastErr.String
	if webhookAt.Valid {
		tx.WebhookReceivedAt = &webhookAt.Time
	}
	return tx, nil
}

func (r *postgresRepo) scanRows(rows *sql.Rows) ([]*Transaction, error) {
	txs := []*Transaction{}
	for rows.Next() {
		tx, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
