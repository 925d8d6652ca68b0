package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapEngine/internal/model"
)

// Store provides Postgres persistence for the transaction activity log.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutTxBatch upserts transactions keyed by hash, so the settled write for a
// hash overwrites its submitted row.
func (s *Store) PutTxBatch(txs []model.PendingTx) error {
	return s.UpsertTxs(context.Background(), txs)
}

// UpsertTxs inserts or updates activity rows.
func (s *Store) UpsertTxs(ctx context.Context, txs []model.PendingTx) error {
	if len(txs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, tx := range txs {
		batch.Queue(`
			INSERT INTO transactions (
				hash, kind, status, summary, submitted_at, settled_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), now(), now())
			ON CONFLICT (hash)
			DO UPDATE SET
				status = EXCLUDED.status,
				settled_at = EXCLUDED.settled_at,
				updated_at = now()
		`,
			tx.Hash,
			tx.Kind,
			tx.Status,
			tx.Summary,
			tx.SubmittedAt,
			tx.SettledAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range txs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecentTxs returns the newest activity rows, most recent submission first.
func (s *Store) RecentTxs(ctx context.Context, limit int) ([]model.PendingTx, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT hash, kind, status, summary, submitted_at, COALESCE(settled_at, '')
		FROM transactions
		ORDER BY submitted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []model.PendingTx
	for rows.Next() {
		var tx model.PendingTx
		if err := rows.Scan(&tx.Hash, &tx.Kind, &tx.Status, &tx.Summary, &tx.SubmittedAt, &tx.SettledAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
