package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentflow/checkout/internal/config"
	"github.com/rentflow/checkout/internal/domain/payment"
)

// PostgresStore keeps one row per order, so the recovery pass can reconcile
// every attempt that left the process, not only the most recent one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPool creates the pgx connection pool and verifies connectivity.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, tx *payment.PendingTransaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_payments (order_id, booking_id, flow_type, amount, callback_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_id) DO UPDATE
		 SET booking_id = EXCLUDED.booking_id,
		     flow_type = EXCLUDED.flow_type,
		     amount = EXCLUDED.amount,
		     callback_url = EXCLUDED.callback_url,
		     created_at = EXCLUDED.created_at`,
		tx.OrderID, tx.BookingID, tx.Type, tx.Amount, tx.CallbackURL, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pending record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*payment.PendingTransaction, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT order_id, booking_id, flow_type, amount, callback_url, created_at
		 FROM pending_payments
		 ORDER BY created_at DESC
		 LIMIT 1`)

	var tx payment.PendingTransaction
	err := row.Scan(&tx.OrderID, &tx.BookingID, &tx.Type, &tx.Amount, &tx.CallbackURL, &tx.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending record: %w", err)
	}
	return &tx, nil
}

func (s *PostgresStore) Clear(ctx context.Context, orderID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_payments WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("clear pending record: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]payment.PendingTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT order_id, booking_id, flow_type, amount, callback_url, created_at
		 FROM pending_payments
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}
	defer rows.Close()

	var records []payment.PendingTransaction
	for rows.Next() {
		var tx payment.PendingTransaction
		if err := rows.Scan(&tx.OrderID, &tx.BookingID, &tx.Type, &tx.Amount, &tx.CallbackURL, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		records = append(records, tx)
	}
	return records, rows.Err()
}
