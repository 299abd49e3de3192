package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"treasure-chess/internal/domain"
)

// PostgresStore keeps balances in the ledger table. All mutation runs
// through single atomic statements so concurrent settlements on the
// same name never lose an update.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) EnsureParticipant(ctx context.Context, name string, startingBalance int) (domain.LedgerEntry, error) {
	const q = `
		INSERT INTO ledger (name, balance, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING name, balance, updated_at`

	var entry domain.LedgerEntry
	err := s.db.QueryRowContext(ctx, q, name, startingBalance).
		Scan(&entry.Name, &entry.Balance, &entry.UpdatedAt)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("ensure participant %s: %w", name, err)
	}
	return entry, nil
}

// Adjust applies delta atomically, clamping the result at zero. The
// clamp happens inside the statement so two concurrent negative
// adjustments cannot drive the balance below zero.
func (s *PostgresStore) Adjust(ctx context.Context, name string, delta int) (int, error) {
	const q = `
		UPDATE ledger
		SET balance = GREATEST(0, balance + $2), updated_at = NOW()
		WHERE name = $1
		RETURNING balance`

	var balance int
	err := s.db.QueryRowContext(ctx, q, name, delta).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownParticipant
	}
	if err != nil {
		return 0, fmt.Errorf("adjust %s by %d: %w", name, delta, err)
	}
	return balance, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.LedgerEntry, error) {
	const q = `SELECT name, balance, updated_at FROM ledger ORDER BY balance DESC, name`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var entry domain.LedgerEntry
		if err := rows.Scan(&entry.Name, &entry.Balance, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Balance(ctx context.Context, name string) (domain.LedgerEntry, error) {
	const q = `SELECT name, balance, updated_at FROM ledger WHERE name = $1`

	var entry domain.LedgerEntry
	err := s.db.QueryRowContext(ctx, q, name).
		Scan(&entry.Name, &entry.Balance, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LedgerEntry{}, ErrUnknownParticipant
	}
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("read balance %s: %w", name, err)
	}
	return entry, nil
}
