package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"treasure-chess/internal/domain"
)

// PostgresStore persists session records in the sessions table. Move
// lists are stored as jsonb.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, white_name, black_name, pair_key, fen, moves,
	status_kind, status_turn, status_by, status_reason,
	settled_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}

	const q = `
		INSERT INTO sessions (id, white_name, black_name, pair_key, fen, moves,
			status_kind, status_turn, status_by, status_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (pair_key) DO NOTHING`

	res, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.White, rec.Black, rec.PairKey, rec.FEN, moves,
		string(rec.Status.Kind), string(rec.Status.Turn), rec.Status.By, rec.Status.Reason,
		rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert session rows: %w", err)
	}
	if affected == 0 {
		return ErrSessionExists
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanRecord(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) FindByPair(ctx context.Context, a, b string) (*Record, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE pair_key = $1`
	return scanRecord(s.db.QueryRowContext(ctx, q, domain.PairKey(a, b)))
}

func (s *PostgresStore) ListOpen(ctx context.Context) ([]*Record, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE status_kind IN ($1, $2) ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q,
		string(domain.StatusInProgress), string(domain.StatusDrawOffered))
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, rec *Record) error {
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	rec.UpdatedAt = time.Now()

	const q = `
		UPDATE sessions
		SET fen = $2, moves = $3, status_kind = $4, status_turn = $5,
			status_by = $6, status_reason = $7, updated_at = $8
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, q,
		rec.ID, rec.FEN, moves,
		string(rec.Status.Kind), string(rec.Status.Turn), rec.Status.By, rec.Status.Reason,
		rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSettled is a compare-and-set on the settlement marker. Only the
// first caller for a session observes true.
func (s *PostgresStore) MarkSettled(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `
		UPDATE sessions SET settled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND settled_at IS NULL`

	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("mark settled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark settled rows: %w", err)
	}
	return affected == 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec       Record
		moves     []byte
		kind      string
		turn      string
		settledAt sql.NullTime
	)
	err := row.Scan(&rec.ID, &rec.White, &rec.Black, &rec.PairKey, &rec.FEN, &moves,
		&kind, &turn, &rec.Status.By, &rec.Status.Reason,
		&settledAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(moves, &rec.Moves); err != nil {
		return nil, fmt.Errorf("unmarshal moves: %w", err)
	}
	rec.Status.Kind = domain.StatusKind(kind)
	rec.Status.Turn = domain.Color(turn)
	if settledAt.Valid {
		t := settledAt.Time
		rec.SettledAt = &t
	}
	return &rec, nil
}
