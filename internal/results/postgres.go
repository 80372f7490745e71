package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore keeps round history in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects and initializes the schema
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rounds (
		id BIGSERIAL PRIMARY KEY,
		session TEXT NOT NULL,
		reason TEXT NOT NULL,
		started_at TIMESTAMP WITH TIME ZONE NOT NULL,
		ended_at TIMESTAMP WITH TIME ZONE NOT NULL,
		participants JSONB NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_rounds_ended_at ON rounds(ended_at);
	`
	_, err := ps.db.Exec(schema)
	return err
}

func (ps *PostgresStore) SaveRounds(ctx context.Context, rounds []Round) error {
	if len(rounds) == 0 {
		return nil
	}
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO rounds (session, reason, started_at, ended_at, participants)
	VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rounds {
		participants := r.Participants
		if participants == nil {
			participants = []Participant{}
		}
		data, err := json.Marshal(participants)
		if err != nil {
			return fmt.Errorf("failed to marshal participants: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.Session, r.Reason, r.StartedAt, r.EndedAt, string(data)); err != nil {
			return fmt.Errorf("failed to save round: %w", err)
		}
	}
	return tx.Commit()
}

func (ps *PostgresStore) RecentRounds(ctx context.Context, limit int) ([]Round, error) {
	// LIMIT NULL means no limit
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	rows, err := ps.db.QueryContext(ctx, `
	SELECT id, session, reason, started_at, ended_at, participants
	FROM rounds ORDER BY id DESC LIMIT $1
	`, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var r Round
		var data []byte
		if err := rows.Scan(&r.ID, &r.Session, &r.Reason, &r.StartedAt, &r.EndedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if err := json.Unmarshal(data, &r.Participants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participants: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Close() error { return ps.db.Close() }
