package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps round history in a local SQLite file
type SQLiteStore struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS rounds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session TEXT NOT NULL,
			reason TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS round_participants (
			round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
			identity TEXT NOT NULL,
			skin TEXT NOT NULL,
			survived INTEGER NOT NULL,
			award INTEGER NOT NULL,
			score INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_round_participants_round ON round_participants(round_id);
	`)
	return err
}

func (s *SQLiteStore) SaveRounds(ctx context.Context, rounds []Round) error {
	if len(rounds) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	roundStmt, err := tx.PrepareContext(ctx, `INSERT INTO rounds (session, reason, started_at, ended_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare round insert: %w", err)
	}
	defer roundStmt.Close()
	partStmt, err := tx.PrepareContext(ctx, `INSERT INTO round_participants (round_id, identity, skin, survived, award, score) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare participant insert: %w", err)
	}
	defer partStmt.Close()

	for _, r := range rounds {
		res, err := roundStmt.ExecContext(ctx, r.Session, r.Reason,
			r.StartedAt.UTC().Format(time.RFC3339Nano), r.EndedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert round: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("round id: %w", err)
		}
		for _, p := range r.Participants {
			survived := 0
			if p.Survived {
				survived = 1
			}
			if _, err := partStmt.ExecContext(ctx, id, p.ID, p.Skin, survived, p.Award, p.Score); err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecentRounds(ctx context.Context, limit int) ([]Round, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT r.id, r.session, r.reason, r.started_at, r.ended_at,
			COALESCE((SELECT json_group_array(json_object(
				'id', p.identity, 'skin', p.skin, 'survived', json(CASE p.survived WHEN 1 THEN 'true' ELSE 'false' END),
				'award', p.award, 'score', p.score))
			FROM round_participants p WHERE p.round_id = r.id), '[]')
		FROM rounds r
		ORDER BY r.id DESC
		LIMIT ?
	`, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var (
			r                Round
			started, ended   string
			participantsJSON string
		)
		if err := rows.Scan(&r.ID, &r.Session, &r.Reason, &started, &ended, &participantsJSON); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		if err := json.Unmarshal([]byte(participantsJSON), &r.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.conn.Close() }

// limitOrAll maps a non-positive limit to "no limit" for LIMIT clauses
func limitOrAll(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
