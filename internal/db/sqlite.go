package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RichardoC/medichat/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS turns_session_idx ON turns(session_id, id);`

// Database is the SQLite turn journal.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Database{db: db}, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *Database) CreateSession(ctx context.Context, id string, createdAt time.Time) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		id, createdAt.UTC())
	return err
}

func (db *Database) AppendTurn(ctx context.Context, sessionID string, turn models.ChatTurn) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Sessions created before the journal was enabled have no row yet.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		sessionID, turn.CreatedAt.UTC()); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, role, content, created_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, string(turn.Role), turn.Content, turn.CreatedAt.UTC()); err != nil {
		return err
	}

	return tx.Commit()
}

func (db *Database) ClearTurns(ctx context.Context, sessionID string) error {
	_, err := db.db.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID)
	return err
}

// DeleteSession reports whether a stored session was removed.
func (db *Database) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID); err != nil {
		return false, err
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, tx.Commit()
}

func (db *Database) LoadSession(ctx context.Context, sessionID string) ([]models.ChatTurn, bool, error) {
	var exists int
	err := db.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sessions WHERE id = ?", sessionID).Scan(&exists)
	if err != nil {
		return nil, false, err
	}
	if exists == 0 {
		return nil, false, nil
	}

	rows, err := db.db.QueryContext(ctx, `
        SELECT role, content, created_at
        FROM turns
        WHERE session_id = ?
        ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	turns := make([]models.ChatTurn, 0)
	for rows.Next() {
		var turn models.ChatTurn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Role = models.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return turns, true, nil
}

func (db *Database) Sessions(ctx context.Context) ([]models.Session, error) {
	rows, err := db.db.QueryContext(ctx, `
        SELECT id, created_at
        FROM sessions
        ORDER BY created_at DESC`)
	if err != nil {
		return []models.Session{}, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.CreatedAt); err != nil {
			return []models.Session{}, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
