// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/ieltsmock/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for attempt history and saved credentials.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			local_id TEXT NOT NULL UNIQUE,
			remote_id TEXT NOT NULL,
			test_id TEXT NOT NULL,
			test_title TEXT NOT NULL,
			section TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			score REAL NOT NULL,
			correct INTEGER NOT NULL,
			total INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			submitted_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			submit_trigger TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempt_answers (
			attempt_id INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			answer TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			correct_answer TEXT NOT NULL,
			PRIMARY KEY (attempt_id, idx)
		);`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_submitted_at ON attempts(submitted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_section ON attempts(section);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores a submitted attempt and its per-answer review rows.
func (s *Store) InsertAttempt(ctx context.Context, attempt model.Attempt, answers []model.AttemptAnswer) (int64, error) {
	if attempt.LocalID == "" {
		attempt.LocalID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO attempts (local_id, remote_id, test_id, test_title, section, difficulty, score, correct, total, started_at, submitted_at, duration_ms, submit_trigger)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.LocalID,
		attempt.RemoteID,
		attempt.TestID,
		attempt.TestTitle,
		string(attempt.Section),
		attempt.Difficulty,
		attempt.Score,
		attempt.Correct,
		attempt.Total,
		attempt.StartedAt.UTC().Format(time.RFC3339Nano),
		attempt.SubmittedAt.UTC().Format(time.RFC3339Nano),
		attempt.DurationMs,
		string(attempt.Trigger),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(answers) > 0 {
		var stmt *sql.Stmt
		stmt, err = tx.PrepareContext(ctx,
			`INSERT INTO attempt_answers (attempt_id, idx, answer, is_correct, correct_answer)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, a := range answers {
			if _, err = stmt.ExecContext(ctx, id, a.Index, a.Answer, boolToInt(a.IsCorrect), a.CorrectAnswer); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListAttempts returns attempts filtered by the history config, oldest first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.HistoryConfig) ([]model.Attempt, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Section != "" {
		clauses = append(clauses, "section = ?")
		args = append(args, cfg.Section)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "submitted_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, local_id, remote_id, test_id, test_title, section, difficulty, score, correct, total, started_at, submitted_at, duration_ms, submit_trigger
		FROM attempts
		WHERE %s
		ORDER BY submitted_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		var section, trigger, startedAt, submittedAt string
		if err := rows.Scan(&a.ID, &a.LocalID, &a.RemoteID, &a.TestID, &a.TestTitle, &section, &a.Difficulty,
			&a.Score, &a.Correct, &a.Total, &startedAt, &submittedAt, &a.DurationMs, &trigger); err != nil {
			return nil, err
		}
		if a.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if a.SubmittedAt, err = time.Parse(time.RFC3339Nano, submittedAt); err != nil {
			return nil, err
		}
		a.Section = model.Section(section)
		a.Trigger = model.Trigger(trigger)
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}
	return attempts, nil
}

// ListAttemptAnswers returns the review rows of one attempt ordered by question.
func (s *Store) ListAttemptAnswers(ctx context.Context, attemptID int64) ([]model.AttemptAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, answer, is_correct, correct_answer FROM attempt_answers WHERE attempt_id = ? ORDER BY idx ASC`,
		attemptID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AttemptAnswer
	for rows.Next() {
		var a model.AttemptAnswer
		var correct int
		if err := rows.Scan(&a.Index, &a.Answer, &correct, &a.CorrectAnswer); err != nil {
			return nil, err
		}
		a.IsCorrect = correct != 0
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SectionAggregates summarizes the most recent attempts per section.
func (s *Store) SectionAggregates(ctx context.Context, window int) ([]model.SectionAggregate, error) {
	if window <= 0 {
		return nil, nil
	}
	query := `WITH recent AS (
		SELECT section, score, correct, total FROM attempts
		ORDER BY submitted_at DESC
		LIMIT ?
	)
	SELECT section, COUNT(*), SUM(score), MAX(score), SUM(correct), SUM(total)
	FROM recent
	GROUP BY section
	ORDER BY section`

	rows, err := s.db.QueryContext(ctx, query, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SectionAggregate
	for rows.Next() {
		var agg model.SectionAggregate
		var section string
		if err := rows.Scan(&section, &agg.Attempts, &agg.ScoreSum, &agg.Best, &agg.Correct, &agg.Total); err != nil {
			return nil, err
		}
		agg.Section = model.Section(section)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveToken persists the signed-in account, replacing any previous one.
func (s *Store) SaveToken(ctx context.Context, token string, user model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (id, token, user_id, name, email, role, saved_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_id = excluded.user_id,
			name = excluded.name, email = excluded.email, role = excluded.role, saved_at = excluded.saved_at`,
		token, user.ID, user.Name, user.Email, user.Role, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// LoadToken returns the saved account. ok is false when nobody is signed in.
func (s *Store) LoadToken(ctx context.Context) (token string, user model.User, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT token, user_id, name, email, role FROM credentials WHERE id = 1`)
	if err := row.Scan(&token, &user.ID, &user.Name, &user.Email, &user.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.User{}, false, nil
		}
		return "", model.User{}, false, err
	}
	return token, user, true, nil
}

// ClearToken removes the saved account.
func (s *Store) ClearToken(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`)
	return err
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
