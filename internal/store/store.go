// Package store persists exam sessions and their evaluated results in
// SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pvidal/quizmark/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exam_sessions (
		id TEXT PRIMARY KEY,
		quiz_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		score INTEGER NOT NULL DEFAULT 0,
		total_score INTEGER NOT NULL DEFAULT 0,
		report_path TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS question_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_index INTEGER NOT NULL,
		result TEXT NOT NULL,
		UNIQUE (session_id, question_index),
		FOREIGN KEY (session_id) REFERENCES exam_sessions(id)
	);

	CREATE TABLE IF NOT EXISTS auth_tokens (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession records a new in-progress exam session.
func (s *Store) CreateSession(id, quizName string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO exam_sessions (id, quiz_name, status, started_at) VALUES (?, ?, ?, ?)`,
		id, quizName, model.StatusInProgress, startedAt,
	)
	return err
}

// GetSession returns the session with the given ID.
func (s *Store) GetSession(id string) (*model.ExamSession, error) {
	var sess model.ExamSession
	err := s.db.QueryRow(
		`SELECT id, quiz_name, status, started_at, ended_at, score, total_score, report_path
		 FROM exam_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.QuizName, &sess.Status, &sess.StartedAt,
		&sess.EndedAt, &sess.Score, &sess.TotalScore, &sess.ReportPath)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.ExamSession, error) {
	rows, err := s.db.Query(
		`SELECT id, quiz_name, status, started_at, ended_at, score, total_score, report_path
		 FROM exam_sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var sess model.ExamSession
		if err := rows.Scan(&sess.ID, &sess.QuizName, &sess.Status, &sess.StartedAt,
			&sess.EndedAt, &sess.Score, &sess.TotalScore, &sess.ReportPath); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// CompleteSession marks a session graded and records its outcome.
func (s *Store) CompleteSession(id string, endedAt time.Time, score, totalScore int, reportPath string) error {
	res, err := s.db.Exec(
		`UPDATE exam_sessions SET status = ?, ended_at = ?, score = ?, total_score = ?, report_path = ?
		 WHERE id = ?`,
		model.StatusGraded, endedAt, score, totalScore, reportPath, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaveResults stores the evaluated results for a session, one row per
// question index.
func (s *Store) SaveResults(sessionID string, results []model.EvaluatedQuestion) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal result %d: %w", i, err)
		}
		_, err = tx.Exec(
			`INSERT INTO question_results (session_id, question_index, result) VALUES (?, ?, ?)
			 ON CONFLICT (session_id, question_index) DO UPDATE SET result = excluded.result`,
			sessionID, i, string(data),
		)
		if err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetResults returns the evaluated results for a session in question order.
func (s *Store) GetResults(sessionID string) ([]model.EvaluatedQuestion, error) {
	rows, err := s.db.Query(
		`SELECT result FROM question_results WHERE session_id = ? ORDER BY question_index`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.EvaluatedQuestion
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r model.EvaluatedQuestion
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
