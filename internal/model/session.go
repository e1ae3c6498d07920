package model

import "time"

// SessionStatus is the lifecycle status of a stored exam session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusGraded     SessionStatus = "graded"
)

// ExamSession is the durable record of one exam attempt.
type ExamSession struct {
	ID         string        `json:"id"`
	QuizName   string        `json:"quiz_name"`
	Status     SessionStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
	Score      int           `json:"score"`
	TotalScore int           `json:"total_score"`
	ReportPath string        `json:"report_path,omitempty"`
}

// SessionExport bundles a session with its per-question results for export.
type SessionExport struct {
	Session ExamSession         `json:"session"`
	Results []EvaluatedQuestion `json:"results"`
}

// AuthToken is an issued admin API token.
type AuthToken struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}
