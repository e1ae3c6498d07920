package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pvidal/quizmark/internal/model"
)

const authTokenTTL = 24 * time.Hour

// CreateAuthToken issues a new admin API token.
func (s *Store) CreateAuthToken() (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO auth_tokens (id, created_at, expires_at) VALUES (?, ?, ?)`,
		token, now, now.Add(authTokenTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthToken returns the token record, or nil if not found or expired.
func (s *Store) GetAuthToken(token string) (*model.AuthToken, error) {
	var t model.AuthToken
	err := s.db.QueryRow(
		`SELECT id, created_at, expires_at FROM auth_tokens WHERE id = ?`, token,
	).Scan(&t.ID, &t.CreatedAt, &t.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(t.ExpiresAt) {
		_ = s.DeleteAuthToken(token)
		return nil, nil
	}
	return &t, nil
}

// DeleteAuthToken removes a token.
func (s *Store) DeleteAuthToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE id = ?`, token)
	return err
}

// CleanupExpiredTokens removes all expired tokens.
func (s *Store) CleanupExpiredTokens() error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE expires_at < ?`, time.Now())
	return err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
