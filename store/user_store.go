package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"devfolio/api/models"
)

// ErrOperatorNotFound is returned when no dashboard user matches a username.
var ErrOperatorNotFound = fmt.Errorf("operator not found")

type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore instance.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// EnsureOperator upserts the dashboard operator's credentials. Called at
// startup with the credentials from the environment so there is no signup
// path to the dashboard.
func (s *UserStore) EnsureOperator(ctx context.Context, username string, hashedPassword []byte) error {
	query := `
		INSERT INTO dashboard_users (username, hashed_password)
		VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE
		SET hashed_password = EXCLUDED.hashed_password, updated_at = now();
	`
	if _, err := s.db.ExecContext(ctx, query, username, hashedPassword); err != nil {
		return fmt.Errorf("failed to ensure operator %s: %w", username, err)
	}

	log.Printf("Dashboard operator ensured: %s", username)
	return nil
}

// GetOperatorByUsername fetches a dashboard user for credential checks.
func (s *UserStore) GetOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	operator := &models.Operator{}
	query := `
		SELECT id, username, hashed_password, created_at, updated_at
		FROM dashboard_users
		WHERE username = $1;
	`
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&operator.ID,
		&operator.Username,
		&operator.HashedPassword,
		&operator.CreatedAt,
		&operator.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("failed to get operator by username: %w", err)
	}

	return operator, nil
}
