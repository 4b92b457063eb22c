package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wordbox/backend/internal/apperr"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/models"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (id, email, name, password_hash) VALUES (?, ?, ?, ?)`),
		id, email, name, passwordHash,
	)
	if database.IsUniqueViolation(err) {
		return nil, apperr.New(apperr.CodeConflict, "An account with this email already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}
