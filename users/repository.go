package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-svc/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

const userColumns = "id, external_id, name, email, password_hash, created_at"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindByExternalID returns (nil, nil) when no user carries the identity-provider id.
func (r *Repository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE external_id = $1", externalID)
}

// FindByEmail returns (nil, nil) when the email is unknown.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *Repository) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (id, external_id, name, email, password_hash) VALUES ($1, $2, $3, $4, $5) RETURNING "+userColumns,
		uuid.NewString(), uuid.NewString(), name, email, passwordHash,
	).Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}

func (r *Repository) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		"UPDATE users SET name = $1 WHERE id = $2 RETURNING "+userColumns,
		name, id,
	).Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
