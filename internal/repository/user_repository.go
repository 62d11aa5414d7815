package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/oriontel/backoffice-api/internal/models"
)

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

// UserRepository persists users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	query := `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID fetches a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername fetches a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1 LIMIT 1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user with the given username or email is
// already registered.
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE username = $1 OR email = $2", username, email); err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return count > 0, nil
}

// InfoByID resolves the public projection of a single user.
func (r *UserRepository) InfoByID(ctx context.Context, id string) (*models.UserInfo, error) {
	var info models.UserInfo
	if err := r.db.GetContext(ctx, &info, "SELECT id, username, email FROM users WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &info, nil
}

// InfosByIDs resolves public projections for a set of users.
func (r *UserRepository) InfosByIDs(ctx context.Context, ids []string) ([]models.UserInfo, error) {
	infos := []models.UserInfo{}
	if len(ids) == 0 {
		return infos, nil
	}
	if err := r.db.SelectContext(ctx, &infos, "SELECT id, username, email FROM users WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	return infos, nil
}

// EmailsByIDs returns the mail addresses for a set of users.
func (r *UserRepository) EmailsByIDs(ctx context.Context, ids []string) ([]string, error) {
	emails := []string{}
	if len(ids) == 0 {
		return emails, nil
	}
	if err := r.db.SelectContext(ctx, &emails, "SELECT email FROM users WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve emails: %w", err)
	}
	return emails, nil
}
