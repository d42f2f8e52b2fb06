package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/schedexpress/schedexpress-api/internal/models"
)

// UserRepository manages persistence for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, name, role, created_at, updated_at`

// FindByEmail fetches a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID fetches a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByRole returns every user holding the given role.
func (r *UserRepository) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE role = $1 ORDER BY name ASC", userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// Create inserts a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	const query = `INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :name, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
