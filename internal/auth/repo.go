package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduims/eduims-backend/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FormRights(ctx context.Context, userID int64, menuKey string) (*FormRights, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, full_name, password_hash, is_active, created_at, updated_at`

// FindByUsername fetches a user by username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FormRights returns the user's rights for one form menu key.
func (r *PGRepository) FormRights(ctx context.Context, userID int64, menuKey string) (*FormRights, error) {
	rights := FormRights{MenuKey: menuKey}
	err := r.pool.QueryRow(ctx, `
SELECT can_view, can_create, can_edit, can_delete, can_print
FROM user_form_rights
WHERE user_id = $1 AND menu_key = $2`, userID, menuKey).
		Scan(&rights.CanView, &rights.CanCreate, &rights.CanEdit, &rights.CanDelete, &rights.CanPrint)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &FormRights{MenuKey: menuKey}, nil
		}
		return nil, err
	}
	return &rights, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
