package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ovaphlow/pitchfork/service-learning/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

const userColumns = `id, email, name, phone, password_hash, role, is_active, last_login, created_at, updated_at`

// UserRepo provides data access for the users table. It works over a pool
// or a transaction.
type UserRepo struct {
	db database.DBTX
}

func NewUserRepo(db database.DBTX) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// Prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  phone TEXT,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
  is_active BOOLEAN NOT NULL DEFAULT true,
  last_login TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts u and fills its id and timestamps. A duplicate email is
// reported as ErrEmailTaken.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (email, name, phone, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q, u.Email, u.Name, u.Phone, u.PasswordHash, u.Role, u.IsActive)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepo) get(ctx context.Context, where string, args ...any) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail expects an already lowercased email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.get(ctx, `email = $1`, email)
}

func (r *UserRepo) GetActiveByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.get(ctx, `email = $1 AND is_active = true`, email)
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.get(ctx, `id = $1`, id)
}

func (r *UserRepo) GetActiveByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.get(ctx, `id = $1 AND is_active = true`, id)
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
	return exists, err
}

func (r *UserRepo) exec(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin stamps last_login and updated_at.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1`, id)
}

// UpdateProfile writes name and phone, returning the refreshed row.
func (r *UserRepo) UpdateProfile(ctx context.Context, id int64, name string, phone *string) (*entity.User, error) {
	var u entity.User
	q := `UPDATE users SET name = $2, phone = $3, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	if err := r.db.GetContext(ctx, &u, q, id, name, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

// Deactivate soft-deletes a user.
func (r *UserRepo) Deactivate(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
}

func (r *UserRepo) Reactivate(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET is_active = true, updated_at = NOW() WHERE id = $1`, id)
}

func (r *UserRepo) SetRole(ctx context.Context, id int64, role entity.Role) error {
	return r.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
}

// List returns users ordered by id.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	users := []entity.User{}
	q := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &users, q, limit, offset); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) Stats(ctx context.Context) (entity.Stats, error) {
	const q = `SELECT
		COUNT(*) AS total_users,
		COUNT(*) FILTER (WHERE is_active) AS active_users,
		COUNT(*) FILTER (WHERE role = 'admin') AS admin_users
	FROM users`
	var s entity.Stats
	err := r.db.GetContext(ctx, &s, q)
	return s, err
}
