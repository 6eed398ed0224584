package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ovaphlow/pitchfork/service-learning/internal/category/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
)

var (
	ErrNotFound  = errors.New("category not found")
	ErrNameTaken = errors.New("category name taken")
)

const (
	categoryColumns    = `id, name, description, is_active, created_by, created_at, updated_at`
	subCategoryColumns = `id, category_id, name, description, is_active, created_by, created_at, updated_at`
)

// Repo is the repository for categories and subcategories backed by PostgreSQL.
type Repo struct {
	db database.DBTX
}

func NewRepo(db database.DBTX) *Repo {
	return &Repo{db: db}
}

// EnsureTable creates categories and sub_categories when missing.
// Deleting a category removes its subcategories.
func (r *Repo) EnsureTable(ctx context.Context) error {
	tables := []struct {
		name string
		ddl  string
	}{
		{"public.categories", `CREATE TABLE categories (
			id BIGSERIAL PRIMARY KEY,
			name varchar(100) NOT NULL UNIQUE,
			description varchar(500),
			is_active boolean NOT NULL DEFAULT true,
			created_by bigint REFERENCES users(id) ON DELETE SET NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW()
		)`},
		{"public.sub_categories", `CREATE TABLE sub_categories (
			id BIGSERIAL PRIMARY KEY,
			category_id bigint NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			name varchar(100) NOT NULL,
			description varchar(500),
			is_active boolean NOT NULL DEFAULT true,
			created_by bigint REFERENCES users(id) ON DELETE SET NULL,
			created_at timestamptz NOT NULL DEFAULT NOW(),
			updated_at timestamptz NOT NULL DEFAULT NOW(),
			UNIQUE (category_id, name)
		)`},
		{"public.idx_sub_categories_category_id", `CREATE INDEX idx_sub_categories_category_id ON sub_categories (category_id)`},
	}
	for _, t := range tables {
		// to_regclass is NULL when the relation does not exist
		var existing sql.NullString
		if err := r.db.QueryRowxContext(ctx, "SELECT to_regclass($1)", t.name).Scan(&existing); err != nil {
			return err
		}
		if existing.Valid {
			continue
		}
		if _, err := r.db.ExecContext(ctx, t.ddl); err != nil {
			return err
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func taken(err error) error {
	if database.IsUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

// List returns categories ordered by name, only active ones unless all is set.
func (r *Repo) List(ctx context.Context, all bool) ([]entity.Category, error) {
	q := `SELECT ` + categoryColumns + ` FROM categories`
	if !all {
		q += ` WHERE is_active = true`
	}
	q += ` ORDER BY name`
	out := []entity.Category{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*entity.Category, error) {
	var c entity.Category
	if err := r.db.GetContext(ctx, &c, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *Repo) Create(ctx context.Context, c *entity.Category) error {
	const q = `INSERT INTO categories (name, description, is_active, created_by)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, c.Name, c.Description, c.IsActive, c.CreatedBy).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return taken(err)
}

func (r *Repo) Update(ctx context.Context, c *entity.Category) error {
	const q = `UPDATE categories SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q, c.ID, c.Name, c.Description, c.IsActive).Scan(&c.UpdatedAt)
	return notFound(taken(err))
}

// Delete removes a category and, through the foreign key, its subcategories.
func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubCategories returns the subcategories of categoryID ordered by name.
func (r *Repo) ListSubCategories(ctx context.Context, categoryID int64, all bool) ([]entity.SubCategory, error) {
	q := `SELECT ` + subCategoryColumns + ` FROM sub_categories WHERE category_id = $1`
	if !all {
		q += ` AND is_active = true`
	}
	q += ` ORDER BY name`
	out := []entity.SubCategory{}
	if err := r.db.SelectContext(ctx, &out, q, categoryID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetSubCategory(ctx context.Context, id int64) (*entity.SubCategory, error) {
	var s entity.SubCategory
	if err := r.db.GetContext(ctx, &s, `SELECT `+subCategoryColumns+` FROM sub_categories WHERE id = $1`, id); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *Repo) CreateSubCategory(ctx context.Context, s *entity.SubCategory) error {
	const q = `INSERT INTO sub_categories (category_id, name, description, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, s.CategoryID, s.Name, s.Description, s.IsActive, s.CreatedBy).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return taken(err)
}

func (r *Repo) UpdateSubCategory(ctx context.Context, s *entity.SubCategory) error {
	const q = `UPDATE sub_categories SET name = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1 RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q, s.ID, s.Name, s.Description, s.IsActive).Scan(&s.UpdatedAt)
	return notFound(taken(err))
}

func (r *Repo) DeleteSubCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sub_categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Name returns the category name, or "" when id does not exist.
func (r *Repo) Name(ctx context.Context, id int64) (string, error) {
	return r.name(ctx, `SELECT name FROM categories WHERE id = $1`, id)
}

// SubCategoryName returns the subcategory name, or "" when id does not exist.
func (r *Repo) SubCategoryName(ctx context.Context, id int64) (string, error) {
	return r.name(ctx, `SELECT name FROM sub_categories WHERE id = $1`, id)
}

func (r *Repo) name(ctx context.Context, q string, id int64) (string, error) {
	var name string
	if err := r.db.GetContext(ctx, &name, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return name, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM categories`)
	return n, err
}

func (r *Repo) Stats(ctx context.Context) (entity.Stats, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM categories) AS total_categories,
		(SELECT COUNT(*) FROM categories WHERE is_active) AS active_categories,
		(SELECT COUNT(*) FROM sub_categories) AS total_subcategories,
		(SELECT COUNT(*) FROM sub_categories WHERE is_active) AS active_subcategories`
	var s entity.Stats
	err := r.db.GetContext(ctx, &s, q)
	return s, err
}
