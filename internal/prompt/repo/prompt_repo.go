package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ovaphlow/pitchfork/service-learning/internal/prompt/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
)

var ErrNotFound = errors.New("prompt not found")

const detailSelect = `SELECT p.id, p.user_id, p.category_id, p.sub_category_id, p.prompt, p.response,
	p.ai_model, p.response_time_ms, p.created_at,
	u.name AS user_name, u.email AS user_email,
	c.name AS category_name, s.name AS sub_category_name
FROM prompts p
JOIN users u ON u.id = p.user_id
LEFT JOIN categories c ON c.id = p.category_id
LEFT JOIN sub_categories s ON s.id = p.sub_category_id`

type PromptRepo struct {
	db database.DBTX
}

func NewPromptRepo(db database.DBTX) *PromptRepo { return &PromptRepo{db: db} }

// EnsureTable creates the prompts table and its indexes if they do not
// already exist. users, categories and sub_categories must exist first.
func (r *PromptRepo) EnsureTable(ctx context.Context) error {
	const tbl = `
	CREATE TABLE IF NOT EXISTS prompts (
		id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		category_id BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		sub_category_id BIGINT REFERENCES sub_categories(id) ON DELETE SET NULL,
		prompt TEXT NOT NULL,
		response TEXT,
		ai_model VARCHAR(50),
		response_time_ms BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := r.db.ExecContext(ctx, tbl); err != nil {
		return err
	}

	const idxUser = `
	CREATE INDEX IF NOT EXISTS idx_prompts_user_created ON prompts (user_id, created_at DESC);
	`
	if _, err := r.db.ExecContext(ctx, idxUser); err != nil {
		return err
	}

	const idxCreated = `
	CREATE INDEX IF NOT EXISTS idx_prompts_created ON prompts (created_at DESC);
	`
	_, err := r.db.ExecContext(ctx, idxCreated)
	return err
}

// Insert writes p, which must already carry its id, and fills CreatedAt.
func (r *PromptRepo) Insert(ctx context.Context, p *entity.Prompt) error {
	const q = `INSERT INTO prompts (id, user_id, category_id, sub_category_id, prompt, response, ai_model, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	return r.db.QueryRowxContext(ctx, q,
		p.ID, p.UserID, p.CategoryID, p.SubCategoryID, p.Prompt, p.Response, p.AIModel, p.ResponseTimeMs,
	).Scan(&p.CreatedAt)
}

func (r *PromptRepo) GetByID(ctx context.Context, id int64) (*entity.Detail, error) {
	var d entity.Detail
	if err := r.db.GetContext(ctx, &d, detailSelect+` WHERE p.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByUser returns the user's prompts newest first.
func (r *PromptRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.Detail, error) {
	out := []entity.Detail{}
	err := r.db.SelectContext(ctx, &out,
		detailSelect+` WHERE p.user_id = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	return out, err
}

func (r *PromptRepo) ListAll(ctx context.Context, limit, offset int) ([]entity.Detail, error) {
	out := []entity.Detail{}
	err := r.db.SelectContext(ctx, &out,
		detailSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT $1 OFFSET $2`, limit, offset)
	return out, err
}

func (r *PromptRepo) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM prompts WHERE user_id = $1`, userID)
	return n, err
}

func (r *PromptRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM prompts`)
	return n, err
}

func (r *PromptRepo) StatsByUser(ctx context.Context, userID int64) (entity.UserStats, error) {
	var st entity.UserStats
	err := r.db.GetContext(ctx, &st, `SELECT COUNT(*) AS total_prompts,
		AVG(response_time_ms)::float8 AS average_response_time_ms,
		MAX(created_at) AS last_prompt_at
		FROM prompts WHERE user_id = $1`, userID)
	return st, err
}
