package prompt

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/completion"
	"github.com/ovaphlow/pitchfork/service-learning/internal/prompt/entity"
	"github.com/ovaphlow/pitchfork/service-learning/internal/prompt/repo"
	userentity "github.com/ovaphlow/pitchfork/service-learning/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

const (
	MinPromptLength = 10
	MaxPromptLength = 2000
	HistorySize     = 20
)

var ErrPromptNotFound = apperr.New(apperr.KindNotFound, "Prompt not found")

// Generator produces lesson text.
type Generator interface {
	Generate(ctx context.Context, req completion.Request) (*completion.Result, error)
}

// CategoryNamer resolves optional category ids to names. Unknown ids
// resolve to "".
type CategoryNamer interface {
	Names(ctx context.Context, categoryID, subCategoryID *int64) (string, string, error)
}

// Service runs the submit pipeline and serves prompt history.
type Service struct {
	db     *sqlx.DB
	repo   *repo.PromptRepo
	gen    Generator
	names  CategoryNamer
	ids    *utilities.IDGenerator
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, gen Generator, names CategoryNamer, ids *utilities.IDGenerator, logger *zap.SugaredLogger) *Service {
	if ids == nil {
		ids = utilities.DefaultIDGenerator()
	}
	return &Service{db: db, repo: repo.NewPromptRepo(db), gen: gen, names: names, ids: ids, logger: logger}
}

func (s *Service) EnsureTable(ctx context.Context) error { return s.repo.EnsureTable(ctx) }

type SubmitInput struct {
	Prompt        string `json:"prompt"`
	CategoryID    *int64 `json:"category_id" validate:"omitempty,gte=1"`
	SubCategoryID *int64 `json:"sub_category_id" validate:"omitempty,gte=1"`
}

func promptTextError(msg string) error {
	return apperr.New(apperr.KindValidation, msg).WithDetails(map[string]string{"prompt": msg})
}

// checkPromptText trims text and enforces the length window in characters.
func checkPromptText(text string) (string, error) {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return "", promptTextError("Prompt cannot be empty")
	case n < MinPromptLength:
		return "", promptTextError("Prompt must be at least 10 characters long")
	case n > MaxPromptLength:
		return "", promptTextError("Prompt must be at most 2000 characters long")
	}
	return text, nil
}

// zeroAsAbsent treats an id of 0 as not given. Clients send 0 for an
// unselected category.
func zeroAsAbsent(id *int64) *int64 {
	if id != nil && *id == 0 {
		return nil
	}
	return id
}

// Submit validates the prompt, asks the generator for a lesson and stores
// the result. Nothing is written unless generation succeeds.
func (s *Service) Submit(ctx context.Context, u *userentity.User, in SubmitInput) (*entity.Detail, error) {
	text, err := checkPromptText(in.Prompt)
	if err != nil {
		return nil, err
	}
	in.CategoryID = zeroAsAbsent(in.CategoryID)
	in.SubCategoryID = zeroAsAbsent(in.SubCategoryID)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	catName, subName, err := s.names.Names(ctx, in.CategoryID, in.SubCategoryID)
	if err != nil {
		return nil, err
	}

	res, err := s.gen.Generate(ctx, completion.Request{
		Prompt:      text,
		Category:    catName,
		SubCategory: subName,
		UserContext: "User: " + u.DisplayName(),
	})
	if err != nil {
		return nil, generationError(err)
	}

	p := &entity.Prompt{
		ID:             s.ids.Next(),
		UserID:         u.ID,
		Prompt:         text,
		Response:       &res.Text,
		AIModel:        &res.Model,
		ResponseTimeMs: &res.LatencyMs,
	}
	// dangling references are stored as NULL
	if catName != "" {
		p.CategoryID = in.CategoryID
	}
	if subName != "" {
		p.SubCategoryID = in.SubCategoryID
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return repo.NewPromptRepo(tx).Insert(ctx, p)
	})
	if err != nil {
		s.logger.Errorw("persisting prompt failed", "user_id", u.ID, "err", err)
		return nil, apperr.Wrap(apperr.KindDatabase, err, "saving prompt")
	}

	s.logger.Infow("prompt answered", "prompt_id", p.ID, "user_id", u.ID,
		"model", res.Model, "latency_ms", res.LatencyMs)
	return &entity.Detail{
		Prompt:          *p,
		UserName:        &u.Name,
		UserEmail:       &u.Email,
		CategoryName:    optional(catName),
		SubCategoryName: optional(subName),
	}, nil
}

func generationError(err error) error {
	if errors.Is(err, completion.ErrNotConfigured) {
		return err
	}
	var cerr *completion.Error
	if errors.As(err, &cerr) {
		return apperr.Wrap(apperr.KindAIService, err, "AI service error: "+cerr.PublicMessage())
	}
	return apperr.Wrap(apperr.KindAIService, err, "AI service error: AI generation failed")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// History lists the user's prompts newest first.
func (s *Service) History(ctx context.Context, userID int64, page validate.Page) (*entity.Page, error) {
	items, err := s.repo.ListByUser(ctx, userID, page.Size, page.Offset())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "listing prompt history")
	}
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "counting prompts")
	}
	return newPage(items, total, page), nil
}

// ListAll is the admin view across every user.
func (s *Service) ListAll(ctx context.Context, page validate.Page) (*entity.Page, error) {
	items, err := s.repo.ListAll(ctx, page.Size, page.Offset())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "listing prompts")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "counting prompts")
	}
	return newPage(items, total, page), nil
}

func newPage(items []entity.Detail, total int, page validate.Page) *entity.Page {
	return &entity.Page{
		Prompts:    items,
		Total:      total,
		Page:       page.Page,
		Size:       page.Size,
		TotalPages: (total + page.Size - 1) / page.Size,
	}
}

// Get returns a prompt the viewer may see: their own, or any for admins.
// Prompts of other users look missing.
func (s *Service) Get(ctx context.Context, viewer *userentity.User, id int64) (*entity.Detail, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPromptNotFound
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "loading prompt")
	}
	if d.UserID != viewer.ID && !viewer.IsAdmin() {
		return nil, ErrPromptNotFound
	}
	return d, nil
}

func (s *Service) Stats(ctx context.Context, userID int64) (entity.UserStats, error) {
	st, err := s.repo.StatsByUser(ctx, userID)
	if err != nil {
		return entity.UserStats{}, apperr.Wrap(apperr.KindDatabase, err, "computing prompt stats")
	}
	return st, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindDatabase, err, "counting prompts")
	}
	return n, nil
}
