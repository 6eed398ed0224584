package category

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/category/entity"
	"github.com/ovaphlow/pitchfork/service-learning/internal/category/repo"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

var (
	ErrCategoryNotFound    = apperr.New(apperr.KindNotFound, "Category not found")
	ErrSubCategoryNotFound = apperr.New(apperr.KindNotFound, "Subcategory not found")
	ErrCategoryExists      = apperr.New(apperr.KindAlreadyExists, "Category with this name already exists")
	ErrSubCategoryExists   = apperr.New(apperr.KindAlreadyExists, "Subcategory with this name already exists in this category")
)

// Service encapsulates category logic and depends on a repo.
type Service struct {
	db     *sqlx.DB
	repo   *repo.Repo
	logger *zap.SugaredLogger
}

func NewService(db *sqlx.DB, logger *zap.SugaredLogger) *Service {
	return &Service{db: db, repo: repo.NewRepo(db), logger: logger}
}

func (s *Service) EnsureTable(ctx context.Context) error { return s.repo.EnsureTable(ctx) }

type Input struct {
	Name        string  `json:"name" validate:"required,min=2,max=100,catname"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type SubInput struct {
	CategoryID  int64   `json:"category_id" validate:"required,gte=1"`
	Name        string  `json:"name" validate:"required,min=2,max=100,catname"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// Patch is a partial update for either level.
type Patch struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100,catname"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

func dbErr(err error, what string) error {
	return apperr.Wrap(apperr.KindDatabase, err, what)
}

// ListActive returns the active categories.
func (s *Service) ListActive(ctx context.Context) ([]entity.Category, error) {
	out, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, dbErr(err, "listing categories")
	}
	return out, nil
}

// ListAll includes inactive categories.
func (s *Service) ListAll(ctx context.Context) ([]entity.Category, error) {
	out, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, dbErr(err, "listing categories")
	}
	return out, nil
}

// Get returns an active category with its active subcategories.
func (s *Service) Get(ctx context.Context, id int64) (*entity.WithSubCategories, error) {
	c, err := s.activeCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubCategories(ctx, id, false)
	if err != nil {
		return nil, dbErr(err, "listing subcategories")
	}
	return &entity.WithSubCategories{Category: *c, SubCategories: subs}, nil
}

func (s *Service) activeCategory(ctx context.Context, id int64) (*entity.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, dbErr(err, "loading category")
	}
	if !c.IsActive {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// SubCategories returns the active subcategories of an active category.
func (s *Service) SubCategories(ctx context.Context, categoryID int64) ([]entity.SubCategory, error) {
	if _, err := s.activeCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubCategories(ctx, categoryID, false)
	if err != nil {
		return nil, dbErr(err, "listing subcategories")
	}
	return subs, nil
}

// Names resolves optional ids to names for prompt context. Ids that do not
// exist resolve to "".
func (s *Service) Names(ctx context.Context, categoryID, subCategoryID *int64) (string, string, error) {
	var catName, subName string
	var err error
	if categoryID != nil {
		if catName, err = s.repo.Name(ctx, *categoryID); err != nil {
			return "", "", dbErr(err, "resolving category name")
		}
	}
	if subCategoryID != nil {
		if subName, err = s.repo.SubCategoryName(ctx, *subCategoryID); err != nil {
			return "", "", dbErr(err, "resolving subcategory name")
		}
	}
	return catName, subName, nil
}

func (s *Service) Create(ctx context.Context, actorID int64, in Input) (*entity.Category, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	c := &entity.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		IsActive:    true,
		CreatedBy:   &actorID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repo.ErrNameTaken) {
			return nil, ErrCategoryExists
		}
		return nil, dbErr(err, "creating category")
	}
	s.logger.Infow("category created", "category_id", c.ID, "admin_id", actorID)
	return c, nil
}

func applyPatch(name *string, desc **string, active *bool, p Patch) {
	if p.Name != nil {
		*name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		*desc = p.Description
	}
	if p.IsActive != nil {
		*active = *p.IsActive
	}
}

func (s *Service) Update(ctx context.Context, id int64, p Patch) (*entity.Category, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	var c *entity.Category
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := repo.NewRepo(tx)
		var err error
		if c, err = r.GetByID(ctx, id); err != nil {
			return err
		}
		applyPatch(&c.Name, &c.Description, &c.IsActive, p)
		return r.Update(ctx, c)
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrCategoryNotFound
	case errors.Is(err, repo.ErrNameTaken):
		return nil, ErrCategoryExists
	case err != nil:
		return nil, dbErr(err, "updating category")
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCategoryNotFound
		}
		return dbErr(err, "deleting category")
	}
	s.logger.Infow("category deleted", "category_id", id)
	return nil
}

func (s *Service) CreateSubCategory(ctx context.Context, actorID int64, in SubInput) (*entity.SubCategory, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, dbErr(err, "loading category")
	}
	sc := &entity.SubCategory{
		CategoryID:  in.CategoryID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		IsActive:    true,
		CreatedBy:   &actorID,
	}
	if err := s.repo.CreateSubCategory(ctx, sc); err != nil {
		if errors.Is(err, repo.ErrNameTaken) {
			return nil, ErrSubCategoryExists
		}
		return nil, dbErr(err, "creating subcategory")
	}
	s.logger.Infow("subcategory created", "subcategory_id", sc.ID, "category_id", sc.CategoryID, "admin_id", actorID)
	return sc, nil
}

func (s *Service) UpdateSubCategory(ctx context.Context, id int64, p Patch) (*entity.SubCategory, error) {
	if err := validate.Struct(p); err != nil {
		return nil, err
	}
	var sc *entity.SubCategory
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := repo.NewRepo(tx)
		var err error
		if sc, err = r.GetSubCategory(ctx, id); err != nil {
			return err
		}
		applyPatch(&sc.Name, &sc.Description, &sc.IsActive, p)
		return r.UpdateSubCategory(ctx, sc)
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, ErrSubCategoryNotFound
	case errors.Is(err, repo.ErrNameTaken):
		return nil, ErrSubCategoryExists
	case err != nil:
		return nil, dbErr(err, "updating subcategory")
	}
	return sc, nil
}

func (s *Service) DeleteSubCategory(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSubCategory(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSubCategoryNotFound
		}
		return dbErr(err, "deleting subcategory")
	}
	s.logger.Infow("subcategory deleted", "subcategory_id", id)
	return nil
}

func (s *Service) Stats(ctx context.Context) (entity.Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return entity.Stats{}, dbErr(err, "counting categories")
	}
	return st, nil
}

// SeedDefaults inserts the default catalogue when no category exists yet.
func (s *Service) SeedDefaults(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return dbErr(err, "counting categories")
	}
	if n > 0 {
		s.logger.Debugw("categories already present, skipping seed", "count", n)
		return nil
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := repo.NewRepo(tx)
		for _, d := range entity.Defaults {
			desc := d.Description
			c := &entity.Category{Name: d.Name, Description: &desc, IsActive: true}
			if err := r.Create(ctx, c); err != nil {
				return err
			}
			for _, name := range d.SubCategories {
				sc := &entity.SubCategory{CategoryID: c.ID, Name: name, IsActive: true}
				if err := r.CreateSubCategory(ctx, sc); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return dbErr(err, "seeding categories")
	}
	s.logger.Infow("default categories created", "count", len(entity.Defaults))
	return nil
}
