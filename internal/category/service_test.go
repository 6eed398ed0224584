package category

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/category/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
)

var categoryCols = []string{"id", "name", "description", "is_active", "created_by", "created_at", "updated_at"}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewService(sqlx.NewDb(raw, "postgres"), zap.NewNop().Sugar()), mock
}

func TestNames(t *testing.T) {
	svc, mock := newService(t)
	catID, subID := int64(1), int64(99)

	mock.ExpectQuery(`SELECT name FROM categories WHERE id = \$1`).WithArgs(catID).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Technology"))
	mock.ExpectQuery(`SELECT name FROM sub_categories WHERE id = \$1`).WithArgs(subID).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	cat, sub, err := svc.Names(context.Background(), &catID, &subID)

	require.NoError(t, err)
	assert.Equal(t, "Technology", cat)
	assert.Empty(t, sub)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNamesWithoutIDs(t *testing.T) {
	svc, mock := newService(t)

	cat, sub, err := svc.Names(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, cat)
	assert.Empty(t, sub)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInactiveIsNotFound(t *testing.T) {
	svc, mock := newService(t)
	now := time.Now()

	mock.ExpectQuery(`FROM categories WHERE id = \$1`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(3, "Old", nil, false, nil, now, now))

	_, err := svc.Get(context.Background(), 3)

	assert.Same(t, ErrCategoryNotFound, err)
}

func TestGetWithSubCategories(t *testing.T) {
	svc, mock := newService(t)
	now := time.Now()

	mock.ExpectQuery(`FROM categories WHERE id = \$1`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(1, "Science", "Natural sciences", true, nil, now, now))
	mock.ExpectQuery(`FROM sub_categories WHERE category_id = \$1 AND is_active = true ORDER BY name`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category_id", "name", "description", "is_active", "created_by", "created_at", "updated_at"}).
			AddRow(5, 1, "Biology", nil, true, nil, now, now).
			AddRow(6, 1, "Physics", nil, true, nil, now, now))

	out, err := svc.Get(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "Science", out.Name)
	require.Len(t, out.SubCategories, 2)
	assert.Equal(t, "Biology", out.SubCategories[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDuplicate(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`INSERT INTO categories`).WithArgs("Technology", nil, true, int64(2)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := svc.Create(context.Background(), 2, Input{Name: " Technology "})

	assert.Same(t, ErrCategoryExists, err)
}

func TestCreateValidation(t *testing.T) {
	svc, mock := newService(t)

	for _, name := range []string{"C++", "x", ""} {
		_, err := svc.Create(context.Background(), 2, Input{Name: name})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), name)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissing(t *testing.T) {
	svc, mock := newService(t)
	name := "Renamed"

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM categories WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(categoryCols))
	mock.ExpectRollback()

	_, err := svc.Update(context.Background(), 42, Patch{Name: &name})

	assert.Same(t, ErrCategoryNotFound, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissing(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Same(t, ErrCategoryNotFound, svc.Delete(context.Background(), 42))
}

func TestSeedDefaultsSkipsWhenPresent(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	require.NoError(t, svc.SeedDefaults(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedDefaults(t *testing.T) {
	svc, mock := newService(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	id := int64(0)
	for _, d := range entity.Defaults {
		id++
		mock.ExpectQuery(`INSERT INTO categories`).WithArgs(d.Name, sqlmock.AnyArg(), true, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, now, now))
		for i, name := range d.SubCategories {
			mock.ExpectQuery(`INSERT INTO sub_categories`).WithArgs(id, name, nil, true, nil).
				WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id*10+int64(i), now, now))
		}
	}
	mock.ExpectCommit()

	require.NoError(t, svc.SeedDefaults(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTableSkipsExisting(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("public.categories").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow("categories"))
	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("public.sub_categories").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))
	mock.ExpectExec(`CREATE TABLE sub_categories`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT to_regclass`).WithArgs("public.idx_sub_categories_category_id").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))
	mock.ExpectExec(`CREATE INDEX idx_sub_categories_category_id`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.EnsureTable(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
