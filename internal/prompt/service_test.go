package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/completion"
	userentity "github.com/ovaphlow/pitchfork/service-learning/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/utilities"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

type fakeGenerator struct {
	calls []completion.Request
	res   *completion.Result
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, req completion.Request) (*completion.Result, error) {
	f.calls = append(f.calls, req)
	return f.res, f.err
}

type fakeNamer struct {
	cat, sub string
}

func (f fakeNamer) Names(_ context.Context, categoryID, subCategoryID *int64) (string, string, error) {
	var cat, sub string
	if categoryID != nil {
		cat = f.cat
	}
	if subCategoryID != nil {
		sub = f.sub
	}
	return cat, sub, nil
}

var detailCols = []string{"id", "user_id", "category_id", "sub_category_id", "prompt", "response",
	"ai_model", "response_time_ms", "created_at", "user_name", "user_email", "category_name", "sub_category_name"}

const validPrompt = "Explain how goroutines and channels cooperate in Go"

func newService(t *testing.T, gen Generator, names CategoryNamer) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	ids, err := utilities.NewIDGenerator(1)
	require.NoError(t, err)
	return NewService(sqlx.NewDb(raw, "postgres"), gen, names, ids, zap.NewNop().Sugar()), mock
}

func learner() *userentity.User {
	return &userentity.User{ID: 7, Email: "ada@x.com", Name: "Ada", Role: userentity.RoleUser, IsActive: true}
}

func lesson() *completion.Result {
	return &completion.Result{Text: "# Goroutines\n...", Model: "gpt-3.5-turbo", LatencyMs: 1234}
}

func TestSubmitShortPromptSkipsGeneration(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{})

	for _, text := range []string{"hi", "   short   ", ""} {
		_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: text})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), text)
	}

	assert.Empty(t, gen.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitTooLong(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, _ := newService(t, gen, fakeNamer{})

	_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: strings.Repeat("a", MaxPromptLength+1)})

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, gen.calls)
}

func TestSubmitGenerationFailureWritesNothing(t *testing.T) {
	gen := &fakeGenerator{err: &completion.Error{Reason: completion.ReasonTimeout, LatencyMs: 30000, Err: context.DeadlineExceeded}}
	svc, mock := newService(t, gen, fakeNamer{})

	_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt})

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindAIService, ae.Kind)
	assert.Equal(t, "AI service error: AI service timed out. Please try again later.", ae.Message)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, gen.calls, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitNotConfigured(t *testing.T) {
	gen := &fakeGenerator{err: completion.ErrNotConfigured}
	svc, mock := newService(t, gen, fakeNamer{})

	_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt})

	assert.Same(t, completion.ErrNotConfigured, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmit(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{cat: "Technology", sub: "Programming"})
	catID, subID := int64(1), int64(4)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO prompts`).
		WithArgs(sqlmock.AnyArg(), int64(7), catID, subID, validPrompt, "# Goroutines\n...", "gpt-3.5-turbo", int64(1234)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectCommit()

	out, err := svc.Submit(context.Background(), learner(), SubmitInput{
		Prompt:        "  " + validPrompt + "  ",
		CategoryID:    &catID,
		SubCategoryID: &subID,
	})

	require.NoError(t, err)
	assert.NotZero(t, out.ID)
	assert.Equal(t, now, out.CreatedAt)
	assert.Equal(t, "Technology", *out.CategoryName)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, completion.Request{
		Prompt:      validPrompt,
		Category:    "Technology",
		SubCategory: "Programming",
		UserContext: "User: Ada",
	}, gen.calls[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitDropsUnknownCategory(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{})
	catID := int64(99)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO prompts`).
		WithArgs(sqlmock.AnyArg(), int64(7), nil, nil, validPrompt, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	out, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt, CategoryID: &catID})

	require.NoError(t, err)
	assert.Nil(t, out.CategoryID)
	assert.Empty(t, gen.calls[0].Category)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitZeroCategoryIsAbsent(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{cat: "Technology", sub: "Programming"})
	zero := int64(0)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO prompts`).
		WithArgs(sqlmock.AnyArg(), int64(7), nil, nil, validPrompt, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	out, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt, CategoryID: &zero, SubCategoryID: &zero})

	require.NoError(t, err)
	assert.Nil(t, out.CategoryID)
	assert.Nil(t, out.SubCategoryID)
	require.Len(t, gen.calls, 1)
	assert.Empty(t, gen.calls[0].Category)
	assert.Empty(t, gen.calls[0].SubCategory)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitNegativeCategoryRejected(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{})
	neg := int64(-1)

	_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt, CategoryID: &neg})

	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, gen.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCommitFailure(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO prompts`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt})

	assert.Equal(t, apperr.KindDatabase, apperr.KindOf(err))
	assert.ErrorIs(t, err, database.ErrCommit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitInsertFailureRollsBack(t *testing.T) {
	gen := &fakeGenerator{res: lesson()}
	svc, mock := newService(t, gen, fakeNamer{})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO prompts`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Submit(context.Background(), learner(), SubmitInput{Prompt: validPrompt})

	assert.Equal(t, apperr.KindDatabase, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func detailRow(id, owner int64) *sqlmock.Rows {
	return sqlmock.NewRows(detailCols).
		AddRow(id, owner, nil, nil, validPrompt, "lesson", "gpt-3.5-turbo", 900, time.Now(), "Ada", "ada@x.com", nil, nil)
}

func TestGetHidesOtherUsersPrompts(t *testing.T) {
	svc, mock := newService(t, &fakeGenerator{}, fakeNamer{})

	mock.ExpectQuery(`FROM prompts p`).WithArgs(int64(5)).WillReturnRows(detailRow(5, 8))

	_, err := svc.Get(context.Background(), learner(), 5)

	assert.Same(t, ErrPromptNotFound, err)
}

func TestGetAdminSeesAll(t *testing.T) {
	svc, mock := newService(t, &fakeGenerator{}, fakeNamer{})
	admin := &userentity.User{ID: 1, Email: "root@x.com", Role: userentity.RoleAdmin, IsActive: true}

	mock.ExpectQuery(`FROM prompts p`).WithArgs(int64(5)).WillReturnRows(detailRow(5, 8))

	out, err := svc.Get(context.Background(), admin, 5)

	require.NoError(t, err)
	assert.Equal(t, int64(8), out.UserID)
	assert.Equal(t, "ada@x.com", *out.UserEmail)
}

func TestGetMissing(t *testing.T) {
	svc, mock := newService(t, &fakeGenerator{}, fakeNamer{})

	mock.ExpectQuery(`FROM prompts p`).WithArgs(int64(5)).WillReturnRows(sqlmock.NewRows(detailCols))

	_, err := svc.Get(context.Background(), learner(), 5)

	assert.Same(t, ErrPromptNotFound, err)
}

func TestHistory(t *testing.T) {
	svc, mock := newService(t, &fakeGenerator{}, fakeNamer{})

	mock.ExpectQuery(`WHERE p.user_id = \$1 ORDER BY p.created_at DESC`).WithArgs(int64(7), HistorySize, 0).
		WillReturnRows(detailRow(2, 7))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM prompts WHERE user_id = \$1`).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	out, err := svc.History(context.Background(), 7, validate.Page{Page: 1, Size: HistorySize})

	require.NoError(t, err)
	assert.Len(t, out.Prompts, 1)
	assert.Equal(t, 21, out.Total)
	assert.Equal(t, 2, out.TotalPages)
	require.NoError(t, mock.ExpectationsWereMet())
}
