package user

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/token"
	"github.com/ovaphlow/pitchfork/service-learning/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-learning/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/database"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	Issue(id token.Identity) (string, error)
}

var (
	ErrEmailRegistered = apperr.New(apperr.KindAlreadyExists, "Email already registered")
	ErrBadCredentials  = apperr.New(apperr.KindInvalidCredentials, "Incorrect email or password")
	ErrWrongPassword   = apperr.New(apperr.KindValidation, "Current password is incorrect")
	ErrUserNotFound    = apperr.New(apperr.KindNotFound, "User not found")
	ErrSelfDemotion    = apperr.New(apperr.KindValidation, "Admins cannot deactivate or demote themselves")
)

// UserService orchestrates registration, login and account lifecycle.
type UserService struct {
	db     *sqlx.DB
	repo   *userrepo.UserRepo
	hasher PasswordHasher
	tokens TokenIssuer
	logger *zap.SugaredLogger
}

func NewUserService(db *sqlx.DB, hasher PasswordHasher, tokens TokenIssuer, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &UserService{
		db:     db,
		repo:   userrepo.NewUserRepo(db),
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User        *entity.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
}

type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Name     string  `json:"name" validate:"required,personname"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
	Password string  `json:"password" validate:"required,strongpassword"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name  *string `json:"name" validate:"omitempty,personname"`
	Phone *string `json:"phone"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) authResponse(u *entity.User) (*AuthResponse, error) {
	tok, err := s.tokens.Issue(token.Identity{UserID: u.ID, Email: u.Email, Role: string(u.Role)})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "could not create access token")
	}
	return &AuthResponse{User: u, AccessToken: tok, TokenType: "bearer"}, nil
}

// Register creates a regular active user and signs them in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "checking email")
	}
	if exists {
		return nil, ErrEmailRegistered
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "hashing password")
	}
	u := &entity.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        trimmedOrNil(in.Phone),
		PasswordHash: hash,
		Role:         entity.RoleUser,
		IsActive:     true,
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return userrepo.NewUserRepo(tx).Create(ctx, u)
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, ErrEmailRegistered
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "creating user")
	}
	s.logger.Infow("user registered", "user_id", u.ID)
	return s.authResponse(u)
}

// Login checks credentials of an active user. A failed last-login update is
// logged and does not fail the login.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.repo.GetActiveByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "loading user")
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		s.logger.Debugw("login rejected", "user_id", u.ID)
		return nil, ErrBadCredentials
	}

	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return userrepo.NewUserRepo(tx).TouchLastLogin(ctx, u.ID)
	})
	if err != nil {
		s.logger.Warnw("last login update failed", "user_id", u.ID, "err", err)
	}
	s.logger.Infow("user logged in", "user_id", u.ID)
	return s.authResponse(u)
}

func (s *UserService) UpdateProfile(ctx context.Context, u *entity.User, in ProfileInput) (*entity.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	name := u.Name
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	phone := u.Phone
	if in.Phone != nil {
		phone = trimmedOrNil(in.Phone)
		if phone != nil {
			if err := validate.Var("phone", *phone, "phone"); err != nil {
				return nil, err
			}
		}
	}
	updated, err := s.repo.UpdateProfile(ctx, u.ID, name, phone)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "updating profile")
	}
	return updated, nil
}

func (s *UserService) ChangePassword(ctx context.Context, u *entity.User, in ChangePasswordInput) error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	if !s.hasher.Verify(u.PasswordHash, in.CurrentPassword) {
		return ErrWrongPassword
	}
	if err := validate.Var("new_password", in.NewPassword, "strongpassword"); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "hashing password")
	}
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return userrepo.NewUserRepo(tx).UpdatePassword(ctx, u.ID, hash)
	})
	if err != nil {
		return apperr.Wrap(apperr.KindDatabase, err, "updating password")
	}
	s.logger.Infow("password changed", "user_id", u.ID)
	return nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "loading user")
	}
	return u, nil
}

// GetActive is the lookup used by the auth gate.
func (s *UserService) GetActive(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.repo.GetActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "loading user")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, page validate.Page) ([]entity.User, error) {
	users, err := s.repo.List(ctx, page.Size, page.Offset())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "listing users")
	}
	return users, nil
}

func (s *UserService) Stats(ctx context.Context) (entity.Stats, error) {
	st, err := s.repo.Stats(ctx)
	if err != nil {
		return entity.Stats{}, apperr.Wrap(apperr.KindDatabase, err, "counting users")
	}
	return st, nil
}

// AdminUpdateInput holds the fields an admin may change on another account.
type AdminUpdateInput struct {
	Role     *entity.Role `json:"role" validate:"omitempty,oneof=user admin"`
	IsActive *bool        `json:"is_active"`
}

// AdminUpdate applies role and activation changes in one transaction.
func (s *UserService) AdminUpdate(ctx context.Context, actor *entity.User, id int64, in AdminUpdateInput) (*entity.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if actor.ID == id && ((in.IsActive != nil && !*in.IsActive) || (in.Role != nil && *in.Role != entity.RoleAdmin)) {
		return nil, ErrSelfDemotion
	}
	var updated *entity.User
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		r := userrepo.NewUserRepo(tx)
		if in.Role != nil {
			if err := r.SetRole(ctx, id, *in.Role); err != nil {
				return err
			}
		}
		if in.IsActive != nil {
			var err error
			if *in.IsActive {
				err = r.Reactivate(ctx, id)
			} else {
				err = r.Deactivate(ctx, id)
			}
			if err != nil {
				return err
			}
		}
		u, err := r.GetByID(ctx, id)
		updated = u
		return err
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Wrap(apperr.KindDatabase, err, "updating user")
	}
	s.logger.Infow("user updated by admin", "user_id", id, "admin_id", actor.ID)
	return updated, nil
}

// Deactivate soft-deletes a user account.
func (s *UserService) Deactivate(ctx context.Context, actor *entity.User, id int64) error {
	if actor.ID == id {
		return ErrSelfDemotion
	}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return userrepo.NewUserRepo(tx).Deactivate(ctx, id)
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return ErrUserNotFound
		}
		return apperr.Wrap(apperr.KindDatabase, err, "deactivating user")
	}
	s.logger.Infow("user deactivated", "user_id", id, "admin_id", actor.ID)
	return nil
}

// EnsureAdmin makes sure an active admin with email exists. An existing
// account is promoted and reactivated; its password is left alone.
func (s *UserService) EnsureAdmin(ctx context.Context, email, name, password string) (*entity.User, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() && existing.IsActive {
			return existing, nil
		}
		err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
			r := userrepo.NewUserRepo(tx)
			if err := r.SetRole(ctx, existing.ID, entity.RoleAdmin); err != nil {
				return err
			}
			return r.Reactivate(ctx, existing.ID)
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, err, "promoting admin")
		}
		existing.Role, existing.IsActive = entity.RoleAdmin, true
		s.logger.Infow("existing user promoted to admin", "user_id", existing.ID)
		return existing, nil
	case !errors.Is(err, userrepo.ErrNotFound):
		return nil, apperr.Wrap(apperr.KindDatabase, err, "loading admin")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "hashing password")
	}
	u := &entity.User{Email: email, Name: name, PasswordHash: hash, Role: entity.RoleAdmin, IsActive: true}
	if err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return userrepo.NewUserRepo(tx).Create(ctx, u)
	}); err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, err, "creating admin")
	}
	s.logger.Infow("admin user created", "user_id", u.ID)
	return u, nil
}

// EnsureTable creates the users table.
func (s *UserService) EnsureTable(ctx context.Context) error {
	return s.repo.EnsureTable(ctx)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
