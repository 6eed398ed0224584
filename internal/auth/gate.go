package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/token"
	"github.com/ovaphlow/pitchfork/service-learning/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
)

// Every authentication failure maps to this one error so callers cannot
// tell which check rejected them.
var (
	ErrUnauthenticated = apperr.New(apperr.KindUnauthenticated, "Could not validate credentials")
	ErrForbidden       = apperr.New(apperr.KindPermissionDenied, "Not enough permissions")
)

type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// UserLookup returns the active user with id or an error.
type UserLookup interface {
	GetActive(ctx context.Context, id int64) (*entity.User, error)
}

// Gate turns bearer credentials into users.
type Gate struct {
	tokens TokenVerifier
	users  UserLookup
	logger *zap.SugaredLogger
}

func NewGate(tokens TokenVerifier, users UserLookup, logger *zap.SugaredLogger) *Gate {
	return &Gate{tokens: tokens, users: users, logger: logger}
}

// Authenticate verifies the token and loads its active user. It performs
// no writes.
func (g *Gate) Authenticate(ctx context.Context, bearer string) (*entity.User, error) {
	if bearer == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := g.tokens.Verify(bearer)
	if err != nil {
		g.logger.Debugw("token rejected", "err", err)
		return nil, ErrUnauthenticated
	}
	id, ok := claims.UserID()
	if !ok {
		g.logger.Debugw("token subject rejected", "sub", claims.Subject)
		return nil, ErrUnauthenticated
	}
	u, err := g.users.GetActive(ctx, id)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			g.logger.Warnw("user lookup failed during authentication", "user_id", id, "err", err)
		}
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// RequireAdmin returns u when it has the admin role.
func RequireAdmin(u *entity.User) (*entity.User, error) {
	if u == nil || !u.IsAdmin() {
		return nil, ErrForbidden
	}
	return u, nil
}

type ctxKey struct{}

func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}

// BearerToken extracts the credential from an Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, cred, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(cred)
}

// Middleware rejects requests without a valid bearer token and stores the
// authenticated user in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := g.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			response.WriteError(w, g.logger, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// AdminOnly must run after Middleware.
func (g *Gate) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := UserFromContext(r.Context())
		if _, err := RequireAdmin(u); err != nil {
			response.WriteError(w, g.logger, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
