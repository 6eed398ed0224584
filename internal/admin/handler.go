package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/auth"
	catentity "github.com/ovaphlow/pitchfork/service-learning/internal/category/entity"
	"github.com/ovaphlow/pitchfork/service-learning/internal/completion"
	userentity "github.com/ovaphlow/pitchfork/service-learning/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
)

type UserStatter interface {
	Stats(ctx context.Context) (userentity.Stats, error)
}

type CategoryStatter interface {
	Stats(ctx context.Context) (catentity.Stats, error)
}

type PromptCounter interface {
	Count(ctx context.Context) (int, error)
}

type ModelInfo interface {
	Info() completion.Info
}

// Stats is the admin dashboard summary.
type Stats struct {
	userentity.Stats
	TotalPrompts int             `json:"total_prompts"`
	Categories   catentity.Stats `json:"categories"`
	AdminUser    string          `json:"admin_user"`
}

type Handler struct {
	users      UserStatter
	categories CategoryStatter
	prompts    PromptCounter
	model      ModelInfo
	logger     *zap.SugaredLogger
}

func NewHandler(users UserStatter, categories CategoryStatter, prompts PromptCounter, model ModelInfo, logger *zap.SugaredLogger) *Handler {
	return &Handler{users: users, categories: categories, prompts: prompts, model: model, logger: logger}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := auth.UserFromContext(ctx)

	us, err := h.users.Stats(ctx)
	if err != nil {
		response.WriteError(w, h.logger, r, err)
		return
	}
	prompts, err := h.prompts.Count(ctx)
	if err != nil {
		response.WriteError(w, h.logger, r, err)
		return
	}
	cs, err := h.categories.Stats(ctx)
	if err != nil {
		response.WriteError(w, h.logger, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, Stats{Stats: us, TotalPrompts: prompts, Categories: cs, AdminUser: actor.Email})
}

func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.model.Info())
}

// Routes mounts /admin. Every route, including the mounted ones, requires
// an active admin.
func (h *Handler) Routes(gate *auth.Gate, mounts ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(gate.Middleware, gate.AdminOnly)
	r.Get("/stats", h.Stats)
	r.Get("/ai-model", h.Model)
	for _, mount := range mounts {
		mount(r)
	}
	return r
}
