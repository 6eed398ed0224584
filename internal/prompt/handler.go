package prompt

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/auth"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	response.WriteError(w, h.logger, r, err)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	var in SubmitInput
	if err := validate.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Submit(r.Context(), u, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, out)
}

// historyPage defaults the page size to HistorySize.
func historyPage(r *http.Request) (validate.Page, error) {
	p, err := validate.ParsePage(r)
	if err != nil {
		return p, err
	}
	if r.URL.Query().Get("size") == "" {
		p.Size = HistorySize
	}
	return p, nil
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	page, err := historyPage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.History(r.Context(), u.ID, page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	out, err := h.svc.Stats(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Prompt")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Get(r.Context(), u, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, err := validate.ParsePage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.ListAll(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

// Routes mounts /prompts. Every endpoint needs a signed-in user.
func (h *Handler) Routes(gate *auth.Gate) http.Handler {
	r := chi.NewRouter()
	r.Use(gate.Middleware)
	r.Post("/", h.Submit)
	r.Get("/my-history", h.History)
	r.Get("/my-stats", h.Stats)
	r.Get("/{id}", h.Get)
	return r
}

// AdminRoutes mounts the cross-user prompt views under an admin router.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/prompts", h.ListAll)
	r.Get("/prompts/{id}", h.Get)
}
