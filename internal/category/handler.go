package category

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/auth"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

// Handler contains dependencies for handling category endpoints.
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Category")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) SubCategories(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Category")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.SubCategories(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	var in Input
	if err := validate.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Create(r.Context(), actor.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Category")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var p Patch
	if err := validate.DecodeJSON(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Category")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Message{Message: "Category deleted successfully"})
}

func (h *Handler) CreateSub(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	var in SubInput
	if err := validate.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.CreateSubCategory(r.Context(), actor.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, out)
}

func (h *Handler) UpdateSub(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Subcategory")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var p Patch
	if err := validate.DecodeJSON(r, &p); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.svc.UpdateSubCategory(r.Context(), id, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteSub(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "Subcategory")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteSubCategory(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Message{Message: "Subcategory deleted successfully"})
}

// Routes mounts the public /categories endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/subcategories", h.SubCategories)
	return r
}

// AdminRoutes mounts category management under an admin-gated router.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/categories", h.ListAll)
	r.Post("/categories", h.Create)
	r.Put("/categories/{id}", h.Update)
	r.Delete("/categories/{id}", h.Delete)
	r.Post("/subcategories", h.CreateSub)
	r.Put("/subcategories/{id}", h.UpdateSub)
	r.Delete("/subcategories/{id}", h.DeleteSub)
}
