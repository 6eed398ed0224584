package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/internal/auth"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/response"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/validate"
)

// Handler exposes the /auth endpoints and the admin user endpoints.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	response.WriteError(w, h.logger, r, err)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := validate.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if err := validate.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

// Logout only acknowledges; tokens are not tracked server side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, response.Message{Message: "Successfully logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	response.WriteJSON(w, http.StatusOK, map[string]any{"valid": true, "user": u})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	var req ProfileInput
	if err := validate.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.svc.UpdateProfile(r.Context(), u, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	var req ChangePasswordInput
	if err := validate.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), u, req); err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Message{Message: "Password changed successfully"})
}

// admin endpoints

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := validate.ParsePage(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	users, err := h.svc.List(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := validate.ParseID(chi.URLParam(r, "id"), "User")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	id, err := validate.ParseID(chi.URLParam(r, "id"), "User")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req AdminUpdateInput
	if err := validate.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.svc.AdminUpdate(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.UserFromContext(r.Context())
	id, err := validate.ParseID(chi.URLParam(r, "id"), "User")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Deactivate(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, response.Message{Message: "User deactivated successfully"})
}

// Routes mounts the /auth endpoints. Everything except register and login
// goes through gate.
func (h *Handler) Routes(gate *auth.Gate) http.Handler {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/change-password", h.ChangePassword)
		r.Get("/verify-token", h.VerifyToken)
	})
	return r
}

// AdminRoutes mounts /admin/users. The caller applies the admin gate.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Get("/users/{id}", h.Get)
	r.Put("/users/{id}", h.AdminUpdate)
	r.Delete("/users/{id}", h.Delete)
}
