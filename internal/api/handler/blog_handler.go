package handler

import (
	"net/http"

	"blog_api/internal/app/service"
	"blog_api/internal/common"
	"blog_api/internal/platform/logging"

	"github.com/go-chi/chi/v5"
)

type BlogHandler struct {
	blogService *service.BlogService
	requireAuth func(http.Handler) http.Handler
	logger      logging.Logger
}

func NewBlogHandler(blogService *service.BlogService, requireAuth func(http.Handler) http.Handler, logger logging.Logger) *BlogHandler {
	return &BlogHandler{blogService: blogService, requireAuth: requireAuth, logger: logger}
}

func (h *BlogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{blogID}", h.get)

	r.Group(func(authed chi.Router) {
		authed.Use(h.requireAuth)
		authed.Post("/", h.create)
		authed.Put("/{blogID}", h.update)
		authed.Delete("/{blogID}", h.delete)
	})
}

func (h *BlogHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.CreateBlogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	blog, err := h.blogService.Create(r.Context(), user, req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, "Blog created successfully!", map[string]string{"id": blog.ID})
}

func (h *BlogHandler) get(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogService.Get(r.Context(), chi.URLParam(r, "blogID"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, "Blog retrieved successfully!", blog)
}

func (h *BlogHandler) update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req service.UpdateBlogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	blog, err := h.blogService.Update(r.Context(), user, chi.URLParam(r, "blogID"), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, "Blog updated successfully!", blog)
}

func (h *BlogHandler) delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.blogService.Delete(r.Context(), user, chi.URLParam(r, "blogID")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondNoContent(w)
}
