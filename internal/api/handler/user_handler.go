package handler

import (
	"errors"
	"mime"
	"net/http"

	"blog_api/internal/app/service"
	"blog_api/internal/common"
	"blog_api/internal/platform/logging"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	authService *service.AuthService
	userService *service.UserService
	requireAuth func(http.Handler) http.Handler
	logger      logging.Logger
}

func NewUserHandler(authService *service.AuthService, userService *service.UserService, requireAuth func(http.Handler) http.Handler, logger logging.Logger) *UserHandler {
	return &UserHandler{authService: authService, userService: userService, requireAuth: requireAuth, logger: logger}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	r.Get("/", h.list)
	r.Put("/{userID}", h.update)
	r.Delete("/{userID}", h.delete)

	r.Group(func(authed chi.Router) {
		authed.Use(h.requireAuth)
		authed.Get("/blogs", h.blogs)
		authed.Get("/me", h.me)
	})
}

func (h *UserHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.authService.Signup(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusCreated, "User created successfully!", map[string]string{"id": id})
}

// login takes either a JSON body or an OAuth2 password form.
func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			common.RespondWithErrorMessage(w, http.StatusBadRequest, "Invalid form payload: "+err.Error())
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	default:
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, "Users retrieved successfully!", users)
}

func (h *UserHandler) blogs(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	blogs, err := h.userService.Blogs(r.Context(), user)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if len(blogs) == 0 {
		common.RespondWithSuccess(w, http.StatusOK, "No blogs found for this user", blogs)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, "Blogs retrieved successfully!", blogs)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, "User retrieved successfully!", user.Public())
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.userService.Update(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondWithSuccess(w, http.StatusOK, "User updated successfully!", user)
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Delete(r.Context(), chi.URLParam(r, "userID")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	common.RespondNoContent(w)
}
