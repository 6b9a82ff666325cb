package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"blog_api/internal/api/middleware"
	"blog_api/internal/common"
	"blog_api/internal/domain/model"
	"blog_api/internal/platform/logging"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			common.RespondWithErrorMessage(w, http.StatusBadRequest, "Request body is empty")
			return false
		}
		common.RespondWithErrorMessage(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

// respondError logs unclassified failures before answering.
func respondError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	if common.HTTPStatusFromError(err) == http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err,
			"request_id", chiMiddleware.GetReqID(r.Context()))
	}
	common.RespondWithError(w, err)
}

func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithErrorMessage(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return user, true
}
