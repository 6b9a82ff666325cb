package middleware

import (
	"context"
	"net/http"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"
	"blog_api/internal/platform/logging"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const UserCtxKey contextKey = "user"

// TokenAuthenticator turns a bearer token into the user it speaks for.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Authenticator rejects requests without a valid bearer token and stores
// the resolved user in the request context.
func Authenticator(auth TokenAuthenticator, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				common.RespondWithErrorMessage(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			user, err := auth.Authenticate(ctx, token)
			if err != nil {
				status := common.HTTPStatusFromError(err)
				if status == http.StatusUnauthorized {
					logger.Warn(ctx, "authentication failed",
						"cause", common.Cause(err), "request_id", chiMiddleware.GetReqID(ctx))
					w.Header().Set("WWW-Authenticate", "Bearer")
				} else {
					logger.Error(ctx, "authentication lookup failed",
						"error", err, "request_id", chiMiddleware.GetReqID(ctx))
				}
				common.RespondWithError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, UserCtxKey, user)))
		})
	}
}

// UserFromContext returns the user stored by Authenticator.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(*model.User)
	return user, ok && user != nil
}
