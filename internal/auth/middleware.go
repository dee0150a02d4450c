package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/eduims/eduims-backend/internal/platform/httpx"
	"github.com/eduims/eduims-backend/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireUser resolves the bearer token and stores the user id in the context.
func (m Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		userID, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithUserID(r.Context(), userID)))
	})
}

// RequireFormRight gates a route on one right of a form's rights row.
func (m Middleware) RequireFormRight(menuKey string, pick func(*FormRights) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := shared.UserIDFromContext(r.Context())
			if userID == 0 {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			rights, err := m.Service.FormRights(r.Context(), userID, menuKey)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("form rights lookup", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !pick(rights) {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
