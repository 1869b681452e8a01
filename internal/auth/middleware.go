package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

// CookieName is the HttpOnly cookie the login handlers set.
const CookieName = "token"

// UserLookup loads the account behind a token. repository.UserRepository
// satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAuth enforces authentication on protected routes.
//
// The token is taken from the "Authorization: Bearer" header first (API
// clients), then from the "token" cookie (browsers). A missing or invalid
// token ends the request with 401 and the standard error envelope; the
// handler never runs.
//
// The token only proves who the caller is. The role comes from the stored
// account on every request, so `eventctl promote` or a demotion applies
// immediately, and a deleted account is locked out even while its token is
// still unexpired.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
func RequireAuth(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := tokenFromRequest(r)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "not authorized, no token")
				return
			}

			id, err := tokens.Validate(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "not authorized, token failed")
				return
			}

			user, err := users.GetUserByID(r.Context(), id.UserID)
			if errors.Is(err, apperror.ErrNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "not authorized, user not found")
				return
			}
			if err != nil {
				logger.Error("auth: loading user", slog.String("userID", id.UserID), slog.String("error", err.Error()))
				writeAuthError(w, http.StatusInternalServerError, "an internal error occurred")
				return
			}
			id.Role = user.Role

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole allows the request through only if the identity placed by
// RequireAuth has one of roles. It must be mounted after RequireAuth.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "not authorized, no token")
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, http.StatusForbidden, "access denied: insufficient privileges")
		})
	}
}

var errNoToken = errors.New("auth: no token")

func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", errNoToken
	}
	return cookie.Value, nil
}

// writeAuthError mirrors the handler package's error envelope. It lives
// here because middleware runs before any handler is chosen.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
