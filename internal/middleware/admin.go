package middleware

import (
	"net/http"

	"app/internal/repository"

	"github.com/rs/zerolog"
)

// AdminMiddleware allows the request through only when the authenticated
// user's profile carries the admin flag. Must run after AuthMiddleware.
func AdminMiddleware(userRepo repository.UserRepository, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := r.Context().Value(UserContextKey).(string)
			if !ok || userID == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			u, err := userRepo.GetUserByID(r.Context(), userID)
			if err != nil {
				logger.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for admin check")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if u == nil || !u.IsAdmin {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
