package auth

import (
	"net/http"
	"strings"

	"github.com/photolock/photolock/internal/common"
)

// Middleware rejects requests whose Authorization header does not carry a
// valid bearer token signed with the admin secret.
func Middleware(secretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(common.AuthHeaderName)
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}

			if _, err := GetSubjectFromToken(token, secretKey); err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
