package middleware

import (
	"net/http"
	"strings"

	"lireddit/pkg/session"

	"go.uber.org/zap"
)

// Auth attaches the caller's session to the request context when a valid
// bearer token is present. It never rejects: every GraphQL operation shares
// one endpoint, so resolvers that need a session enforce it themselves.
func Auth(logger *zap.SugaredLogger, sm session.SessionManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		sess, err := sm.Check(r.Context(), token)
		if err != nil {
			logger.Infof("rejected session token: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		ctx := session.ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
