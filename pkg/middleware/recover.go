package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Recover turns a panicking handler into a 500 with a GraphQL-shaped error
// body, so clients of the single /graphql endpoint always get parseable JSON.
func Recover(logger *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Errorw("panic recovered",
					"url", r.URL.Path,
					"err", err,
				)

				resp, _ := json.Marshal(map[string]interface{}{
					"errors": []map[string]string{{"message": "internal server error"}},
				})
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write(resp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
