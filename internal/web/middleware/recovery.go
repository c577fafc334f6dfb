package middleware

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/declmeta/internal/web/response"
)

// Recovery turns a handler panic into a 500 response and an error log
// with the stack
func Recovery(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("panic", fmt.Sprint(v)),
						zap.Stack("stack"),
					)
					response.RenderError(w, http.StatusInternalServerError, fmt.Errorf("an unexpected error occurred"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
