// Package recoverer turns handler panics into JSON server error responses.
package recoverer

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/pkg/middleware"
)

type errorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

var serverErrorResponse = errorResponse{
	Status:  "error",
	Error:   "server_error",
	Message: "Internal server error.",
}

// New creates a middleware that recovers from panics, logs them and replies with 500.
func New(logger *slog.Logger) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}

					logger.Error(
						"something went wrong, panic occurred",
						slog.Group(op,
							slog.Any("err", rvr),
							slog.String("stack", string(debug.Stack())),
						),
					)

					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, serverErrorResponse)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
