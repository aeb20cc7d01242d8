// Package middleware holds HTTP middlewares shared by the service routers.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(next http.Handler) http.Handler
