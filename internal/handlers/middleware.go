package handlers

import (
	"net/http"
	"strings"

	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/handlers/response"
)

type MiddlewareProvider struct {
	jwt    primary.JWTService
	logger primary.Logger
}

func New(jwt primary.JWTService, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		jwt:    jwt,
		logger: logger,
	}
}

func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.WriteError(w, response.ErrorMessage{Message: "Authorization header missing", StatusCode: http.StatusUnauthorized})
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := m.jwt.VerifyTokenHMAC(r.Context(), tokenString)
		if err != nil {
			m.logger.Debug("Rejected bearer token", "path", r.URL.Path, "error", err)
			response.WriteError(w, response.ErrorMessage{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
			return
		}
		m.logger.Debug("Authenticated request", "subject", subject, "path", r.URL.Path)

		next.ServeHTTP(w, r)
	})
}
