package middleware

import (
	"context"
	"net/http"
	"strings"

	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/pkg/response"
	"almoxarifado/internal/pkg/token"
)

// ContextKey é o tipo das chaves que este pacote grava no contexto.
type ContextKey int

const (
	ClaimsKey ContextKey = iota
	RequestIDKey
)

// Claims representa o chamador autenticado, anexado ao contexto.
type Claims struct {
	Subject string
	Role    string
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// NewAuthMiddleware valida o Bearer token e anexa as Claims ao contexto da requisição.
func NewAuthMiddleware(tokenSvc TokenService, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				response.Error(w, r, log, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(strings.TrimSpace(tokenString))
			if err != nil {
				log.Debug("Token rejeitado.", map[string]interface{}{"error": err.Error()})
				response.Error(w, r, log, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, Claims{Subject: claims.Subject, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext extrai as Claims gravadas pelo middleware de autenticação.
func GetClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(Claims)
	return claims, ok
}
