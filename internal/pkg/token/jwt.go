package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer identifica os tokens emitidos para a API do almoxarifado.
const Issuer = "almoxarifado-api"

// CustomClaims define as informações armazenadas no JWT.
// O sujeito (usuário ou sistema cliente) fica em RegisteredClaims.Subject.
type CustomClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service emite e valida tokens HS256.
type Service struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// NewService cria uma nova instância do serviço Token.
func NewService(secretKey string, expiry time.Duration) *Service {
	return &Service{
		secretKey: []byte(secretKey),
		expiry:    expiry,
		now:       time.Now,
	}
}

// GenerateToken cria um novo JWT assinado para o sujeito e o papel informados.
func (s *Service) GenerateToken(subject, role string) (string, error) {
	if subject == "" {
		return "", errors.New("sujeito do token não pode ser vazio")
	}
	now := s.now()
	claims := CustomClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   subject,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("falha ao assinar o token: %w", err)
	}
	return signed, nil
}

// ValidateToken valida o token e retorna as claims se for válido.
func (s *Service) ValidateToken(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("token inválido: %w", err)
	}

	if !parsed.Valid {
		return nil, errors.New("token não é válido")
	}
	return claims, nil
}
