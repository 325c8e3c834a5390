package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// NonFieldErrors é a chave usada quando um erro de validação não pertence a um campo específico.
const NonFieldErrors = "non_field_errors"

// AppError é a interface central para todos os erros customizados do Almoxarifado.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION", "NOT_FOUND", "INTERNAL")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
// Quando Fields está preenchido, o corpo da resposta é o próprio mapa campo -> mensagens.
type ValidationError struct {
	Msg    string
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("Erro de Validação: %s", e.Msg)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return fmt.Sprintf("Erro de Validação: %s", strings.Join(parts, "; "))
}
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação sem campo associado.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NewFieldError cria um erro de validação com uma única mensagem para um campo.
func NewFieldError(field, msg string) AppError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}

// NewFieldsError cria um erro de validação a partir de um mapa campo -> mensagens.
func NewFieldsError(fields map[string][]string) AppError {
	return &ValidationError{Fields: fields}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// UnauthorizedError representa credenciais ausentes ou inválidas.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// RateLimitError indica que o cliente excedeu o limite de requisições.
type RateLimitError struct {
	Msg string
}

func (e *RateLimitError) Error() string    { return fmt.Sprintf("Limite excedido: %s", e.Msg) }
func (e *RateLimitError) Category() string { return "RATE_LIMITED" }
func (e *RateLimitError) HTTPStatus() int  { return http.StatusTooManyRequests } // 429
func (e *RateLimitError) Unwrap() error    { return nil }

// NewRateLimitError cria um novo erro de limite de requisições.
func NewRateLimitError(msg string) AppError {
	return &RateLimitError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB)", msg), err)
}

// --- Helpers para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP, categoria e mensagem.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			// A causa fica apenas no log, nunca no corpo da resposta.
			return appErr.HTTPStatus(), appErr.Category(), "Ocorreu um erro interno."
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratado como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}

// ResponseBody devolve o status HTTP e o corpo JSON que representam o erro.
// Erros de validação por campo viram o mapa campo -> mensagens; os demais usam o envelope padrão.
func ResponseBody(err error) (int, interface{}) {
	var vErr *ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		return vErr.HTTPStatus(), vErr.Fields
	}

	status, category, message := MapToHTTPStatus(err)
	return status, map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}
}

// FieldErrors extrai o mapa de erros por campo, se houver.
func FieldErrors(err error) (map[string][]string, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) && len(vErr.Fields) > 0 {
		return vErr.Fields, true
	}
	return nil, false
}
