package database

import (
	"errors"

	"github.com/lib/pq"

	apperror "almoxarifado/internal/errors"
)

// Constraint liga uma constraint do Postgres ao campo e à mensagem expostos na API.
type Constraint struct {
	Field   string
	Message string
}

// Constraints indexa Constraint pelo nome da constraint/índice no banco.
type Constraints map[string]Constraint

// MapError traduz violações de unicidade e de chave estrangeira em erros de validação por campo.
// Qualquer outro erro vira um DBError com a mensagem informada.
func MapError(msg string, err error, constraints Constraints) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return apperror.NewDBError(msg, err)
	}

	switch pqErr.Code.Name() {
	case "unique_violation", "foreign_key_violation":
		if c, ok := constraints[pqErr.Constraint]; ok {
			return apperror.NewFieldError(c.Field, c.Message)
		}
		return apperror.NewFieldError(apperror.NonFieldErrors, pqErr.Message)
	}
	return apperror.NewDBError(msg, err)
}
