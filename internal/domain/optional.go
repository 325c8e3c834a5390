package domain

import (
	"encoding/json"
	"errors"
	"reflect"
)

// Optional distingue, em payloads JSON, um campo ausente de um campo enviado como null.
// Set indica que a chave apareceu no corpo; Null indica que o valor era null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// UnmarshalJSON é chamado pelo encoding/json inclusive quando o valor é null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	err := json.Unmarshal(data, &o.Value)
	var typeErr *json.UnmarshalTypeError
	if err == nil || errors.As(err, &typeErr) {
		return err
	}
	// Erros de Unmarshaler internos (e.g., decimal) viram erro de tipo para o decoder anotar o campo.
	return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(o.Value)}
}

// Present informa se o campo veio com um valor não nulo.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Some constrói um Optional preenchido; útil em testes e chamadas internas.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null constrói um Optional enviado explicitamente como null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}
