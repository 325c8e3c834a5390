// Package request concentra a leitura de parâmetros e corpos das requisições HTTP.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	apperror "almoxarifado/internal/errors"
)

const maxBodyBytes = 1 << 20

var decimalType = reflect.TypeOf(decimal.Decimal{})

// DecodeJSON lê o corpo em dst. Corpo vazio equivale a "{}".
// Tipos incompatíveis viram erro de campo; JSON malformado vira erro de validação genérico.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)

	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperror.NewFieldError(typeErr.Field, typeMessage(typeErr))
	case errors.As(err, &maxErr):
		return apperror.NewValidationError(fmt.Sprintf("Payload excede o limite de %d bytes.", maxErr.Limit))
	default:
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
}

func typeMessage(typeErr *json.UnmarshalTypeError) string {
	t := typeErr.Type
	if t == nil {
		return "Incorrect type."
	}
	if t == decimalType {
		return "A valid number is required."
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Struct, reflect.Map:
		return fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", typeErr.Value)
	}
	return "Incorrect type."
}

// IDParam lê o parâmetro de rota {id}. IDs não numéricos não casam com nenhum registro (404).
func IDParam(r *http.Request, resource string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewNotFoundError(fmt.Sprintf("%s com ID %q não encontrado.", resource, raw))
	}
	return id, nil
}
