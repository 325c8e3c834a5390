// Package validation reúne as regras de forma (tags) e de unicidade aplicadas antes da persistência.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"

	apperror "almoxarifado/internal/errors"
)

// Mensagens expostas na API.
const (
	MsgRequired           = "This field is required."
	MsgBlank              = "This field may not be blank."
	MsgInvalidEmail       = "Enter a valid email address."
	MsgInvalidPhone       = "Enter a valid phone number."
	MsgNegative           = "Ensure this value is greater than or equal to 0."
	MsgDecimalPlaces      = "Ensure that there are no more than 2 decimal places."
	MsgWholeDigits        = "Ensure that there are no more than 8 digits before the decimal point."
	MsgSupplierNameTaken  = "a supplier with this name already exists"
	MsgSupplierTaxIDTaken = "a supplier with this tax id already exists"
	MsgItemSKUTaken       = "an item with this sku already exists"
	MsgSupplierConflict   = "Provide either supplier_id or supplier, not both."
	MsgSupplierRequired   = "This field may not be null."
)

// MsgInvalidPK é a mensagem para uma referência a fornecedor inexistente.
func MsgInvalidPK(id int64) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

// maxUnitPrice corresponde a decimal(10,2): até 8 dígitos inteiros.
var maxUnitPrice = decimal.New(1, 8)

// Errors acumula mensagens por campo.
type Errors map[string][]string

// Add registra uma mensagem para o campo.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Merge copia as mensagens de other, prefixando os campos quando prefix não é vazio.
func (e Errors) Merge(prefix string, other Errors) {
	for field, msgs := range other {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		e[key] = append(e[key], msgs...)
	}
}

// Has informa se o campo já tem alguma mensagem.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Err devolve um ValidationError com os campos, ou nil quando não há mensagens.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperror.NewFieldsError(e)
}

// Required gera "This field is required." para cada campo ausente.
func Required(missing []string) Errors {
	errs := Errors{}
	for _, f := range missing {
		errs.Add(f, MsgRequired)
	}
	return errs
}

// UnitPrice aplica as regras de decimal(10,2) não negativo.
func UnitPrice(price decimal.NullDecimal) []string {
	if !price.Valid {
		return nil
	}
	var msgs []string
	d := price.Decimal
	if d.Sign() < 0 {
		msgs = append(msgs, MsgNegative)
	}
	if !d.Equal(d.Truncate(2)) {
		msgs = append(msgs, MsgDecimalPlaces)
	}
	if d.Abs().GreaterThanOrEqual(maxUnitPrice) {
		msgs = append(msgs, MsgWholeDigits)
	}
	return msgs
}

// Validator encapsula o go-playground/validator com as regras do domínio registradas.
type Validator struct {
	validate *validator.Validate
	region   string
}

// New cria o Validator; region é a região padrão usada para interpretar telefones sem DDI.
func New(region string) *Validator {
	v := &Validator{validate: validator.New(), region: strings.ToUpper(region)}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Erro ao registrar só acontece com tag vazia.
	_ = v.validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, ok := v.NormalizePhone(fl.Field().String())
		return ok
	})

	return v
}

// Struct valida as tags de s e traduz as falhas para mensagens por campo.
func (v *Validator) Struct(s interface{}) Errors {
	errs := Errors{}
	err := v.validate.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add(apperror.NonFieldErrors, err.Error())
		return errs
	}

	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	for field := range errs {
		sort.Strings(errs[field])
	}
	return errs
}

// NormalizePhone interpreta o telefone e devolve o formato E.164.
func (v *Validator) NormalizePhone(raw string) (string, bool) {
	num, err := libphonenumber.Parse(raw, v.region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", false
	}
	return libphonenumber.Format(num, libphonenumber.E164), true
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.String {
			return MsgBlank
		}
		return MsgRequired
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return MsgInvalidEmail
	case "phone":
		return MsgInvalidPhone
	}
	return fmt.Sprintf("Invalid value (%s).", fe.Tag())
}
