package validation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almoxarifado/internal/domain"
	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/validation"
)

// fakeLookup guarda fornecedores e itens em memória.
type fakeLookup struct {
	suppliers map[int64]domain.Supplier
	items     map[int64]domain.Item
	err       error
}

func (f *fakeLookup) NameTaken(_ context.Context, name string, excludingID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for id, s := range f.suppliers {
		if id != excludingID && strings.EqualFold(s.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLookup) TaxIDTaken(_ context.Context, taxID string, excludingID int64) (bool, error) {
	for id, s := range f.suppliers {
		if id != excludingID && s.TaxID != nil && *s.TaxID == taxID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLookup) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := f.suppliers[id]
	return ok, nil
}

func (f *fakeLookup) SKUTaken(_ context.Context, sku string, excludingID int64) (bool, error) {
	for id, it := range f.items {
		if id != excludingID && it.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func newLookup() *fakeLookup {
	taxID := "12.345.678/0001-90"
	return &fakeLookup{
		suppliers: map[int64]domain.Supplier{1: {ID: 1, Name: "Acme", TaxID: &taxID}},
		items:     map[int64]domain.Item{5: {ID: 5, SKU: "A01"}},
	}
}

func TestSupplierName_Fail_CaseInsensitiveDuplicate(t *testing.T) {
	errs := validation.Errors{}

	err := errs.SupplierName(context.Background(), newLookup(), "ACME", 0)

	require.NoError(t, err)
	assert.Equal(t, []string{validation.MsgSupplierNameTaken}, errs["name"])
}

func TestSupplierName_Success_ExcludingOwnID(t *testing.T) {
	errs := validation.Errors{}

	err := errs.SupplierName(context.Background(), newLookup(), "acme", 1)

	require.NoError(t, err)
	assert.NoError(t, errs.Err())
}

func TestSupplierName_Fail_InfrastructureError(t *testing.T) {
	lookup := newLookup()
	lookup.err = errors.New("conexão perdida")
	errs := validation.Errors{}

	err := errs.SupplierName(context.Background(), lookup, "Outro", 0)

	assert.Error(t, err)
	assert.Empty(t, errs)
}

func TestSupplierTaxID_Fail_Duplicate(t *testing.T) {
	errs := validation.Errors{}
	taxID := "12.345.678/0001-90"

	require.NoError(t, errs.SupplierTaxID(context.Background(), newLookup(), &taxID, 0))

	assert.Equal(t, []string{validation.MsgSupplierTaxIDTaken}, errs["tax_id"])
}

func TestItemSKU_IsCaseSensitive(t *testing.T) {
	errs := validation.Errors{}

	require.NoError(t, errs.ItemSKU(context.Background(), newLookup(), "a01", 0))
	assert.Empty(t, errs)

	require.NoError(t, errs.ItemSKU(context.Background(), newLookup(), "A01", 0))
	assert.Equal(t, []string{validation.MsgItemSKUTaken}, errs["sku"])
}

func TestSupplierReference_Fail_Missing(t *testing.T) {
	errs := validation.Errors{}

	require.NoError(t, errs.SupplierReference(context.Background(), newLookup(), 42))

	assert.Equal(t, []string{`Invalid pk "42" - object does not exist.`}, errs["supplier"])
}

func TestStruct_TranslatesTagFailures(t *testing.T) {
	v := validation.New("BR")

	errs := v.Struct(domain.Supplier{
		Name:  "",
		Email: "nao-e-email",
		Phone: "123",
	})

	assert.Equal(t, []string{validation.MsgBlank}, errs["name"])
	assert.Equal(t, []string{validation.MsgInvalidEmail}, errs["email"])
	assert.Equal(t, []string{validation.MsgInvalidPhone}, errs["phone"])
}

func TestStruct_MaxLength(t *testing.T) {
	v := validation.New("BR")

	errs := v.Struct(domain.Item{SKU: "A01", Name: "Parafuso", UnitOfMeasure: "UNI"})

	assert.Equal(t, []string{"Ensure this field has no more than 2 characters."}, errs["unit_of_measure"])
	assert.Len(t, errs, 1)
}

func TestNormalizePhone(t *testing.T) {
	v := validation.New("br")

	phone, ok := v.NormalizePhone("(11) 98765-4321")

	assert.True(t, ok)
	assert.Equal(t, "+5511987654321", phone)
}

func TestUnitPrice(t *testing.T) {
	assert.Nil(t, validation.UnitPrice(decimal.NullDecimal{}))
	assert.Nil(t, validation.UnitPrice(decimal.NewNullDecimal(decimal.RequireFromString("10.50"))))
	assert.Equal(t, []string{validation.MsgNegative}, validation.UnitPrice(decimal.NewNullDecimal(decimal.RequireFromString("-1"))))
	assert.Equal(t, []string{validation.MsgDecimalPlaces}, validation.UnitPrice(decimal.NewNullDecimal(decimal.RequireFromString("1.005"))))
	assert.Equal(t, []string{validation.MsgWholeDigits}, validation.UnitPrice(decimal.NewNullDecimal(decimal.RequireFromString("123456789"))))
}

func TestErrors_ErrAndMerge(t *testing.T) {
	errs := validation.Errors{}
	assert.NoError(t, errs.Err())

	errs.Merge("supplier", validation.Errors{"name": {validation.MsgBlank}})
	err := errs.Err()

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgBlank}, fields["supplier.name"])
}
