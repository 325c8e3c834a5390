package itemservice_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almoxarifado/internal/domain"
	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/database"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/repository/itemrepo"
	"almoxarifado/internal/repository/supplierrepo"
	"almoxarifado/internal/service/itemservice"
	"almoxarifado/internal/service/supplierservice"
	"almoxarifado/internal/validation"
)

var (
	supplierCols = []string{"id", "name", "contact", "tax_id", "phone", "email", "created_at", "updated_at"}
	itemCols     = []string{"id", "sku", "name", "description", "quantity", "location", "unit_of_measure", "category",
		"unit_price", "supplier_id", "created_at", "updated_at"}
	joinedCols = append(append([]string{}, itemCols...),
		"supplier.id", "supplier.name", "supplier.contact", "supplier.tax_id", "supplier.phone",
		"supplier.email", "supplier.created_at", "supplier.updated_at")
)

// newWiredService monta o serviço de itens com TxManager, repositórios e serviço de fornecedores reais sobre o sqlmock.
func newWiredService(t *testing.T) (*itemservice.Service, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	db := sqlx.NewDb(raw, "postgres")
	log := logger.NewNop()
	clock := func() time.Time { return fixedNow }
	v := validation.New("BR")
	tx := database.NewTxManager(db)

	suppliers := supplierrepo.NewSupplierRepository(db, time.Second, log)
	items := itemrepo.NewItemRepository(db, time.Second, log)
	supplierSvc := supplierservice.NewService(suppliers, items, tx, v, domain.DeleteModeNullify, log,
		supplierservice.WithClock(clock))
	return itemservice.NewService(items, suppliers, supplierSvc, tx, v, domain.DeleteModeNullify, log,
		itemservice.WithClock(clock)), mock
}

// expectInlineSupplierInsert cobre o get-or-create de "Acme Ltda" quando ele ainda não existe.
func expectInlineSupplierInsert(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM itens WHERE sku = $1 AND id <> $2)")).
		WithArgs("A01", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, contact, tax_id, phone, email, created_at, updated_at FROM fornecedores WHERE lower(name) = lower($1)")).
		WithArgs("Acme Ltda").
		WillReturnRows(sqlmock.NewRows(supplierCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM fornecedores WHERE lower(name) = lower($1) AND id <> $2)")).
		WithArgs("Acme Ltda", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO fornecedores (name, contact, tax_id, phone, email, created_at, updated_at)")).
		WillReturnRows(sqlmock.NewRows(supplierCols).
			AddRow(1, "Acme Ltda", "acme@example.com", nil, "", "", fixedNow, fixedNow))
}

func inlineInput() domain.ItemInput {
	return domain.ItemInput{
		SKU: strPtr("A01"), Name: strPtr("Parafuso ABC"), Quantity: intPtr(10), Location: strPtr("a"),
		Supplier: domain.Some(domain.SupplierInput{Name: strPtr("Acme Ltda"), Contact: strPtr("acme@example.com")}),
	}
}

func TestCreateItem_InlineSupplierAndItemCommitTogether(t *testing.T) {
	svc, mock := newWiredService(t)

	mock.ExpectBegin()
	expectInlineSupplierInsert(mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO itens (sku, name, description, quantity, location, unit_of_measure, category,")).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(2, "A01", "Parafuso ABC", "", 10, "a", "", "", nil, 1, fixedNow, fixedNow))
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN fornecedores s ON s.id = i.supplier_id WHERE i.id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(joinedCols).AddRow(
			2, "A01", "Parafuso ABC", "", 10, "a", "", "", nil, 1, fixedNow, fixedNow,
			1, "Acme Ltda", "acme@example.com", nil, "", "", fixedNow, fixedNow,
		))
	mock.ExpectCommit()

	result, err := svc.CreateItem(context.Background(), inlineInput())

	require.NoError(t, err)
	require.NotNil(t, result.Supplier)
	assert.Equal(t, int64(1), result.Supplier.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItem_Fail_ItemInsertRollsBackInlineSupplier(t *testing.T) {
	svc, mock := newWiredService(t)

	mock.ExpectBegin()
	expectInlineSupplierInsert(mock)
	// Outra requisição gravou o mesmo SKU entre a checagem e o INSERT.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO itens (sku, name, description, quantity, location, unit_of_measure, category,")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "itens_sku_key", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	_, err := svc.CreateItem(context.Background(), inlineInput())

	require.Error(t, err)
	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string][]string{"sku": {validation.MsgItemSKUTaken}}, fields)
	assert.NoError(t, mock.ExpectationsWereMet())
}
