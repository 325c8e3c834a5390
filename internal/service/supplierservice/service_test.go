package supplierservice_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"almoxarifado/internal/domain"
	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/query"
	"almoxarifado/internal/service/supplierservice"
	"almoxarifado/internal/validation"
)

// MockSupplierRepository é uma implementação mock da interface SupplierRepository
type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) Create(ctx context.Context, s domain.Supplier) (domain.Supplier, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(domain.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindByID(ctx context.Context, id int64) (domain.Supplier, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindByName(ctx context.Context, name string) (domain.Supplier, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) List(ctx context.Context, spec query.Spec) ([]domain.Supplier, int, error) {
	args := m.Called(ctx, spec)
	return args.Get(0).([]domain.Supplier), args.Int(1), args.Error(2)
}

func (m *MockSupplierRepository) Update(ctx context.Context, s domain.Supplier) (domain.Supplier, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(domain.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSupplierRepository) NameTaken(ctx context.Context, name string, excludingID int64) (bool, error) {
	args := m.Called(ctx, name, excludingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSupplierRepository) TaxIDTaken(ctx context.Context, taxID string, excludingID int64) (bool, error) {
	args := m.Called(ctx, taxID, excludingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSupplierRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockItemCleaner é uma implementação mock da interface ItemCleaner
type MockItemCleaner struct {
	mock.Mock
}

func (m *MockItemCleaner) DeleteBySupplier(ctx context.Context, supplierID int64) (int64, error) {
	args := m.Called(ctx, supplierID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemCleaner) ClearSupplier(ctx context.Context, supplierID int64, at time.Time) (int64, error) {
	args := m.Called(ctx, supplierID, at)
	return args.Get(0).(int64), args.Error(1)
}

// fakeTx executa a função sem banco, contando as transações abertas.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newService(repo *MockSupplierRepository, items *MockItemCleaner, mode domain.SupplierDeleteMode) *supplierservice.Service {
	return supplierservice.NewService(repo, items, &fakeTx{}, validation.New("BR"), mode, logger.NewNop(),
		supplierservice.WithClock(func() time.Time { return fixedNow }))
}

// --- Testes para CreateSupplier ---

func TestCreateSupplier_Success(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	toInsert := domain.Supplier{Name: "Acme Ltda", Contact: "acme@example.com", CreatedAt: fixedNow, UpdatedAt: fixedNow}
	expected := toInsert
	expected.ID = 1

	mockRepo.On("NameTaken", mock.Anything, "Acme Ltda", int64(0)).Return(false, nil)
	mockRepo.On("Create", mock.Anything, toInsert).Return(expected, nil)

	result, err := svc.CreateSupplier(context.Background(), domain.SupplierInput{
		Name:    strPtr(" Acme Ltda "),
		Contact: strPtr("acme@example.com"),
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), result.ID)
	mockRepo.AssertExpectations(t)
}

func TestCreateSupplier_Fail_DuplicateNameCaseVariant(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("NameTaken", mock.Anything, "ACME", int64(0)).Return(true, nil)

	_, err := svc.CreateSupplier(context.Background(), domain.SupplierInput{Name: strPtr("ACME")})

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, map[string][]string{"name": {"a supplier with this name already exists"}}, fields)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateSupplier_Fail_MissingName(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	_, err := svc.CreateSupplier(context.Background(), domain.SupplierInput{Contact: strPtr("x")})

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgRequired}, fields["name"])
	mockRepo.AssertNotCalled(t, "NameTaken", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSupplier_Fail_DuplicateTaxID(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("NameTaken", mock.Anything, "Beta", int64(0)).Return(false, nil)
	mockRepo.On("TaxIDTaken", mock.Anything, "12.345.678/0001-90", int64(0)).Return(true, nil)

	_, err := svc.CreateSupplier(context.Background(), domain.SupplierInput{
		Name:  strPtr("Beta"),
		TaxID: domain.Some("12.345.678/0001-90"),
	})

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgSupplierTaxIDTaken}, fields["tax_id"])
}

func TestCreateSupplier_NormalizesPhone(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("NameTaken", mock.Anything, "Gama", int64(0)).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(s domain.Supplier) bool {
		return s.Phone == "+5511987654321"
	})).Return(domain.Supplier{ID: 3, Name: "Gama", Phone: "+5511987654321"}, nil)

	result, err := svc.CreateSupplier(context.Background(), domain.SupplierInput{
		Name:  strPtr("Gama"),
		Phone: strPtr("(11) 98765-4321"),
	})

	assert.NoError(t, err)
	assert.Equal(t, "+5511987654321", result.Phone)
	mockRepo.AssertExpectations(t)
}

func TestCreateSupplier_Fail_RepoError(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("NameTaken", mock.Anything, "Delta", int64(0)).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).
		Return(domain.Supplier{}, apperror.NewDBError("Falha ao criar fornecedor", errors.New("database connection failed")))

	_, err := svc.CreateSupplier(context.Background(), domain.SupplierInput{Name: strPtr("Delta")})

	assert.IsType(t, &apperror.InternalError{}, err)
}

// --- Testes para UpdateSupplier ---

func TestUpdateSupplier_Success_KeepsOwnName(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	current := domain.Supplier{ID: 1, Name: "Acme", Contact: "old", CreatedAt: fixedNow.Add(-time.Hour)}
	mockRepo.On("FindByID", mock.Anything, int64(1)).Return(current, nil)
	mockRepo.On("NameTaken", mock.Anything, "Acme", int64(1)).Return(false, nil)

	want := current
	want.Contact = "new"
	want.UpdatedAt = fixedNow
	mockRepo.On("Update", mock.Anything, want).Return(want, nil)

	result, err := svc.UpdateSupplier(context.Background(), 1, domain.SupplierInput{
		Name:    strPtr("Acme"),
		Contact: strPtr("new"),
	}, false)

	assert.NoError(t, err)
	assert.Equal(t, "new", result.Contact)
	mockRepo.AssertExpectations(t)
}

func TestUpdateSupplier_PartialKeepsAbsentFields(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	current := domain.Supplier{ID: 2, Name: "Beta", Contact: "contato"}
	mockRepo.On("FindByID", mock.Anything, int64(2)).Return(current, nil)
	mockRepo.On("NameTaken", mock.Anything, "Beta", int64(2)).Return(false, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(s domain.Supplier) bool {
		return s.Name == "Beta" && s.Contact == "contato" && s.Email == "beta@example.com"
	})).Return(current, nil)

	_, err := svc.UpdateSupplier(context.Background(), 2, domain.SupplierInput{Email: strPtr("beta@example.com")}, true)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestUpdateSupplier_Fail_PutWithoutName(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("FindByID", mock.Anything, int64(2)).Return(domain.Supplier{ID: 2, Name: "Beta"}, nil)
	mockRepo.On("NameTaken", mock.Anything, "Beta", int64(2)).Return(false, nil).Maybe()

	_, err := svc.UpdateSupplier(context.Background(), 2, domain.SupplierInput{Contact: strPtr("x")}, false)

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgRequired}, fields["name"])
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateSupplier_Fail_NameTakenByAnother(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("FindByID", mock.Anything, int64(2)).Return(domain.Supplier{ID: 2, Name: "Beta"}, nil)
	mockRepo.On("NameTaken", mock.Anything, "acme", int64(2)).Return(true, nil)

	_, err := svc.UpdateSupplier(context.Background(), 2, domain.SupplierInput{Name: strPtr("acme")}, true)

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgSupplierNameTaken}, fields["name"])
}

func TestUpdateSupplier_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("FindByID", mock.Anything, int64(9)).Return(domain.Supplier{}, apperror.NewNotFoundError("Fornecedor com ID 9 não encontrado."))

	_, err := svc.UpdateSupplier(context.Background(), 9, domain.SupplierInput{Name: strPtr("x")}, true)

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

// --- Testes para DeleteSupplier ---

func TestDeleteSupplier_Success_Nullify(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	mockItems := new(MockItemCleaner)
	svc := newService(mockRepo, mockItems, domain.DeleteModeNullify)

	mockItems.On("ClearSupplier", mock.Anything, int64(1), fixedNow).Return(int64(2), nil)
	mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

	err := svc.DeleteSupplier(context.Background(), 1)

	assert.NoError(t, err)
	mockItems.AssertExpectations(t)
	mockItems.AssertNotCalled(t, "DeleteBySupplier", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestDeleteSupplier_Success_Cascade(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	mockItems := new(MockItemCleaner)
	svc := newService(mockRepo, mockItems, domain.DeleteModeCascade)

	mockItems.On("DeleteBySupplier", mock.Anything, int64(1)).Return(int64(2), nil)
	mockRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

	err := svc.DeleteSupplier(context.Background(), 1)

	assert.NoError(t, err)
	mockItems.AssertNotCalled(t, "ClearSupplier", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestDeleteSupplier_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	mockItems := new(MockItemCleaner)
	svc := newService(mockRepo, mockItems, domain.DeleteModeNullify)

	mockItems.On("ClearSupplier", mock.Anything, int64(7), fixedNow).Return(int64(0), nil)
	mockRepo.On("Delete", mock.Anything, int64(7)).Return(apperror.NewNotFoundError("Fornecedor com ID 7 não encontrado para exclusão."))

	err := svc.DeleteSupplier(context.Background(), 7)

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

// --- Testes para ResolveInline ---

func TestResolveInline_ReusesExistingByName(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeCascade)

	existing := domain.Supplier{ID: 4, Name: "Acme Ltda"}
	mockRepo.On("FindByName", mock.Anything, "acme ltda").Return(existing, nil)

	result, err := svc.ResolveInline(context.Background(), domain.SupplierInput{Name: strPtr("acme ltda")})

	assert.NoError(t, err)
	assert.Equal(t, int64(4), result.ID)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestResolveInline_CreatesWhenMissing(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeCascade)

	mockRepo.On("FindByName", mock.Anything, "Nova").Return(domain.Supplier{}, apperror.NewNotFoundError("Fornecedor \"Nova\" não encontrado."))
	mockRepo.On("NameTaken", mock.Anything, "Nova", int64(0)).Return(false, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.Supplier{ID: 8, Name: "Nova"}, nil)

	result, err := svc.ResolveInline(context.Background(), domain.SupplierInput{Name: strPtr("Nova")})

	assert.NoError(t, err)
	assert.Equal(t, int64(8), result.ID)
	mockRepo.AssertExpectations(t)
}

func TestResolveInline_Fail_TaxIDMismatch(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeCascade)

	mockRepo.On("FindByName", mock.Anything, "Acme").Return(domain.Supplier{ID: 4, Name: "Acme", TaxID: strPtr("111")}, nil)

	_, err := svc.ResolveInline(context.Background(), domain.SupplierInput{Name: strPtr("Acme"), TaxID: domain.Some("222")})

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgSupplierNameTaken}, fields["supplier.name"])
}

func TestResolveInline_Fail_MissingNamePrefixed(t *testing.T) {
	svc := newService(new(MockSupplierRepository), new(MockItemCleaner), domain.DeleteModeCascade)

	_, err := svc.ResolveInline(context.Background(), domain.SupplierInput{Contact: strPtr("x")})

	fields, ok := apperror.FieldErrors(err)
	require.True(t, ok)
	assert.Equal(t, []string{validation.MsgRequired}, fields["supplier.name"])
}

// --- Testes para ListSuppliers ---

func TestListSuppliers_Success(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(spec query.Spec) bool {
		return spec.Search == "acme" && len(spec.Conditions) == 1
	})).Return([]domain.Supplier{{ID: 1, Name: "Acme"}}, 1, nil)

	suppliers, total, err := svc.ListSuppliers(context.Background(), url.Values{"search": {"acme"}, "tax_id": {"111"}})

	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, suppliers, 1)
}

func TestListSuppliers_Fail_InvalidPageSize(t *testing.T) {
	mockRepo := new(MockSupplierRepository)
	svc := newService(mockRepo, new(MockItemCleaner), domain.DeleteModeNullify)

	_, _, err := svc.ListSuppliers(context.Background(), url.Values{"page_size": {"abc"}})

	assert.IsType(t, &apperror.ValidationError{}, err)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
