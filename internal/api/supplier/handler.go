package supplier

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"almoxarifado/internal/domain"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/pkg/middleware"
	"almoxarifado/internal/pkg/request"
	"almoxarifado/internal/pkg/response"
)

// SupplierService define o contrato que o Handler espera da camada de Serviço.
type SupplierService interface {
	ListSuppliers(ctx context.Context, params url.Values) ([]domain.Supplier, int, error)
	CreateSupplier(ctx context.Context, in domain.SupplierInput) (domain.Supplier, error)
	GetSupplierByID(ctx context.Context, id int64) (domain.Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, in domain.SupplierInput, partial bool) (domain.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

// Handler agrupa todos os métodos de Handler de fornecedores.
type Handler struct {
	Service SupplierService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc SupplierService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// ListSuppliersHandler lida com a requisição GET /v1/suppliers.
// Aceita search, tax_id, ordering, page e page_size; o total vai no cabeçalho X-Total-Count.
func (h *Handler) ListSuppliersHandler(w http.ResponseWriter, r *http.Request) {
	suppliers, total, err := h.Service.ListSuppliers(r.Context(), r.URL.Query())
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	w.Header().Set(response.TotalCountHeader, strconv.Itoa(total))
	response.JSON(w, h.Logger, http.StatusOK, suppliers)
}

// CreateSupplierHandler lida com a requisição POST /v1/suppliers.
func (h *Handler) CreateSupplierHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if claims, ok := middleware.GetClaimsFromContext(ctx); ok {
		h.Logger.Info("Tentativa de criação de fornecedor por", map[string]interface{}{
			"subject": claims.Subject,
			"role":    claims.Role,
		})
	}

	var in domain.SupplierInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	created, err := h.Service.CreateSupplier(ctx, in)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusCreated, created)
}

// GetSupplierByIDHandler lida com a requisição GET /v1/suppliers/{id}.
func (h *Handler) GetSupplierByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "Fornecedor")
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	supplier, err := h.Service.GetSupplierByID(r.Context(), id)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusOK, supplier)
}

// UpdateSupplierHandler lida com PUT (substituição) e PATCH (parcial) em /v1/suppliers/{id}.
func (h *Handler) UpdateSupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "Fornecedor")
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	var in domain.SupplierInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	updated, err := h.Service.UpdateSupplier(r.Context(), id, in, r.Method == http.MethodPatch)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusOK, updated)
}

// DeleteSupplierHandler lida com a requisição DELETE /v1/suppliers/{id}.
func (h *Handler) DeleteSupplierHandler(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "Fornecedor")
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	if err := h.Service.DeleteSupplier(r.Context(), id); err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusNoContent, nil)
}
