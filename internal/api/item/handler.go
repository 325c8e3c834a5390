package item

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

// ItemService define o contrato que o Handler espera da camada de Serviço.
type ItemService interface {
	ListItems(ctx context.Context, params url.Values) ([]domain.Item, int, error)
	CreateItem(ctx context.Context, in domain.ItemInput) (domain.Item, error)
	GetItemByID(ctx context.Context, id int64) (domain.Item, error)
	UpdateItem(ctx context.Context, id int64, in domain.ItemInput, partial bool) (domain.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// Handler agrupa todos os métodos de Handler de itens.
type Handler struct {
	Service ItemService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ItemService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// ListItemsHandler lida com a requisição GET /v1/items.
// Filtros: location, sku, supplier (id), category. Busca em nome, descrição, sku e nome do fornecedor.
func (h *Handler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.Service.ListItems(r.Context(), r.URL.Query())
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	w.Header().Set(response.TotalCountHeader, strconv.Itoa(total))
	response.JSON(w, h.Logger, http.StatusOK, items)
}

// CreateItemHandler lida com a requisição POST /v1/items.
func (h *Handler) CreateItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in domain.ItemInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	if claims, ok := middleware.GetClaimsFromContext(ctx); ok {
		h.Logger.Info("Tentativa de criação de item por", map[string]interface{}{
			"subject": claims.Subject,
			"role":    claims.Role,
		})
	}

	created, err := h.Service.CreateItem(ctx, in)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusCreated, created)
}

// GetItemByIDHandler lida com a requisição GET /v1/items/{id}.
func (h *Handler) GetItemByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "Item")
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	item, err := h.Service.GetItemByID(r.Context(), id)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusOK, item)
}

// UpdateItemHandler lida com PUT e PATCH em /v1/items/{id}.
func (h *Handler) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "Item")
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	var in domain.ItemInput
	if err := request.DecodeJSON(w, r, &in); err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	updated, err := h.Service.UpdateItem(r.Context(), id, in, r.Method == http.MethodPatch)
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusOK, updated)
}

// DeleteItemHandler lida com a requisição DELETE /v1/items/{id}.
func (h *Handler) DeleteItemHandler(w http.ResponseWriter, r *http.Request) {
	id, err := request.IDParam(r, "Item")
	if err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	if err := h.Service.DeleteItem(r.Context(), id); err != nil {
		response.Error(w, r, h.Logger, err)
		return
	}

	response.JSON(w, h.Logger, http.StatusNoContent, nil)
}
