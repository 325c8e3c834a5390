package itemservice

import (
	"context"
	"net/url"
	"strings"
	"time"

	"almoxarifado/internal/domain"
	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/query"
	"almoxarifado/internal/validation"
)

// ItemRepository define o contrato que o Serviço de Itens espera da camada de Persistência.
type ItemRepository interface {
	validation.ItemLookup
	Create(ctx context.Context, it domain.Item) (domain.Item, error)
	FindByID(ctx context.Context, id int64) (domain.Item, error)
	List(ctx context.Context, spec query.Spec) ([]domain.Item, int, error)
	Update(ctx context.Context, it domain.Item) (domain.Item, error)
	Delete(ctx context.Context, id int64) error
}

// SupplierResolver resolve o fornecedor embutido no payload (get-or-create).
type SupplierResolver interface {
	ResolveInline(ctx context.Context, in domain.SupplierInput) (domain.Supplier, error)
}

// Transactor executa fn dentro de uma transação propagada pelo contexto.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implementa as regras de negócio de itens.
type Service struct {
	repo      ItemRepository
	suppliers validation.SupplierLookup
	resolver  SupplierResolver
	tx        Transactor
	validator *validation.Validator
	mode      domain.SupplierDeleteMode
	logger    logger.Logger
	now       func() time.Time
}

// Option ajusta dependências opcionais do serviço.
type Option func(*Service)

// WithClock substitui o relógio usado nos timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService cria e retorna uma nova instância do Serviço de Itens.
// Em modo cascade todo item precisa de fornecedor.
func NewService(repo ItemRepository, suppliers validation.SupplierLookup, resolver SupplierResolver, tx Transactor,
	v *validation.Validator, mode domain.SupplierDeleteMode, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		suppliers: suppliers,
		resolver:  resolver,
		tx:        tx,
		validator: v,
		mode:      mode,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListItems aplica busca, filtros, ordenação e paginação vindos da query string.
func (s *Service) ListItems(ctx context.Context, params url.Values) ([]domain.Item, int, error) {
	spec, err := query.ItemSchema.Parse(params)
	if err != nil {
		s.logger.Debug("Parâmetros de listagem inválidos.", map[string]interface{}{"error": err.Error()})
		return nil, 0, err
	}

	items, total, err := s.repo.List(ctx, spec)
	if err != nil {
		s.logger.Error("Falha ao listar itens no repositório.", err)
		return nil, 0, err
	}
	return items, total, nil
}

// CreateItem valida e cria um item, resolvendo o fornecedor na mesma transação.
func (s *Service) CreateItem(ctx context.Context, in domain.ItemInput) (domain.Item, error) {
	s.logger.Debug("Iniciando criação de item no serviço.", map[string]interface{}{"sku": in.SKU})

	var created domain.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var item domain.Item
		in.ApplyTo(&item)

		if err := s.check(ctx, &item, in, in.Missing(), 0); err != nil {
			return err
		}

		now := s.now().UTC()
		item.CreatedAt = now
		item.UpdatedAt = now
		inserted, err := s.repo.Create(ctx, item)
		if err != nil {
			return err
		}
		created, err = s.repo.FindByID(ctx, inserted.ID)
		return err
	})
	if err != nil {
		s.logWriteFailure("Falha ao criar item.", err)
		return domain.Item{}, err
	}

	s.logger.Info("Item criado com sucesso.", map[string]interface{}{"id": created.ID, "sku": created.SKU})
	return created, nil
}

// GetItemByID busca um item pelo ID, com o fornecedor aninhado.
func (s *Service) GetItemByID(ctx context.Context, id int64) (domain.Item, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateItem aplica o payload sobre o item existente.
// Com partial=false (PUT) os campos obrigatórios precisam estar presentes.
func (s *Service) UpdateItem(ctx context.Context, id int64, in domain.ItemInput, partial bool) (domain.Item, error) {
	s.logger.Debug("Iniciando atualização de item no serviço.", map[string]interface{}{"id": id, "partial": partial})

	var updated domain.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		in.ApplyTo(&current)
		current.Supplier = nil
		var missing []string
		if !partial {
			missing = in.Missing()
		}
		if err := s.check(ctx, &current, in, missing, id); err != nil {
			return err
		}

		current.UpdatedAt = s.now().UTC()
		if _, err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		updated, err = s.repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		s.logWriteFailure("Falha ao atualizar item.", err)
		return domain.Item{}, err
	}

	s.logger.Info("Item atualizado com sucesso.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// DeleteItem remove um item.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logWriteFailure("Falha ao deletar item.", err)
		return err
	}
	s.logger.Info("Item deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// check valida o item já mesclado e resolve a referência ao fornecedor, gravando-a em item.SupplierID.
func (s *Service) check(ctx context.Context, item *domain.Item, in domain.ItemInput, missing []string, excludingID int64) error {
	errs := s.validator.Struct(*item)
	for _, field := range missing {
		errs[field] = []string{validation.MsgRequired}
	}
	for _, msg := range validation.UnitPrice(item.UnitPrice) {
		errs.Add("unit_price", msg)
	}
	if err := errs.ItemSKU(ctx, s.repo, item.SKU, excludingID); err != nil {
		return err
	}

	ref, ok := in.SupplierRef()
	if !ok {
		errs.Add("supplier", validation.MsgSupplierConflict)
		return errs.Err()
	}

	switch ref.Kind {
	case domain.SupplierRefByID:
		if err := errs.SupplierReference(ctx, s.suppliers, ref.ID); err != nil {
			return err
		}
		id := ref.ID
		item.SupplierID = &id
	case domain.SupplierRefInline:
		supplier, err := s.resolver.ResolveInline(ctx, ref.Inline)
		if fields, isField := apperror.FieldErrors(err); isField {
			errs.Merge("", fields)
		} else if err != nil {
			return err
		} else {
			item.SupplierID = &supplier.ID
		}
	case domain.SupplierRefClear:
		item.SupplierID = nil
	}

	if s.mode == domain.DeleteModeCascade && item.SupplierID == nil && !errs.Has("supplier") && !hasPrefix(errs, "supplier.") {
		if ref.Kind == domain.SupplierRefClear {
			errs.Add("supplier", validation.MsgSupplierRequired)
		} else {
			errs.Add("supplier", validation.MsgRequired)
		}
	}

	if err := errs.Err(); err != nil {
		s.logger.Warn("Falha na validação do item.", map[string]interface{}{"fields": map[string][]string(errs)})
		return err
	}
	return nil
}

func hasPrefix(errs validation.Errors, prefix string) bool {
	for field := range errs {
		if strings.HasPrefix(field, prefix) {
			return true
		}
	}
	return false
}

func (s *Service) logWriteFailure(msg string, err error) {
	if status, _, _ := apperror.MapToHTTPStatus(err); status < 500 {
		s.logger.Warn(msg, map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Error(msg, err)
}
