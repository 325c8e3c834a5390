package supplierservice

import (
	"context"
	"errors"
	"net/url"
	"time"

	"almoxarifado/internal/domain"
	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/query"
	"almoxarifado/internal/validation"
)

// SupplierRepository define o contrato que o Serviço de Fornecedores espera da camada de Persistência.
type SupplierRepository interface {
	validation.SupplierLookup
	Create(ctx context.Context, s domain.Supplier) (domain.Supplier, error)
	FindByID(ctx context.Context, id int64) (domain.Supplier, error)
	FindByName(ctx context.Context, name string) (domain.Supplier, error)
	List(ctx context.Context, spec query.Spec) ([]domain.Supplier, int, error)
	Update(ctx context.Context, s domain.Supplier) (domain.Supplier, error)
	Delete(ctx context.Context, id int64) error
}

// ItemCleaner aplica o modo de exclusão aos itens do fornecedor removido.
type ItemCleaner interface {
	DeleteBySupplier(ctx context.Context, supplierID int64) (int64, error)
	ClearSupplier(ctx context.Context, supplierID int64, at time.Time) (int64, error)
}

// Transactor executa fn dentro de uma transação propagada pelo contexto.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service implementa as regras de negócio de fornecedores.
type Service struct {
	repo      SupplierRepository
	items     ItemCleaner
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

// NewService cria e retorna uma nova instância do Serviço de Fornecedores.
func NewService(repo SupplierRepository, items ItemCleaner, tx Transactor, v *validation.Validator,
	mode domain.SupplierDeleteMode, logger logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		items:     items,
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

// ListSuppliers aplica busca, filtros, ordenação e paginação vindos da query string.
func (s *Service) ListSuppliers(ctx context.Context, params url.Values) ([]domain.Supplier, int, error) {
	spec, err := query.SupplierSchema.Parse(params)
	if err != nil {
		return nil, 0, err
	}

	suppliers, total, err := s.repo.List(ctx, spec)
	if err != nil {
		s.logger.Error("Falha ao listar fornecedores no repositório.", err)
		return nil, 0, err
	}

	s.logger.Debug("Fornecedores listados.", map[string]interface{}{"count": len(suppliers), "total": total})
	return suppliers, total, nil
}

// CreateSupplier valida e cria um fornecedor.
func (s *Service) CreateSupplier(ctx context.Context, in domain.SupplierInput) (domain.Supplier, error) {
	var created domain.Supplier
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.create(ctx, in, "")
		return err
	})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logger.Info("Fornecedor criado com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// GetSupplierByID busca um fornecedor pelo ID.
func (s *Service) GetSupplierByID(ctx context.Context, id int64) (domain.Supplier, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateSupplier aplica o payload sobre o fornecedor existente.
// Com partial=false (PUT) os campos obrigatórios precisam estar presentes.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, in domain.SupplierInput, partial bool) (domain.Supplier, error) {
	s.logger.Debug("Iniciando atualização de fornecedor no serviço.", map[string]interface{}{"id": id, "partial": partial})

	var updated domain.Supplier
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		in.ApplyTo(&current)
		var missing []string
		if !partial {
			missing = in.Missing()
		}
		errs, err := s.validate(ctx, &current, missing, id)
		if err != nil {
			return err
		}
		if err := errs.Err(); err != nil {
			return err
		}

		current.UpdatedAt = s.now().UTC()
		updated, err = s.repo.Update(ctx, current)
		return err
	})
	if err != nil {
		s.logWriteFailure("Falha ao atualizar fornecedor.", err)
		return domain.Supplier{}, err
	}

	s.logger.Info("Fornecedor atualizado com sucesso.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// DeleteSupplier remove o fornecedor aplicando o modo configurado aos seus itens.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var (
			affected int64
			err      error
		)
		if s.mode == domain.DeleteModeCascade {
			affected, err = s.items.DeleteBySupplier(ctx, id)
		} else {
			affected, err = s.items.ClearSupplier(ctx, id, s.now().UTC())
		}
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Debug("Itens do fornecedor tratados.", map[string]interface{}{"id": id, "mode": string(s.mode), "items": affected})
		return nil
	})
	if err != nil {
		s.logWriteFailure("Falha ao deletar fornecedor.", err)
		return err
	}

	s.logger.Info("Fornecedor deletado com sucesso.", map[string]interface{}{"id": id, "mode": string(s.mode)})
	return nil
}

// ResolveInline faz o get-or-create de um fornecedor embutido no payload de item.
// A chave natural é o nome (sem diferenciar maiúsculas) mais o CNPJ, quando informado.
// Deve ser chamado dentro da transação da escrita do item; erros de campo vêm prefixados com "supplier.".
func (s *Service) ResolveInline(ctx context.Context, in domain.SupplierInput) (domain.Supplier, error) {
	var candidate domain.Supplier
	in.ApplyTo(&candidate)

	if in.Name != nil && candidate.Name != "" {
		existing, err := s.repo.FindByName(ctx, candidate.Name)
		var notFound *apperror.NotFoundError
		switch {
		case err == nil:
			if candidate.TaxID == nil || (existing.TaxID != nil && *existing.TaxID == *candidate.TaxID) {
				s.logger.Debug("Fornecedor embutido reaproveitado.", map[string]interface{}{"id": existing.ID})
				return existing, nil
			}
			return domain.Supplier{}, apperror.NewFieldError("supplier.name", validation.MsgSupplierNameTaken)
		case !errors.As(err, &notFound):
			return domain.Supplier{}, err
		}
	}

	return s.create(ctx, in, "supplier")
}

// create valida e insere; prefix qualifica os campos dos erros (vazio para o recurso raiz).
func (s *Service) create(ctx context.Context, in domain.SupplierInput, prefix string) (domain.Supplier, error) {
	var supplier domain.Supplier
	in.ApplyTo(&supplier)

	errs, err := s.validate(ctx, &supplier, in.Missing(), 0)
	if err != nil {
		return domain.Supplier{}, err
	}
	if len(errs) > 0 {
		out := validation.Errors{}
		out.Merge(prefix, errs)
		s.logger.Warn("Falha na validação do fornecedor.", map[string]interface{}{"fields": map[string][]string(out)})
		return domain.Supplier{}, out.Err()
	}

	now := s.now().UTC()
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return s.repo.Create(ctx, supplier)
}

// validate aplica as regras de forma e de unicidade; normaliza o telefone quando válido.
func (s *Service) validate(ctx context.Context, supplier *domain.Supplier, missing []string, excludingID int64) (validation.Errors, error) {
	errs := s.validator.Struct(*supplier)
	for _, field := range missing {
		errs[field] = []string{validation.MsgRequired}
	}

	if supplier.Phone != "" && !errs.Has("phone") {
		supplier.Phone, _ = s.validator.NormalizePhone(supplier.Phone)
	}

	if err := errs.SupplierName(ctx, s.repo, supplier.Name, excludingID); err != nil {
		return nil, err
	}
	if err := errs.SupplierTaxID(ctx, s.repo, supplier.TaxID, excludingID); err != nil {
		return nil, err
	}
	return errs, nil
}

func (s *Service) logWriteFailure(msg string, err error) {
	if status, _, _ := apperror.MapToHTTPStatus(err); status < 500 {
		s.logger.Warn(msg, map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Error(msg, err)
}
