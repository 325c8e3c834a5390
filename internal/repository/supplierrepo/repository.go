package supplierrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"almoxarifado/internal/domain"
	apperror "almoxarifado/internal/errors"
	"almoxarifado/internal/pkg/database"
	"almoxarifado/internal/pkg/logger"
	"almoxarifado/internal/query"
	"almoxarifado/internal/validation"
)

const columns = `id, name, contact, tax_id, phone, email, created_at, updated_at`

// constraints liga os índices únicos de fornecedores aos campos da API.
var constraints = database.Constraints{
	"fornecedores_name_lower_key": {Field: "name", Message: validation.MsgSupplierNameTaken},
	"fornecedores_tax_id_key":     {Field: "tax_id", Message: validation.MsgSupplierTaxIDTaken},
}

// SupplierRepository implementa as operações de persistência de fornecedores.
type SupplierRepository struct {
	DB        *sqlx.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewSupplierRepository cria e retorna uma nova instância do Repositório de Fornecedores.
func NewSupplierRepository(db *sqlx.DB, dbTimeout time.Duration, logger logger.Logger) *SupplierRepository {
	return &SupplierRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Create insere um novo fornecedor. Os timestamps vêm preenchidos pelo serviço.
func (r *SupplierRepository) Create(ctx context.Context, s domain.Supplier) (domain.Supplier, error) {
	r.logger.Debug("Iniciando Create de fornecedor no repositório.", map[string]interface{}{"name": s.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	q := `
        INSERT INTO fornecedores (name, contact, tax_id, phone, email, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + columns

	var created domain.Supplier
	err := database.Conn(ctx, r.DB).QueryRowxContext(ctxTimeout, q,
		s.Name, s.Contact, s.TaxID, s.Phone, s.Email, s.CreatedAt, s.UpdatedAt,
	).StructScan(&created)
	if err != nil {
		r.logger.Error("Falha ao inserir fornecedor no DB.", err)
		return domain.Supplier{}, database.MapError("Falha ao criar fornecedor", err, constraints)
	}

	r.logger.Info("Fornecedor criado com sucesso.", map[string]interface{}{"id": created.ID, "name": created.Name})
	return created, nil
}

// FindByID busca um fornecedor pelo ID.
func (r *SupplierRepository) FindByID(ctx context.Context, id int64) (domain.Supplier, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var s domain.Supplier
	err := database.Conn(ctx, r.DB).GetContext(ctxTimeout, &s, `SELECT `+columns+` FROM fornecedores WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, apperror.NewNotFoundError(fmt.Sprintf("Fornecedor com ID %d não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar fornecedor no DB.", err)
		return domain.Supplier{}, apperror.NewDBError("Falha ao buscar fornecedor", err)
	}
	return s, nil
}

// FindByName busca um fornecedor pelo nome, ignorando maiúsculas.
func (r *SupplierRepository) FindByName(ctx context.Context, name string) (domain.Supplier, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var s domain.Supplier
	err := database.Conn(ctx, r.DB).GetContext(ctxTimeout, &s, `SELECT `+columns+` FROM fornecedores WHERE lower(name) = lower($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, apperror.NewNotFoundError(fmt.Sprintf("Fornecedor %q não encontrado.", name))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar fornecedor por nome no DB.", err)
		return domain.Supplier{}, apperror.NewDBError("Falha ao buscar fornecedor", err)
	}
	return s, nil
}

// List devolve a página pedida e o total de fornecedores que atendem à consulta.
// As duas consultas rodam em paralelo no pool, fora de transação.
func (r *SupplierRepository) List(ctx context.Context, spec query.Spec) ([]domain.Supplier, int, error) {
	r.logger.Debug("Iniciando List de fornecedores no repositório.", map[string]interface{}{"search": spec.Search})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	compiled := query.SupplierSchema.Compile(spec)
	listSQL := `SELECT ` + columns + ` FROM fornecedores ` + compiled.Where + ` ` + compiled.OrderBy
	listArgs := compiled.Args
	if compiled.Limit > 0 {
		listSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(listArgs)+1, len(listArgs)+2)
		listArgs = append(append([]interface{}{}, listArgs...), compiled.Limit, compiled.Offset)
	}

	var (
		suppliers []domain.Supplier
		total     int
	)
	g, gctx := errgroup.WithContext(ctxTimeout)
	g.Go(func() error {
		return r.DB.GetContext(gctx, &total, `SELECT COUNT(*) FROM fornecedores `+compiled.Where, compiled.Args...)
	})
	g.Go(func() error {
		return r.DB.SelectContext(gctx, &suppliers, listSQL, listArgs...)
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("Falha ao listar fornecedores no DB.", err)
		return nil, 0, apperror.NewDBError("Falha ao listar fornecedores", err)
	}

	if suppliers == nil {
		suppliers = []domain.Supplier{}
	}
	return suppliers, total, nil
}

// Update grava todos os campos editáveis do fornecedor.
func (r *SupplierRepository) Update(ctx context.Context, s domain.Supplier) (domain.Supplier, error) {
	r.logger.Debug("Iniciando Update de fornecedor no repositório.", map[string]interface{}{"id": s.ID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	q := `
        UPDATE fornecedores
        SET name = $1, contact = $2, tax_id = $3, phone = $4, email = $5, updated_at = $6
        WHERE id = $7
        RETURNING ` + columns

	var updated domain.Supplier
	err := database.Conn(ctx, r.DB).QueryRowxContext(ctxTimeout, q,
		s.Name, s.Contact, s.TaxID, s.Phone, s.Email, s.UpdatedAt, s.ID,
	).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Supplier{}, apperror.NewNotFoundError(fmt.Sprintf("Fornecedor com ID %d não encontrado para atualização.", s.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar fornecedor no DB.", err)
		return domain.Supplier{}, database.MapError("Falha ao atualizar fornecedor", err, constraints)
	}

	r.logger.Info("Fornecedor atualizado com sucesso.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// Delete remove um fornecedor pelo ID.
func (r *SupplierRepository) Delete(ctx context.Context, id int64) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := database.Conn(ctx, r.DB).ExecContext(ctxTimeout, `DELETE FROM fornecedores WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao deletar fornecedor do DB.", err)
		return apperror.NewDBError("Falha ao deletar fornecedor", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Fornecedor com ID %d não encontrado para exclusão.", id))
	}

	r.logger.Info("Fornecedor deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// NameTaken informa se outro fornecedor (id diferente de excludingID) já usa o nome, ignorando maiúsculas.
func (r *SupplierRepository) NameTaken(ctx context.Context, name string, excludingID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM fornecedores WHERE lower(name) = lower($1) AND id <> $2)`, name, excludingID)
}

// TaxIDTaken informa se outro fornecedor já usa o CNPJ.
func (r *SupplierRepository) TaxIDTaken(ctx context.Context, taxID string, excludingID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM fornecedores WHERE tax_id = $1 AND id <> $2)`, taxID, excludingID)
}

// Exists informa se o fornecedor existe.
func (r *SupplierRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM fornecedores WHERE id = $1)`, id)
}

func (r *SupplierRepository) exists(ctx context.Context, q string, args ...interface{}) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var found bool
	if err := database.Conn(ctx, r.DB).GetContext(ctxTimeout, &found, q, args...); err != nil {
		r.logger.Error("Falha na verificação de existência de fornecedor.", err)
		return false, apperror.NewDBError("Falha ao verificar fornecedor", err)
	}
	return found, nil
}
