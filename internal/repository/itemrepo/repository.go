package itemrepo

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

const itemColumns = `id, sku, name, description, quantity, location, unit_of_measure, category, unit_price, supplier_id, created_at, updated_at`

// selectJoined lê o item com o fornecedor aninhado (LEFT JOIN, pois a referência pode ser nula).
const selectJoined = `
        SELECT i.id, i.sku, i.name, i.description, i.quantity, i.location, i.unit_of_measure,
               i.category, i.unit_price, i.supplier_id, i.created_at, i.updated_at,
               s.id AS "supplier.id", s.name AS "supplier.name", s.contact AS "supplier.contact",
               s.tax_id AS "supplier.tax_id", s.phone AS "supplier.phone", s.email AS "supplier.email",
               s.created_at AS "supplier.created_at", s.updated_at AS "supplier.updated_at"
        FROM itens i
        LEFT JOIN fornecedores s ON s.id = i.supplier_id`

const fromJoined = ` FROM itens i LEFT JOIN fornecedores s ON s.id = i.supplier_id `

// supplierColumns recebe as colunas do LEFT JOIN, todas anuláveis.
type supplierColumns struct {
	ID        sql.NullInt64  `db:"id"`
	Name      sql.NullString `db:"name"`
	Contact   sql.NullString `db:"contact"`
	TaxID     sql.NullString `db:"tax_id"`
	Phone     sql.NullString `db:"phone"`
	Email     sql.NullString `db:"email"`
	CreatedAt sql.NullTime   `db:"created_at"`
	UpdatedAt sql.NullTime   `db:"updated_at"`
}

type itemRow struct {
	domain.Item
	Joined supplierColumns `db:"supplier"`
}

func (row itemRow) toDomain() domain.Item {
	it := row.Item
	it.Supplier = nil
	if row.Joined.ID.Valid {
		s := &domain.Supplier{
			ID:        row.Joined.ID.Int64,
			Name:      row.Joined.Name.String,
			Contact:   row.Joined.Contact.String,
			Phone:     row.Joined.Phone.String,
			Email:     row.Joined.Email.String,
			CreatedAt: row.Joined.CreatedAt.Time,
			UpdatedAt: row.Joined.UpdatedAt.Time,
		}
		if row.Joined.TaxID.Valid {
			taxID := row.Joined.TaxID.String
			s.TaxID = &taxID
		}
		it.Supplier = s
	}
	return it
}

// constraintsFor monta o mapa de constraints; a mensagem de FK cita o id enviado.
func constraintsFor(it domain.Item) database.Constraints {
	c := database.Constraints{
		"itens_sku_key": {Field: "sku", Message: validation.MsgItemSKUTaken},
	}
	if it.SupplierID != nil {
		c["itens_supplier_id_fkey"] = database.Constraint{Field: "supplier", Message: validation.MsgInvalidPK(*it.SupplierID)}
	}
	return c
}

// ItemRepository implementa as operações de persistência de itens.
type ItemRepository struct {
	DB        *sqlx.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewItemRepository cria e retorna uma nova instância do Repositório de Itens.
func NewItemRepository(db *sqlx.DB, dbTimeout time.Duration, logger logger.Logger) *ItemRepository {
	return &ItemRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Create insere um novo item e devolve as colunas gravadas (sem o fornecedor aninhado).
func (r *ItemRepository) Create(ctx context.Context, it domain.Item) (domain.Item, error) {
	r.logger.Debug("Iniciando Create de item no repositório.", map[string]interface{}{"sku": it.SKU})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	q := `
        INSERT INTO itens (sku, name, description, quantity, location, unit_of_measure, category,
                           unit_price, supplier_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING ` + itemColumns

	var created domain.Item
	err := database.Conn(ctx, r.DB).QueryRowxContext(ctxTimeout, q,
		it.SKU, it.Name, it.Description, it.Quantity, it.Location, it.UnitOfMeasure, it.Category,
		it.UnitPrice, it.SupplierID, it.CreatedAt, it.UpdatedAt,
	).StructScan(&created)
	if err != nil {
		r.logger.Error("Falha ao inserir item no DB.", err)
		return domain.Item{}, database.MapError("Falha ao criar item", err, constraintsFor(it))
	}

	r.logger.Info("Item criado com sucesso.", map[string]interface{}{"id": created.ID, "sku": created.SKU})
	return created, nil
}

// FindByID busca um item pelo ID, com o fornecedor aninhado.
func (r *ItemRepository) FindByID(ctx context.Context, id int64) (domain.Item, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var row itemRow
	err := database.Conn(ctx, r.DB).GetContext(ctxTimeout, &row, selectJoined+` WHERE i.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, apperror.NewNotFoundError(fmt.Sprintf("Item com ID %d não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar item no DB.", err)
		return domain.Item{}, apperror.NewDBError("Falha ao buscar item", err)
	}
	return row.toDomain(), nil
}

// List devolve a página pedida e o total de itens que atendem à consulta.
// As duas consultas rodam em paralelo no pool, fora de transação.
func (r *ItemRepository) List(ctx context.Context, spec query.Spec) ([]domain.Item, int, error) {
	r.logger.Debug("Iniciando List de itens no repositório.", map[string]interface{}{"search": spec.Search})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	compiled := query.ItemSchema.Compile(spec)
	listSQL := selectJoined + ` ` + compiled.Where + ` ` + compiled.OrderBy
	listArgs := compiled.Args
	if compiled.Limit > 0 {
		listSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(listArgs)+1, len(listArgs)+2)
		listArgs = append(append([]interface{}{}, listArgs...), compiled.Limit, compiled.Offset)
	}

	var (
		rows  []itemRow
		total int
	)
	g, gctx := errgroup.WithContext(ctxTimeout)
	g.Go(func() error {
		return r.DB.GetContext(gctx, &total, `SELECT COUNT(*)`+fromJoined+compiled.Where, compiled.Args...)
	})
	g.Go(func() error {
		return r.DB.SelectContext(gctx, &rows, listSQL, listArgs...)
	})
	if err := g.Wait(); err != nil {
		r.logger.Error("Falha ao listar itens no DB.", err)
		return nil, 0, apperror.NewDBError("Falha ao listar itens", err)
	}

	items := make([]domain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items, total, nil
}

// Update grava todos os campos editáveis do item.
func (r *ItemRepository) Update(ctx context.Context, it domain.Item) (domain.Item, error) {
	r.logger.Debug("Iniciando Update de item no repositório.", map[string]interface{}{"id": it.ID})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	q := `
        UPDATE itens
        SET sku = $1, name = $2, description = $3, quantity = $4, location = $5,
            unit_of_measure = $6, category = $7, unit_price = $8, supplier_id = $9, updated_at = $10
        WHERE id = $11
        RETURNING ` + itemColumns

	var updated domain.Item
	err := database.Conn(ctx, r.DB).QueryRowxContext(ctxTimeout, q,
		it.SKU, it.Name, it.Description, it.Quantity, it.Location, it.UnitOfMeasure, it.Category,
		it.UnitPrice, it.SupplierID, it.UpdatedAt, it.ID,
	).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, apperror.NewNotFoundError(fmt.Sprintf("Item com ID %d não encontrado para atualização.", it.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar item no DB.", err)
		return domain.Item{}, database.MapError("Falha ao atualizar item", err, constraintsFor(it))
	}

	r.logger.Info("Item atualizado com sucesso.", map[string]interface{}{"id": updated.ID})
	return updated, nil
}

// Delete remove um item pelo ID.
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := database.Conn(ctx, r.DB).ExecContext(ctxTimeout, `DELETE FROM itens WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao deletar item do DB.", err)
		return apperror.NewDBError("Falha ao deletar item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperror.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Item com ID %d não encontrado para exclusão.", id))
	}

	r.logger.Info("Item deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// DeleteBySupplier remove os itens do fornecedor (modo cascade).
func (r *ItemRepository) DeleteBySupplier(ctx context.Context, supplierID int64) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := database.Conn(ctx, r.DB).ExecContext(ctxTimeout, `DELETE FROM itens WHERE supplier_id = $1`, supplierID)
	if err != nil {
		r.logger.Error("Falha ao remover itens do fornecedor.", err)
		return 0, apperror.NewDBError("Falha ao remover itens do fornecedor", err)
	}
	return result.RowsAffected()
}

// ClearSupplier limpa a referência ao fornecedor nos seus itens (modo nullify).
func (r *ItemRepository) ClearSupplier(ctx context.Context, supplierID int64, at time.Time) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	result, err := database.Conn(ctx, r.DB).ExecContext(ctxTimeout,
		`UPDATE itens SET supplier_id = NULL, updated_at = $1 WHERE supplier_id = $2`, at, supplierID)
	if err != nil {
		r.logger.Error("Falha ao desvincular itens do fornecedor.", err)
		return 0, apperror.NewDBError("Falha ao desvincular itens do fornecedor", err)
	}
	return result.RowsAffected()
}

// SKUTaken informa se outro item (id diferente de excludingID) já usa o SKU.
func (r *ItemRepository) SKUTaken(ctx context.Context, sku string, excludingID int64) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var taken bool
	err := database.Conn(ctx, r.DB).GetContext(ctxTimeout, &taken,
		`SELECT EXISTS(SELECT 1 FROM itens WHERE sku = $1 AND id <> $2)`, sku, excludingID)
	if err != nil {
		r.logger.Error("Falha na verificação de SKU.", err)
		return false, apperror.NewDBError("Falha ao verificar SKU", err)
	}
	return taken, nil
}
