package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	apperror "almoxarifado/internal/errors"
)

// Executor é o subconjunto comum a *sqlx.DB e *sqlx.Tx usado pelos repositórios.
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

// Conn devolve a transação presente no contexto ou, na ausência dela, o próprio pool.
func Conn(ctx context.Context, db *sqlx.DB) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// TxManager executa funções dentro de uma transação do banco.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager cria o gerenciador de transações sobre o pool.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx abre uma transação, executa fn com ela no contexto e faz commit se fn não falhar.
// Chamadas aninhadas reaproveitam a transação já aberta.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.NewDBError("Falha ao iniciar transação", err)
	}
	defer func() {
		// Após o commit, o rollback retorna sql.ErrTxDone e é ignorado.
		_ = tx.Rollback()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.NewDBError("Falha ao confirmar transação", err)
	}
	return nil
}
