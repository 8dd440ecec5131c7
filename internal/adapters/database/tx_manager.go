package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog/log"

	"github.com/adcatlas/curation-backend/internal/domain/repositories"
	"github.com/adcatlas/curation-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/adcatlas/curation-backend/pkg/errors"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool
func conn(ctx context.Context, db *sql.DB) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// newDialect returns the goqu postgres dialect bound to the client's pool.
// Datasets built from it are executed through conn so they can join a transaction.
func newDialect(client *postgres.Client) *goqu.Database {
	return goqu.New("postgres", client.DB())
}

// TxManager implements repositories.TxManager over database/sql transactions
type TxManager struct {
	client *postgres.Client
}

// NewTxManager creates a new transaction manager
func NewTxManager(client *postgres.Client) repositories.TxManager {
	return &TxManager{client: client}
}

// WithinTx runs fn in a transaction; nested calls join the outer one
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin transaction", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			log.Warn().Err(rbErr).Msg("Transaction rollback failed")
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit transaction", err)
	}
	committed = true
	return nil
}

// jsonColumn stores any Go value in a JSONB column
type jsonColumn[T any] struct {
	v *T
}

func jsonb[T any](v *T) jsonColumn[T] { return jsonColumn[T]{v: v} }

// Value implements driver.Valuer
func (j jsonColumn[T]) Value() (driver.Value, error) {
	data, err := json.Marshal(j.v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (j jsonColumn[T]) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		var zero T
		*j.v = zero
		return nil
	case []byte:
		return json.Unmarshal(s, j.v)
	case string:
		return json.Unmarshal([]byte(s), j.v)
	default:
		return fmt.Errorf("cannot scan %T into jsonb column", src)
	}
}

func pageBounds(limit, offset int) (uint, uint) {
	var l, o uint
	if limit > 0 {
		l = uint(limit)
	}
	if offset > 0 {
		o = uint(offset)
	}
	return l, o
}
