package repositories

import "context"

// TxManager runs fn inside a transaction carried by ctx. Repository calls made
// with the ctx passed to fn join that transaction; fn returning an error rolls
// everything back. Nested calls join the outer transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
