package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout 0 = esperar indefinidamente.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Esperas de bloqueo agotadas o deadlocks se devuelven como domain.ErrLockTimeout.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if r.lockTimeout > 0 {
		// SET no admite parámetros; el valor es un entero propio.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	repos := inventory.Repos{
		Scope:        NewScopeRepository(tx),
		Stock:        NewStockRepository(tx),
		Movements:    NewMovementRepository(tx),
		Reservations: NewReservationRepository(tx),
	}
	if err := fn(repos); err != nil {
		return translateLockError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateLockError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// ReadRepos repositorios atados al pool para consultas fuera de transacción.
func ReadRepos(pool *pgxpool.Pool) inventory.Repos {
	return inventory.Repos{
		Scope:        NewScopeRepository(pool),
		Stock:        NewStockRepository(pool),
		Movements:    NewMovementRepository(pool),
		Reservations: NewReservationRepository(pool),
	}
}
