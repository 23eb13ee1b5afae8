package repository

import (
	"context"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia para el libro de movimientos (append-only).
type MovementRepository interface {
	Create(ctx context.Context, m *entity.MovementEvent) error
	ListByReference(ctx context.Context, orgID, reference string) ([]*entity.MovementEvent, error)
	// ListHistory devuelve la página pedida y el total de filas que cumplen el filtro.
	ListHistory(ctx context.Context, f MovementHistoryFilter) ([]MovementRow, int, error)
}
