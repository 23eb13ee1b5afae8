package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// StockRepository define el puerto para leer y actualizar líneas de stock.
// Los métodos *ForUpdate sólo tienen sentido dentro de una transacción.
type StockRepository interface {
	// GetForUpdate bloquea la línea (SELECT ... FOR UPDATE). Devuelve nil, nil si no existe.
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLine, error)
	// Create inserta una línea nueva. Devuelve domain.ErrDuplicate si otra transacción la creó antes.
	Create(ctx context.Context, line *entity.StockLine) error
	SetAvailable(ctx context.Context, lineID string, available decimal.Decimal) error
	SetReserved(ctx context.Context, lineID string, reserved decimal.Decimal) error

	ListBalances(ctx context.Context, f BalanceFilter) ([]BalanceRow, error)
	// ReservedDrift líneas cuyo reservado difiere de la suma de sus reservas ATIVA. orgID vacío = todas.
	ReservedDrift(ctx context.Context, orgID string) ([]DriftRow, error)
}
