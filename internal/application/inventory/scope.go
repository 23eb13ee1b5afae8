package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// validateScope comprueba que unidad, producto y lote (si viene) pertenezcan a la organización.
// Orden de error: unidad, producto, lote.
func validateScope(ctx context.Context, scope repository.ScopeRepository, key entity.StockKey) error {
	ok, err := scope.UnitBelongsTo(ctx, key.UnitID, key.OrganizationID)
	if err != nil {
		return fmt.Errorf("check unit scope: %w", err)
	}
	if !ok {
		return domain.ErrUnitNotFound
	}
	ok, err = scope.ProductBelongsTo(ctx, key.ProductID, key.OrganizationID)
	if err != nil {
		return fmt.Errorf("check product scope: %w", err)
	}
	if !ok {
		return domain.ErrProductNotFound
	}
	if key.LotID == nil {
		return nil
	}
	ok, err = scope.LotBelongsTo(ctx, *key.LotID, key.ProductID, key.OrganizationID)
	if err != nil {
		return fmt.Errorf("check lot scope: %w", err)
	}
	if !ok {
		return domain.ErrLotNotFound
	}
	return nil
}

// requireKeyFields valida identificadores obligatorios antes de abrir transacción.
func requireKeyFields(unitID, productID string) error {
	if unitID == "" {
		return domain.InvalidField("unit_id", "es obligatorio")
	}
	if productID == "" {
		return domain.InvalidField("product_id", "es obligatorio")
	}
	return nil
}

// Cantidades: NUMERIC(18,4) en la base.
const QuantityScale = 4

var maxQuantity = decimal.New(1, 14)

const (
	DefaultReservationTTLMinutes = 15
	MaxReservationTTLMinutes     = 525600 // un año
)

// validateQuantity rechaza más de cuatro decimales y magnitudes fuera de la columna.
// positive exige > 0; si no, >= 0.
func validateQuantity(field string, q decimal.Decimal, positive bool) error {
	switch {
	case positive && !q.IsPositive():
		return domain.InvalidField(field, "debe ser mayor que cero")
	case !positive && q.IsNegative():
		return domain.InvalidField(field, "no puede ser negativo")
	case !q.Equal(q.Truncate(QuantityScale)):
		return domain.InvalidField(field, fmt.Sprintf("admite como máximo %d decimales", QuantityScale))
	case q.Abs().GreaterThanOrEqual(maxQuantity):
		return domain.InvalidField(field, "excede el máximo permitido")
	}
	return nil
}

// reservationTTL 0 = DefaultReservationTTLMinutes.
func reservationTTL(minutes int) (int, error) {
	if minutes == 0 {
		return DefaultReservationTTLMinutes, nil
	}
	if minutes < 0 || minutes > MaxReservationTTLMinutes {
		return 0, domain.InvalidField("ttl_minutes", fmt.Sprintf("debe estar entre 1 y %d", MaxReservationTTLMinutes))
	}
	return minutes, nil
}
