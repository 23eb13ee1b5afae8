package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// releaseReservations descuenta del reservado de la línea la suma de las reservas y las deja en status.
// Es el único camino que reduce el reservado: expiración perezosa, lote, cancelación y confirmación.
// line puede ser nil (la línea desapareció): sólo se cambia el estado.
// El reservado nunca baja de cero; si lo haría, se registra la deriva.
func (s *Service) releaseReservations(ctx context.Context, repos Repos, line *entity.StockLine, items []*entity.Reservation, status string) error {
	if len(items) == 0 {
		return nil
	}
	if line != nil {
		total := decimal.Zero
		for _, r := range items {
			total = total.Add(r.Quantity)
		}
		reserved := line.Reserved.Sub(total)
		if reserved.IsNegative() {
			s.log.Warn().
				Str("stock_id", line.ID).
				Str("reserved", line.Reserved.String()).
				Str("released", total.String()).
				Msg("reservado menor que las reservas liberadas; se fija en cero")
			reserved = decimal.Zero
		}
		if err := repos.Stock.SetReserved(ctx, line.ID, reserved); err != nil {
			return fmt.Errorf("update reserved: %w", err)
		}
		line.Reserved = reserved
	}
	for _, r := range items {
		if err := repos.Reservations.UpdateStatus(ctx, r.ID, status); err != nil {
			return fmt.Errorf("update reservation status: %w", err)
		}
		r.Status = status
	}
	return nil
}

// expireDueOnLine expiración perezosa: libera las reservas vencidas de la línea ya bloqueada.
func (s *Service) expireDueOnLine(ctx context.Context, repos Repos, line *entity.StockLine) (int, error) {
	due, err := repos.Reservations.LockDueByLine(ctx, line.Key(), s.now())
	if err != nil {
		return 0, fmt.Errorf("lock due reservations: %w", err)
	}
	if err := s.releaseReservations(ctx, repos, line, due, entity.ReservationExpired); err != nil {
		return 0, err
	}
	return len(due), nil
}
