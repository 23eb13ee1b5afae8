package repository

import (
	"context"
	"time"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// ReservationRepository define el puerto de persistencia de reservas.
type ReservationRepository interface {
	Create(ctx context.Context, r *entity.Reservation) error
	// GetForUpdate bloquea la reserva. Devuelve nil, nil si no existe.
	GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error)
	UpdateStatus(ctx context.Context, id, status string) error

	// LockDueByLine bloquea las reservas ATIVA vencidas de una línea, saltando las que otra transacción ya tiene.
	LockDueByLine(ctx context.Context, key entity.StockKey, now time.Time) ([]*entity.Reservation, error)
	// LockDueBatch bloquea hasta f.Limit reservas ATIVA vencidas (FOR UPDATE SKIP LOCKED), por vencimiento e id.
	LockDueBatch(ctx context.Context, f DueFilter) ([]*entity.Reservation, error)
	// OrganizationsWithDue organizaciones con al menos una reserva ATIVA vencida.
	OrganizationsWithDue(ctx context.Context, now time.Time, limit int) ([]string, error)

	GetDetail(ctx context.Context, id string) (*ReservationRow, error)
	ListActive(ctx context.Context, f ActiveReservationFilter) ([]ReservationRow, error)
	ListHistory(ctx context.Context, f ReservationHistoryFilter) ([]ReservationRow, int, error)
}
