package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la reserva. Sólo ATIVA admite transición; el resto es terminal.
const (
	ReservationActive    = "ATIVA"
	ReservationConfirmed = "CONFIRMADA"
	ReservationCanceled  = "CANCELADA"
	ReservationExpired   = "EXPIRADA"
)

// ValidReservationStatus indica si el estado existe.
func ValidReservationStatus(status string) bool {
	switch status {
	case ReservationActive, ReservationConfirmed, ReservationCanceled, ReservationExpired:
		return true
	}
	return false
}

// Reservation retención temporal de cantidad sobre una línea de stock.
type Reservation struct {
	ID                string
	OrganizationID    string
	UnitID            string
	ProductID         string
	LotID             *string
	Quantity          decimal.Decimal
	ExpiresAt         time.Time
	Status            string
	ReferenceDocument *string
	CreatedAt         time.Time
}

// Key línea de stock sobre la que pesa la reserva.
func (r *Reservation) Key() StockKey {
	return StockKey{OrganizationID: r.OrganizationID, UnitID: r.UnitID, ProductID: r.ProductID, LotID: r.LotID}
}

// IsActive true si la reserva sigue en ATIVA.
func (r *Reservation) IsActive() bool { return r.Status == ReservationActive }

// DueAt true si el vencimiento ya pasó respecto a now.
func (r *Reservation) DueAt(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}
