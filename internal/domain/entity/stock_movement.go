package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementEntrada = "ENTRADA"
	MovementSaida   = "SAIDA"
	MovementAjuste  = "AJUSTE"
)

// DefaultAdjustmentReference referencia usada cuando un ajuste llega sin documento.
const DefaultAdjustmentReference = "AJUSTE-MANUAL"

// ValidMovementKind indica si el tipo es uno de los conocidos.
func ValidMovementKind(kind string) bool {
	switch kind {
	case MovementEntrada, MovementSaida, MovementAjuste:
		return true
	}
	return false
}

// ReservationReference documento de referencia del SAIDA generado al confirmar una reserva.
func ReservationReference(reservationID string) string {
	return "RESERVA:" + reservationID
}

// MovementEvent registro inmutable de un cambio de disponible.
// En ENTRADA/SAIDA Quantity es positiva; en AJUSTE es el delta firmado.
type MovementEvent struct {
	ID                string
	OrganizationID    string
	UnitID            string
	ProductID         string
	LotID             *string
	Kind              string
	Quantity          decimal.Decimal
	ReferenceDocument *string
	OccurredAt        time.Time
}
