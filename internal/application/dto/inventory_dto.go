package dto

import "github.com/shopspring/decimal"

// MovementRequest cuerpo de ENTRADA y SAIDA.
type MovementRequest struct {
	OrganizationID    string          `json:"organization_id"`
	UnitID            string          `json:"unit_id" validate:"required"`
	ProductID         string          `json:"product_id" validate:"required"`
	LotID             *string         `json:"lot_id"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gt=0"`
	ReferenceDocument string          `json:"reference_document" validate:"max=100"`
}

// AdjustmentRequest fija el disponible de la línea.
type AdjustmentRequest struct {
	OrganizationID    string           `json:"organization_id"`
	UnitID            string           `json:"unit_id" validate:"required"`
	ProductID         string           `json:"product_id" validate:"required"`
	LotID             *string          `json:"lot_id"`
	Available         *decimal.Decimal `json:"available" validate:"required"`
	ReferenceDocument string           `json:"reference_document" validate:"max=100"`
}

// CreateReservationRequest cuerpo de creación de reserva.
type CreateReservationRequest struct {
	OrganizationID    string          `json:"organization_id"`
	UnitID            string          `json:"unit_id" validate:"required"`
	ProductID         string          `json:"product_id" validate:"required"`
	LotID             *string         `json:"lot_id"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gt=0"`
	TTLMinutes        *int            `json:"ttl_minutes" validate:"omitempty,gt=0,max=525600"` // ausente = 15
	ReferenceDocument string          `json:"reference_document" validate:"max=100"`
}

// ExpireReservationsRequest lote de expiración. max_items 0 = 200.
type ExpireReservationsRequest struct {
	OrganizationID string `json:"organization_id"`
	UnitID         string `json:"unit_id"`
	ProductID      string `json:"product_id"`
	LotID          string `json:"lot_id"`
	MaxItems       int    `json:"max_items" validate:"omitempty,min=1,max=1000"`
}
