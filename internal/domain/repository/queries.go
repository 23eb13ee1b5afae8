package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filtros de lectura. Un string vacío significa "sin filtro".

type BalanceFilter struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	ProductCode    string
	Limit          int // 0 = sin límite
}

type ActiveReservationFilter struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	Status         string
	Now            time.Time
	Limit          int
}

// ReservationHistoryFilter el rango de fechas aplica sobre expires_at.
type ReservationHistoryFilter struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          string
	Status         string
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

type MovementHistoryFilter struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          string
	Kind           string
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

type DueFilter struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          string
	Now            time.Time
	Limit          int
}

// BalanceRow saldo de una línea con etiquetas de unidad, producto y lote.
type BalanceRow struct {
	StockLineID    string          `json:"stock_id"`
	OrganizationID string          `json:"organization_id"`
	UnitID         string          `json:"unit_id"`
	UnitCode       string          `json:"unit_code"`
	UnitName       string          `json:"unit_name"`
	ProductID      string          `json:"product_id"`
	ProductCode    string          `json:"product_code"`
	ProductName    string          `json:"product_name"`
	LotID          *string         `json:"lot_id"`
	LotNumber      *string         `json:"lot_number"`
	Available      decimal.Decimal `json:"available"`
	Reserved       decimal.Decimal `json:"reserved"`
	Net            decimal.Decimal `json:"net"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ReservationRow reserva con etiquetas para consultas y exportaciones.
type ReservationRow struct {
	ID                string          `json:"id"`
	OrganizationID    string          `json:"organization_id"`
	UnitID            string          `json:"unit_id"`
	UnitCode          string          `json:"unit_code"`
	UnitName          string          `json:"unit_name"`
	ProductID         string          `json:"product_id"`
	ProductCode       string          `json:"product_code"`
	ProductName       string          `json:"product_name"`
	LotID             *string         `json:"lot_id"`
	LotNumber         *string         `json:"lot_number"`
	Quantity          decimal.Decimal `json:"quantity"`
	Status            string          `json:"status"`
	ExpiresAt         time.Time       `json:"expires_at"`
	CreatedAt         time.Time       `json:"created_at"`
	ReferenceDocument *string         `json:"reference_document"`
}

// MovementRow movimiento con etiquetas.
type MovementRow struct {
	ID                string          `json:"id"`
	OrganizationID    string          `json:"organization_id"`
	UnitID            string          `json:"unit_id"`
	UnitCode          string          `json:"unit_code"`
	UnitName          string          `json:"unit_name"`
	ProductID         string          `json:"product_id"`
	ProductCode       string          `json:"product_code"`
	ProductName       string          `json:"product_name"`
	LotID             *string         `json:"lot_id"`
	LotNumber         *string         `json:"lot_number"`
	Kind              string          `json:"kind"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReferenceDocument *string         `json:"reference_document"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// DriftRow línea cuyo reservado no cuadra con sus reservas activas.
type DriftRow struct {
	StockLineID    string          `json:"stock_id"`
	OrganizationID string          `json:"organization_id"`
	UnitID         string          `json:"unit_id"`
	ProductID      string          `json:"product_id"`
	LotID          *string         `json:"lot_id"`
	Reserved       decimal.Decimal `json:"reserved"`
	ActiveSum      decimal.Decimal `json:"active_sum"`
}
