package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockKey identifica una línea de stock: organización + unidad + producto + lote opcional.
// LotID nil es un valor legítimo y distinto de cualquier lote concreto.
type StockKey struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          *string
}

// SameLot compara lotes tratando nil como "sin lote".
func SameLot(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Matches indica si otra clave apunta a la misma línea.
func (k StockKey) Matches(o StockKey) bool {
	return k.OrganizationID == o.OrganizationID &&
		k.UnitID == o.UnitID &&
		k.ProductID == o.ProductID &&
		SameLot(k.LotID, o.LotID)
}

func (k StockKey) String() string {
	lot := "-"
	if k.LotID != nil {
		lot = *k.LotID
	}
	return strings.Join([]string{k.OrganizationID, k.UnitID, k.ProductID, lot}, "/")
}

// StockLine saldo de un producto (y lote) en una unidad organizacional.
// Invariantes: Available >= 0, Reserved >= 0; Reserved == suma de reservas ATIVA de la línea.
type StockLine struct {
	ID             string
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          *string
	Available      decimal.Decimal
	Reserved       decimal.Decimal
	UpdatedAt      time.Time
}

// Key devuelve la clave de la línea.
func (s *StockLine) Key() StockKey {
	return StockKey{OrganizationID: s.OrganizationID, UnitID: s.UnitID, ProductID: s.ProductID, LotID: s.LotID}
}

// Net disponible neto (available - reserved).
func (s *StockLine) Net() decimal.Decimal {
	return s.Available.Sub(s.Reserved)
}
