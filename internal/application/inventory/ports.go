package inventory

import (
	"context"

	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// Repos agrupa los repositorios del motor de inventario. Dentro de TxRunner.Run
// están atados a la transacción; fuera de ella se usan sólo para lecturas.
type Repos struct {
	Scope        repository.ScopeRepository
	Stock        repository.StockRepository
	Movements    repository.MovementRepository
	Reservations repository.ReservationRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace rollback y ningún efecto queda visible.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
}

// Caller identidad autenticada que invoca una operación.
type Caller struct {
	UserID         string
	OrganizationID string
	Role           string
}

// OrgAccess decide si el llamador puede operar sobre una organización.
type OrgAccess interface {
	HasAccess(ctx context.Context, caller Caller, orgID string) (bool, error)
}

// OrganizationResolver determina la organización efectiva de una operación.
type OrganizationResolver interface {
	EffectiveOrganization(ctx context.Context, caller Caller, requested string) (string, error)
}
