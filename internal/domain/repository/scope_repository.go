package repository

import "context"

// ScopeRepository verifica que unidades, productos y lotes pertenezcan a una organización.
type ScopeRepository interface {
	UnitBelongsTo(ctx context.Context, unitID, orgID string) (bool, error)
	ProductBelongsTo(ctx context.Context, productID, orgID string) (bool, error)
	LotBelongsTo(ctx context.Context, lotID, productID, orgID string) (bool, error)
}

// OrgMembershipRepository relación usuario-organización para accesos fuera de la organización del token.
type OrgMembershipRepository interface {
	IsMember(ctx context.Context, userID, orgID string) (bool, error)
}
