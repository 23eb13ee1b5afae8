package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var (
	_ repository.ScopeRepository         = (*ScopeRepo)(nil)
	_ repository.OrgMembershipRepository = (*MembershipRepo)(nil)
)

// ScopeRepo verifica pertenencia de unidad, producto y lote a la organización.
type ScopeRepo struct {
	q Querier
}

func NewScopeRepository(q Querier) *ScopeRepo {
	return &ScopeRepo{q: q}
}

func (r *ScopeRepo) exists(ctx context.Context, what, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.q.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("check %s: %w", what, err)
	}
	return ok, nil
}

func (r *ScopeRepo) UnitBelongsTo(ctx context.Context, unitID, orgID string) (bool, error) {
	return r.exists(ctx, "unit",
		`SELECT EXISTS (SELECT 1 FROM organizational_units WHERE id = $1 AND organization_id = $2)`,
		unitID, orgID)
}

func (r *ScopeRepo) ProductBelongsTo(ctx context.Context, productID, orgID string) (bool, error) {
	return r.exists(ctx, "product",
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND organization_id = $2)`,
		productID, orgID)
}

func (r *ScopeRepo) LotBelongsTo(ctx context.Context, lotID, productID, orgID string) (bool, error) {
	return r.exists(ctx, "lot",
		`SELECT EXISTS (SELECT 1 FROM lots WHERE id = $1 AND product_id = $2 AND organization_id = $3)`,
		lotID, productID, orgID)
}

// MembershipRepo membresías usuario-organización.
type MembershipRepo struct {
	q Querier
}

func NewMembershipRepository(q Querier) *MembershipRepo {
	return &MembershipRepo{q: q}
}

func (r *MembershipRepo) IsMember(ctx context.Context, userID, orgID string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM organization_members WHERE user_id = $1 AND organization_id = $2)`,
		userID, orgID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}
