package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// OrgContext resuelve la organización efectiva y el acceso a partir del token y de las membresías.
type OrgContext struct {
	members repository.OrgMembershipRepository
}

// NewOrgContext construye el resolvedor. members puede ser nil: sólo la organización del token es accesible.
func NewOrgContext(members repository.OrgMembershipRepository) *OrgContext {
	return &OrgContext{members: members}
}

// HasAccess: la organización del token siempre; otras sólo con membresía explícita.
func (o *OrgContext) HasAccess(ctx context.Context, caller Caller, orgID string) (bool, error) {
	if orgID == "" {
		return false, nil
	}
	if caller.OrganizationID == orgID {
		return true, nil
	}
	if o.members == nil || caller.UserID == "" {
		return false, nil
	}
	ok, err := o.members.IsMember(ctx, caller.UserID, orgID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// EffectiveOrganization: la pedida (si hay acceso), si no la del token.
func (o *OrgContext) EffectiveOrganization(ctx context.Context, caller Caller, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		ok, err := o.HasAccess(ctx, caller, requested)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", domain.ErrOrgForbidden
		}
		return requested, nil
	}
	if caller.OrganizationID == "" {
		return "", domain.ErrOrgContextUnresolved
	}
	return caller.OrganizationID, nil
}

var (
	_ OrgAccess            = (*OrgContext)(nil)
	_ OrganizationResolver = (*OrgContext)(nil)
)
