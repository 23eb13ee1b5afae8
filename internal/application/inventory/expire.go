package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

const (
	DefaultExpireMaxItems = 200
	MaxExpireMaxItems     = 1000
)

// ExpireInput lote de expiración. MaxItems 0 = DefaultExpireMaxItems.
type ExpireInput struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          string
	MaxItems       int
}

// ExpireResult reservas efectivamente llevadas a EXPIRADA.
type ExpireResult struct {
	OrganizationID string   `json:"organization_id"`
	TotalProcessed int      `json:"total_processed"`
	ReservationIDs []string `json:"reservation_ids"`
}

// ExpireReservations expira en lote las reservas ATIVA vencidas de la organización efectiva.
// Las reservas que otra transacción tiene bloqueadas se saltan y quedan para la siguiente pasada.
func (s *Service) ExpireReservations(ctx context.Context, caller Caller, in ExpireInput) (res *ExpireResult, err error) {
	ctx, span := s.startSpan(ctx, "ExpireReservations")
	defer func() { s.finish(span, "expire", err) }()

	maxItems := in.MaxItems
	if maxItems == 0 {
		maxItems = DefaultExpireMaxItems
	}
	if maxItems < 1 || maxItems > MaxExpireMaxItems {
		return nil, domain.InvalidField("max_items", fmt.Sprintf("debe estar entre 1 y %d", MaxExpireMaxItems))
	}
	orgID, err := s.resolveOrg(ctx, caller, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	return s.expireBatch(ctx, repository.DueFilter{
		OrganizationID: orgID,
		UnitID:         strings.TrimSpace(in.UnitID),
		ProductID:      strings.TrimSpace(in.ProductID),
		LotID:          strings.TrimSpace(in.LotID),
		Limit:          maxItems,
	})
}

// expireBatch agrupa las reservas vencidas por línea y libera cada grupo bajo el bloqueo de su línea.
func (s *Service) expireBatch(ctx context.Context, f repository.DueFilter) (*ExpireResult, error) {
	f.Now = s.now()
	res := &ExpireResult{OrganizationID: f.OrganizationID, ReservationIDs: []string{}}

	err := s.tx.Run(ctx, func(repos Repos) error {
		due, err := repos.Reservations.LockDueBatch(ctx, f)
		if err != nil {
			return fmt.Errorf("lock due reservations: %w", err)
		}
		for _, group := range groupByLine(due) {
			line, err := repos.Stock.GetForUpdate(ctx, group[0].Key())
			if err != nil {
				return fmt.Errorf("get stock for update: %w", err)
			}
			if line == nil {
				s.log.Warn().Str("stock_key", group[0].Key().String()).Msg("reservas vencidas sin línea de stock")
			}
			if err := s.releaseReservations(ctx, repos, line, group, entity.ReservationExpired); err != nil {
				return err
			}
		}
		// conservar el orden de vencimiento en la respuesta
		res.ReservationIDs = res.ReservationIDs[:0]
		for _, r := range due {
			res.ReservationIDs = append(res.ReservationIDs, r.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.TotalProcessed = len(res.ReservationIDs)
	s.metrics.batch(res.TotalProcessed)
	s.metrics.transition(entity.ReservationExpired, res.TotalProcessed)
	if res.TotalProcessed > 0 {
		s.log.Info().Str("organization_id", f.OrganizationID).Int("expired", res.TotalProcessed).Msg("reservas expiradas")
	}
	return res, nil
}

// groupByLine agrupa por línea y ordena los grupos por clave: dos lotes concurrentes
// bloquean las líneas en el mismo orden.
func groupByLine(items []*entity.Reservation) [][]*entity.Reservation {
	var groups [][]*entity.Reservation
	for _, r := range items {
		placed := false
		for i, g := range groups {
			if g[0].Key().Matches(r.Key()) {
				groups[i] = append(g, r)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []*entity.Reservation{r})
		}
	}
	slices.SortFunc(groups, func(a, b []*entity.Reservation) int {
		return strings.Compare(a[0].Key().String(), b[0].Key().String())
	})
	return groups
}

// sweepOrganization usado por el barrido en segundo plano; no pasa por resolución de organización.
func (s *Service) sweepOrganization(ctx context.Context, orgID string, maxItems int) (res *ExpireResult, err error) {
	ctx, span := s.startSpan(ctx, "SweepOrganization", attribute.String("organization.id", orgID))
	defer func() { s.finish(span, "sweep", err) }()
	return s.expireBatch(ctx, repository.DueFilter{OrganizationID: orgID, Limit: maxItems})
}
