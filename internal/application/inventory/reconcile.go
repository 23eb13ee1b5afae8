package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// ReconciliationResult líneas cuyo reservado no cuadra con sus reservas ATIVA.
type ReconciliationResult struct {
	OrganizationID string                `json:"organization_id,omitempty"`
	CheckedAt      time.Time             `json:"checked_at"`
	Drift          []repository.DriftRow `json:"drift"`
}

// Reconcile audita la invariante reservado == suma de reservas activas. Sólo informa; no corrige.
func (s *Service) Reconcile(ctx context.Context, caller Caller, requestedOrg string) (*ReconciliationResult, error) {
	orgID, err := s.resolveOrg(ctx, caller, requestedOrg)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, orgID)
}

func (s *Service) reconcile(ctx context.Context, orgID string) (*ReconciliationResult, error) {
	rows, err := s.read.Stock.ReservedDrift(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("reserved drift: %w", err)
	}
	if rows == nil {
		rows = []repository.DriftRow{}
	}
	for _, r := range rows {
		s.log.Warn().
			Str("stock_id", r.StockLineID).
			Str("reserved", r.Reserved.String()).
			Str("active_sum", r.ActiveSum.String()).
			Msg("deriva de reservado detectada")
	}
	if orgID == "" {
		s.metrics.setDrift(len(rows))
	}
	return &ReconciliationResult{OrganizationID: orgID, CheckedAt: s.now(), Drift: rows}, nil
}

// Reconciler ejecuta la auditoría global cada interval.
type Reconciler struct {
	svc      *Service
	interval time.Duration
	log      zerolog.Logger
}

func NewReconciler(svc *Service, interval time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{svc: svc, interval: interval, log: log}
}

// Run interval <= 0 desactiva la auditoría.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			res, err := r.svc.reconcile(ctx, "")
			if err != nil {
				if ctx.Err() == nil {
					r.log.Error().Err(err).Msg("auditoría de reservado fallida")
				}
				continue
			}
			r.log.Debug().Int("drift_lines", len(res.Drift)).Msg("auditoría de reservado completada")
		}
	}
}
