package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// CreateReservationInput entrada para reservar cantidad sobre una línea existente.
type CreateReservationInput struct {
	OrganizationID    string
	UnitID            string
	ProductID         string
	LotID             *string
	Quantity          decimal.Decimal
	TTLMinutes        int // 0 = DefaultReservationTTLMinutes
	ReferenceDocument string
}

// ReservationResult estado de la reserva y de la línea tras la operación.
type ReservationResult struct {
	ReservationID     string          `json:"reservation_id"`
	OrganizationID    string          `json:"organization_id"`
	StockLineID       string          `json:"stock_id"`
	UnitID            string          `json:"unit_id"`
	ProductID         string          `json:"product_id"`
	LotID             *string         `json:"lot_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	Status            string          `json:"status"`
	ExpiresAt         time.Time       `json:"expires_at"`
	Available         decimal.Decimal `json:"available"`
	Reserved          decimal.Decimal `json:"reserved"`
	Net               decimal.Decimal `json:"net"`
	ReferenceDocument *string         `json:"reference_document"`
	ExpiredOnLine     int             `json:"expired_on_line,omitempty"`
}

// CreateReservation reserva cantidad si el neto alcanza, tras expirar las vencidas de la línea.
func (s *Service) CreateReservation(ctx context.Context, caller Caller, in CreateReservationInput) (res *ReservationResult, err error) {
	ctx, span := s.startSpan(ctx, "CreateReservation")
	defer func() { s.finish(span, "reserve", err) }()

	if err := requireKeyFields(in.UnitID, in.ProductID); err != nil {
		return nil, err
	}
	if err := validateQuantity("quantity", in.Quantity, true); err != nil {
		return nil, err
	}
	ttl, err := reservationTTL(in.TTLMinutes)
	if err != nil {
		return nil, err
	}
	orgID, err := s.resolveOrg(ctx, caller, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	key := entity.StockKey{OrganizationID: orgID, UnitID: in.UnitID, ProductID: in.ProductID, LotID: normalizeLot(in.LotID)}

	var expired int
	err = s.tx.Run(ctx, func(repos Repos) error {
		if err := validateScope(ctx, repos.Scope, key); err != nil {
			return err
		}
		line, err := repos.Stock.GetForUpdate(ctx, key)
		if err != nil {
			return fmt.Errorf("get stock for update: %w", err)
		}
		if line == nil {
			return domain.ErrStockNotFound
		}
		if expired, err = s.expireDueOnLine(ctx, repos, line); err != nil {
			return err
		}
		if expired > 0 {
			if line, err = repos.Stock.GetForUpdate(ctx, key); err != nil {
				return fmt.Errorf("reload stock: %w", err)
			}
			if line == nil {
				return domain.ErrStockNotFound
			}
		}
		if line.Net().LessThan(in.Quantity) {
			return domain.ErrInsufficientStock
		}

		reserved := line.Reserved.Add(in.Quantity)
		if err := repos.Stock.SetReserved(ctx, line.ID, reserved); err != nil {
			return fmt.Errorf("update reserved: %w", err)
		}
		line.Reserved = reserved

		now := s.now()
		r := &entity.Reservation{
			ID:                uuid.New().String(),
			OrganizationID:    orgID,
			UnitID:            key.UnitID,
			ProductID:         key.ProductID,
			LotID:             key.LotID,
			Quantity:          in.Quantity,
			ExpiresAt:         now.Add(time.Duration(ttl) * time.Minute),
			Status:            entity.ReservationActive,
			ReferenceDocument: optionalRef(in.ReferenceDocument),
			CreatedAt:         now,
		}
		if err := repos.Reservations.Create(ctx, r); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		res = reservationResult(r, line)
		res.ExpiredOnLine = expired
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.transition(entity.ReservationExpired, expired)
	s.metrics.transition(entity.ReservationActive, 1)
	return res, nil
}

// ConfirmReservation consume la reserva: baja reservado y disponible y emite un SAIDA "RESERVA:{id}".
func (s *Service) ConfirmReservation(ctx context.Context, caller Caller, id string) (*ReservationResult, error) {
	return s.settleReservation(ctx, caller, id, entity.ReservationConfirmed)
}

// CancelReservation libera la cantidad reservada sin tocar el disponible.
func (s *Service) CancelReservation(ctx context.Context, caller Caller, id string) (*ReservationResult, error) {
	return s.settleReservation(ctx, caller, id, entity.ReservationCanceled)
}

// settleReservation lleva una reserva ATIVA a CONFIRMADA o CANCELADA.
// Si ya venció, la expira y confirma esa transición antes de devolver RESERVATION_EXPIRED.
func (s *Service) settleReservation(ctx context.Context, caller Caller, id, target string) (res *ReservationResult, err error) {
	op := strings.ToLower(target)
	ctx, span := s.startSpan(ctx, "SettleReservation",
		attribute.String("reservation.id", id), attribute.String("reservation.target", target))
	defer func() { s.finish(span, op, err) }()

	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.InvalidField("id", "identificador de reserva inválido")
	}

	expired := false
	err = s.tx.Run(ctx, func(repos Repos) error {
		r, err := repos.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("get reservation for update: %w", err)
		}
		if r == nil {
			return domain.ErrReservationNotFound
		}
		ok, err := s.access.HasAccess(ctx, caller, r.OrganizationID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrOrgForbidden
		}
		if !r.IsActive() {
			return domain.ErrReservationNotActive
		}
		line, err := repos.Stock.GetForUpdate(ctx, r.Key())
		if err != nil {
			return fmt.Errorf("get stock for update: %w", err)
		}
		if line == nil {
			return domain.ErrStockNotFound
		}

		if r.DueAt(s.now()) {
			expired = true
			return s.releaseReservations(ctx, repos, line, []*entity.Reservation{r}, entity.ReservationExpired)
		}

		if target == entity.ReservationConfirmed {
			if line.Net().IsNegative() {
				return domain.ErrInconsistentStock
			}
			available := line.Available.Sub(r.Quantity)
			if available.IsNegative() {
				return domain.ErrInsufficientStock
			}
			if err := s.releaseReservations(ctx, repos, line, []*entity.Reservation{r}, target); err != nil {
				return err
			}
			if err := repos.Stock.SetAvailable(ctx, line.ID, available); err != nil {
				return fmt.Errorf("update available: %w", err)
			}
			line.Available = available
			ref := entity.ReservationReference(r.ID)
			mov := &entity.MovementEvent{
				ID:                uuid.New().String(),
				OrganizationID:    r.OrganizationID,
				UnitID:            r.UnitID,
				ProductID:         r.ProductID,
				LotID:             r.LotID,
				Kind:              entity.MovementSaida,
				Quantity:          r.Quantity,
				ReferenceDocument: &ref,
				OccurredAt:        s.now(),
			}
			if err := repos.Movements.Create(ctx, mov); err != nil {
				return fmt.Errorf("create movement: %w", err)
			}
		} else if err := s.releaseReservations(ctx, repos, line, []*entity.Reservation{r}, target); err != nil {
			return err
		}
		res = reservationResult(r, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.metrics.transition(entity.ReservationExpired, 1)
		return nil, domain.ErrReservationExpired
	}
	s.metrics.transition(target, 1)
	if target == entity.ReservationConfirmed {
		s.metrics.movement(entity.MovementSaida)
	}
	return res, nil
}

func reservationResult(r *entity.Reservation, line *entity.StockLine) *ReservationResult {
	return &ReservationResult{
		ReservationID:     r.ID,
		OrganizationID:    r.OrganizationID,
		StockLineID:       line.ID,
		UnitID:            r.UnitID,
		ProductID:         r.ProductID,
		LotID:             r.LotID,
		Quantity:          r.Quantity,
		Status:            r.Status,
		ExpiresAt:         r.ExpiresAt,
		Available:         line.Available,
		Reserved:          line.Reserved,
		Net:               line.Net(),
		ReferenceDocument: r.ReferenceDocument,
	}
}
