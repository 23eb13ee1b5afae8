package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// MovementInput entrada para ENTRADA/SAIDA. OrganizationID es opcional (por defecto la del token).
type MovementInput struct {
	OrganizationID    string
	UnitID            string
	ProductID         string
	LotID             *string
	Quantity          decimal.Decimal
	ReferenceDocument string
}

// AdjustmentInput fija el disponible de una línea existente.
type AdjustmentInput struct {
	OrganizationID    string
	UnitID            string
	ProductID         string
	LotID             *string
	Available         decimal.Decimal
	ReferenceDocument string
}

// MovementResult estado de la línea tras el movimiento.
type MovementResult struct {
	MovementID        string          `json:"movement_id"`
	StockLineID       string          `json:"stock_id"`
	OrganizationID    string          `json:"organization_id"`
	UnitID            string          `json:"unit_id"`
	ProductID         string          `json:"product_id"`
	LotID             *string         `json:"lot_id"`
	Kind              string          `json:"kind"`
	Quantity          decimal.Decimal `json:"quantity"`
	PreviousAvailable decimal.Decimal `json:"previous_available"`
	CurrentAvailable  decimal.Decimal `json:"current_available"`
	Reserved          decimal.Decimal `json:"reserved"`
	ReferenceDocument *string         `json:"reference_document"`
}

// RegisterEntry registra una ENTRADA; crea la línea si no existe.
func (s *Service) RegisterEntry(ctx context.Context, caller Caller, in MovementInput) (*MovementResult, error) {
	return s.registerMovement(ctx, caller, in, entity.MovementEntrada)
}

// RegisterExit registra una SAIDA; nunca deja el disponible por debajo de lo reservado.
func (s *Service) RegisterExit(ctx context.Context, caller Caller, in MovementInput) (*MovementResult, error) {
	return s.registerMovement(ctx, caller, in, entity.MovementSaida)
}

func (s *Service) registerMovement(ctx context.Context, caller Caller, in MovementInput, kind string) (res *MovementResult, err error) {
	op := strings.ToLower(kind)
	ctx, span := s.startSpan(ctx, "RegisterMovement", attribute.String("movement.kind", kind))
	defer func() { s.finish(span, op, err) }()

	if err := requireKeyFields(in.UnitID, in.ProductID); err != nil {
		return nil, err
	}
	if err := validateQuantity("quantity", in.Quantity, true); err != nil {
		return nil, err
	}
	orgID, err := s.resolveOrg(ctx, caller, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	key := entity.StockKey{OrganizationID: orgID, UnitID: in.UnitID, ProductID: in.ProductID, LotID: normalizeLot(in.LotID)}
	now := s.now()

	err = s.tx.Run(ctx, func(repos Repos) error {
		if err := validateScope(ctx, repos.Scope, key); err != nil {
			return err
		}
		line, err := s.lockOrCreateLine(ctx, repos, key, kind)
		if err != nil {
			return err
		}

		previous := line.Available
		var current decimal.Decimal
		switch kind {
		case entity.MovementEntrada:
			current = previous.Add(in.Quantity)
			if current.GreaterThanOrEqual(maxQuantity) {
				return domain.InvalidField("quantity", "el saldo resultante excede el máximo permitido")
			}
		case entity.MovementSaida:
			// doOUT: sólo se puede sacar lo no reservado
			if line.Net().LessThan(in.Quantity) {
				return domain.ErrInsufficientStock
			}
			current = previous.Sub(in.Quantity)
		}
		if err := repos.Stock.SetAvailable(ctx, line.ID, current); err != nil {
			return fmt.Errorf("update available: %w", err)
		}

		mov := &entity.MovementEvent{
			ID:                uuid.New().String(),
			OrganizationID:    orgID,
			UnitID:            key.UnitID,
			ProductID:         key.ProductID,
			LotID:             key.LotID,
			Kind:              kind,
			Quantity:          in.Quantity,
			ReferenceDocument: optionalRef(in.ReferenceDocument),
			OccurredAt:        now,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		res = movementResult(mov, line, previous, current)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.movement(kind)
	return res, nil
}

// lockOrCreateLine bloquea la línea; en ENTRADA la crea con disponible cero si no existe.
// Si otra transacción la creó en paralelo se vuelve a bloquear la ya existente.
func (s *Service) lockOrCreateLine(ctx context.Context, repos Repos, key entity.StockKey, kind string) (*entity.StockLine, error) {
	line, err := repos.Stock.GetForUpdate(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	if line != nil {
		return line, nil
	}
	if kind != entity.MovementEntrada {
		return nil, domain.ErrStockNotFound
	}
	line = &entity.StockLine{
		ID:             uuid.New().String(),
		OrganizationID: key.OrganizationID,
		UnitID:         key.UnitID,
		ProductID:      key.ProductID,
		LotID:          key.LotID,
		Available:      decimal.Zero,
		Reserved:       decimal.Zero,
		UpdatedAt:      s.now(),
	}
	err = repos.Stock.Create(ctx, line)
	if errors.Is(err, domain.ErrDuplicate) {
		line, err = repos.Stock.GetForUpdate(ctx, key)
		if err == nil && line == nil {
			err = domain.ErrStockNotFound
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create stock line: %w", err)
	}
	return line, nil
}

// RegisterAdjustment fija el disponible de una línea existente. El movimiento AJUSTE lleva el delta.
func (s *Service) RegisterAdjustment(ctx context.Context, caller Caller, in AdjustmentInput) (res *MovementResult, err error) {
	ctx, span := s.startSpan(ctx, "RegisterAdjustment")
	defer func() { s.finish(span, "adjustment", err) }()

	if err := requireKeyFields(in.UnitID, in.ProductID); err != nil {
		return nil, err
	}
	if err := validateQuantity("available", in.Available, false); err != nil {
		return nil, err
	}
	orgID, err := s.resolveOrg(ctx, caller, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	key := entity.StockKey{OrganizationID: orgID, UnitID: in.UnitID, ProductID: in.ProductID, LotID: normalizeLot(in.LotID)}
	now := s.now()

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
		if in.Available.LessThan(line.Reserved) {
			return domain.ErrAdjustmentBelowReserved
		}

		previous := line.Available
		delta := in.Available.Sub(previous)
		if err := repos.Stock.SetAvailable(ctx, line.ID, in.Available); err != nil {
			return fmt.Errorf("update available: %w", err)
		}
		ref := optionalRef(in.ReferenceDocument)
		if ref == nil {
			def := entity.DefaultAdjustmentReference
			ref = &def
		}
		mov := &entity.MovementEvent{
			ID:                uuid.New().String(),
			OrganizationID:    orgID,
			UnitID:            key.UnitID,
			ProductID:         key.ProductID,
			LotID:             key.LotID,
			Kind:              entity.MovementAjuste,
			Quantity:          delta,
			ReferenceDocument: ref,
			OccurredAt:        now,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		res = movementResult(mov, line, previous, in.Available)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.movement(entity.MovementAjuste)
	return res, nil
}

func movementResult(mov *entity.MovementEvent, line *entity.StockLine, previous, current decimal.Decimal) *MovementResult {
	return &MovementResult{
		MovementID:        mov.ID,
		StockLineID:       line.ID,
		OrganizationID:    mov.OrganizationID,
		UnitID:            mov.UnitID,
		ProductID:         mov.ProductID,
		LotID:             mov.LotID,
		Kind:              mov.Kind,
		Quantity:          mov.Quantity,
		PreviousAvailable: previous,
		CurrentAvailable:  current,
		Reserved:          line.Reserved,
		ReferenceDocument: mov.ReferenceDocument,
	}
}
