package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page resultado paginado.
type Page[T any] struct {
	OrganizationID string `json:"organization_id"`
	Page           int    `json:"page"`
	PageSize       int    `json:"page_size"`
	TotalItems     int    `json:"total_items"`
	TotalPages     int    `json:"total_pages"`
	Items          []T    `json:"items"`
}

// BalanceQuery filtros de saldos. Limit 0 = sin límite.
type BalanceQuery struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	ProductCode    string
	Limit          int
}

// BalancesResult saldos de la organización.
type BalancesResult struct {
	OrganizationID string                  `json:"organization_id"`
	Items          []repository.BalanceRow `json:"items"`
}

// ActiveReservationQuery Status vacío = ATIVA.
type ActiveReservationQuery struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	Status         string
	Limit          int
}

// ReservationsResult listado no paginado de reservas.
type ReservationsResult struct {
	OrganizationID string                      `json:"organization_id"`
	Items          []repository.ReservationRow `json:"items"`
}

// HistoryQuery filtros comunes a los históricos de reservas y movimientos.
type HistoryQuery struct {
	OrganizationID string
	UnitID         string
	ProductID      string
	LotID          string
	Status         string // sólo reservas
	Kind           string // sólo movimientos
	DateFrom       *time.Time
	DateTo         *time.Time
	Page           int // 0 = 1
	PageSize       int // 0 = DefaultPageSize
}

// ReservationDetail reserva y movimientos que su ciclo de vida generó.
type ReservationDetail struct {
	Reservation repository.ReservationRow `json:"reservation"`
	Transitions []*entity.MovementEvent   `json:"transitions"`
}

// GetBalances devuelve los saldos con neto calculado, ordenados por unidad, producto y lote.
func (s *Service) GetBalances(ctx context.Context, caller Caller, q BalanceQuery) (*BalancesResult, error) {
	orgID, err := s.resolveOrg(ctx, caller, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	rows, err := s.read.Stock.ListBalances(ctx, repository.BalanceFilter{
		OrganizationID: orgID,
		UnitID:         strings.TrimSpace(q.UnitID),
		ProductID:      strings.TrimSpace(q.ProductID),
		ProductCode:    strings.TrimSpace(q.ProductCode),
		Limit:          q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	for i := range rows {
		rows[i].Net = rows[i].Available.Sub(rows[i].Reserved)
	}
	return &BalancesResult{OrganizationID: orgID, Items: rows}, nil
}

// GetActiveReservations lista reservas con el estado pedido que aún no vencieron.
func (s *Service) GetActiveReservations(ctx context.Context, caller Caller, q ActiveReservationQuery) (*ReservationsResult, error) {
	status, err := normalizeStatus(q.Status, entity.ReservationActive)
	if err != nil {
		return nil, err
	}
	orgID, err := s.resolveOrg(ctx, caller, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	rows, err := s.read.Reservations.ListActive(ctx, repository.ActiveReservationFilter{
		OrganizationID: orgID,
		UnitID:         strings.TrimSpace(q.UnitID),
		ProductID:      strings.TrimSpace(q.ProductID),
		Status:         status,
		Now:            s.now(),
		Limit:          q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return &ReservationsResult{OrganizationID: orgID, Items: rows}, nil
}

// GetReservationHistory histórico paginado, más reciente primero.
func (s *Service) GetReservationHistory(ctx context.Context, caller Caller, q HistoryQuery) (*Page[repository.ReservationRow], error) {
	return s.reservationHistory(ctx, caller, q, MaxPageSize)
}

// ExportReservationHistory igual que el histórico pero con el límite de la exportación como tamaño de página.
func (s *Service) ExportReservationHistory(ctx context.Context, caller Caller, q HistoryQuery, limit int) (*Page[repository.ReservationRow], error) {
	q.Page, q.PageSize = 1, limit
	return s.reservationHistory(ctx, caller, q, limit)
}

func (s *Service) reservationHistory(ctx context.Context, caller Caller, q HistoryQuery, maxSize int) (*Page[repository.ReservationRow], error) {
	if err := normalizePaging(&q, maxSize); err != nil {
		return nil, err
	}
	status, err := normalizeStatus(q.Status, "")
	if err != nil {
		return nil, err
	}
	orgID, err := s.resolveOrg(ctx, caller, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.read.Reservations.ListHistory(ctx, repository.ReservationHistoryFilter{
		OrganizationID: orgID,
		UnitID:         strings.TrimSpace(q.UnitID),
		ProductID:      strings.TrimSpace(q.ProductID),
		LotID:          strings.TrimSpace(q.LotID),
		Status:         status,
		DateFrom:       q.DateFrom,
		DateTo:         q.DateTo,
		Limit:          q.PageSize,
		Offset:         (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list reservation history: %w", err)
	}
	return newPage(orgID, q, total, rows), nil
}

// GetMovementHistory histórico paginado de movimientos.
func (s *Service) GetMovementHistory(ctx context.Context, caller Caller, q HistoryQuery) (*Page[repository.MovementRow], error) {
	return s.movementHistory(ctx, caller, q, MaxPageSize)
}

// ExportMovementHistory ver ExportReservationHistory.
func (s *Service) ExportMovementHistory(ctx context.Context, caller Caller, q HistoryQuery, limit int) (*Page[repository.MovementRow], error) {
	q.Page, q.PageSize = 1, limit
	return s.movementHistory(ctx, caller, q, limit)
}

func (s *Service) movementHistory(ctx context.Context, caller Caller, q HistoryQuery, maxSize int) (*Page[repository.MovementRow], error) {
	if err := normalizePaging(&q, maxSize); err != nil {
		return nil, err
	}
	kind := strings.ToUpper(strings.TrimSpace(q.Kind))
	if kind != "" && !entity.ValidMovementKind(kind) {
		return nil, domain.InvalidField("kind", "debe ser ENTRADA, SAIDA o AJUSTE")
	}
	orgID, err := s.resolveOrg(ctx, caller, q.OrganizationID)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.read.Movements.ListHistory(ctx, repository.MovementHistoryFilter{
		OrganizationID: orgID,
		UnitID:         strings.TrimSpace(q.UnitID),
		ProductID:      strings.TrimSpace(q.ProductID),
		LotID:          strings.TrimSpace(q.LotID),
		Kind:           kind,
		DateFrom:       q.DateFrom,
		DateTo:         q.DateTo,
		Limit:          q.PageSize,
		Offset:         (q.Page - 1) * q.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list movement history: %w", err)
	}
	return newPage(orgID, q, total, rows), nil
}

// GetReservationDetail reserva más los movimientos con referencia "RESERVA:{id}".
func (s *Service) GetReservationDetail(ctx context.Context, caller Caller, id string) (*ReservationDetail, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.InvalidField("id", "identificador de reserva inválido")
	}
	row, err := s.read.Reservations.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation detail: %w", err)
	}
	if row == nil {
		return nil, domain.ErrReservationNotFound
	}
	ok, err := s.access.HasAccess(ctx, caller, row.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrOrgForbidden
	}
	movs, err := s.read.Movements.ListByReference(ctx, row.OrganizationID, entity.ReservationReference(id))
	if err != nil {
		return nil, fmt.Errorf("list reservation movements: %w", err)
	}
	if movs == nil {
		movs = []*entity.MovementEvent{}
	}
	return &ReservationDetail{Reservation: *row, Transitions: movs}, nil
}

func normalizePaging(q *HistoryQuery, maxSize int) error {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 {
		return domain.InvalidField("page", "debe ser mayor o igual a 1")
	}
	if q.PageSize < 1 || q.PageSize > maxSize {
		return domain.InvalidField("page_size", fmt.Sprintf("debe estar entre 1 y %d", maxSize))
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return domain.InvalidField("date_to", "no puede ser anterior a date_from")
	}
	return nil
}

func normalizeStatus(status, def string) (string, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return def, nil
	}
	if !entity.ValidReservationStatus(status) {
		return "", domain.InvalidField("status", "estado de reserva desconocido")
	}
	return status, nil
}

func newPage[T any](orgID string, q HistoryQuery, total int, items []T) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if total > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return &Page[T]{
		OrganizationID: orgID,
		Page:           q.Page,
		PageSize:       q.PageSize,
		TotalItems:     total,
		TotalPages:     pages,
		Items:          items,
	}
}
