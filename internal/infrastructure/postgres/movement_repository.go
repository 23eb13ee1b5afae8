package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos (sólo inserciones).
type MovementRepo struct {
	q Querier
}

func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func (r *MovementRepo) Create(ctx context.Context, m *entity.MovementEvent) error {
	query := `
		INSERT INTO stock_movements (id, organization_id, unit_id, product_id, lot_id, kind, quantity, reference_document, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrganizationID, m.UnitID, m.ProductID, m.LotID, m.Kind, m.Quantity, m.ReferenceDocument, m.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListByReference movimientos con el documento dado, en orden cronológico.
func (r *MovementRepo) ListByReference(ctx context.Context, orgID, reference string) ([]*entity.MovementEvent, error) {
	query := `
		SELECT id, organization_id, unit_id, product_id, lot_id, kind, quantity, reference_document, occurred_at
		FROM stock_movements
		WHERE organization_id = $1 AND reference_document = $2
		ORDER BY occurred_at, seq`
	rows, err := r.q.Query(ctx, query, orgID, reference)
	if err != nil {
		return nil, fmt.Errorf("list movements by reference: %w", err)
	}
	defer rows.Close()

	var out []*entity.MovementEvent
	for rows.Next() {
		var m entity.MovementEvent
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.UnitID, &m.ProductID, &m.LotID, &m.Kind, &m.Quantity, &m.ReferenceDocument, &m.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func movementHistoryWhere(f repository.MovementHistoryFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("m.organization_id = $%d", f.OrganizationID)
	w.addIf("m.unit_id = $%d", f.UnitID)
	w.addIf("m.product_id = $%d", f.ProductID)
	w.addIf("m.lot_id = $%d", f.LotID)
	w.addIf("m.kind = $%d", f.Kind)
	if f.DateFrom != nil {
		w.add("m.occurred_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("m.occurred_at <= $%d", *f.DateTo)
	}
	return w
}

// ListHistory página de movimientos, más reciente primero, y total del filtro.
func (r *MovementRepo) ListHistory(ctx context.Context, f repository.MovementHistoryFilter) ([]repository.MovementRow, int, error) {
	w := movementHistoryWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements m`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.organization_id, m.unit_id, u.code, u.name,
		       m.product_id, p.code, p.name, m.lot_id, l.lot_number,
		       m.kind, m.quantity, m.reference_document, m.occurred_at
		FROM stock_movements m
		JOIN organizational_units u ON u.id = m.unit_id
		JOIN products p ON p.id = m.product_id
		LEFT JOIN lots l ON l.id = m.lot_id%s
		ORDER BY m.seq DESC
		LIMIT $%d OFFSET $%d`, w.sql(), w.next(), w.next()+1)
	args := append(w.args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var out []repository.MovementRow
	for rows.Next() {
		var m repository.MovementRow
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.UnitID, &m.UnitCode, &m.UnitName,
			&m.ProductID, &m.ProductCode, &m.ProductName, &m.LotID, &m.LotNumber,
			&m.Kind, &m.Quantity, &m.ReferenceDocument, &m.OccurredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan movement row: %w", err)
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}
