package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// GetForUpdate obtiene la línea y la bloquea (SELECT FOR UPDATE). Lote nulo sólo empareja con nulo.
func (r *StockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.StockLine, error) {
	query := `
		SELECT id, organization_id, unit_id, product_id, lot_id, available, reserved, updated_at
		FROM stock_lines
		WHERE organization_id = $1 AND unit_id = $2 AND product_id = $3
		  AND lot_id IS NOT DISTINCT FROM $4
		FOR UPDATE`
	var l entity.StockLine
	err := r.q.QueryRow(ctx, query, key.OrganizationID, key.UnitID, key.ProductID, key.LotID).Scan(
		&l.ID, &l.OrganizationID, &l.UnitID, &l.ProductID, &l.LotID, &l.Available, &l.Reserved, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return &l, nil
}

// Create inserta la línea. Si otra transacción ya la creó devuelve domain.ErrDuplicate sin abortar la tx.
func (r *StockRepo) Create(ctx context.Context, line *entity.StockLine) error {
	query := `
		INSERT INTO stock_lines (id, organization_id, unit_id, product_id, lot_id, available, reserved, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		line.ID, line.OrganizationID, line.UnitID, line.ProductID, line.LotID,
		line.Available, line.Reserved, line.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert stock line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (r *StockRepo) SetAvailable(ctx context.Context, lineID string, available decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE stock_lines SET available = $2, updated_at = now() WHERE id = $1`, lineID, available)
	if err != nil {
		return fmt.Errorf("update available: %w", err)
	}
	return nil
}

func (r *StockRepo) SetReserved(ctx context.Context, lineID string, reserved decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE stock_lines SET reserved = $2, updated_at = now() WHERE id = $1`, lineID, reserved)
	if err != nil {
		return fmt.Errorf("update reserved: %w", err)
	}
	return nil
}

func buildBalancesQuery(f repository.BalanceFilter) (string, []any) {
	w := &whereBuilder{}
	w.add("s.organization_id = $%d", f.OrganizationID)
	w.addIf("s.unit_id = $%d", f.UnitID)
	w.addIf("s.product_id = $%d", f.ProductID)
	w.addIf("p.code = $%d", f.ProductCode)

	query := `
		SELECT s.id, s.organization_id, s.unit_id, u.code, u.name,
		       s.product_id, p.code, p.name, s.lot_id, l.lot_number,
		       s.available, s.reserved, s.updated_at
		FROM stock_lines s
		JOIN organizational_units u ON u.id = s.unit_id
		JOIN products p ON p.id = s.product_id
		LEFT JOIN lots l ON l.id = s.lot_id` + w.sql() + `
		ORDER BY u.name, p.name, l.lot_number NULLS FIRST`
	args := w.args
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", w.next())
		args = append(args, f.Limit)
	}
	return query, args
}

// ListBalances saldos con etiquetas, ordenados por unidad, producto y lote.
func (r *StockRepo) ListBalances(ctx context.Context, f repository.BalanceFilter) ([]repository.BalanceRow, error) {
	query, args := buildBalancesQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []repository.BalanceRow
	for rows.Next() {
		var b repository.BalanceRow
		if err := rows.Scan(
			&b.StockLineID, &b.OrganizationID, &b.UnitID, &b.UnitCode, &b.UnitName,
			&b.ProductID, &b.ProductCode, &b.ProductName, &b.LotID, &b.LotNumber,
			&b.Available, &b.Reserved, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReservedDrift compara reserved contra la suma de reservas ATIVA de cada línea.
func (r *StockRepo) ReservedDrift(ctx context.Context, orgID string) ([]repository.DriftRow, error) {
	query := `
		SELECT s.id, s.organization_id, s.unit_id, s.product_id, s.lot_id, s.reserved,
		       COALESCE(SUM(r.quantity), 0) AS active_sum
		FROM stock_lines s
		LEFT JOIN stock_reservations r
		       ON r.organization_id = s.organization_id AND r.unit_id = s.unit_id
		      AND r.product_id = s.product_id AND r.lot_id IS NOT DISTINCT FROM s.lot_id
		      AND r.status = 'ATIVA'
		WHERE ($1 = '' OR s.organization_id = $1)
		GROUP BY s.id, s.organization_id, s.unit_id, s.product_id, s.lot_id, s.reserved
		HAVING s.reserved <> COALESCE(SUM(r.quantity), 0)
		ORDER BY s.organization_id, s.id`
	rows, err := r.q.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("reserved drift: %w", err)
	}
	defer rows.Close()

	var out []repository.DriftRow
	for rows.Next() {
		var d repository.DriftRow
		if err := rows.Scan(&d.StockLineID, &d.OrganizationID, &d.UnitID, &d.ProductID, &d.LotID, &d.Reserved, &d.ActiveSum); err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
