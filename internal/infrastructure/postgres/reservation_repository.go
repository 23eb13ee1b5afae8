package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

const reservationColumns = `id, organization_id, unit_id, product_id, lot_id, quantity, expires_at, status, reference_document, created_at`

// ReservationRepo reservas de stock sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var r entity.Reservation
	err := row.Scan(&r.ID, &r.OrganizationID, &r.UnitID, &r.ProductID, &r.LotID,
		&r.Quantity, &r.ExpiresAt, &r.Status, &r.ReferenceDocument, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]*entity.Reservation, error) {
	defer rows.Close()
	var out []*entity.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `INSERT INTO stock_reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		res.ID, res.OrganizationID, res.UnitID, res.ProductID, res.LotID,
		res.Quantity, res.ExpiresAt, res.Status, res.ReferenceDocument, res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepo) GetForUpdate(ctx context.Context, id string) (*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM stock_reservations WHERE id = $1 FOR UPDATE`
	res, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation for update: %w", err)
	}
	return res, nil
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.q.Exec(ctx, `UPDATE stock_reservations SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	return nil
}

// LockDueByLine SKIP LOCKED: una reserva tomada por otra transacción la resuelve esa transacción.
func (r *ReservationRepo) LockDueByLine(ctx context.Context, key entity.StockKey, now time.Time) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE organization_id = $1 AND unit_id = $2 AND product_id = $3
		  AND lot_id IS NOT DISTINCT FROM $4
		  AND status = 'ATIVA' AND expires_at < $5
		ORDER BY expires_at, id
		FOR UPDATE SKIP LOCKED`
	rows, err := r.q.Query(ctx, query, key.OrganizationID, key.UnitID, key.ProductID, key.LotID, now)
	if err != nil {
		return nil, fmt.Errorf("lock due reservations by line: %w", err)
	}
	return collectReservations(rows)
}

func buildDueBatchQuery(f repository.DueFilter) (string, []any) {
	w := &whereBuilder{}
	w.add("organization_id = $%d", f.OrganizationID)
	w.clauses = append(w.clauses, "status = 'ATIVA'")
	w.add("expires_at < $%d", f.Now)
	w.addIf("unit_id = $%d", f.UnitID)
	w.addIf("product_id = $%d", f.ProductID)
	w.addIf("lot_id = $%d", f.LotID)
	query := fmt.Sprintf(`SELECT %s FROM stock_reservations%s
		ORDER BY expires_at, id
		LIMIT $%d
		FOR UPDATE SKIP LOCKED`, reservationColumns, w.sql(), w.next())
	return query, append(w.args, f.Limit)
}

func (r *ReservationRepo) LockDueBatch(ctx context.Context, f repository.DueFilter) ([]*entity.Reservation, error) {
	query, args := buildDueBatchQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock due reservations: %w", err)
	}
	return collectReservations(rows)
}

func (r *ReservationRepo) OrganizationsWithDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT DISTINCT organization_id FROM stock_reservations
		WHERE status = 'ATIVA' AND expires_at < $1
		ORDER BY organization_id
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("organizations with due reservations: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

const reservationRowSelect = `
		SELECT r.id, r.organization_id, r.unit_id, u.code, u.name,
		       r.product_id, p.code, p.name, r.lot_id, l.lot_number,
		       r.quantity, r.status, r.expires_at, r.created_at, r.reference_document
		FROM stock_reservations r
		JOIN organizational_units u ON u.id = r.unit_id
		JOIN products p ON p.id = r.product_id
		LEFT JOIN lots l ON l.id = r.lot_id`

func scanReservationRow(row pgx.Row) (repository.ReservationRow, error) {
	var v repository.ReservationRow
	err := row.Scan(
		&v.ID, &v.OrganizationID, &v.UnitID, &v.UnitCode, &v.UnitName,
		&v.ProductID, &v.ProductCode, &v.ProductName, &v.LotID, &v.LotNumber,
		&v.Quantity, &v.Status, &v.ExpiresAt, &v.CreatedAt, &v.ReferenceDocument,
	)
	return v, err
}

func collectReservationRows(rows pgx.Rows) ([]repository.ReservationRow, error) {
	defer rows.Close()
	var out []repository.ReservationRow
	for rows.Next() {
		v, err := scanReservationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *ReservationRepo) GetDetail(ctx context.Context, id string) (*repository.ReservationRow, error) {
	v, err := scanReservationRow(r.q.QueryRow(ctx, reservationRowSelect+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation detail: %w", err)
	}
	return &v, nil
}

func buildActiveReservationsQuery(f repository.ActiveReservationFilter) (string, []any) {
	w := &whereBuilder{}
	w.add("r.organization_id = $%d", f.OrganizationID)
	w.add("r.status = $%d", f.Status)
	w.add("r.expires_at >= $%d", f.Now)
	w.addIf("r.unit_id = $%d", f.UnitID)
	w.addIf("r.product_id = $%d", f.ProductID)
	query := reservationRowSelect + w.sql() + `
		ORDER BY r.expires_at, r.id`
	args := w.args
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", w.next())
		args = append(args, f.Limit)
	}
	return query, args
}

func (r *ReservationRepo) ListActive(ctx context.Context, f repository.ActiveReservationFilter) ([]repository.ReservationRow, error) {
	query, args := buildActiveReservationsQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return collectReservationRows(rows)
}

func reservationHistoryWhere(f repository.ReservationHistoryFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("r.organization_id = $%d", f.OrganizationID)
	w.addIf("r.unit_id = $%d", f.UnitID)
	w.addIf("r.product_id = $%d", f.ProductID)
	w.addIf("r.lot_id = $%d", f.LotID)
	w.addIf("r.status = $%d", f.Status)
	if f.DateFrom != nil {
		w.add("r.expires_at >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("r.expires_at <= $%d", *f.DateTo)
	}
	return w
}

func (r *ReservationRepo) ListHistory(ctx context.Context, f repository.ReservationHistoryFilter) ([]repository.ReservationRow, int, error) {
	w := reservationHistoryWhere(f)

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_reservations r`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	query := reservationRowSelect + w.sql() + fmt.Sprintf(`
		ORDER BY r.seq DESC
		LIMIT $%d OFFSET $%d`, w.next(), w.next()+1)
	rows, err := r.q.Query(ctx, query, append(w.args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	out, err := collectReservationRows(rows)
	return out, total, err
}
