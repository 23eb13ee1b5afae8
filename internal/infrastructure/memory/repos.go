package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
	"github.com/jhoicas/estoque-api/internal/domain/repository"
)

// ── Scope ────────────────────────────────────────────────────────────────────

type ScopeRepo struct{ v *view }

func (r *ScopeRepo) UnitBelongsTo(_ context.Context, unitID, orgID string) (ok bool, _ error) {
	r.v.catalog(func(c *catalogData) {
		u, found := c.units[unitID]
		ok = found && u.orgID == orgID
	})
	return ok, nil
}

func (r *ScopeRepo) ProductBelongsTo(_ context.Context, productID, orgID string) (ok bool, _ error) {
	r.v.catalog(func(c *catalogData) {
		p, found := c.products[productID]
		ok = found && p.orgID == orgID
	})
	return ok, nil
}

func (r *ScopeRepo) LotBelongsTo(_ context.Context, lotID, productID, orgID string) (ok bool, _ error) {
	r.v.catalog(func(c *catalogData) {
		l, found := c.lots[lotID]
		ok = found && l.orgID == orgID && l.productID == productID
	})
	return ok, nil
}

type MembershipRepo struct{ v *view }

func (r *MembershipRepo) IsMember(_ context.Context, userID, orgID string) (ok bool, _ error) {
	r.v.catalog(func(c *catalogData) { ok = c.members[userID][orgID] })
	return ok, nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

type StockRepo struct{ v *view }

func findLine(st *state, key entity.StockKey) *entity.StockLine {
	for _, id := range st.lineOrder {
		if l := st.lines[id]; l.Key().Matches(key) {
			return l
		}
	}
	return nil
}

func (r *StockRepo) GetForUpdate(_ context.Context, key entity.StockKey) (out *entity.StockLine, _ error) {
	r.v.with(func(st *state) {
		if l := findLine(st, key); l != nil {
			cp := *l
			out = &cp
		}
	})
	return out, nil
}

func (r *StockRepo) Create(_ context.Context, line *entity.StockLine) (err error) {
	r.v.with(func(st *state) {
		if findLine(st, line.Key()) != nil {
			err = domain.ErrDuplicate
			return
		}
		cp := *line
		st.lines[line.ID] = &cp
		st.lineOrder = append(st.lineOrder, line.ID)
	})
	return err
}

func (r *StockRepo) SetAvailable(_ context.Context, lineID string, available decimal.Decimal) (err error) {
	r.v.with(func(st *state) {
		l, ok := st.lines[lineID]
		if !ok {
			err = domain.ErrStockNotFound
			return
		}
		l.Available = available
	})
	return err
}

func (r *StockRepo) SetReserved(_ context.Context, lineID string, reserved decimal.Decimal) (err error) {
	r.v.with(func(st *state) {
		l, ok := st.lines[lineID]
		if !ok {
			err = domain.ErrStockNotFound
			return
		}
		l.Reserved = reserved
	})
	return err
}

func (r *StockRepo) ListBalances(_ context.Context, f repository.BalanceFilter) (rows []repository.BalanceRow, _ error) {
	r.v.with(func(st *state) {
		for _, id := range st.lineOrder {
			l := st.lines[id]
			if l.OrganizationID != f.OrganizationID ||
				(f.UnitID != "" && l.UnitID != f.UnitID) ||
				(f.ProductID != "" && l.ProductID != f.ProductID) {
				continue
			}
			p := st.products[l.ProductID]
			if f.ProductCode != "" && p.code != f.ProductCode {
				continue
			}
			u := st.units[l.UnitID]
			lotNumber := lotNumberOf(st, l.LotID)
			rows = append(rows, repository.BalanceRow{
				StockLineID: l.ID, OrganizationID: l.OrganizationID,
				UnitID: l.UnitID, UnitCode: u.code, UnitName: u.name,
				ProductID: l.ProductID, ProductCode: p.code, ProductName: p.name,
				LotID: l.LotID, LotNumber: lotNumber,
				Available: l.Available, Reserved: l.Reserved, UpdatedAt: l.UpdatedAt,
			})
		}
	})
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.UnitName != b.UnitName {
			return a.UnitName < b.UnitName
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return deref(a.LotNumber) < deref(b.LotNumber)
	})
	return limitRows(rows, f.Limit), nil
}

func (r *StockRepo) ReservedDrift(_ context.Context, orgID string) (rows []repository.DriftRow, _ error) {
	r.v.with(func(st *state) {
		for _, id := range st.lineOrder {
			l := st.lines[id]
			if orgID != "" && l.OrganizationID != orgID {
				continue
			}
			sum := decimal.Zero
			for _, res := range st.reservations {
				if res.IsActive() && res.Key().Matches(l.Key()) {
					sum = sum.Add(res.Quantity)
				}
			}
			if !sum.Equal(l.Reserved) {
				rows = append(rows, repository.DriftRow{
					StockLineID: l.ID, OrganizationID: l.OrganizationID,
					UnitID: l.UnitID, ProductID: l.ProductID, LotID: l.LotID,
					Reserved: l.Reserved, ActiveSum: sum,
				})
			}
		}
	})
	return rows, nil
}

// ── Movements ────────────────────────────────────────────────────────────────

type MovementRepo struct{ v *view }

func (r *MovementRepo) Create(_ context.Context, m *entity.MovementEvent) error {
	r.v.with(func(st *state) {
		cp := *m
		st.movements = append(st.movements, &cp)
	})
	return nil
}

func (r *MovementRepo) ListByReference(_ context.Context, orgID, reference string) (out []*entity.MovementEvent, _ error) {
	r.v.with(func(st *state) {
		for _, m := range st.movements {
			if m.OrganizationID == orgID && m.ReferenceDocument != nil && *m.ReferenceDocument == reference {
				cp := *m
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

func (r *MovementRepo) ListHistory(_ context.Context, f repository.MovementHistoryFilter) (page []repository.MovementRow, total int, _ error) {
	var rows []repository.MovementRow
	r.v.with(func(st *state) {
		// más reciente primero: el slice está en orden de inserción
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.OrganizationID != f.OrganizationID ||
				(f.UnitID != "" && m.UnitID != f.UnitID) ||
				(f.ProductID != "" && m.ProductID != f.ProductID) ||
				(f.LotID != "" && deref(m.LotID) != f.LotID) ||
				(f.Kind != "" && m.Kind != f.Kind) ||
				!inRange(m.OccurredAt, f.DateFrom, f.DateTo) {
				continue
			}
			u, p := st.units[m.UnitID], st.products[m.ProductID]
			rows = append(rows, repository.MovementRow{
				ID: m.ID, OrganizationID: m.OrganizationID,
				UnitID: m.UnitID, UnitCode: u.code, UnitName: u.name,
				ProductID: m.ProductID, ProductCode: p.code, ProductName: p.name,
				LotID: m.LotID, LotNumber: lotNumberOf(st, m.LotID),
				Kind: m.Kind, Quantity: m.Quantity,
				ReferenceDocument: m.ReferenceDocument, OccurredAt: m.OccurredAt,
			})
		}
	})
	return paginate(rows, f.Offset, f.Limit), len(rows), nil
}

// ── Reservations ─────────────────────────────────────────────────────────────

type ReservationRepo struct{ v *view }

func (r *ReservationRepo) Create(_ context.Context, res *entity.Reservation) error {
	r.v.with(func(st *state) {
		cp := *res
		st.reservations[res.ID] = &cp
		st.resOrder = append(st.resOrder, res.ID)
	})
	return nil
}

func (r *ReservationRepo) GetForUpdate(_ context.Context, id string) (out *entity.Reservation, _ error) {
	r.v.with(func(st *state) {
		if res, ok := st.reservations[id]; ok {
			cp := *res
			out = &cp
		}
	})
	return out, nil
}

func (r *ReservationRepo) UpdateStatus(_ context.Context, id, status string) (err error) {
	r.v.with(func(st *state) {
		res, ok := st.reservations[id]
		if !ok {
			err = domain.ErrReservationNotFound
			return
		}
		res.Status = status
	})
	return err
}

func (r *ReservationRepo) LockDueByLine(_ context.Context, key entity.StockKey, now time.Time) (out []*entity.Reservation, _ error) {
	r.v.with(func(st *state) {
		for _, id := range st.resOrder {
			res := st.reservations[id]
			if res.IsActive() && res.DueAt(now) && res.Key().Matches(key) {
				cp := *res
				out = append(out, &cp)
			}
		}
	})
	return out, nil
}

func (r *ReservationRepo) LockDueBatch(_ context.Context, f repository.DueFilter) (out []*entity.Reservation, _ error) {
	r.v.with(func(st *state) {
		for _, id := range st.resOrder {
			res := st.reservations[id]
			if res.OrganizationID != f.OrganizationID || !res.IsActive() || !res.DueAt(f.Now) ||
				(f.UnitID != "" && res.UnitID != f.UnitID) ||
				(f.ProductID != "" && res.ProductID != f.ProductID) ||
				(f.LotID != "" && deref(res.LotID) != f.LotID) {
				continue
			}
			cp := *res
			out = append(out, &cp)
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	return limitRows(out, f.Limit), nil
}

func (r *ReservationRepo) OrganizationsWithDue(_ context.Context, now time.Time, limit int) (orgs []string, _ error) {
	seen := map[string]bool{}
	r.v.with(func(st *state) {
		for _, id := range st.resOrder {
			res := st.reservations[id]
			if res.IsActive() && res.DueAt(now) && !seen[res.OrganizationID] {
				seen[res.OrganizationID] = true
				orgs = append(orgs, res.OrganizationID)
			}
		}
	})
	sort.Strings(orgs)
	return limitRows(orgs, limit), nil
}

func (r *ReservationRepo) GetDetail(_ context.Context, id string) (out *repository.ReservationRow, _ error) {
	r.v.with(func(st *state) {
		if res, ok := st.reservations[id]; ok {
			row := reservationRow(st, res)
			out = &row
		}
	})
	return out, nil
}

func (r *ReservationRepo) ListActive(_ context.Context, f repository.ActiveReservationFilter) (rows []repository.ReservationRow, _ error) {
	r.v.with(func(st *state) {
		for _, id := range st.resOrder {
			res := st.reservations[id]
			if res.OrganizationID != f.OrganizationID || res.Status != f.Status || res.ExpiresAt.Before(f.Now) ||
				(f.UnitID != "" && res.UnitID != f.UnitID) ||
				(f.ProductID != "" && res.ProductID != f.ProductID) {
				continue
			}
			rows = append(rows, reservationRow(st, res))
		}
	})
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ExpiresAt.Equal(rows[j].ExpiresAt) {
			return rows[i].ExpiresAt.Before(rows[j].ExpiresAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return limitRows(rows, f.Limit), nil
}

func (r *ReservationRepo) ListHistory(_ context.Context, f repository.ReservationHistoryFilter) (page []repository.ReservationRow, total int, _ error) {
	var rows []repository.ReservationRow
	r.v.with(func(st *state) {
		for i := len(st.resOrder) - 1; i >= 0; i-- {
			res := st.reservations[st.resOrder[i]]
			if res.OrganizationID != f.OrganizationID ||
				(f.UnitID != "" && res.UnitID != f.UnitID) ||
				(f.ProductID != "" && res.ProductID != f.ProductID) ||
				(f.LotID != "" && deref(res.LotID) != f.LotID) ||
				(f.Status != "" && res.Status != f.Status) ||
				!inRange(res.ExpiresAt, f.DateFrom, f.DateTo) {
				continue
			}
			rows = append(rows, reservationRow(st, res))
		}
	})
	return paginate(rows, f.Offset, f.Limit), len(rows), nil
}

func reservationRow(st *state, res *entity.Reservation) repository.ReservationRow {
	u, p := st.units[res.UnitID], st.products[res.ProductID]
	return repository.ReservationRow{
		ID: res.ID, OrganizationID: res.OrganizationID,
		UnitID: res.UnitID, UnitCode: u.code, UnitName: u.name,
		ProductID: res.ProductID, ProductCode: p.code, ProductName: p.name,
		LotID: res.LotID, LotNumber: lotNumberOf(st, res.LotID),
		Quantity: res.Quantity, Status: res.Status,
		ExpiresAt: res.ExpiresAt, CreatedAt: res.CreatedAt,
		ReferenceDocument: res.ReferenceDocument,
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func lotNumberOf(st *state, lotID *string) *string {
	if lotID == nil {
		return nil
	}
	if l, ok := st.lots[*lotID]; ok {
		n := l.number
		return &n
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func limitRows[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func paginate[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	return limitRows(rows[offset:], limit)
}

var (
	_ repository.ScopeRepository         = (*ScopeRepo)(nil)
	_ repository.OrgMembershipRepository = (*MembershipRepo)(nil)
	_ repository.StockRepository         = (*StockRepo)(nil)
	_ repository.MovementRepository      = (*MovementRepo)(nil)
	_ repository.ReservationRepository   = (*ReservationRepo)(nil)
)
