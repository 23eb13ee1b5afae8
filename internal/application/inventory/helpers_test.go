package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	orgA   = "org-a"
	orgB   = "org-b"
	userA  = "user-a"
	unit1  = "unit-1"
	unit2  = "unit-2"
	unitB  = "unit-b"
	prod1  = "prod-1"
	prod2  = "prod-2"
	prodB  = "prod-b"
	lot1   = "lot-1"
	lotOf2 = "lot-prod-2"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *memory.Store
	svc    *inventory.Service
	clock  *fakeClock
	caller inventory.Caller
}

// newFixture catálogo: org A con dos unidades, dos productos y un lote; org B con lo suyo.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddUnit(orgA, unit1, "CD-01", "Centro de distribución")
	store.AddUnit(orgA, unit2, "LJ-01", "Loja centro")
	store.AddProduct(orgA, prod1, "P-001", "Paracetamol 500mg")
	store.AddProduct(orgA, prod2, "P-002", "Dipirona 1g")
	store.AddLot(orgA, prod1, lot1, "L-2025-01")
	store.AddLot(orgA, prod2, lotOf2, "L-2025-02")
	store.AddUnit(orgB, unitB, "CD-B", "Depósito B")
	store.AddProduct(orgB, prodB, "PB-001", "Ibuprofeno")

	clock := &fakeClock{now: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	svc := inventory.NewService(store, store.Repos(), inventory.NewOrgContext(store.Members()),
		inventory.WithClock(clock.Now))
	return &fixture{
		store:  store,
		svc:    svc,
		clock:  clock,
		caller: inventory.Caller{UserID: userA, OrganizationID: orgA, Role: "bodeguero"},
	}
}

func ctx() context.Context { return context.Background() }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

func (f *fixture) entry(t *testing.T, unit, product string, lot *string, qty string) *inventory.MovementResult {
	t.Helper()
	res, err := f.svc.RegisterEntry(ctx(), f.caller, inventory.MovementInput{
		UnitID: unit, ProductID: product, LotID: lot, Quantity: dec(qty),
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) reserve(t *testing.T, qty string, ttlMinutes int) *inventory.ReservationResult {
	t.Helper()
	res, err := f.svc.CreateReservation(ctx(), f.caller, inventory.CreateReservationInput{
		UnitID: unit1, ProductID: prod1, Quantity: dec(qty), TTLMinutes: ttlMinutes,
	})
	require.NoError(t, err)
	return res
}

// balance saldo de (unit1, prod1, sin lote).
func (f *fixture) balance(t *testing.T) (available, reserved decimal.Decimal) {
	t.Helper()
	res, err := f.svc.GetBalances(ctx(), f.caller, inventory.BalanceQuery{UnitID: unit1, ProductID: prod1})
	require.NoError(t, err)
	for _, b := range res.Items {
		if b.LotID == nil {
			return b.Available, b.Reserved
		}
	}
	t.Fatalf("línea sin lote no encontrada")
	return
}

// requireNoDrift reservado == suma de reservas activas en todas las líneas.
func (f *fixture) requireNoDrift(t *testing.T) {
	t.Helper()
	res, err := f.svc.Reconcile(ctx(), f.caller, "")
	require.NoError(t, err)
	require.Empty(t, res.Drift, "reservado debe igualar la suma de reservas activas")
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msg ...interface{}) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "esperado %s, obtenido %s %v", want, got, msg)
}
