package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Expiración en lote
// ──────────────────────────────────────────────────────────────────────────────

func TestExpireReservations_Idempotente(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	a := f.reserve(t, "1", 1)
	b := f.reserve(t, "2", 2)
	c := f.reserve(t, "3", 3)
	alive := f.reserve(t, "4", 60)

	f.clock.Advance(5 * time.Minute)

	res, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{})
	require.NoError(t, err)
	assert.Equal(t, orgA, res.OrganizationID)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.Equal(t, []string{a.ReservationID, b.ReservationID, c.ReservationID}, res.ReservationIDs, "orden por vencimiento")

	_, reserved := f.balance(t)
	requireDecimal(t, "4", reserved)

	again, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.TotalProcessed)
	assert.Empty(t, again.ReservationIDs)

	detail, err := f.svc.GetReservationDetail(ctx(), f.caller, alive.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationActive, detail.Reservation.Status)
	f.requireNoDrift(t)
}

func TestExpireReservations_RespetaMaxItems(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	first := f.reserve(t, "1", 1)
	second := f.reserve(t, "1", 2)
	f.reserve(t, "1", 3)

	f.clock.Advance(10 * time.Minute)

	res, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{MaxItems: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ReservationID, second.ReservationID}, res.ReservationIDs)

	rest, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{MaxItems: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, rest.TotalProcessed)
}

func TestExpireReservations_FiltraPorLinea(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	f.entry(t, unit1, prod1, strPtr(lot1), "10")
	f.reserve(t, "1", 1)
	_, err := f.svc.CreateReservation(ctx(), f.caller, inventory.CreateReservationInput{
		UnitID: unit1, ProductID: prod1, LotID: strPtr(lot1), Quantity: dec("2"), TTLMinutes: 1,
	})
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)

	res, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{LotID: lot1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalProcessed)

	res, err = f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{ProductID: prod2})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalProcessed)

	res, err = f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{UnitID: unit1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalProcessed)
	f.requireNoDrift(t)
}

func TestExpireReservations_MaxItemsInvalido(t *testing.T) {
	f := newFixture(t)
	for _, n := range []int{-1, inventory.MaxExpireMaxItems + 1} {
		_, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{MaxItems: n})
		var fe *domain.FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "max_items", fe.Field)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Barrido en segundo plano
// ──────────────────────────────────────────────────────────────────────────────

type fakeLock struct {
	held     bool
	err      error
	keys     []string
	ttls     []time.Duration
	released int
}

func (l *fakeLock) TryLock(_ context.Context, key string, ttl time.Duration) (inventory.Lease, bool, error) {
	l.keys = append(l.keys, key)
	l.ttls = append(l.ttls, ttl)
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return fakeLease{lock: l}, true, nil
}

type fakeLease struct{ lock *fakeLock }

func (fakeLease) Refresh(context.Context, time.Duration) error { return nil }

func (l fakeLease) Release(context.Context) { l.lock.released++ }

func TestSweeper_ExpiraTodasLasOrganizaciones(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	f.reserve(t, "3", 1)

	callerB := inventory.Caller{UserID: "user-b", OrganizationID: orgB}
	_, err := f.svc.RegisterEntry(ctx(), callerB, inventory.MovementInput{UnitID: unitB, ProductID: prodB, Quantity: dec("5")})
	require.NoError(t, err)
	_, err = f.svc.CreateReservation(ctx(), callerB, inventory.CreateReservationInput{
		UnitID: unitB, ProductID: prodB, Quantity: dec("5"), TTLMinutes: 1,
	})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)

	lock := &fakeLock{}
	sw := inventory.NewSweeper(f.svc, lock, time.Minute, 0, zerolog.Nop())
	n, err := sw.SweepOnce(ctx())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, lock.released)
	assert.Equal(t, []string{"estoque:sweeper:leader"}, lock.keys)
	assert.Equal(t, []time.Duration{time.Minute}, lock.ttls)

	n, err = sw.SweepOnce(ctx())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.requireNoDrift(t)
}

func TestSweeper_OtraInstanciaTieneElLock(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	f.reserve(t, "3", 1)
	f.clock.Advance(2 * time.Minute)

	sw := inventory.NewSweeper(f.svc, &fakeLock{held: true}, time.Minute, 10, zerolog.Nop())
	n, err := sw.SweepOnce(ctx())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, reserved := f.balance(t)
	requireDecimal(t, "3", reserved, "sin lock no se toca nada")

	_, err = inventory.NewSweeper(f.svc, &fakeLock{err: errors.New("redis caído")}, time.Minute, 10, zerolog.Nop()).SweepOnce(ctx())
	assert.Error(t, err)

	n, err = inventory.NewSweeper(f.svc, nil, time.Minute, 10, zerolog.Nop()).SweepOnce(ctx())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "sin lock configurado barre directamente")
}

func TestSweeper_RunTerminaConElContexto(t *testing.T) {
	f := newFixture(t)
	c, cancel := context.WithCancel(ctx())
	cancel()
	sw := inventory.NewSweeper(f.svc, nil, time.Millisecond, 10, zerolog.Nop())
	assert.NoError(t, sw.Run(c))
	assert.NoError(t, inventory.NewSweeper(f.svc, nil, 0, 10, zerolog.Nop()).Run(ctx()), "intervalo cero desactiva el barrido")
}

func TestSweeper_LeaseMinimo(t *testing.T) {
	f := newFixture(t)
	lock := &fakeLock{}
	_, err := inventory.NewSweeper(f.svc, lock, time.Second, 10, zerolog.Nop()).SweepOnce(ctx())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second}, lock.ttls, "el lease no baja de 30s aunque el intervalo sea corto")
	assert.Equal(t, 1, lock.released)
}
