package inventory_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Crear
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateReservation_ReservaSobreNeto(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")

	res := f.reserve(t, "4", 15)
	assert.Equal(t, entity.ReservationActive, res.Status)
	requireDecimal(t, "10", res.Available)
	requireDecimal(t, "4", res.Reserved)
	requireDecimal(t, "6", res.Net)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.ExpiresAt)

	_, err := f.svc.CreateReservation(ctx(), f.caller, inventory.CreateReservationInput{
		UnitID: unit1, ProductID: prod1, Quantity: dec("6.01"), TTLMinutes: 15,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	f.reserve(t, "6", 15)
	available, reserved := f.balance(t)
	requireDecimal(t, "10", available, "reservar no cambia el disponible")
	requireDecimal(t, "10", reserved)
	f.requireNoDrift(t)
}

func TestCreateReservation_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")

	cases := []struct {
		name  string
		in    inventory.CreateReservationInput
		field string
	}{
		{"cantidad cero", inventory.CreateReservationInput{UnitID: unit1, ProductID: prod1, Quantity: dec("0"), TTLMinutes: 5}, "quantity"},
		{"cinco decimales", inventory.CreateReservationInput{UnitID: unit1, ProductID: prod1, Quantity: dec("0.00001"), TTLMinutes: 5}, "quantity"},
		{"ttl negativo", inventory.CreateReservationInput{UnitID: unit1, ProductID: prod1, Quantity: dec("1"), TTLMinutes: -1}, "ttl_minutes"},
		{"ttl mayor a un año", inventory.CreateReservationInput{UnitID: unit1, ProductID: prod1, Quantity: dec("1"), TTLMinutes: inventory.MaxReservationTTLMinutes + 1}, "ttl_minutes"},
		{"ttl que desborda la duración", inventory.CreateReservationInput{UnitID: unit1, ProductID: prod1, Quantity: dec("1"), TTLMinutes: 200_000_000}, "ttl_minutes"},
		{"sin producto", inventory.CreateReservationInput{UnitID: unit1, Quantity: dec("1"), TTLMinutes: 5}, "product_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateReservation(ctx(), f.caller, tc.in)
			var fe *domain.FieldError
			require.True(t, errors.As(err, &fe), "esperado FieldError, obtenido %v", err)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestCreateReservation_TTLPorDefectoYMaximo(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")

	res := f.reserve(t, "1", 0)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.ExpiresAt, "sin ttl vale 15 minutos")

	res = f.reserve(t, "1", inventory.MaxReservationTTLMinutes)
	assert.Equal(t, f.clock.Now().Add(365*24*time.Hour), res.ExpiresAt)

	// una reserva recién creada nunca nace vencida
	out, err := f.svc.ExpireReservations(ctx(), f.caller, inventory.ExpireInput{})
	require.NoError(t, err)
	assert.Zero(t, out.TotalProcessed)
}

func TestCreateReservation_SinLinea(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateReservation(ctx(), f.caller, inventory.CreateReservationInput{
		UnitID: unit1, ProductID: prod1, Quantity: dec("1"), TTLMinutes: 5,
	})
	assert.ErrorIs(t, err, domain.ErrStockNotFound)
}

func TestCreateReservation_ExpiraVencidasDeLaLinea(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	old := f.reserve(t, "10", 1)

	f.clock.Advance(2 * time.Minute)

	res := f.reserve(t, "8", 10)
	assert.Equal(t, 1, res.ExpiredOnLine)
	requireDecimal(t, "8", res.Reserved)

	detail, err := f.svc.GetReservationDetail(ctx(), f.caller, old.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationExpired, detail.Reservation.Status)
	assert.Empty(t, detail.Transitions, "expirar no genera movimientos")
	f.requireNoDrift(t)
}

func TestCreateReservation_VencimientoExactoNoExpira(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	f.reserve(t, "10", 1)

	f.clock.Advance(time.Minute)

	_, err := f.svc.CreateReservation(ctx(), f.caller, inventory.CreateReservationInput{
		UnitID: unit1, ProductID: prod1, Quantity: dec("1"), TTLMinutes: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "expires_at == ahora aún no venció")
}

// ──────────────────────────────────────────────────────────────────────────────
// Confirmar / cancelar
// ──────────────────────────────────────────────────────────────────────────────

func TestConfirmReservation_EmiteSalidaConReferencia(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	r := f.reserve(t, "4", 30)

	res, err := f.svc.ConfirmReservation(ctx(), f.caller, r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationConfirmed, res.Status)
	requireDecimal(t, "6", res.Available)
	requireDecimal(t, "0", res.Reserved)

	detail, err := f.svc.GetReservationDetail(ctx(), f.caller, r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationConfirmed, detail.Reservation.Status)
	require.Len(t, detail.Transitions, 1)
	mov := detail.Transitions[0]
	assert.Equal(t, entity.MovementSaida, mov.Kind)
	requireDecimal(t, "4", mov.Quantity)
	assert.Equal(t, "RESERVA:"+r.ReservationID, *mov.ReferenceDocument)
	f.requireNoDrift(t)
}

func TestCancelReservation_LiberaSinTocarDisponible(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	r := f.reserve(t, "4", 30)

	res, err := f.svc.CancelReservation(ctx(), f.caller, r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationCanceled, res.Status)
	requireDecimal(t, "10", res.Available)
	requireDecimal(t, "0", res.Reserved)

	detail, err := f.svc.GetReservationDetail(ctx(), f.caller, r.ReservationID)
	require.NoError(t, err)
	assert.Empty(t, detail.Transitions)

	hist, err := f.svc.GetMovementHistory(ctx(), f.caller, inventory.HistoryQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, hist.TotalItems, "sólo la ENTRADA inicial")
}

func TestSettleReservation_EstadosTerminalesSonInmutables(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	confirmed := f.reserve(t, "2", 30)
	canceled := f.reserve(t, "3", 30)

	_, err := f.svc.ConfirmReservation(ctx(), f.caller, confirmed.ReservationID)
	require.NoError(t, err)
	_, err = f.svc.CancelReservation(ctx(), f.caller, canceled.ReservationID)
	require.NoError(t, err)

	for _, id := range []string{confirmed.ReservationID, canceled.ReservationID} {
		_, err = f.svc.ConfirmReservation(ctx(), f.caller, id)
		assert.ErrorIs(t, err, domain.ErrReservationNotActive)
		_, err = f.svc.CancelReservation(ctx(), f.caller, id)
		assert.ErrorIs(t, err, domain.ErrReservationNotActive)
	}

	available, reserved := f.balance(t)
	requireDecimal(t, "8", available)
	requireDecimal(t, "0", reserved)
}

func TestConfirmReservation_VencidaQuedaExpirada(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	r := f.reserve(t, "4", 1)

	f.clock.Advance(90 * time.Second)

	_, err := f.svc.ConfirmReservation(ctx(), f.caller, r.ReservationID)
	assert.ErrorIs(t, err, domain.ErrReservationExpired)

	detail, err := f.svc.GetReservationDetail(ctx(), f.caller, r.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationExpired, detail.Reservation.Status, "la expiración se persiste aunque se devuelva error")
	assert.Empty(t, detail.Transitions)

	available, reserved := f.balance(t)
	requireDecimal(t, "10", available)
	requireDecimal(t, "0", reserved)

	_, err = f.svc.CancelReservation(ctx(), f.caller, r.ReservationID)
	assert.ErrorIs(t, err, domain.ErrReservationNotActive)
}

func TestConfirmReservation_ReservadoCorrupto(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	r := f.reserve(t, "4", 30)

	f.store.CorruptReserved(r.StockLineID, func(l *entity.StockLine) { l.Reserved = dec("12") })

	_, err := f.svc.ConfirmReservation(ctx(), f.caller, r.ReservationID)
	assert.ErrorIs(t, err, domain.ErrInconsistentStock)

	// cancelar libera aunque la línea esté mal y nunca deja reservado negativo
	f.store.CorruptReserved(r.StockLineID, func(l *entity.StockLine) { l.Reserved = dec("1") })
	res, err := f.svc.CancelReservation(ctx(), f.caller, r.ReservationID)
	require.NoError(t, err)
	requireDecimal(t, "0", res.Reserved)
}

func TestSettleReservation_Identificador(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmReservation(ctx(), f.caller, "no-es-uuid")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.CancelReservation(ctx(), f.caller, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	_, err = f.svc.GetReservationDetail(ctx(), f.caller, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateReservation_ConcurrenteNoSobrevende(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")

	var ok, insufficient atomic.Int32
	var g errgroup.Group
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			_, err := f.svc.CreateReservation(ctx(), f.caller, inventory.CreateReservationInput{
				UnitID: unit1, ProductID: prod1, Quantity: dec("1"), TTLMinutes: 10,
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 10, ok.Load())
	assert.EqualValues(t, 30, insufficient.Load())
	_, reserved := f.balance(t)
	requireDecimal(t, "10", reserved)
	f.requireNoDrift(t)
}

func TestConfirmYSalida_ConcurrentesNoDejanNegativo(t *testing.T) {
	f := newFixture(t)
	f.entry(t, unit1, prod1, nil, "10")
	ids := make([]string, 5)
	for i := range ids {
		ids[i] = f.reserve(t, "1", 10).ReservationID
	}

	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := f.svc.ConfirmReservation(ctx(), f.caller, id)
			return err
		})
	}
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := f.svc.RegisterExit(ctx(), f.caller, inventory.MovementInput{UnitID: unit1, ProductID: prod1, Quantity: dec("1")})
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	available, reserved := f.balance(t)
	requireDecimal(t, "0", available, "5 confirmaciones y 5 salidas agotan la línea")
	requireDecimal(t, "0", reserved)
	f.requireNoDrift(t)
}
