package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

type unitInfo struct {
	orgID, code, name string
}

type productInfo struct {
	orgID, code, name string
}

type lotInfo struct {
	orgID, productID, number string
}

// catalogData datos de referencia; no participan del snapshot transaccional.
type catalogData struct {
	units    map[string]unitInfo
	products map[string]productInfo
	lots     map[string]lotInfo
	members  map[string]map[string]bool
}

type state struct {
	*catalogData
	lines        map[string]*entity.StockLine
	lineOrder    []string
	movements    []*entity.MovementEvent
	reservations map[string]*entity.Reservation
	resOrder     []string
}

func newState(cat *catalogData) *state {
	return &state{
		catalogData:  cat,
		lines:        map[string]*entity.StockLine{},
		reservations: map[string]*entity.Reservation{},
	}
}

// clone copia lo mutable por transacciones. El catálogo no cambia dentro de una tx.
func (st *state) clone() *state {
	c := *st
	c.lines = make(map[string]*entity.StockLine, len(st.lines))
	for id, l := range st.lines {
		cp := *l
		c.lines[id] = &cp
	}
	c.lineOrder = append([]string(nil), st.lineOrder...)
	c.movements = append([]*entity.MovementEvent(nil), st.movements...)
	c.reservations = make(map[string]*entity.Reservation, len(st.reservations))
	for id, r := range st.reservations {
		cp := *r
		c.reservations[id] = &cp
	}
	c.resOrder = append([]string(nil), st.resOrder...)
	return &c
}

// Store almacenamiento en memoria con la misma semántica transaccional que Postgres:
// las transacciones se serializan y un error restaura el estado previo.
// El catálogo (unidades, productos, lotes, membresías) tiene su propio lock: se lee dentro
// de transacciones ajenas, como hace OrgContext al confirmar una reserva.
type Store struct {
	sem   chan struct{}
	catMu sync.RWMutex
	cat   *catalogData
	st    *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	cat := &catalogData{
		units:    map[string]unitInfo{},
		products: map[string]productInfo{},
		lots:     map[string]lotInfo{},
		members:  map[string]map[string]bool{},
	}
	return &Store{sem: make(chan struct{}, 1), cat: cat, st: newState(cat)}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() { <-s.sem }

// Run ejecuta fn en exclusión mutua; si fn falla o ctx se cancela, se descartan sus efectos.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	snapshot := s.st.clone()
	v := &view{s: s, inTx: true}
	if err := fn(v.repos()); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// Repos repositorios fuera de transacción (cada llamada toma el lock).
func (s *Store) Repos() inventory.Repos {
	return (&view{s: s}).repos()
}

// Members repositorio de membresías para OrgContext.
func (s *Store) Members() *MembershipRepo {
	return &MembershipRepo{v: &view{s: s}}
}

// view da acceso al estado; dentro de Run el lock ya está tomado.
type view struct {
	s    *Store
	inTx bool
}

func (v *view) with(fn func(st *state)) {
	if !v.inTx {
		v.s.sem <- struct{}{}
		defer v.s.release()
	}
	v.s.catMu.RLock()
	defer v.s.catMu.RUnlock()
	fn(v.s.st)
}

// catalog lectura del catálogo sin tomar el semáforo de transacciones.
func (v *view) catalog(fn func(c *catalogData)) {
	v.s.catMu.RLock()
	defer v.s.catMu.RUnlock()
	fn(v.s.cat)
}

func (s *Store) writeCatalog(fn func(c *catalogData)) {
	s.catMu.Lock()
	defer s.catMu.Unlock()
	fn(s.cat)
}

func (v *view) repos() inventory.Repos {
	return inventory.Repos{
		Scope:        &ScopeRepo{v: v},
		Stock:        &StockRepo{v: v},
		Movements:    &MovementRepo{v: v},
		Reservations: &ReservationRepo{v: v},
	}
}

// ── Catálogo (alta de datos de referencia) ───────────────────────────────────

// AddUnit registra una unidad organizacional.
func (s *Store) AddUnit(orgID, unitID, code, name string) {
	s.writeCatalog(func(c *catalogData) { c.units[unitID] = unitInfo{orgID, code, name} })
}

// AddProduct registra un producto.
func (s *Store) AddProduct(orgID, productID, code, name string) {
	s.writeCatalog(func(c *catalogData) { c.products[productID] = productInfo{orgID, code, name} })
}

// AddLot registra un lote de un producto.
func (s *Store) AddLot(orgID, productID, lotID, number string) {
	s.writeCatalog(func(c *catalogData) { c.lots[lotID] = lotInfo{orgID, productID, number} })
}

// AddMember da acceso a userID sobre orgID.
func (s *Store) AddMember(userID, orgID string) {
	s.writeCatalog(func(c *catalogData) {
		if c.members[userID] == nil {
			c.members[userID] = map[string]bool{}
		}
		c.members[userID][orgID] = true
	})
}

// CorruptReserved fija el reservado de una línea sin pasar por reservas. Sólo para probar la auditoría.
func (s *Store) CorruptReserved(lineID string, reserved func(*entity.StockLine)) {
	(&view{s: s}).with(func(st *state) {
		if l, ok := st.lines[lineID]; ok {
			reserved(l)
		}
	})
}
