package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
)

// QueryHandler consultas de saldos, reservas, movimientos y auditoría.
type QueryHandler struct {
	svc *inventory.Service
}

func NewQueryHandler(svc *inventory.Service) *QueryHandler {
	return &QueryHandler{svc: svc}
}

// Balances godoc
// @Summary      Saldos de stock
// @Tags         queries
// @Security     Bearer
// @Produce      json
// @Param        organization_id  query  string  false  "Organización (por defecto la del token)"
// @Param        unit_id          query  string  false  "Unidad"
// @Param        product_id       query  string  false  "Producto"
// @Param        product_code     query  string  false  "Código de producto"
// @Success      200  {object}  inventory.BalancesResult
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances [get]
func (h *QueryHandler) Balances(c *fiber.Ctx) error {
	res, err := h.svc.GetBalances(c.UserContext(), callerFrom(c), balanceQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

func balanceQuery(c *fiber.Ctx) inventory.BalanceQuery {
	return inventory.BalanceQuery{
		OrganizationID: c.Query("organization_id"),
		UnitID:         c.Query("unit_id"),
		ProductID:      c.Query("product_id"),
		ProductCode:    c.Query("product_code"),
	}
}

func activeReservationQuery(c *fiber.Ctx) inventory.ActiveReservationQuery {
	return inventory.ActiveReservationQuery{
		OrganizationID: c.Query("organization_id"),
		UnitID:         c.Query("unit_id"),
		ProductID:      c.Query("product_id"),
		Status:         c.Query("status"),
	}
}

// ActiveReservations godoc
// @Summary      Reservas vigentes
// @Tags         queries
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estado (por defecto ATIVA)"
// @Success      200  {object}  inventory.ReservationsResult
// @Router       /api/inventory/reservations/active [get]
func (h *QueryHandler) ActiveReservations(c *fiber.Ctx) error {
	res, err := h.svc.GetActiveReservations(c.UserContext(), callerFrom(c), activeReservationQuery(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// ReservationHistory godoc
// @Summary      Histórico de reservas
// @Tags         queries
// @Security     Bearer
// @Produce      json
// @Param        page       query  int     false  "Página (>= 1)"
// @Param        page_size  query  int     false  "Tamaño (1..200, por defecto 50)"
// @Param        date_from  query  string  false  "Desde (RFC3339 o AAAA-MM-DD)"
// @Param        date_to    query  string  false  "Hasta (RFC3339 o AAAA-MM-DD)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [get]
func (h *QueryHandler) ReservationHistory(c *fiber.Ctx) error {
	q, err := historyQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.GetReservationHistory(c.UserContext(), callerFrom(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// MovementHistory godoc
// @Summary      Histórico de movimientos
// @Tags         queries
// @Security     Bearer
// @Produce      json
// @Param        kind       query  string  false  "ENTRADA, SAIDA o AJUSTE"
// @Param        page       query  int     false  "Página (>= 1)"
// @Param        page_size  query  int     false  "Tamaño (1..200, por defecto 50)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *QueryHandler) MovementHistory(c *fiber.Ctx) error {
	q, err := historyQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.GetMovementHistory(c.UserContext(), callerFrom(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Reconcile godoc
// @Summary      Auditoría de reservado
// @Description  Lista líneas cuyo reservado difiere de la suma de sus reservas activas.
// @Tags         queries
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  inventory.ReconciliationResult
// @Router       /api/inventory/reconciliation [get]
func (h *QueryHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.svc.Reconcile(c.UserContext(), callerFrom(c), c.Query("organization_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
