package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/application/inventory"
)

// ReservationHandler ciclo de vida de reservas.
type ReservationHandler struct {
	svc      *inventory.Service
	validate *requestValidator
}

func NewReservationHandler(svc *inventory.Service) *ReservationHandler {
	return &ReservationHandler{svc: svc, validate: newRequestValidator()}
}

// Create godoc
// @Summary      Crear reserva
// @Description  Expira antes las reservas vencidas de la misma línea.
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateReservationRequest  true  "quantity > 0, ttl_minutes 1..525600 (por defecto 15)"
// @Success      201   {object}  inventory.ReservationResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *ReservationHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return writeError(c, err)
	}
	ttl := 0
	if in.TTLMinutes != nil {
		ttl = *in.TTLMinutes
	}
	res, err := h.svc.CreateReservation(c.UserContext(), callerFrom(c), inventory.CreateReservationInput{
		OrganizationID:    in.OrganizationID,
		UnitID:            in.UnitID,
		ProductID:         in.ProductID,
		LotID:             in.LotID,
		Quantity:          in.Quantity,
		TTLMinutes:        ttl,
		ReferenceDocument: in.ReferenceDocument,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Confirm godoc
// @Summary      Confirmar reserva
// @Description  Consume la reserva y genera una salida con referencia RESERVA:{id}.
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  inventory.ReservationResult
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id}/confirm [post]
func (h *ReservationHandler) Confirm(c *fiber.Ctx) error {
	res, err := h.svc.ConfirmReservation(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Cancel godoc
// @Summary      Cancelar reserva
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  inventory.ReservationResult
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	res, err := h.svc.CancelReservation(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Expire godoc
// @Summary      Expirar reservas vencidas en lote
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ExpireReservationsRequest  false  "filtros opcionales y max_items (1..1000)"
// @Success      200   {object}  inventory.ExpireResult
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/expire [post]
func (h *ReservationHandler) Expire(c *fiber.Ctx) error {
	var in dto.ExpireReservationsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	if err := h.validate.Struct(in); err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.ExpireReservations(c.UserContext(), callerFrom(c), inventory.ExpireInput{
		OrganizationID: in.OrganizationID,
		UnitID:         in.UnitID,
		ProductID:      in.ProductID,
		LotID:          in.LotID,
		MaxItems:       in.MaxItems,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}

// Detail godoc
// @Summary      Detalle de reserva con sus movimientos
// @Tags         reservations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la reserva"
// @Success      200  {object}  inventory.ReservationDetail
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/{id} [get]
func (h *ReservationHandler) Detail(c *fiber.Ctx) error {
	res, err := h.svc.GetReservationDetail(c.UserContext(), callerFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(res)
}
