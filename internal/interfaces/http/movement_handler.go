package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/application/inventory"
)

// MovementHandler maneja ENTRADA, SAIDA y AJUSTE.
type MovementHandler struct {
	svc      *inventory.Service
	validate *requestValidator
}

func NewMovementHandler(svc *inventory.Service) *MovementHandler {
	return &MovementHandler{svc: svc, validate: newRequestValidator()}
}

func (h *MovementHandler) parseMovement(c *fiber.Ctx) (inventory.MovementInput, error) {
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return inventory.MovementInput{}, errBody
	}
	if err := h.validate.Struct(in); err != nil {
		return inventory.MovementInput{}, err
	}
	return inventory.MovementInput{
		OrganizationID:    in.OrganizationID,
		UnitID:            in.UnitID,
		ProductID:         in.ProductID,
		LotID:             in.LotID,
		Quantity:          in.Quantity,
		ReferenceDocument: in.ReferenceDocument,
	}, nil
}

// Entry godoc
// @Summary      Registrar entrada de stock
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "unit_id, product_id, lot_id opcional, quantity > 0"
// @Success      201   {object}  inventory.MovementResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/entry [post]
func (h *MovementHandler) Entry(c *fiber.Ctx) error {
	in, err := h.parseMovement(c)
	if err != nil {
		return respondParseError(c, err)
	}
	res, err := h.svc.RegisterEntry(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Exit godoc
// @Summary      Registrar salida de stock
// @Description  Nunca deja el disponible por debajo de lo reservado.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "unit_id, product_id, lot_id opcional, quantity > 0"
// @Success      201   {object}  inventory.MovementResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/exit [post]
func (h *MovementHandler) Exit(c *fiber.Ctx) error {
	in, err := h.parseMovement(c)
	if err != nil {
		return respondParseError(c, err)
	}
	res, err := h.svc.RegisterExit(c.UserContext(), callerFrom(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Adjustment godoc
// @Summary      Ajustar disponible
// @Description  Fija el disponible; no puede quedar por debajo de lo reservado.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "unit_id, product_id, lot_id opcional, available >= 0"
// @Success      201   {object}  inventory.MovementResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements/adjustment [post]
func (h *MovementHandler) Adjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.RegisterAdjustment(c.UserContext(), callerFrom(c), inventory.AdjustmentInput{
		OrganizationID:    in.OrganizationID,
		UnitID:            in.UnitID,
		ProductID:         in.ProductID,
		LotID:             in.LotID,
		Available:         *in.Available,
		ReferenceDocument: in.ReferenceDocument,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
