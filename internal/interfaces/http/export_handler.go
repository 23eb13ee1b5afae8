package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
	"github.com/jhoicas/estoque-api/internal/infrastructure/export"
)

const (
	formatCSV = "csv"
	formatPDF = "pdf"
)

// exposedExportHeaders cabeceras legibles desde el navegador.
const exposedExportHeaders = "Content-Disposition,X-Export-Format,X-Export-Resource,X-Export-GeneratedAtUtc,X-Export-FileName"

// Límites de filas por formato: default y máximo.
var exportLimits = map[string][2]int{
	formatCSV: {5000, 20000},
	formatPDF: {1000, 10000},
}

// ExportHandler exportaciones CSV y PDF de las consultas.
type ExportHandler struct {
	svc *inventory.Service
	now func() time.Time
}

func NewExportHandler(svc *inventory.Service) *ExportHandler {
	return &ExportHandler{svc: svc, now: time.Now}
}

// exportParams formato de la ruta y límite del query string.
func exportParams(c *fiber.Ctx) (string, int, error) {
	format := c.Params("format")
	limits, ok := exportLimits[format]
	if !ok {
		return "", 0, domain.InvalidField("format", "debe ser csv o pdf")
	}
	limit, err := queryPositiveInt(c, "limit")
	if err != nil {
		return "", 0, err
	}
	if limit == 0 {
		limit = limits[0]
	}
	if limit < 1 || limit > limits[1] {
		return "", 0, domain.InvalidField("limit", fmt.Sprintf("debe estar entre 1 y %d", limits[1]))
	}
	return format, limit, nil
}

// send serializa la tabla y fija cabeceras de descarga y X-Export-*.
func (h *ExportHandler) send(c *fiber.Ctx, resource, format, orgID string, limit int, t export.Table) error {
	at := h.now()
	var (
		body        []byte
		err         error
		contentType string
	)
	switch format {
	case formatPDF:
		body, err = export.PDF(t, orgID, at)
		contentType = "application/pdf"
	default:
		body, err = export.CSV(t)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		return writeError(c, err)
	}
	fileName := export.FileName(resource, at, format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Set("X-Export-Format", format)
	c.Set("X-Export-Resource", resource)
	c.Set("X-Export-GeneratedAtUtc", at.UTC().Format(time.RFC3339Nano))
	c.Set("X-Export-FileName", fileName)
	c.Set(fiber.HeaderAccessControlExposeHeaders, exposedExportHeaders)
	c.Set("X-Export-Organization", orgID)
	c.Set("X-Export-Rows", strconv.Itoa(len(t.Rows)))
	c.Set("X-Export-Limit", strconv.Itoa(limit))
	c.Set("X-Export-Truncated", strconv.FormatBool(len(t.Rows) >= limit))
	return c.Send(body)
}

// Balances godoc
// @Summary      Exportar saldos
// @Tags         exports
// @Security     Bearer
// @Produce      text/csv
// @Produce      application/pdf
// @Param        format  path   string  true   "csv o pdf"
// @Param        limit   query  int     false  "máximo de filas"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/balances/export/{format} [get]
func (h *ExportHandler) Balances(c *fiber.Ctx) error {
	format, limit, err := exportParams(c)
	if err != nil {
		return writeError(c, err)
	}
	q := balanceQuery(c)
	q.Limit = limit
	res, err := h.svc.GetBalances(c.UserContext(), callerFrom(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return h.send(c, "saldos", format, res.OrganizationID, limit, export.BalancesTable(res.Items))
}

// ActiveReservations godoc
// @Summary      Exportar reservas vigentes
// @Tags         exports
// @Security     Bearer
// @Param        format  path   string  true   "csv o pdf"
// @Success      200
// @Router       /api/inventory/reservations/active/export/{format} [get]
func (h *ExportHandler) ActiveReservations(c *fiber.Ctx) error {
	format, limit, err := exportParams(c)
	if err != nil {
		return writeError(c, err)
	}
	q := activeReservationQuery(c)
	q.Limit = limit
	res, err := h.svc.GetActiveReservations(c.UserContext(), callerFrom(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return h.send(c, "reservas_ativas", format, res.OrganizationID, limit, export.ReservationsTable("Reservas vigentes", res.Items))
}

// ReservationHistory godoc
// @Summary      Exportar histórico de reservas
// @Tags         exports
// @Security     Bearer
// @Param        format  path   string  true   "csv o pdf"
// @Success      200
// @Router       /api/inventory/reservations/export/{format} [get]
func (h *ExportHandler) ReservationHistory(c *fiber.Ctx) error {
	format, limit, err := exportParams(c)
	if err != nil {
		return writeError(c, err)
	}
	q, err := historyQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.ExportReservationHistory(c.UserContext(), callerFrom(c), q, limit)
	if err != nil {
		return writeError(c, err)
	}
	return h.send(c, "reservas_historico", format, res.OrganizationID, limit, export.ReservationsTable("Histórico de reservas", res.Items))
}

// Movements godoc
// @Summary      Exportar histórico de movimientos
// @Tags         exports
// @Security     Bearer
// @Param        format  path   string  true   "csv o pdf"
// @Success      200
// @Router       /api/inventory/movements/export/{format} [get]
func (h *ExportHandler) Movements(c *fiber.Ctx) error {
	format, limit, err := exportParams(c)
	if err != nil {
		return writeError(c, err)
	}
	q, err := historyQuery(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.svc.ExportMovementHistory(c.UserContext(), callerFrom(c), q, limit)
	if err != nil {
		return writeError(c, err)
	}
	return h.send(c, "movimentacoes", format, res.OrganizationID, limit, export.MovementsTable(res.Items))
}
