package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/domain"
)

// queryInt entero opcional del query string; vacío = 0.
func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.InvalidField(key, "debe ser un entero")
	}
	return n, nil
}

// queryPositiveInt como queryInt, pero si el parámetro viene debe ser >= 1.
// Ausente = 0, que la capa de aplicación reemplaza por el valor por defecto.
func queryPositiveInt(c *fiber.Ctx, key string) (int, error) {
	n, err := queryInt(c, key)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(c.Query(key)) != "" && n < 1 {
		return 0, domain.InvalidField(key, "debe ser mayor o igual a 1")
	}
	return n, nil
}

// queryTime acepta RFC3339 o fecha (2006-01-02). Con endOfDay una fecha sola cubre el día completo.
func queryTime(c *fiber.Ctx, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, domain.InvalidField(key, "formato esperado RFC3339 o AAAA-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// historyQuery filtros comunes de los históricos.
func historyQuery(c *fiber.Ctx) (inventory.HistoryQuery, error) {
	q := inventory.HistoryQuery{
		OrganizationID: c.Query("organization_id"),
		UnitID:         c.Query("unit_id"),
		ProductID:      c.Query("product_id"),
		LotID:          c.Query("lot_id"),
		Status:         c.Query("status"),
		Kind:           c.Query("kind"),
	}
	var err error
	if q.Page, err = queryPositiveInt(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryPositiveInt(c, "page_size"); err != nil {
		return q, err
	}
	if q.DateFrom, err = queryTime(c, "date_from", false); err != nil {
		return q, err
	}
	if q.DateTo, err = queryTime(c, "date_to", true); err != nil {
		return q, err
	}
	return q, nil
}
