package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
	"github.com/jhoicas/estoque-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/estoque-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/estoque-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	orgA  = "org-a"
	orgB  = "org-b"
	unit1 = "unit-1"
	prod1 = "prod-1"
)

// newTestServer API completa sobre el store en memoria.
func newTestServer(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.NewStore()
	store.AddUnit(orgA, unit1, "CD-01", "Centro de distribución")
	store.AddProduct(orgA, prod1, "P-001", "Paracetamol 500mg")
	store.AddUnit(orgB, "unit-b", "CD-B", "Depósito B")
	store.AddProduct(orgB, "prod-b", "PB-001", "Ibuprofeno")

	svc := inventory.NewService(store, store.Repos(), inventory.NewOrgContext(store.Members()))
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Inventory: svc, JWTSecret: testJWTSecret})
	return app
}

func bearer(t *testing.T, orgID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, pkgjwt.Identity{UserID: testUserID, OrganizationID: orgID, Role: role}, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// call ejecuta la petición y decodifica el cuerpo JSON (si lo hay) en un mapa.
func call(t *testing.T, app *fiber.App, method, path, auth string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func entryBody(qty string) fiber.Map {
	return fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestEntry_Crea201(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")

	status, body := call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("100"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "ENTRADA", body["kind"])
	assert.Equal(t, "0", body["previous_available"])
	assert.Equal(t, "100", body["current_available"])

	status, body = call(t, app, http.MethodGet, "/api/inventory/balances", auth, nil)
	require.Equal(t, http.StatusOK, status)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	line := items[0].(map[string]interface{})
	assert.Equal(t, "P-001", line["product_code"])
	assert.Equal(t, "100", line["net"])
}

func TestEntry_Errores(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")

	cases := []struct {
		name   string
		body   interface{}
		status int
		code   string
	}{
		{"json inválido", "{unit_id:", http.StatusBadRequest, "INVALID_BODY"},
		{"cantidad cero", entryBody("0"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"sin unidad", fiber.Map{"product_id": prod1, "quantity": 1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unidad desconocida", fiber.Map{"unit_id": "x", "product_id": prod1, "quantity": 1}, http.StatusNotFound, "UNIT_NOT_FOUND"},
		{"producto de otra organización", fiber.Map{"unit_id": unit1, "product_id": "prod-b", "quantity": 1}, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"lote desconocido", fiber.Map{"unit_id": unit1, "product_id": prod1, "lot_id": "lot-x", "quantity": 1}, http.StatusNotFound, "LOT_NOT_FOUND"},
		{"organización sin acceso", fiber.Map{"organization_id": orgB, "unit_id": "unit-b", "product_id": "prod-b", "quantity": 1}, http.StatusForbidden, "ORG_FORBIDDEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, tc.body)
			assert.Equal(t, tc.status, status, body)
			assert.Equal(t, tc.code, body["code"])
		})
	}
}

func TestEntry_ValidacionIndicaCampo(t *testing.T) {
	app := newTestServer(t)
	status, body := call(t, app, http.MethodPost, "/api/inventory/movements/entry", bearer(t, orgA, "admin"), entryBody("-2"))

	require.Equal(t, http.StatusBadRequest, status)
	fields := body["fields"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "quantity", fields[0].(map[string]interface{})["field"])
}

func TestEntry_SinOrganizacionEnToken(t *testing.T) {
	app := newTestServer(t)
	status, body := call(t, app, http.MethodPost, "/api/inventory/movements/entry", bearer(t, "", "admin"), entryBody("1"))

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ORG_CONTEXT_NOT_FOUND", body["code"])
}

func TestExit_StockInsuficiente409(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")

	status, body := call(t, app, http.MethodPost, "/api/inventory/movements/exit", auth, entryBody("1"))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "STOCK_NOT_FOUND", body["code"])

	call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("5"))
	status, body = call(t, app, http.MethodPost, "/api/inventory/movements/exit", auth, entryBody("5.5"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
}

func TestAdjustment_RequiereRol(t *testing.T) {
	app := newTestServer(t)
	call(t, app, http.MethodPost, "/api/inventory/movements/entry", bearer(t, orgA, "vendedor"), entryBody("10"))
	adj := fiber.Map{"unit_id": unit1, "product_id": prod1, "available": "7"}

	status, body := call(t, app, http.MethodPost, "/api/inventory/movements/adjustment", bearer(t, orgA, "vendedor"), adj)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/movements/adjustment", bearer(t, orgA, "bodeguero"), adj)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "-3", body["quantity"])
	assert.Equal(t, "AJUSTE-MANUAL", body["reference_document"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/movements/adjustment", bearer(t, orgA, "admin"),
		fiber.Map{"unit_id": unit1, "product_id": prod1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Reservas
// ──────────────────────────────────────────────────────────────────────────────

func TestReservation_CicloCompleto(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")
	call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("10"))

	status, body := call(t, app, http.MethodPost, "/api/inventory/reservations", auth,
		fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": 4, "ttl_minutes": 15, "reference_document": "PED-1"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "ATIVA", body["status"])
	assert.Equal(t, "6", body["net"])
	id := body["reservation_id"].(string)

	status, body = call(t, app, http.MethodGet, "/api/inventory/reservations/active", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"], 1)

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations/"+id+"/confirm", auth, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "CONFIRMADA", body["status"])
	assert.Equal(t, "6", body["available"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations/"+id+"/cancel", auth, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "RESERVATION_NOT_ACTIVE", body["code"])

	status, body = call(t, app, http.MethodGet, "/api/inventory/reservations/"+id, auth, nil)
	require.Equal(t, http.StatusOK, status)
	transitions := body["transitions"].([]interface{})
	require.Len(t, transitions, 1)

	status, body = call(t, app, http.MethodGet, "/api/inventory/movements?kind=saida&page_size=10", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total_items"])
}

func TestReservation_Errores(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")

	status, body := call(t, app, http.MethodPost, "/api/inventory/reservations/nao-e-uuid/confirm", auth, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations/00000000-0000-0000-0000-0000000000ff/cancel", auth, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RESERVATION_NOT_FOUND", body["code"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations", auth,
		fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": 1, "ttl_minutes": 0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations", auth,
		fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": 1, "ttl_minutes": 5})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "STOCK_NOT_FOUND", body["code"])
}

func TestReservation_TTLPorDefectoYLimite(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")
	call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("10"))

	before := time.Now().UTC()
	status, body := call(t, app, http.MethodPost, "/api/inventory/reservations", auth,
		fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": 1})
	require.Equal(t, http.StatusCreated, status, body)
	expiresAt, err := time.Parse(time.RFC3339Nano, body["expires_at"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(15*time.Minute), expiresAt, 5*time.Second)

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations", auth,
		fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": 1, "ttl_minutes": 525601})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations", auth,
		fiber.Map{"unit_id": unit1, "product_id": prod1, "quantity": "0.00001", "ttl_minutes": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestExpire_RolYParametros(t *testing.T) {
	app := newTestServer(t)

	status, _ := call(t, app, http.MethodPost, "/api/inventory/reservations/expire", bearer(t, orgA, "vendedor"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, app, http.MethodPost, "/api/inventory/reservations/expire", bearer(t, orgA, "bodeguero"), nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 0, body["total_processed"])
	assert.Equal(t, orgA, body["organization_id"])

	status, body = call(t, app, http.MethodPost, "/api/inventory/reservations/expire", bearer(t, orgA, "admin"), fiber.Map{"max_items": 5000})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas y exportaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestHistory_ParametrosDeFecha(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")
	call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("1"))

	status, _ := call(t, app, http.MethodGet, "/api/inventory/movements?date_from=2000-01-01&date_to=2999-12-31", auth, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := call(t, app, http.MethodGet, "/api/inventory/reservations?date_from=ontem", auth, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, _ = call(t, app, http.MethodGet, "/api/inventory/reservations?page=abc", auth, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHistory_PaginacionExplicitaInvalida(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")

	cases := []struct {
		name  string
		path  string
		field string
	}{
		{"página cero", "/api/inventory/movements?page=0", "page"},
		{"página negativa", "/api/inventory/reservations?page=-1", "page"},
		{"tamaño cero", "/api/inventory/movements?page_size=0", "page_size"},
		{"tamaño excesivo", "/api/inventory/reservations?page_size=201", "page_size"},
		{"límite de exportación cero", "/api/inventory/movements/export/csv?limit=0", "limit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := call(t, app, http.MethodGet, tc.path, auth, nil)
			require.Equal(t, http.StatusBadRequest, status, body)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			fields := body["fields"].([]interface{})
			require.Len(t, fields, 1)
			assert.Equal(t, tc.field, fields[0].(map[string]interface{})["field"])
		})
	}

	status, body := call(t, app, http.MethodGet, "/api/inventory/movements", auth, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["page"], "sin parámetros se usan los valores por defecto")
	assert.EqualValues(t, 50, body["page_size"])
}

func TestReconciliation_SoloAdmin(t *testing.T) {
	app := newTestServer(t)

	status, _ := call(t, app, http.MethodGet, "/api/inventory/reconciliation", bearer(t, orgA, "bodeguero"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := call(t, app, http.MethodGet, "/api/inventory/reconciliation", bearer(t, orgA, "admin"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["drift"])
}

func TestExport_CSV(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")
	call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("3"))

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/balances/export/csv?limit=10", nil)
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "saldos_")
	assert.Equal(t, "csv", resp.Header.Get("X-Export-Format"))
	assert.Equal(t, "saldos", resp.Header.Get("X-Export-Resource"))
	fileName := resp.Header.Get("X-Export-FileName")
	assert.Regexp(t, `^saldos_\d{8}_\d{6}\.csv$`, fileName)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), fileName)
	generatedAt, err := time.Parse(time.RFC3339Nano, resp.Header.Get("X-Export-GeneratedAtUtc"))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, generatedAt.Location())
	assert.Contains(t, resp.Header.Get("Access-Control-Expose-Headers"), "X-Export-FileName")
	assert.Equal(t, orgA, resp.Header.Get("X-Export-Organization"))
	assert.Equal(t, "1", resp.Header.Get("X-Export-Rows"))
	assert.Equal(t, "10", resp.Header.Get("X-Export-Limit"))
	assert.Equal(t, "false", resp.Header.Get("X-Export-Truncated"))

	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("\xEF\xBB\xBF")), "CSV con BOM para Excel")
	assert.Contains(t, string(raw), "P-001")
}

func TestExport_FormatoYLimite(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")

	status, body := call(t, app, http.MethodGet, "/api/inventory/movements/export/xlsx", auth, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, _ = call(t, app, http.MethodGet, "/api/inventory/movements/export/pdf?limit=10001", auth, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestExport_PDF(t *testing.T) {
	app := newTestServer(t)
	auth := bearer(t, orgA, "vendedor")
	call(t, app, http.MethodPost, "/api/inventory/movements/entry", auth, entryBody("3"))

	req := httptest.NewRequest(http.MethodGet, "/api/inventory/movements/export/pdf", nil)
	req.Header.Set("Authorization", auth)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "pdf", resp.Header.Get("X-Export-Format"))
	assert.Equal(t, "movimentacoes", resp.Header.Get("X-Export-Resource"))
	assert.Regexp(t, `^movimentacoes_\d{8}_\d{6}\.pdf$`, resp.Header.Get("X-Export-FileName"))
	assert.Equal(t, "1000", resp.Header.Get("X-Export-Limit"))
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}
