package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/estoque-api/internal/application/inventory"
)

// Roles del token que pueden operar tareas administrativas del inventario.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory *inventory.Service
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	staff := RequireRole(RoleAdmin, RoleBodeguero)

	movements := NewMovementHandler(deps.Inventory)
	reservations := NewReservationHandler(deps.Inventory)
	queries := NewQueryHandler(deps.Inventory)
	exports := NewExportHandler(deps.Inventory)

	inv := protected.Group("/inventory")

	inv.Get("/balances", queries.Balances)
	inv.Get("/balances/export/:format", exports.Balances)

	inv.Get("/movements", queries.MovementHistory)
	inv.Get("/movements/export/:format", exports.Movements)
	inv.Post("/movements/entry", movements.Entry)
	inv.Post("/movements/exit", movements.Exit)
	inv.Post("/movements/adjustment", staff, movements.Adjustment)

	// rutas fijas antes de /reservations/:id
	inv.Get("/reservations/active", queries.ActiveReservations)
	inv.Get("/reservations/active/export/:format", exports.ActiveReservations)
	inv.Get("/reservations/export/:format", exports.ReservationHistory)
	inv.Get("/reservations", queries.ReservationHistory)
	inv.Post("/reservations", reservations.Create)
	inv.Post("/reservations/expire", staff, reservations.Expire)
	inv.Get("/reservations/:id", reservations.Detail)
	inv.Post("/reservations/:id/confirm", reservations.Confirm)
	inv.Post("/reservations/:id/cancel", reservations.Cancel)

	inv.Get("/reconciliation", RequireRole(RoleAdmin), queries.Reconcile)
}
