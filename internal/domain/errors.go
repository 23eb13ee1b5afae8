package domain

import (
	"errors"
	"strings"
)

// Errores de dominio (sin dependencias externas).
// Cada uno tiene un código estable que viaja hasta el cliente HTTP.
var (
	ErrInvalidInput            = errors.New("entrada inválida")
	ErrDuplicate               = errors.New("recurso duplicado")
	ErrUnauthorized            = errors.New("no autorizado")
	ErrUnitNotFound            = errors.New("unidad organizacional no encontrada en la organización")
	ErrProductNotFound         = errors.New("producto no encontrado en la organización")
	ErrLotNotFound             = errors.New("lote no encontrado para el producto en la organización")
	ErrStockNotFound           = errors.New("registro de stock no encontrado")
	ErrInsufficientStock       = errors.New("stock insuficiente")
	ErrInconsistentStock       = errors.New("stock inconsistente: reservado mayor que disponible")
	ErrAdjustmentBelowReserved = errors.New("el ajuste dejaría el disponible por debajo de lo reservado")
	ErrReservationNotFound     = errors.New("reserva no encontrada")
	ErrReservationNotActive    = errors.New("la reserva no está activa")
	ErrReservationExpired      = errors.New("la reserva expiró")
	ErrOrgForbidden            = errors.New("acceso denegado a la organización")
	ErrOrgContextUnresolved    = errors.New("no fue posible determinar la organización")
	ErrLockTimeout             = errors.New("tiempo de espera de bloqueo agotado")
)

// Códigos estables expuestos en las respuestas de error.
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeUnitNotFound            = "UNIT_NOT_FOUND"
	CodeProductNotFound         = "PRODUCT_NOT_FOUND"
	CodeLotNotFound             = "LOT_NOT_FOUND"
	CodeStockNotFound           = "STOCK_NOT_FOUND"
	CodeInsufficientStock       = "INSUFFICIENT_STOCK"
	CodeInconsistentStock       = "INCONSISTENT_STOCK"
	CodeAdjustmentBelowReserved = "ADJUSTMENT_BELOW_RESERVED"
	CodeReservationNotFound     = "RESERVATION_NOT_FOUND"
	CodeReservationNotActive    = "RESERVATION_NOT_ACTIVE"
	CodeReservationExpired      = "RESERVATION_EXPIRED"
	CodeOrgForbidden            = "ORG_FORBIDDEN"
	CodeOrgContextNotFound      = "ORG_CONTEXT_NOT_FOUND"
	CodeLockTimeout             = "LOCK_TIMEOUT"
	CodeConflict                = "CONFLICT"
	CodeInternal                = "INTERNAL_ERROR"
)

// Categorías de error; la capa HTTP las traduce a status.
const (
	KindValidation = "VALIDATION"
	KindNotFound   = "NOT_FOUND"
	KindConflict   = "CONFLICT"
	KindForbidden  = "FORBIDDEN"
	KindAuth       = "UNAUTHORIZED"
	KindUnresolved = "ORG_CONTEXT_UNRESOLVED"
	KindTimeout    = "TIMEOUT"
	KindInternal   = "INTERNAL"
)

type classified struct {
	err  error
	code string
	kind string
}

var taxonomy = []classified{
	{ErrInvalidInput, CodeValidation, KindValidation},
	{ErrUnauthorized, CodeUnauthorized, KindAuth},
	{ErrUnitNotFound, CodeUnitNotFound, KindNotFound},
	{ErrProductNotFound, CodeProductNotFound, KindNotFound},
	{ErrLotNotFound, CodeLotNotFound, KindNotFound},
	{ErrStockNotFound, CodeStockNotFound, KindNotFound},
	{ErrReservationNotFound, CodeReservationNotFound, KindNotFound},
	{ErrInsufficientStock, CodeInsufficientStock, KindConflict},
	{ErrInconsistentStock, CodeInconsistentStock, KindConflict},
	{ErrAdjustmentBelowReserved, CodeAdjustmentBelowReserved, KindConflict},
	{ErrReservationNotActive, CodeReservationNotActive, KindConflict},
	{ErrReservationExpired, CodeReservationExpired, KindConflict},
	{ErrDuplicate, CodeConflict, KindConflict},
	{ErrOrgForbidden, CodeOrgForbidden, KindForbidden},
	{ErrOrgContextUnresolved, CodeOrgContextNotFound, KindUnresolved},
	{ErrLockTimeout, CodeLockTimeout, KindTimeout},
}

func classify(err error) (classified, bool) {
	if err == nil {
		return classified{}, false
	}
	for _, c := range taxonomy {
		if errors.Is(err, c.err) {
			return c, true
		}
	}
	return classified{}, false
}

// Code devuelve el código estable del error o INTERNAL_ERROR si no es de dominio.
func Code(err error) string {
	if c, ok := classify(err); ok {
		return c.code
	}
	return CodeInternal
}

// KindOf devuelve la categoría del error.
func KindOf(err error) string {
	if c, ok := classify(err); ok {
		return c.kind
	}
	return KindInternal
}

// Message devuelve un mensaje apto para el cliente. Los errores internos no filtran detalle.
func Message(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Error()
	}
	if c, ok := classify(err); ok {
		if c.kind == KindValidation {
			return err.Error()
		}
		return c.err.Error()
	}
	return "error interno"
}

// FieldError error de validación asociado a un campo de entrada.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// InvalidField construye un error de validación para el campo.
func InvalidField(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// ValidationErrors agrupa varios errores de campo (p. ej. los del validador de la capa HTTP).
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrInvalidInput }
