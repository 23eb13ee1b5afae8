package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/estoque-api/internal/application/dto"
	"github.com/jhoicas/estoque-api/internal/domain"
)

// statusFor traduce la categoría del error de dominio a HTTP.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindAuth:
		return fiber.StatusUnauthorized
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindForbidden, domain.KindUnresolved:
		return fiber.StatusForbidden
	case domain.KindTimeout:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError responde con ErrorResponse; los 5xx se registran con el error completo.
func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	resp := dto.ErrorResponse{Code: domain.Code(err), Message: domain.Message(err)}

	var fe *domain.FieldError
	var many domain.ValidationErrors
	switch {
	case errors.As(err, &many):
		for _, f := range many {
			resp.Fields = append(resp.Fields, dto.FieldError{Field: f.Field, Message: f.Message})
		}
	case errors.As(err, &fe):
		resp.Fields = []dto.FieldError{{Field: fe.Field, Message: fe.Message}}
	}

	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("code", resp.Code).Msg("error en la petición")
	}
	return c.Status(status).JSON(resp)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// errBody marca un cuerpo que no se pudo decodificar.
var errBody = errors.New("cuerpo inválido")

func respondParseError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errBody) {
		return invalidBody(c)
	}
	return writeError(c, err)
}
