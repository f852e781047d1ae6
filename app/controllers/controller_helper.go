package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var validate = validator.New()

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// respondError maps domain errors onto the JSON error shape.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorJSON(c, fiber.StatusNotFound, string(apperror.KindNotFound), "not found")
	}
	if appErr, ok := apperror.As(err); ok {
		return errorJSON(c, apperror.HTTPStatus(appErr), string(appErr.Kind), appErr.Message)
	}
	log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "internal error")
}

// parseBody decodes and validates a JSON request body into dst.
// normalizer is implemented by request bodies that clean up input before validation.
type normalizer interface {
	normalize()
}

func parseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.MalformedPayload("invalid request body")
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		return apperror.Validation(err.Error(), err)
	}
	return nil
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid "+name, err)
	}
	return uint(id), nil
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
