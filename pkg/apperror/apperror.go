package apperror

import (
	"errors"
	"fmt"

	"nabook/config"
	"nabook/pkg/apperror/status"
	"nabook/pkg/logger"

	"github.com/gofiber/fiber/v3"
)

// Response is the standardized HTTP error payload. The "error" field is the
// user-visible message; "error_code" is stable across releases.
type Response struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// WriteError logs a structured warning and returns a standardized JSON error.
func WriteError(module config.Module, c fiber.Ctx, httpStatus int, code status.ErrorCode, message string) error {
	logger.WithFields(map[string]interface{}{
		"module":        module,
		"status_code":   httpStatus,
		"error_code":    code,
		"error_message": message,
		"http_method":   c.Method(),
		"path":          c.Path(),
		"ip":            c.IP(),
	}).Warnf("http error")

	return c.Status(httpStatus).JSON(Response{
		Error:     message,
		ErrorCode: fmt.Sprintf("NB-%d", code),
	})
}

func BadRequest(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusBadRequest, code, message)
}

func NotFound(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusNotFound, code, message)
}

func Conflict(module config.Module, c fiber.Ctx, code status.ErrorCode, message string) error {
	return WriteError(module, c, fiber.StatusConflict, code, message)
}

// InternalError surfaces the upstream message where available, per the
// propagation policy: no step recovers locally.
func InternalError(module config.Module, c fiber.Ctx, err error) error {
	code := status.Internal
	var coded status.CodedError
	if errors.As(err, &coded) {
		code = coded.ErrorCode()
	}
	return WriteError(module, c, fiber.StatusInternalServerError, code, err.Error())
}
