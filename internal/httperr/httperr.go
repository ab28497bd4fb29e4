// Package httperr defines the API error taxonomy and the single centralized
// responder all handlers forward to. Every error response has the shape
// {success:false, message, errors?}.
package httperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	stripeapi "github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"stripe-checkout/internal/store"
	"stripe-checkout/internal/stripe"
)

// Error is an API error with a fixed HTTP status.
type Error struct {
	Status  int
	Message string
	Errs    []string
}

func (e *Error) Error() string { return e.Message }

func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error { return New(fiber.StatusBadRequest, message) }
func NotFound(message string) *Error   { return New(fiber.StatusNotFound, message) }
func Conflict(message string) *Error   { return New(fiber.StatusConflict, message) }

// Unauthorized exists for token failures handled generically; no auth is
// issued by this service itself.
func Unauthorized(message string) *Error { return New(fiber.StatusUnauthorized, message) }

// Validation carries per-field messages in the errors array.
func Validation(errs ...string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Message: "Validation error", Errs: errs}
}

// Handler returns the fiber ErrorHandler that classifies errors by shape.
// Stack traces are included only outside production.
func Handler(log *zap.Logger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)

		var apiErr *Error
		if errors.As(err, &apiErr) {
			body := fiber.Map{"success": false, "message": apiErr.Message}
			if len(apiErr.Errs) > 0 {
				body["errors"] = apiErr.Errs
			}
			return c.Status(apiErr.Status).JSON(body)
		}

		switch {
		case errors.Is(err, store.ErrNotFound):
			return respond(c, fiber.StatusNotFound, "Order not found")
		case errors.Is(err, store.ErrInvalidID):
			return respond(c, fiber.StatusBadRequest, "Invalid id. Please provide a valid ID format.")
		case errors.Is(err, stripe.ErrInvalidSignature):
			return respond(c, fiber.StatusBadRequest, "Invalid signature")
		case store.IsDuplicateKey(err):
			return respond(c, fiber.StatusConflict, "Duplicate entry. This value already exists.")
		}

		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) {
			switch stripeErr.Type {
			case stripeapi.ErrorTypeCard:
				return respond(c, fiber.StatusBadRequest, stripeErr.Msg)
			case stripeapi.ErrorTypeInvalidRequest:
				return respond(c, fiber.StatusBadRequest, stripeErr.Msg)
			}
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return respond(c, fiberErr.Code, fiberErr.Message)
		}

		body := fiber.Map{"success": false, "message": "Internal server error"}
		if !production {
			body["message"] = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}
}

func respond(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}
