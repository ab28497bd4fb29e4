package payment

import (
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/models"
)

type Controller struct {
	useCase *UseCase
	log     *zap.Logger
	tracer  trace.Tracer
}

func NewController(useCase *UseCase, log *zap.Logger, tracer trace.Tracer) *Controller {
	return &Controller{useCase: useCase, log: log, tracer: tracer}
}

func (ct *Controller) Register(api fiber.Router) {
	payments := api.Group("/payments")
	payments.Post("/create-checkout-session", ct.CreateCheckoutSession)
	payments.Post("/create-payment-intent", ct.CreatePaymentIntent)
	payments.Get("/session/:sessionId", ct.GetSession)
	payments.Post("/verify", ct.Verify)
}

type createCheckoutSessionRequest struct {
	Items         []models.OrderItem `json:"items"`
	CustomerEmail string             `json:"customerEmail"`
	OrderID       string             `json:"orderId"`
}

func (ct *Controller) CreateCheckoutSession(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.CreateCheckoutSession",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req createCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		span.SetStatus(codes.Error, "invalid body")
		return httperr.BadRequest("Invalid JSON body")
	}
	if len(req.Items) == 0 || req.CustomerEmail == "" {
		span.SetStatus(codes.Error, "missing required fields")
		return httperr.BadRequest("Items and customerEmail are required")
	}

	res, err := ct.useCase.CreateCheckoutSession(ctx, req.Items, req.CustomerEmail, req.OrderID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": res.SessionID,
		"url":       res.URL,
		"orderId":   res.OrderID,
	})
}

type createPaymentIntentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	OrderID  string  `json:"orderId"`
}

func (ct *Controller) CreatePaymentIntent(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.CreatePaymentIntent",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req createPaymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		span.SetStatus(codes.Error, "invalid body")
		return httperr.BadRequest("Invalid JSON body")
	}

	pi, err := ct.useCase.CreatePaymentIntent(ctx, req.Amount, req.Currency, req.OrderID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{
		"success":         true,
		"clientSecret":    pi.ClientSecret,
		"paymentIntentId": pi.ID,
	})
}

func (ct *Controller) GetSession(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.GetSession",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	sess, err := ct.useCase.GetSession(ctx, c.Params("sessionId"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{"success": true, "data": sess})
}

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

func (ct *Controller) Verify(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.VerifyPayment",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		span.SetStatus(codes.Error, "invalid body")
		return httperr.BadRequest("Invalid JSON body")
	}
	if req.SessionID == "" {
		span.SetStatus(codes.Error, "missing session id")
		return httperr.BadRequest("Session ID is required")
	}

	res, err := ct.useCase.Verify(ctx, req.SessionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	if !res.Paid {
		return c.JSON(fiber.Map{
			"success": false,
			"message": "Payment not completed",
			"status":  res.Status,
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Payment verified successfully",
		"status":  res.Status,
		"orderId": res.OrderID,
		"email":   res.Email,
		"amount":  res.Amount,
	})
}
