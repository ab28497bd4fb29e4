package order

import (
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"stripe-checkout/internal/httperr"
	"stripe-checkout/internal/models"
	"stripe-checkout/internal/store"
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
	orders := api.Group("/orders")
	orders.Post("/", ct.Create)
	orders.Get("/", ct.List)
	orders.Get("/:id", ct.Get)
	orders.Put("/:id", ct.Update)
}

type createOrderRequest struct {
	CustomerEmail string             `json:"customerEmail"`
	Items         []models.OrderItem `json:"items"`
	TotalAmount   float64            `json:"totalAmount"`
}

func (ct *Controller) Create(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.CreateOrder",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		span.SetStatus(codes.Error, "invalid body")
		return httperr.BadRequest("Invalid JSON body")
	}
	if req.CustomerEmail == "" || req.Items == nil {
		span.SetStatus(codes.Error, "missing required fields")
		return httperr.BadRequest("Missing required fields: customerEmail, items, and totalAmount are required")
	}

	o, err := ct.useCase.Create(ctx, req.CustomerEmail, req.Items, req.TotalAmount)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order created successfully",
		"data":    o,
	})
}

func (ct *Controller) Get(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.GetOrder",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	o, err := ct.useCase.Get(ctx, c.Params("id"))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{"success": true, "data": o})
}

type updateOrderRequest struct {
	PaymentStatus         string `json:"paymentStatus"`
	TransactionID         string `json:"transactionId"`
	StripePaymentIntentID string `json:"stripePaymentIntentId"`
}

func (ct *Controller) Update(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.UpdateOrder",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req updateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		span.SetStatus(codes.Error, "invalid body")
		return httperr.BadRequest("Invalid JSON body")
	}

	var upd store.OrderUpdate
	if req.PaymentStatus != "" {
		status := models.PaymentStatus(req.PaymentStatus)
		upd.PaymentStatus = &status
	}
	if req.TransactionID != "" {
		upd.TransactionID = &req.TransactionID
	}
	if req.StripePaymentIntentID != "" {
		upd.StripeSessionID = &req.StripePaymentIntentID
	}

	o, err := ct.useCase.UpdateStatus(ctx, c.Params("id"), upd)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order updated successfully",
		"data":    o,
	})
}

func (ct *Controller) List(c *fiber.Ctx) error {
	ctx, span := ct.tracer.Start(c.UserContext(), "Controller.ListOrders",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	f := store.OrderFilter{
		Status: models.PaymentStatus(c.Query("status")),
		Email:  c.Query("email"),
	}
	orders, err := ct.useCase.List(ctx, f)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(orders),
		"data":    orders,
	})
}
