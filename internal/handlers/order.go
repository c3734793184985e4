package handlers

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/coinbridge/internal/coinbase"
	"github.com/example/coinbridge/internal/config"
	"github.com/example/coinbridge/internal/logger"
	"github.com/example/coinbridge/internal/middleware"
	"github.com/example/coinbridge/internal/models"
	"github.com/example/coinbridge/internal/repository"
	"github.com/example/coinbridge/internal/workflow"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	store *repository.Store
	cfg   *config.Config
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(store *repository.Store, cfg *config.Config) *OrderHandler {
	return &OrderHandler{store: store, cfg: cfg}
}

type orderItemRequest struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createOrderRequest struct {
	OrderNumber      string             `json:"order_number"`
	StoreName        string             `json:"store_name"`
	CustomerID       string             `json:"customer_id"`
	Email            string             `json:"email"`
	Currency         string             `json:"currency"`
	PaymentGatewayID string             `json:"payment_gateway_id"`
	Workflow         string             `json:"workflow"`
	Items            []orderItemRequest `json:"items"`
	TotalAmount      *decimal.Decimal   `json:"total_amount"`
}

// CreateOrder seeds a draft order awaiting a crypto payment.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.OrderNumber = strings.TrimSpace(req.OrderNumber)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.OrderNumber == "" || req.Currency == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}
	if len(req.Currency) != 3 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid currency")
	}
	if req.PaymentGatewayID == "" {
		req.PaymentGatewayID = "coinbase"
	}
	if req.Workflow == "" {
		req.Workflow = workflow.DefaultID
	}
	if _, err := workflow.Lookup(req.Workflow); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unknown workflow")
	}

	ctx := c.UserContext()
	if _, err := h.store.FindGateway(ctx, req.PaymentGatewayID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "payment gateway not configured")
		}
		return err
	}
	if _, err := h.store.FindOrder(ctx, req.OrderNumber); err == nil {
		return fiber.NewError(fiber.StatusConflict, "order number already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	order := models.Order{
		OrderNumber:      req.OrderNumber,
		StoreName:        strings.TrimSpace(req.StoreName),
		CustomerID:       strings.TrimSpace(req.CustomerID),
		Email:            strings.TrimSpace(req.Email),
		Currency:         req.Currency,
		PaymentGatewayID: req.PaymentGatewayID,
		Workflow:         req.Workflow,
		State:            workflow.StateDraft,
	}

	subtotal := decimal.Zero
	for _, item := range req.Items {
		if strings.TrimSpace(item.Title) == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "invalid order item")
		}
		lineTotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		order.Items = append(order.Items, models.OrderItem{
			Title:     strings.TrimSpace(item.Title),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: lineTotal,
		})
	}

	order.TotalAmount = subtotal
	if req.TotalAmount != nil {
		order.TotalAmount = *req.TotalAmount
	}
	if !order.TotalAmount.IsPositive() {
		return fiber.NewError(fiber.StatusBadRequest, "total amount must be positive")
	}

	if err := h.store.CreateOrder(ctx, &order); err != nil {
		return err
	}

	admin, _ := middleware.GetCurrentAdmin(c)
	logger.Info("order created", map[string]any{
		"order_id": order.OrderNumber,
		"total":    order.TotalAmount.StringFixed(2),
		"currency": order.Currency,
		"admin":    admin,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// GetOrder returns an order, its payment and the transitions legal from its state.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.loadOrder(c)
	if err != nil {
		return err
	}

	var payment *models.Payment
	if p, err := h.store.FindPaymentByOrderID(c.UserContext(), order.ID); err == nil {
		payment = p
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	allowed, err := order.AllowedTransitions()
	if err != nil {
		return err
	}
	transitions := make([]string, 0, len(allowed))
	for name := range allowed {
		transitions = append(transitions, name)
	}
	sort.Strings(transitions)

	return c.JSON(fiber.Map{
		"success":             true,
		"data":                order,
		"payment":             payment,
		"allowed_transitions": transitions,
	})
}

// ChargeRequest previews the charge payload that pays for an order.
func (h *OrderHandler) ChargeRequest(c *fiber.Ctx) error {
	order, err := h.loadOrder(c)
	if err != nil {
		return err
	}
	if order.State != workflow.StateDraft {
		return fiber.NewError(fiber.StatusConflict, "order is not awaiting payment")
	}

	items := make([]coinbase.ChargeItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, coinbase.ChargeItem{Title: item.Title, Quantity: item.Quantity})
	}

	req := coinbase.NewChargeRequest(coinbase.ChargeInput{
		StoreName:   order.StoreName,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		Email:       order.Email,
		Total:       order.TotalAmount,
		Currency:    order.Currency,
		Items:       items,
		ReturnURL:   c.Query("return_url", h.cfg.PublicBaseURL+"/checkout/complete"),
		CancelURL:   c.Query("cancel_url", h.cfg.PublicBaseURL+"/checkout/cancel"),
	})

	return c.JSON(fiber.Map{
		"success":      true,
		"data":         req,
		"generated_at": time.Now().UTC(),
	})
}

func (h *OrderHandler) loadOrder(c *fiber.Ctx) (*models.Order, error) {
	order, err := h.store.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}
