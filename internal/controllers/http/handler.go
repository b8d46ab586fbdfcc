package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userHeader = "X-User-ID"

type OrderService interface {
	CreateOrder(ctx context.Context, userID uint64, req services.CreateOrderRequest) (*services.CreateOrderResult, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID uint64, page, limit int) (*services.OrderPage, error)
	ListOrdersByVendor(ctx context.Context, vendorID uint64, page, limit int) (*services.OrderPage, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, userID uint64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	ReconcilePayment(ctx context.Context, token string, orderID uuid.UUID) (*domain.Order, error)
	HandlePaymentCancel(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
}

var _ OrderService = (*services.OrderService)(nil)

type Handler struct {
	service OrderService
	log     *zap.Logger
}

func NewHandler(s OrderService, log *zap.Logger) *Handler {
	return &Handler{service: s, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.PATCH("/orders/:id/status", h.UpdateStatus)
	r.POST("/orders/:id/payment/cancel", h.CancelPayment)
	r.GET("/users/:userId/orders", h.ListUserOrders)
	r.GET("/vendors/:vendorId/orders", h.ListVendorOrders)
	r.GET("/payments/callback", h.PaymentCallback)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	res, err := h.service.CreateOrder(c.Request.Context(), userID, req.toService())
	if err != nil {
		var order *domain.Order
		if res != nil {
			order = res.Order
		}
		h.writeError(c, err, order)
		return
	}

	resp := CreateOrderResponse{Order: res.Order, Payment: res.Redirect}
	if res.Redirect != nil {
		resp.RedirectURL = res.Redirect.URL
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	o, err := h.service.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	o, err := h.service.CancelOrder(c.Request.Context(), id, userID)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}
	o, err := h.service.UpdateOrderStatus(c.Request.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelPayment(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	o, err := h.service.HandlePaymentCancel(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) PaymentCallback(c *gin.Context) {
	id, err := uuid.Parse(c.Query("orderId"))
	if err != nil {
		h.badRequest(c, "orderId must be a valid id")
		return
	}
	token := c.Query("data")
	if token == "" {
		h.badRequest(c, "data is required")
		return
	}
	o, err := h.service.ReconcilePayment(c.Request.Context(), token, id)
	if err != nil {
		h.writeError(c, err, o)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		h.badRequest(c, "userId must be a positive integer")
		return
	}
	page, limit := pagination(c)
	res, err := h.service.ListOrdersByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, toListResponse(res))
}

func (h *Handler) ListVendorOrders(c *gin.Context) {
	vendorID, err := strconv.ParseUint(c.Param("vendorId"), 10, 64)
	if err != nil {
		h.badRequest(c, "vendorId must be a positive integer")
		return
	}
	page, limit := pagination(c)
	res, err := h.service.ListOrdersByVendor(c.Request.Context(), vendorID, page, limit)
	if err != nil {
		h.writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, toListResponse(res))
}

func toListResponse(p *services.OrderPage) OrderListResponse {
	items := p.Items
	if items == nil {
		items = []domain.Order{}
	}
	return OrderListResponse{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit}
}

// pagination passes raw values through; the service applies the bounds.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	return page, limit
}

func (h *Handler) userID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.GetHeader(userHeader), 10, 64)
	if err != nil || id == 0 {
		h.badRequest(c, userHeader+" header is required")
		return 0, false
	}
	return id, true
}

func (h *Handler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, "order id must be a valid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(domain.KindInvalidRequest), Message: msg})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientStock, domain.KindEmptyCart, domain.KindAddressIncomplete,
		domain.KindInvalidPaymentMethod, domain.KindInvalidRequest,
		domain.KindSignatureMismatch, domain.KindPaymentVerificationFailed:
		return http.StatusBadRequest
	case domain.KindInvalidTransition, domain.KindCannotCancel,
		domain.KindDuplicateTransaction, domain.KindConflict, domain.KindRefundRequired:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindGatewayUnavailable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error, order *domain.Order) {
	var de *domain.Error
	if !errors.As(err, &de) {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "INTERNAL",
			Message: "internal server error",
		})
		return
	}
	c.JSON(statusFor(de.Kind), ErrorResponse{
		Error:   string(de.Kind),
		Message: de.Message,
		Details: de.Details,
		Order:   order,
	})
}
