package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/factura/internal/domain"
	"github.com/vladislavdragonenkov/factura/internal/service/order"
)

// actorHeader несёт идентификатор пользователя, в чьей нумерации счетов
// живут заказы. Аутентификация — забота внешнего слоя.
const actorHeader = "X-Actor-Id"

const dateLayout = "2006-01-02"

// OrderHandler реализует REST API поверх сервиса заказов.
type OrderHandler struct {
	svc    *order.Service
	logger *log.Entry
}

// NewOrderHandler конструирует обработчик.
func NewOrderHandler(svc *order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.WithField("component", "order-api")
	}
	return &OrderHandler{svc: svc, logger: logger}
}

// Register вешает маршруты заказов на echo-инстанс.
func (h *OrderHandler) Register(e *echo.Echo) {
	e.GET("/orders", h.List)
	e.POST("/orders", h.Create)
	e.DELETE("/orders/:id", h.Delete)
	e.PATCH("/orders/:id/payment", h.UpdatePayment)
	e.GET("/orders/next-invoice-number", h.NextInvoiceNumber)
}

type productView struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
}

// orderView — плоское wire-представление заказа: поля заказа, клиента
// и товаров в одной записи.
type orderView struct {
	ID            string        `json:"id"`
	CustomerName  string        `json:"customerName"`
	Address       string        `json:"address,omitempty"`
	Email         string        `json:"email,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	InvoiceNumber string        `json:"invoiceNumber"`
	TotalAmount   float64       `json:"totalAmount"`
	Date          string        `json:"date"`
	IsPaid        bool          `json:"isPaid"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	Products      []productView `json:"products"`
}

type createOrderRequest struct {
	CustomerName  string        `json:"customerName"`
	Address       string        `json:"address"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	Products      []productView `json:"products"`
	InvoiceNumber string        `json:"invoiceNumber"`
	TotalAmount   float64       `json:"totalAmount"`
	Date          string        `json:"date"`
	IsPaid        bool          `json:"isPaid"`
	PaymentMethod string        `json:"paymentMethod"`
}

type updatePaymentRequest struct {
	IsPaid        bool   `json:"isPaid"`
	PaymentMethod string `json:"paymentMethod"`
}

// List возвращает все заказы, новые сверху.
func (h *OrderHandler) List(c echo.Context) error {
	orders, err := h.svc.ListOrders()
	if err != nil {
		return h.fail(c, "list orders", err)
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return c.JSON(http.StatusOK, views)
}

// Create принимает черновик заказа и сохраняет его.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD or RFC3339"})
	}

	products := make([]domain.Product, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, domain.Product{Name: p.Name, Reference: p.Reference})
	}

	draft := domain.Order{
		CustomerName:  req.CustomerName,
		Address:       req.Address,
		Email:         req.Email,
		Phone:         req.Phone,
		Products:      products,
		InvoiceNumber: req.InvoiceNumber,
		TotalMinor:    minorFromAmount(req.TotalAmount),
		Date:          date,
		IsPaid:        req.IsPaid,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		ActorID:       c.Request().Header.Get(actorHeader),
	}

	id, err := h.svc.CreateOrder(draft)
	if err != nil {
		return h.fail(c, "create order", err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"success": true, "id": id})
}

// Delete удаляет заказ по идентификатору.
func (h *OrderHandler) Delete(c echo.Context) error {
	if err := h.svc.DeleteOrder(c.Param("id")); err != nil {
		return h.fail(c, "delete order", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdatePayment перезаписывает флаг и способ оплаты заказа.
func (h *OrderHandler) UpdatePayment(c echo.Context) error {
	var req updatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	if err := h.svc.UpdatePayment(c.Param("id"), req.IsPaid, domain.PaymentMethod(req.PaymentMethod)); err != nil {
		return h.fail(c, "update payment status", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// NextInvoiceNumber отдаёт следующий номер счёта для предзаполнения формы.
func (h *OrderHandler) NextInvoiceNumber(c echo.Context) error {
	number, err := h.svc.NextInvoiceNumber(c.Request().Header.Get(actorHeader))
	if err != nil {
		return h.fail(c, "generate invoice number", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"invoiceNumber": number})
}

// fail логирует исходную ошибку и сводит её к одному из перечисленных
// видов отказа: валидация, не найдено, конфликт, внутренняя ошибка.
func (h *OrderHandler) fail(c echo.Context, op string, err error) error {
	h.logger.WithError(err).WithField("op", op).Error("request failed")

	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, domain.ErrProductReferenceConflict):
		return c.JSON(http.StatusConflict, map[string]string{"error": "product reference conflict, retry the request"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func toOrderView(o domain.Order) orderView {
	products := make([]productView, 0, len(o.Products))
	for _, p := range o.Products {
		products = append(products, productView{Name: p.Name, Reference: p.Reference})
	}

	return orderView{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		Address:       o.Address,
		Email:         o.Email,
		Phone:         o.Phone,
		InvoiceNumber: o.InvoiceNumber,
		TotalAmount:   amountFromMinor(o.TotalMinor),
		Date:          o.Date.UTC().Format(dateLayout),
		IsPaid:        o.IsPaid,
		PaymentMethod: string(o.PaymentMethod),
		Products:      products,
	}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// Сумма ходит по проводу десятичным числом, хранится в сантимах.
func minorFromAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func amountFromMinor(minor int64) float64 {
	return float64(minor) / 100
}
