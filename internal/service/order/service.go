package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/factura/internal/domain"
	"github.com/vladislavdragonenkov/factura/internal/metrics"
	"github.com/vladislavdragonenkov/factura/internal/service/invoice"
)

const (
	opCreate        = "create"
	opList          = "list"
	opDelete        = "delete"
	opUpdatePayment = "update_payment"
	opNextInvoice   = "next_invoice"
)

// Service оркестрирует операции над заказами: валидация до записи,
// делегирование репозиторию, метрики и best-effort публикация событий.
type Service struct {
	repo      domain.OrderRepository
	generator *invoice.Generator
	publisher domain.EventPublisher // nil, если брокер не настроен
	metrics   *metrics.OrderMetrics // nil в юнит-тестах
	logger    *log.Entry
}

// NewService конструирует сервис с зависимостями.
func NewService(
	repo domain.OrderRepository,
	generator *invoice.Generator,
	publisher domain.EventPublisher,
	orderMetrics *metrics.OrderMetrics,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		repo:      repo,
		generator: generator,
		publisher: publisher,
		metrics:   orderMetrics,
		logger:    logger,
	}
}

// CreateOrder валидирует черновик заказа, присваивает идентификатор и
// сохраняет его. Возвращает идентификатор созданного заказа.
func (s *Service) CreateOrder(draft domain.Order) (string, error) {
	if errs := draft.ValidateInvariants(); len(errs) > 0 {
		return "", domain.NewValidationError(errs)
	}

	draft.ID = uuid.NewString()

	start := time.Now()
	if err := s.repo.Create(draft); err != nil {
		s.recordFailure(opCreate)
		s.logger.WithError(err).WithField("invoice_number", draft.InvoiceNumber).Error("failed to create order")
		return "", fmt.Errorf("create order: %w", err)
	}
	s.observe(opCreate, start)

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.publishEvent(string(eventOrderCreated), draft.ID, draft.InvoiceNumber, draft.ActorID, map[string]interface{}{
		"total_minor": draft.TotalMinor,
		"is_paid":     draft.IsPaid,
	})

	s.logger.WithFields(log.Fields{
		"order_id":       draft.ID,
		"invoice_number": draft.InvoiceNumber,
	}).Info("order created")

	return draft.ID, nil
}

// ListOrders возвращает все заказы, отсортированные по дате по убыванию.
func (s *Service) ListOrders() ([]domain.Order, error) {
	start := time.Now()
	orders, err := s.repo.List()
	if err != nil {
		s.recordFailure(opList)
		s.logger.WithError(err).Error("failed to list orders")
		return nil, fmt.Errorf("list orders: %w", err)
	}
	s.observe(opList, start)

	return orders, nil
}

// DeleteOrder удаляет заказ по идентификатору.
func (s *Service) DeleteOrder(id string) error {
	start := time.Now()
	if err := s.repo.Delete(id); err != nil {
		s.recordFailure(opDelete)
		s.logger.WithError(err).WithField("order_id", id).Error("failed to delete order")
		return fmt.Errorf("delete order: %w", err)
	}
	s.observe(opDelete, start)

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.publishEvent(string(eventOrderDeleted), id, "", "", nil)

	s.logger.WithField("order_id", id).Info("order deleted")
	return nil
}

// UpdatePayment перезаписывает флаг и способ оплаты заказа.
// Пара (isPaid, method) должна быть согласованной: оплаченный заказ требует
// поддерживаемый способ, неоплаченный — пустой.
func (s *Service) UpdatePayment(id string, isPaid bool, method domain.PaymentMethod) error {
	var errs []error
	if isPaid && !method.Valid() {
		errs = append(errs, domain.ErrPaymentMethodInvalid)
	}
	if !isPaid && method != "" {
		errs = append(errs, domain.ErrPaymentMethodNotAllowed)
	}
	if len(errs) > 0 {
		return domain.NewValidationError(errs)
	}

	start := time.Now()
	if err := s.repo.UpdatePayment(id, isPaid, method); err != nil {
		s.recordFailure(opUpdatePayment)
		s.logger.WithError(err).WithField("order_id", id).Error("failed to update payment status")
		return fmt.Errorf("update payment status: %w", err)
	}
	s.observe(opUpdatePayment, start)

	if s.metrics != nil {
		s.metrics.RecordPaymentUpdate()
	}
	s.publishEvent(string(eventPaymentUpdated), id, "", "", map[string]interface{}{
		"is_paid":        isPaid,
		"payment_method": string(method),
	})

	s.logger.WithFields(log.Fields{
		"order_id": id,
		"is_paid":  isPaid,
	}).Info("payment status updated")
	return nil
}

// NextInvoiceNumber возвращает следующий номер счёта пользователя.
func (s *Service) NextInvoiceNumber(actorID string) (string, error) {
	start := time.Now()
	number, err := s.generator.Next(actorID)
	if err != nil {
		s.recordFailure(opNextInvoice)
		s.logger.WithError(err).WithField("actor_id", actorID).Error("failed to generate invoice number")
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	s.observe(opNextInvoice, start)

	if s.metrics != nil {
		s.metrics.RecordInvoiceNumberGenerated()
	}
	return number, nil
}

// publishEvent отправляет событие, если producer настроен.
// Отказ публикации логируется и не влияет на результат операции.
func (s *Service) publishEvent(eventType, orderID, invoiceNumber, actorID string, metadata map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(eventType, orderID, invoiceNumber, actorID, metadata); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event":    eventType,
			"order_id": orderID,
		}).Warn("failed to publish order event")
	}
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordStoreOpDuration(op, time.Since(start))
	}
}

func (s *Service) recordFailure(op string) {
	if s.metrics != nil {
		s.metrics.RecordFailure(op)
	}
}

// Имена событий дублируют константы messaging/kafka, чтобы сервис
// не зависел от конкретного брокера.
const (
	eventOrderCreated   = "order.created"
	eventOrderDeleted   = "order.deleted"
	eventPaymentUpdated = "order.payment_updated"
)
