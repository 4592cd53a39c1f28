package kafka

import "time"

// EventType определяет тип события жизненного цикла заказа.
type EventType string

const (
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderDeleted   EventType = "order.deleted"
	EventTypePaymentUpdated EventType = "order.payment_updated"
)

// TopicOrderEvents — единственный топик, в который пишет сервис.
const TopicOrderEvents = "factura.order.events"

// OrderEvent — payload события заказа.
type OrderEvent struct {
	EventType     EventType              `json:"event_type"`
	OrderID       string                 `json:"order_id"`
	InvoiceNumber string                 `json:"invoice_number,omitempty"`
	ActorID       string                 `json:"actor_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создаёт событие заказа с текущей меткой времени.
func NewOrderEvent(eventType EventType, orderID, invoiceNumber, actorID string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:     eventType,
		OrderID:       orderID,
		InvoiceNumber: invoiceNumber,
		ActorID:       actorID,
		Timestamp:     time.Now().UTC(),
		Metadata:      metadata,
	}
}
