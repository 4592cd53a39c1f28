package domain

// InvoiceNumberSource — узкий порт генератора номеров счетов:
// ему нужен только максимальный существующий номер пользователя.
type InvoiceNumberSource interface {
	HighestInvoiceNumber(actorID string) (string, error)
}

// EventPublisher публикует события жизненного цикла заказа во внешний брокер.
// Публикация best-effort: её отказ не должен ронять бизнес-операцию.
type EventPublisher interface {
	PublishOrderEvent(eventType, orderID, invoiceNumber, actorID string, metadata map[string]interface{}) error
}
