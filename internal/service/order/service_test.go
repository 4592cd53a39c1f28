package order_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/factura/internal/domain"
	"github.com/vladislavdragonenkov/factura/internal/service/invoice"
	"github.com/vladislavdragonenkov/factura/internal/service/order"
	"github.com/vladislavdragonenkov/factura/internal/storage/memory"
)

// fakePublisher записывает опубликованные события.
type fakePublisher struct {
	events []string
	err    error
}

func (p *fakePublisher) PublishOrderEvent(eventType, orderID, invoiceNumber, actorID string, metadata map[string]interface{}) error {
	p.events = append(p.events, eventType)
	return p.err
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger.WithField("component", "order-service-test")
}

func newService(t *testing.T) (*order.Service, domain.OrderRepository, *fakePublisher) {
	t.Helper()

	repo := memory.NewOrderRepository()
	logger := testLogger()
	publisher := &fakePublisher{}
	svc := order.NewService(repo, invoice.NewGenerator(repo, logger), publisher, nil, logger)
	return svc, repo, publisher
}

func draftOrder() domain.Order {
	return domain.Order{
		CustomerName:  "Jean Dupont",
		Address:       "12 rue de la Paix, Paris",
		Email:         "jean@example.com",
		Products:      []domain.Product{{Name: "Chaise", Reference: "REF-1"}},
		InvoiceNumber: "0001",
		TotalMinor:    12050,
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ActorID:       "actor-1",
	}
}

func TestService_CreateAndList(t *testing.T) {
	svc, _, publisher := newService(t)

	id, err := svc.CreateOrder(draftOrder())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	orders, err := svc.ListOrders()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, id, orders[0].ID)
	require.Equal(t, "Jean Dupont", orders[0].CustomerName)
	require.Equal(t, int64(12050), orders[0].TotalMinor)
	require.Equal(t, []string{"order.created"}, publisher.events)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, publisher := newService(t)

	draft := draftOrder()
	draft.CustomerName = ""
	draft.PaymentMethod = "bitcoin"

	_, err := svc.CreateOrder(draft)
	require.Error(t, err)
	require.True(t, domain.IsValidation(err))
	require.ErrorIs(t, err, domain.ErrCustomerNameRequired)
	require.Empty(t, publisher.events, "no event for rejected order")

	orders, listErr := svc.ListOrders()
	require.NoError(t, listErr)
	require.Empty(t, orders, "rejected order must not be persisted")
}

func TestService_Delete(t *testing.T) {
	svc, _, publisher := newService(t)

	id, err := svc.CreateOrder(draftOrder())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(id))
	orders, err := svc.ListOrders()
	require.NoError(t, err)
	require.Empty(t, orders)
	require.Equal(t, []string{"order.created", "order.deleted"}, publisher.events)

	err = svc.DeleteOrder("missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestService_UpdatePayment(t *testing.T) {
	svc, _, _ := newService(t)

	id, err := svc.CreateOrder(draftOrder())
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePayment(id, true, domain.PaymentMethodCash))
	orders, err := svc.ListOrders()
	require.NoError(t, err)
	require.True(t, orders[0].IsPaid)
	require.Equal(t, domain.PaymentMethodCash, orders[0].PaymentMethod)

	require.NoError(t, svc.UpdatePayment(id, false, ""))
	orders, err = svc.ListOrders()
	require.NoError(t, err)
	require.False(t, orders[0].IsPaid)
	require.Empty(t, orders[0].PaymentMethod)
}

func TestService_UpdatePaymentValidation(t *testing.T) {
	svc, _, _ := newService(t)

	id, err := svc.CreateOrder(draftOrder())
	require.NoError(t, err)

	err = svc.UpdatePayment(id, true, "")
	require.True(t, domain.IsValidation(err))
	require.ErrorIs(t, err, domain.ErrPaymentMethodInvalid)

	err = svc.UpdatePayment(id, false, domain.PaymentMethodCard)
	require.True(t, domain.IsValidation(err))
	require.ErrorIs(t, err, domain.ErrPaymentMethodNotAllowed)
}

func TestService_NextInvoiceNumber(t *testing.T) {
	svc, _, _ := newService(t)

	number, err := svc.NextInvoiceNumber("actor-1")
	require.NoError(t, err)
	require.Equal(t, "0001", number)

	draft := draftOrder()
	draft.InvoiceNumber = "0007"
	_, err = svc.CreateOrder(draft)
	require.NoError(t, err)

	number, err = svc.NextInvoiceNumber("actor-1")
	require.NoError(t, err)
	require.Equal(t, "0008", number)

	// Чужой actor начинает собственную последовательность.
	number, err = svc.NextInvoiceNumber("actor-2")
	require.NoError(t, err)
	require.Equal(t, "0001", number)
}

// Отказ публикации события не должен ронять операцию.
func TestService_PublishFailureIsBestEffort(t *testing.T) {
	repo := memory.NewOrderRepository()
	logger := testLogger()
	publisher := &fakePublisher{err: errors.New("broker is down")}
	svc := order.NewService(repo, invoice.NewGenerator(repo, logger), publisher, nil, logger)

	id, err := svc.CreateOrder(draftOrder())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, []string{"order.created"}, publisher.events)
}
