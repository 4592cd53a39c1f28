package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики операций над заказами.
type OrderMetrics struct {
	ordersCreated     prometheus.Counter
	ordersDeleted     prometheus.Counter
	paymentUpdates    prometheus.Counter
	invoiceNumbers    prometheus.Counter
	operationFailures *prometheus.CounterVec
	storeOpDuration   *prometheus.HistogramVec
}

// NewOrderMetrics регистрирует метрики в registry по умолчанию.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "factura_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "factura_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		paymentUpdates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "factura_payment_updates_total",
			Help: "Total number of payment status updates",
		}),
		invoiceNumbers: registerCounter(registerer, prometheus.CounterOpts{
			Name: "factura_invoice_numbers_generated_total",
			Help: "Total number of invoice numbers generated",
		}),
		operationFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "factura_order_failures_total",
			Help: "Total number of failed order operations",
		}, []string{"op"}),
		storeOpDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "factura_store_op_duration_seconds",
			Help:    "Duration of order store operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordPaymentUpdate увеличивает счётчик обновлений статуса оплаты.
func (m *OrderMetrics) RecordPaymentUpdate() {
	m.paymentUpdates.Inc()
}

// RecordInvoiceNumberGenerated увеличивает счётчик выданных номеров счетов.
func (m *OrderMetrics) RecordInvoiceNumberGenerated() {
	m.invoiceNumbers.Inc()
}

// RecordFailure увеличивает счётчик отказов указанной операции.
func (m *OrderMetrics) RecordFailure(op string) {
	m.operationFailures.WithLabelValues(op).Inc()
}

// RecordStoreOpDuration записывает длительность операции хранилища.
func (m *OrderMetrics) RecordStoreOpDuration(op string, duration time.Duration) {
	m.storeOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}
