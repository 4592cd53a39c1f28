package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/factura/internal/api"
	"github.com/vladislavdragonenkov/factura/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/factura/internal/health"
	"github.com/vladislavdragonenkov/factura/internal/metrics"
	"github.com/vladislavdragonenkov/factura/internal/service/invoice"
	"github.com/vladislavdragonenkov/factura/internal/service/order"
	"github.com/vladislavdragonenkov/factura/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает приложение по конфигурации и блокируется до отмены
// контекста или падения HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	repo, store, err := initOrderStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if store != nil {
			_ = store.Close()
		}
	}()

	producer := initEventProducer(cfg.KafkaBrokers, logger)
	defer closeEventProducer(producer, logger)

	// *kafka.Producer(nil) не должен попасть в интерфейс: сервис
	// различает «брокер не настроен» по nil.
	var publisher domain.EventPublisher
	if producer != nil {
		publisher = producer
	}

	orderMetrics := metrics.NewOrderMetrics()
	generator := invoice.NewGenerator(repo, logger.WithField("component", "invoice-generator"))
	svc := order.NewService(repo, generator, publisher, orderMetrics, logger.WithField("component", "order-service"))

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", store, 2*time.Second))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	e := newHTTPServer(svc, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- e.Start(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown with error")
		}
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newHTTPServer собирает echo-инстанс с маршрутами заказов.
func newHTTPServer(svc *order.Service, logger *log.Entry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	api.NewOrderHandler(svc, logger.WithField("component", "order-api")).Register(e)
	return e
}

// startMetricsServer поднимает служебный HTTP: метрики и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
