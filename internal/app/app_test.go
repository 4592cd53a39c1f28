package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/factura/internal/service/invoice"
	"github.com/vladislavdragonenkov/factura/internal/service/order"
	"github.com/vladislavdragonenkov/factura/internal/storage/memory"
)

func TestInitOrderStore_MemoryFallback(t *testing.T) {
	repo, store, err := initOrderStore(context.Background(), Config{}, testLogger())
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	if store != nil {
		t.Error("expected nil postgres store without DSN")
	}
	if repo == nil {
		t.Fatal("expected in-memory repository")
	}
	if err := repo.Delete("missing"); err == nil {
		t.Error("expected not-found error from fresh repository")
	}
}

func TestNewHTTPServer_Routes(t *testing.T) {
	logger := testLogger()
	repo := memory.NewOrderRepository()
	svc := order.NewService(repo, invoice.NewGenerator(repo, logger), nil, nil, logger)

	e := newHTTPServer(svc, logger)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /orders, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/next-invoice-number", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from next-invoice-number, got %d", rec.Code)
	}
}

// Run с in-memory хранилищем поднимается и корректно гасится по контексту.
func TestRun_StartsAndStops(t *testing.T) {
	cfg := Config{
		HTTPAddr:    "127.0.0.1:0",
		MetricsAddr: "127.0.0.1:0",
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
