package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/factura/internal/domain"
	"github.com/vladislavdragonenkov/factura/internal/storage/memory"
	"github.com/vladislavdragonenkov/factura/internal/storage/postgres"
)

// initOrderStore выбирает хранилище заказов. С непустым DSN приложение
// подключается к PostgreSQL и догоняет миграции; иначе работает на
// in-memory репозитории (режим разработки и тестов).
// Возвращённый *postgres.Store равен nil в in-memory режиме.
func initOrderStore(ctx context.Context, cfg Config, logger *log.Entry) (domain.OrderRepository, *postgres.Store, error) {
	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is not set, using in-memory order store")
		return memory.NewOrderRepository(), nil, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := store.MigrateUp(ctx, 0); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("apply migrations: %w", err)
	}

	logger.Info("postgres order store initialized")
	return postgres.NewOrderRepository(store), store, nil
}
