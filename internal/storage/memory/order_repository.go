package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/factura/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository для локальной
// разработки и юнит-тестов. Повторяет поведение postgres-реализации, включая
// дедупликацию товаров по артикулу.
type orderRepositoryInMemory struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	// products — реестр товаров: артикул -> каноническое имя.
	// Первая вставка фиксирует имя; последующие заказы с тем же артикулом
	// переиспользуют существующую запись, как и уникальный индекс в postgres.
	products map[string]string
}

// NewOrderRepository возвращает пустой in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		orders:   make(map[string]domain.Order),
		products: make(map[string]string),
	}
}

// Create сохраняет заказ, регистрируя недостающие товары в реестре.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Канонизируем товары: имя берётся из реестра, если артикул уже известен.
	products := make([]domain.Product, 0, len(order.Products))
	seen := make(map[string]struct{}, len(order.Products))
	for _, p := range order.Products {
		name, ok := r.products[p.Reference]
		if !ok {
			name = p.Name
			r.products[p.Reference] = name
		}
		// Повторная ссылка на тот же товар внутри заказа схлопывается,
		// как и первичный ключ пары в commande_produits.
		if _, dup := seen[p.Reference]; dup {
			continue
		}
		seen[p.Reference] = struct{}{}
		products = append(products, domain.Product{Name: name, Reference: p.Reference})
	}
	order.Products = products

	r.orders[order.ID] = order
	return nil
}

// List возвращает заказы по дате создания по убыванию, при равенстве — по ID по убыванию.
func (r *orderRepositoryInMemory) List() ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		// Копируем срез товаров, чтобы избежать мутаций извне.
		products := make([]domain.Product, len(order.Products))
		copy(products, order.Products)
		order.Products = products
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Delete удаляет заказ или возвращает ErrOrderNotFound.
// Реестр товаров не трогаем: записи produits переживают заказы.
func (r *orderRepositoryInMemory) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.orders, id)
	return nil
}

// UpdatePayment перезаписывает только флаг и способ оплаты.
func (r *orderRepositoryInMemory) UpdatePayment(id string, isPaid bool, method domain.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.IsPaid = isPaid
	order.PaymentMethod = method
	r.orders[id] = order
	return nil
}

// HighestInvoiceNumber возвращает лексикографически максимальный номер счёта
// пользователя; с нулевым заполнением слева это совпадает с числовым максимумом.
func (r *orderRepositoryInMemory) HighestInvoiceNumber(actorID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	highest := ""
	for _, order := range r.orders {
		if order.ActorID != actorID {
			continue
		}
		if order.InvoiceNumber > highest {
			highest = order.InvoiceNumber
		}
	}
	return highest, nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
