package domain

// OrderRepository описывает требования к хранилищу заказов.
// Это единственный компонент, которому разрешено читать и писать
// четыре таблицы схемы (clients, commandes, produits, commande_produits).
type OrderRepository interface {
	// Create атомарно сохраняет клиента, заказ, недостающие товары и связи.
	Create(order Order) error
	// List возвращает все заказы, отсортированные по дате создания по убыванию
	// (при равных датах — по идентификатору по убыванию).
	List() ([]Order, error)
	// Delete удаляет заказ или возвращает ErrOrderNotFound.
	// Записи клиента и товаров не удаляются; связи убирает каскад хранилища.
	Delete(id string) error
	// UpdatePayment перезаписывает только флаг оплаты и способ оплаты.
	UpdatePayment(id string, isPaid bool, method PaymentMethod) error
	// HighestInvoiceNumber возвращает максимальный номер счёта пользователя
	// или пустую строку, если счетов ещё нет.
	HighestInvoiceNumber(actorID string) (string, error)
}
