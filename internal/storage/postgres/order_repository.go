package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/factura/internal/domain"
)

const opTimeout = 5 * time.Second

// Имена четырёх таблиц исторически франкоязычные (clients, commandes,
// produits, commande_produits); вместе с именами колонок это стабильные
// точки контракта с существующими данными, их не переименовываем.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create выполняет всю последовательность вставок в одной транзакции:
// клиент, заказ, недостающие товары, связи заказ-товар. Частичный отказ
// не оставляет осиротевших строк.
func (r *orderRepository) Create(order domain.Order) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	clientID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (id, nom_complet, adresse, email, telephone, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
	`,
		clientID, order.CustomerName, order.Address,
		nullString(order.Email), nullString(order.Phone),
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO commandes (
			id, client_id, user_id, numero_facture, montant_total,
			date_creation, is_paid, payment_method, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5::numeric/100,$6,$7,$8,NOW(),NOW())
	`,
		order.ID, clientID, nullString(order.ActorID), order.InvoiceNumber,
		order.TotalMinor, order.Date, order.IsPaid, nullString(string(order.PaymentMethod)),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, product := range order.Products {
		var productID string
		productID, err = r.resolveProductTx(ctx, tx, product)
		if err != nil {
			return err
		}

		// Повтор той же пары внутри заказа схлопывается первичным ключом.
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO commande_produits (commande_id, produit_id)
			VALUES ($1,$2)
			ON CONFLICT (commande_id, produit_id) DO NOTHING
		`, order.ID, productID); err != nil {
			return fmt.Errorf("insert order-product link: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

// resolveProductTx возвращает идентификатор товара по артикулу,
// вставляя новую запись, если артикул ещё не встречался.
func (r *orderRepository) resolveProductTx(ctx context.Context, tx *sql.Tx, product domain.Product) (string, error) {
	var productID string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM produits WHERE reference = $1
	`, product.Reference).Scan(&productID)
	if err == nil {
		return productID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("select product by reference: %w", err)
	}

	productID = uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO produits (id, nom, reference) VALUES ($1,$2,$3)
	`, productID, product.Name, product.Reference); err != nil {
		if isUniqueViolation(err) {
			// Параллельная транзакция успела вставить тот же артикул.
			return "", domain.ErrProductReferenceConflict
		}
		return "", fmt.Errorf("insert product: %w", err)
	}

	return productID, nil
}

// List возвращает заказы вместе с данными клиента и товарами,
// отсортированные по дате создания по убыванию.
func (r *orderRepository) List() ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id,
		       cl.nom_complet,
		       cl.adresse,
		       COALESCE(cl.email, ''),
		       COALESCE(cl.telephone, ''),
		       COALESCE(c.user_id, ''),
		       c.numero_facture,
		       ROUND(c.montant_total * 100)::BIGINT,
		       c.date_creation,
		       c.is_paid,
		       COALESCE(c.payment_method, '')
		FROM commandes c
		JOIN clients cl ON cl.id = c.client_id
		ORDER BY c.date_creation DESC, c.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var order domain.Order
		var method string
		if err := rows.Scan(
			&order.ID, &order.CustomerName, &order.Address, &order.Email,
			&order.Phone, &order.ActorID, &order.InvoiceNumber,
			&order.TotalMinor, &order.Date, &order.IsPaid, &method,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.PaymentMethod = domain.PaymentMethod(method)

		products, err := r.loadProducts(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Products = products
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// Delete удаляет заказ; связи убирает каскад по commande_produits.
// Записи клиента и товаров сознательно не трогаем.
func (r *orderRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM commandes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// UpdatePayment перезаписывает только is_paid и payment_method.
// Пустой способ оплаты сохраняется как NULL.
func (r *orderRepository) UpdatePayment(id string, isPaid bool, method domain.PaymentMethod) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE commandes
		SET is_paid = $1,
		    payment_method = $2,
		    updated_at = NOW()
		WHERE id = $3
	`, isPaid, nullString(string(method)), id)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

// HighestInvoiceNumber возвращает максимальный номер счёта пользователя.
// Сравнение лексикографическое, как и в исходной выборке; с нулевым
// заполнением слева оно совпадает с числовым порядком.
func (r *orderRepository) HighestInvoiceNumber(actorID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var number string
	err := r.db.QueryRowContext(ctx, `
		SELECT numero_facture
		FROM commandes
		WHERE COALESCE(user_id, '') = $1
		ORDER BY numero_facture DESC
		LIMIT 1
	`, actorID).Scan(&number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select highest invoice number: %w", err)
	}

	return number, nil
}

func (r *orderRepository) loadProducts(ctx context.Context, orderID string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.nom, p.reference
		FROM commande_produits cp
		JOIN produits p ON p.id = cp.produit_id
		WHERE cp.commande_id = $1
		ORDER BY p.reference ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.Name, &p.Reference); err != nil {
			return nil, fmt.Errorf("scan order product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order products: %w", err)
	}

	return products, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
