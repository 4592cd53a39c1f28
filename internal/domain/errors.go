package domain

import (
	"errors"
	"strings"
)

var (
	// Ошибка отсутствующего имени клиента.
	ErrCustomerNameRequired = errors.New("customer name is required")
	// Ошибка отсутствующего номера счёта.
	ErrInvoiceNumberRequired = errors.New("invoice number is required")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("total amount must be non-negative")
	// Ошибка отсутствующей даты заказа.
	ErrDateRequired = errors.New("order date is required")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отсутствующего артикула товара.
	ErrProductReferenceRequired = errors.New("product reference is required")
	// Ошибка неподдерживаемого способа оплаты для оплаченного заказа.
	ErrPaymentMethodInvalid = errors.New("payment method must be one of: card, check, cash, transfer")
	// Ошибка указания способа оплаты для неоплаченного заказа.
	ErrPaymentMethodNotAllowed = errors.New("payment method must be empty for unpaid orders")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductReferenceConflict сигнализирует о гонке вставки товара
	// с уже существующим артикулом.
	ErrProductReferenceConflict = errors.New("product reference already exists")
)

// ValidationError агрегирует нарушения инвариантов, найденные до записи в хранилище.
type ValidationError struct {
	Errs []error
}

// NewValidationError оборачивает список нарушений; nil при пустом списке.
func NewValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errs: errs}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap отдаёт вложенные нарушения для errors.Is.
func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// IsValidation проверяет, является ли ошибка ошибкой валидации входных данных.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
