package domain

import "time"

// PaymentMethod перечисляет поддерживаемые способы оплаты заказа.
type PaymentMethod string

const (
	// PaymentMethodCard — оплата банковской картой.
	PaymentMethodCard PaymentMethod = "card"
	// PaymentMethodCheck — оплата чеком.
	PaymentMethodCheck PaymentMethod = "check"
	// PaymentMethodCash — наличный расчёт.
	PaymentMethodCash PaymentMethod = "cash"
	// PaymentMethodTransfer — банковский перевод.
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// Valid сообщает, входит ли значение в список поддерживаемых способов оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodCheck, PaymentMethodCash, PaymentMethodTransfer:
		return true
	default:
		return false
	}
}

// Product — товар каталога: отображаемое имя и уникальный артикул.
// Артикул (reference) является естественным ключом: хранилище никогда
// не содержит две записи с одинаковым reference.
type Product struct {
	Name      string
	Reference string
}

// Order — денормализованное представление заказа: собственные поля заказа
// плюс данные клиента и список товаров, собранные в одну плоскую запись.
type Order struct {
	ID           string
	CustomerName string
	Address      string
	Email        string
	Phone        string
	Products     []Product
	// InvoiceNumber хранится как свободный текст; последовательность
	// обеспечивается генератором, а не хранилищем.
	InvoiceNumber string
	// TotalMinor — итоговая сумма заказа в сантимах.
	TotalMinor int64
	// Date — дата создания заказа; ключ сортировки списка.
	Date   time.Time
	IsPaid bool
	// PaymentMethod имеет смысл только при IsPaid=true.
	PaymentMethod PaymentMethod
	// ActorID — пользователь, в чьей нумерации счетов живёт заказ.
	ActorID string
}

// ValidateInvariants проверяет инварианты заказа и возвращает список нарушений.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerName == "" {
		errs = append(errs, ErrCustomerNameRequired)
	}
	if o.InvoiceNumber == "" {
		errs = append(errs, ErrInvoiceNumberRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.Date.IsZero() {
		errs = append(errs, ErrDateRequired)
	}

	for _, p := range o.Products {
		if p.Name == "" {
			errs = append(errs, ErrProductNameRequired)
		}
		if p.Reference == "" {
			errs = append(errs, ErrProductReferenceRequired)
		}
	}

	// Согласованность флага оплаты и способа оплаты.
	if o.IsPaid && !o.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if !o.IsPaid && o.PaymentMethod != "" {
		errs = append(errs, ErrPaymentMethodNotAllowed)
	}

	return errs
}
