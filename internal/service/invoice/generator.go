package invoice

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/factura/internal/domain"
)

const (
	// invoiceNumberWidth — минимальная ширина номера с нулевым заполнением.
	invoiceNumberWidth = 4
	firstInvoiceNumber = 1
)

// Generator выдаёт следующий последовательный номер счёта пользователя.
//
// Гарантия монотонности не сильнее "максимальный существующий + 1":
// конкурентные вызовы не сериализуются и могут вернуть одинаковый номер.
type Generator struct {
	source domain.InvoiceNumberSource
	logger *log.Entry
}

// NewGenerator конструирует генератор поверх источника номеров.
func NewGenerator(source domain.InvoiceNumberSource, logger *log.Entry) *Generator {
	if logger == nil {
		logger = log.WithField("component", "invoice-generator")
	}
	return &Generator{source: source, logger: logger}
}

// Next возвращает следующий номер счёта, дополненный нулями минимум до
// четырёх знаков. Отсутствующая история или нечисловой сохранённый номер
// перезапускают последовательность с 0001.
func (g *Generator) Next(actorID string) (string, error) {
	highest, err := g.source.HighestInvoiceNumber(actorID)
	if err != nil {
		return "", fmt.Errorf("read highest invoice number: %w", err)
	}

	next := firstInvoiceNumber
	if trimmed := strings.TrimSpace(highest); trimmed != "" {
		parsed, parseErr := strconv.Atoi(trimmed)
		if parseErr != nil {
			g.logger.WithFields(log.Fields{
				"actor_id":       actorID,
				"invoice_number": highest,
			}).Warn("stored invoice number is not numeric, restarting sequence")
		} else {
			next = parsed + 1
		}
	}

	return fmt.Sprintf("%0*d", invoiceNumberWidth, next), nil
}
