package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/factura/internal/api"
	"github.com/vladislavdragonenkov/factura/internal/service/invoice"
	"github.com/vladislavdragonenkov/factura/internal/service/order"
	"github.com/vladislavdragonenkov/factura/internal/storage/memory"
)

func newTestServer() *echo.Echo {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	entry := logger.WithField("component", "api-test")

	repo := memory.NewOrderRepository()
	svc := order.NewService(repo, invoice.NewGenerator(repo, entry), nil, nil, entry)

	e := echo.New()
	api.NewOrderHandler(svc, entry).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body, actor string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if actor != "" {
		req.Header.Set("X-Actor-Id", actor)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const orderBody = `{
	"customerName": "Jean Dupont",
	"address": "12 rue de la Paix, Paris",
	"email": "jean@example.com",
	"phone": "+33 6 00 00 00 00",
	"products": [
		{"name": "Chaise", "reference": "CHS-1"},
		{"name": "Table", "reference": "TBL-1"}
	],
	"invoiceNumber": "0001",
	"totalAmount": 120.50,
	"date": "2024-03-01",
	"isPaid": false
}`

type orderViewJSON struct {
	ID            string  `json:"id"`
	CustomerName  string  `json:"customerName"`
	Address       string  `json:"address"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	InvoiceNumber string  `json:"invoiceNumber"`
	TotalAmount   float64 `json:"totalAmount"`
	Date          string  `json:"date"`
	IsPaid        bool    `json:"isPaid"`
	PaymentMethod string  `json:"paymentMethod"`
	Products      []struct {
		Name      string `json:"name"`
		Reference string `json:"reference"`
	} `json:"products"`
}

func listOrders(t *testing.T, e *echo.Echo) []orderViewJSON {
	t.Helper()

	rec := doJSON(t, e, http.MethodGet, "/orders", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var views []orderViewJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	return views
}

func TestOrdersAPI_CreateListRoundTrip(t *testing.T) {
	e := newTestServer()

	rec := doJSON(t, e, http.MethodPost, "/orders", orderBody, "actor-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.True(t, created.Success)
	require.NotEmpty(t, created.ID)

	views := listOrders(t, e)
	require.Len(t, views, 1)

	got := views[0]
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Jean Dupont", got.CustomerName)
	require.Equal(t, "12 rue de la Paix, Paris", got.Address)
	require.Equal(t, "jean@example.com", got.Email)
	require.Equal(t, "0001", got.InvoiceNumber)
	require.InDelta(t, 120.50, got.TotalAmount, 0.001)
	require.Equal(t, "2024-03-01", got.Date)
	require.False(t, got.IsPaid)
	require.Empty(t, got.PaymentMethod)
	require.Len(t, got.Products, 2)

	refs := []string{got.Products[0].Reference, got.Products[1].Reference}
	require.ElementsMatch(t, []string{"CHS-1", "TBL-1"}, refs)
}

func TestOrdersAPI_ListOrdering(t *testing.T) {
	e := newTestServer()

	for i, date := range []string{"2024-01-01", "2024-03-01", "2024-02-01"} {
		body := strings.Replace(orderBody, `"date": "2024-03-01"`, fmt.Sprintf(`"date": %q`, date), 1)
		body = strings.Replace(body, `"invoiceNumber": "0001"`, fmt.Sprintf(`"invoiceNumber": "%04d"`, i+1), 1)
		rec := doJSON(t, e, http.MethodPost, "/orders", body, "actor-1")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	views := listOrders(t, e)
	require.Len(t, views, 3)
	require.Equal(t, []string{"2024-03-01", "2024-02-01", "2024-01-01"},
		[]string{views[0].Date, views[1].Date, views[2].Date})
}

func TestOrdersAPI_CreateValidation(t *testing.T) {
	e := newTestServer()

	// Оплаченный заказ без способа оплаты.
	body := strings.Replace(orderBody, `"isPaid": false`, `"isPaid": true`, 1)
	rec := doJSON(t, e, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "payment method")

	// Некорректная дата.
	body = strings.Replace(orderBody, `"date": "2024-03-01"`, `"date": "bad-date"`, 1)
	rec = doJSON(t, e, http.MethodPost, "/orders", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Битый JSON.
	rec = doJSON(t, e, http.MethodPost, "/orders", `{"customerName": `, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Empty(t, listOrders(t, e))
}

func TestOrdersAPI_Delete(t *testing.T) {
	e := newTestServer()

	rec := doJSON(t, e, http.MethodPost, "/orders", orderBody, "actor-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	id := listOrders(t, e)[0].ID
	rec = doJSON(t, e, http.MethodDelete, "/orders/"+id, "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())

	require.Empty(t, listOrders(t, e))

	rec = doJSON(t, e, http.MethodDelete, "/orders/missing", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersAPI_UpdatePayment(t *testing.T) {
	e := newTestServer()

	rec := doJSON(t, e, http.MethodPost, "/orders", orderBody, "actor-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := listOrders(t, e)[0].ID

	rec = doJSON(t, e, http.MethodPatch, "/orders/"+id+"/payment",
		`{"isPaid": true, "paymentMethod": "cash"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"success":true}`, rec.Body.String())

	views := listOrders(t, e)
	require.True(t, views[0].IsPaid)
	require.Equal(t, "cash", views[0].PaymentMethod)

	// Сброс оплаты очищает способ.
	rec = doJSON(t, e, http.MethodPatch, "/orders/"+id+"/payment", `{"isPaid": false}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	views = listOrders(t, e)
	require.False(t, views[0].IsPaid)
	require.Empty(t, views[0].PaymentMethod)

	// Несогласованная пара отклоняется до записи.
	rec = doJSON(t, e, http.MethodPatch, "/orders/"+id+"/payment",
		`{"isPaid": true, "paymentMethod": "bitcoin"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPatch, "/orders/missing/payment",
		`{"isPaid": true, "paymentMethod": "card"}`, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersAPI_NextInvoiceNumber(t *testing.T) {
	e := newTestServer()

	rec := doJSON(t, e, http.MethodGet, "/orders/next-invoice-number", "", "actor-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"invoiceNumber":"0001"}`, rec.Body.String())

	body := strings.Replace(orderBody, `"invoiceNumber": "0001"`, `"invoiceNumber": "0007"`, 1)
	rec = doJSON(t, e, http.MethodPost, "/orders", body, "actor-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/orders/next-invoice-number", "", "actor-1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"invoiceNumber":"0008"}`, rec.Body.String())

	// Другой actor ведёт собственную нумерацию.
	rec = doJSON(t, e, http.MethodGet, "/orders/next-invoice-number", "", "actor-2")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"invoiceNumber":"0001"}`, rec.Body.String())
}
