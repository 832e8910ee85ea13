package extract

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aogosto/order-triage/internal/orders"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

const appOrderJSON = `{
  "id": "65f1c0",
  "orderNumber": 4521,
  "userName": "Carlos Henrique",
  "userPhone": "5531988887777",
  "address": {"address": "Rua Pium-í", "number": 1020, "complement": "Casa", "neighborhood": "Cruzeiro",
              "city": "Belo Horizonte", "zipCode": "30310-080", "lat": -19.93, "lng": -43.92},
  "delivery": {"method": "in_home"},
  "paymentMethod": {"option": {"title": "Cartão de Crédito"}},
  "status": {"title": "Novo"},
  "shippingTax": 990,
  "amountFinal": "15990",
  "createdAt": "2025-03-10T14:05:00.000-0300",
  "observation": "Sem cebola",
  "items": [{"productName": "Kit Churrasco", "quantity": 2, "price": 7500}]
}`

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decodeAppOrder(t *testing.T, mutate func(map[string]any)) orders.AppOrder {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(appOrderJSON), &doc))
	if mutate != nil {
		mutate(doc)
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var raw orders.AppOrder
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func TestAppExtract(t *testing.T) {
	loc := saoPaulo(t)
	e, err := NewAppExtractor(loc, nil)
	require.NoError(t, err)
	now := time.Date(2025, 3, 10, 18, 0, 0, 0, loc)

	n, ok, err := e.Extract(context.Background(), decodeAppOrder(t, nil), now)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, orders.SourceApp, n.Source)
	assert.Equal(t, "4521", n.ID)
	assert.Equal(t, "10-03", n.OrderDate)
	assert.Equal(t, "14:05", n.OrderTime)
	assert.Equal(t, "2025-03-10", n.Date)
	assert.Equal(t, "Carlos", n.FirstName)
	assert.Equal(t, "31988887777", n.Phone)
	assert.Equal(t, "App", n.Company)
	assert.Equal(t, "Cartão de Crédito", n.PaymentTitle)
	assert.True(t, n.Total.Equal(mustDecimal(t, "159.90")))
	assert.True(t, n.ShippingFee.Equal(mustDecimal(t, "9.9")))
	assert.Equal(t, orders.DeliveryTypeDelivery, n.DeliveryType)
	assert.Equal(t, "1020", n.Number)
	assert.Equal(t, "-19.93", n.Latitude)
	assert.Equal(t, "", n.Window)
	assert.Equal(t, "Kit Churrasco (Qtd: 2) *\n", n.ProductList())
	assert.Equal(t, "Rua Pium-í, 1020 / Casa, Cruzeiro - Belo Horizonte | Cep: 30310-080", n.AddressFull)
}

func TestAppExtractSkipsOtherDays(t *testing.T) {
	loc := saoPaulo(t)
	e, err := NewAppExtractor(loc, nil)
	require.NoError(t, err)

	_, ok, err := e.Extract(context.Background(), decodeAppOrder(t, nil), time.Date(2025, 3, 11, 9, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppExtractPickupAndValidation(t *testing.T) {
	loc := saoPaulo(t)
	e, err := NewAppExtractor(loc, nil)
	require.NoError(t, err)
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, loc)

	n, ok, err := e.Extract(context.Background(), decodeAppOrder(t, func(doc map[string]any) {
		doc["delivery"] = map[string]any{"method": "on_site_pickup"}
	}), now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orders.DeliveryTypePickup, n.DeliveryType)

	_, _, err = e.Extract(context.Background(), decodeAppOrder(t, func(doc map[string]any) {
		doc["userPhone"] = ""
	}), now)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
