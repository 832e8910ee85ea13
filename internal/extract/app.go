package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aogosto/order-triage/internal/orders"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
)

const appCompany = "App"

var appDeliveryTypes = map[string]orders.DeliveryType{
	"in_home":        orders.DeliveryTypeDelivery,
	"on_site_pickup": orders.DeliveryTypePickup,
}

var centsPerUnit = decimal.NewFromInt(100)

// AppExtractor reads fabapp panel orders.
type AppExtractor struct {
	loc      *time.Location
	logg     *logger.Logger
	validate *validator.Validate
}

func NewAppExtractor(loc *time.Location, logg *logger.Logger) (*AppExtractor, error) {
	if loc == nil {
		return nil, fmt.Errorf("location required")
	}
	return &AppExtractor{loc: loc, logg: logg, validate: validator.New()}, nil
}

// Extract returns false for orders not created on now's local day.
func (e *AppExtractor) Extract(ctx context.Context, raw orders.AppOrder, now time.Time) (*orders.Normalized, bool, error) {
	if err := validationError(e.validate, raw); err != nil {
		return nil, false, err
	}
	created, err := raw.CreatedTime()
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "createdAt is not a valid timestamp")
	}
	local := created.In(e.loc)
	id := raw.OrderNumber.String()
	if local.Format(dateLayout) != now.In(e.loc).Format(dateLayout) {
		if e.logg != nil {
			e.logg.Info(e.logg.WithFields(ctx, map[string]any{"order_id": id, "created_at": raw.CreatedAt}), "extract.app_not_today")
		}
		return nil, false, nil
	}

	phone := digitsOnly(raw.UserPhone)
	if len(phone) > 2 {
		phone = phone[2:]
	}

	n := &orders.Normalized{
		Source:       orders.SourceApp,
		ID:           id,
		CreatedAt:    local,
		OrderDate:    local.Format("02-01"),
		OrderTime:    local.Format("15:04"),
		FirstName:    firstWord(raw.UserName),
		FullName:     strings.TrimSpace(raw.UserName),
		Phone:        phone,
		PaymentTitle: raw.PaymentMethod.Option.Title,
		Company:      appCompany,
		Status:       orders.StatusNone,
		Courier:      orders.CourierNone,
		Street:       raw.Address.Address,
		Number:       raw.Address.Number.String(),
		Complement:   raw.Address.Complement,
		Neighborhood: raw.Address.Neighborhood,
		City:         raw.Address.City,
		Postcode:     raw.Address.ZipCode,
		Latitude:     raw.Address.Lat.String(),
		Longitude:    raw.Address.Lng.String(),
		Observation:  raw.Observation,
		Date:         local.Format(dateLayout),
	}
	if n.Latitude == "" || n.Longitude == "" {
		n.Latitude, n.Longitude = orders.PlaceholderLatitude, orders.PlaceholderLongitude
	}
	n.AddressFull = FullAddress(n.Street, n.Number, n.Complement, n.Neighborhood, n.City, n.Postcode)

	method := strings.TrimSpace(raw.Delivery.Method)
	if dt, ok := appDeliveryTypes[method]; ok {
		n.DeliveryType = dt
	} else {
		warn(e.logg, ctx, "extract.app_delivery_unmapped", map[string]any{"order_id": id, "method": method})
		n.DeliveryType = orders.DeliveryType(method)
	}
	n.ShippingMethod = method

	n.Total = e.cents(ctx, id, "amountFinal", raw.AmountFinal.String())
	n.ShippingFee = e.cents(ctx, id, "shippingTax", raw.ShippingTax.String())

	var text strings.Builder
	subtotal := decimal.Zero
	for _, item := range raw.Items {
		qty := quantity(item.Quantity.String())
		price := e.cents(ctx, id, "price", item.Price.String())
		product := orders.Product{Name: item.ProductName, Quantity: qty, Total: price.Mul(decimal.NewFromInt(int64(qty)))}
		subtotal = subtotal.Add(product.Total)
		n.Products = append(n.Products, product)
		text.WriteString(product.Line())
		text.WriteString("\n")
	}
	n.ProductText = text.String()
	n.Subtotal = subtotal

	return n, true, nil
}

func (e *AppExtractor) cents(ctx context.Context, id, field, raw string) decimal.Decimal {
	d, ok := parseMoney(raw)
	if !ok {
		warn(e.logg, ctx, "extract.app_amount_invalid", map[string]any{"order_id": id, field: raw})
		return decimal.Zero
	}
	return d.Div(centsPerUnit).Round(2)
}

func quantity(raw string) int {
	d, ok := parseMoney(raw)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
