package extract

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aogosto/order-triage/internal/orders"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/woocommerce"
)

const (
	minSiteIDLength   = 6
	siteCreatedLayout = "2006-01-02T15:04:05"
	pickupMethodTitle = "Retirada na Unidade"
	giftCardFeeName   = "Cartão Presente Ao Gosto Card"
	weightMetaKey     = "_weight_grams"
)

// AllowedSiteStatuses are the storefront statuses that enter the pipeline.
var AllowedSiteStatuses = []string{"processing", "saiu-pra-entrega", "wc-agendado", "lala-move"}

// Site order metadata keys.
const (
	MetaDeliveryTime   = "delivery_time"
	MetaDeliveryDate   = "delivery_date"
	MetaPickupTime     = "pickup_time"
	MetaPickupDate     = "pickup_date"
	MetaEffectiveStore = "_effective_store_final"
	MetaStore          = "_store_final"
	MetaStripeAccount  = "_payment_account_stripe"
	MetaPagarmeAccount = "_payment_account_pagarme"
	MetaBillingLat     = "billing_lat"
	MetaBillingLong    = "billing_long"
)

// ProductLookup resolves a product's weight in grams.
type ProductLookup interface {
	ProductWeight(ctx context.Context, productID int64) (string, bool, error)
}

type SiteParams struct {
	Location *time.Location
	Products ProductLookup
	Alerts   Alerter
	Logger   *logger.Logger
}

// SiteExtractor reads WooCommerce orders.
type SiteExtractor struct {
	loc      *time.Location
	products ProductLookup
	alerts   Alerter
	logg     *logger.Logger
	validate *validator.Validate
}

func NewSiteExtractor(params SiteParams) (*SiteExtractor, error) {
	if params.Location == nil {
		return nil, fmt.Errorf("location required")
	}
	return &SiteExtractor{
		loc:      params.Location,
		products: params.Products,
		alerts:   params.Alerts,
		logg:     params.Logger,
		validate: validator.New(),
	}, nil
}

// Extract returns false without an error for orders the pipeline ignores
// (short ids, statuses outside the allowed set). A returned error is a
// permanent validation failure.
func (e *SiteExtractor) Extract(ctx context.Context, raw orders.RawOrder) (*orders.Normalized, bool, error) {
	id := raw.ID.String()
	if len(id) < minSiteIDLength {
		return nil, false, nil
	}
	if !slices.Contains(AllowedSiteStatuses, raw.Status) {
		warn(e.logg, ctx, "extract.status_filtered", map[string]any{"order_id": id, "status": raw.Status})
		return nil, false, nil
	}
	if err := validationError(e.validate, raw); err != nil {
		return nil, false, err
	}

	created, err := time.ParseInLocation(siteCreatedLayout, strings.TrimSpace(raw.DateCreated), e.loc)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date_created is not a valid timestamp")
	}

	meta := raw.Meta()
	billing := raw.Billing

	n := &orders.Normalized{
		Source:       orders.SourceSite,
		ID:           id,
		CreatedAt:    created,
		OrderDate:    created.Format("02-01"),
		OrderTime:    created.Format("15:04"),
		FirstName:    firstWord(billing.FirstName),
		FullName:     strings.TrimSpace(billing.FirstName + " " + billing.LastName),
		Phone:        orders.NormalizePhone(billing.Phone),
		PaymentCode:  strings.TrimSpace(raw.PaymentMethod),
		PaymentTitle: raw.PaymentMethodTitle,
		SellerCode:   billing.Company.String(),
		Status:       orders.StatusNone,
		Courier:      orders.CourierNone,
		CustomerNote: raw.CustomerNote,
		DeliveryType: orders.DeliveryTypeDelivery,
	}

	e.extractMoney(ctx, raw, n)
	e.extractAddress(raw, n)
	e.extractSchedule(ctx, meta, n)

	n.EffectiveStore, _ = meta.NonEmpty(MetaEffectiveStore)
	n.Store = n.EffectiveStore
	if n.Store == "" {
		n.Store, _ = meta.NonEmpty(MetaStore)
	}
	n.StripeAccount, _ = meta.NonEmpty(MetaStripeAccount)
	n.PagarmeAccount, _ = meta.NonEmpty(MetaPagarmeAccount)

	lat, okLat := meta.NonEmpty(MetaBillingLat)
	long, okLong := meta.NonEmpty(MetaBillingLong)
	if okLat && okLong {
		n.Latitude, n.Longitude = lat, long
	} else {
		n.Latitude, n.Longitude = orders.PlaceholderLatitude, orders.PlaceholderLongitude
	}

	if len(raw.ShippingLines) > 0 {
		n.ShippingMethod = raw.ShippingLines[0].MethodTitle
		if n.ShippingMethod == pickupMethodTitle {
			n.DeliveryType = orders.DeliveryTypePickup
		}
	}

	n.Products = e.extractProducts(ctx, id, raw.LineItems)

	if coupon, ok := ParseCoupon(raw.CouponLines); ok {
		if coupon.Partial {
			warn(e.logg, ctx, "extract.coupon_info_unparsed", map[string]any{"order_id": id, "coupon": coupon.Code})
		}
		n.CouponCode = coupon.Code
		n.CouponValue = coupon.Value
		n.CouponType = coupon.Type
		n.CouponDiscount, _ = parseMoney(raw.CouponLines[0].Discount.String())
	}

	for _, fee := range raw.FeeLines {
		total, _ := parseMoney(fee.Total.String())
		n.Fees = append(n.Fees, orders.Fee{Name: fee.Name, Total: total})
		if n.GiftCard == "" && fee.Name == giftCardFeeName {
			n.GiftCard = fee.Total.String()
		}
	}

	return n, true, nil
}

func (e *SiteExtractor) extractMoney(ctx context.Context, raw orders.RawOrder, n *orders.Normalized) {
	var ok bool
	if n.Total, ok = parseMoney(raw.Total.String()); !ok {
		warn(e.logg, ctx, "extract.total_invalid", map[string]any{"order_id": n.ID, "total": raw.Total.String()})
	}
	if n.ShippingFee, ok = parseMoney(raw.ShippingTotal.String()); !ok {
		warn(e.logg, ctx, "extract.shipping_invalid", map[string]any{"order_id": n.ID, "shipping_total": raw.ShippingTotal.String()})
	}
	subtotal := decimal.Zero
	for _, item := range raw.LineItems {
		total, _ := parseMoney(item.Total.String())
		subtotal = subtotal.Add(total)
	}
	n.Subtotal = subtotal
}

func (e *SiteExtractor) extractAddress(raw orders.RawOrder, n *orders.Normalized) {
	billing := raw.Billing
	street, number, ok := SplitNumber(billing.Address1)
	if !ok {
		number = billing.Number.String()
	}
	n.Street = CleanStreet(street)
	n.Number = number
	n.Complement = billing.Address2
	n.City = billing.City
	n.Postcode = billing.Postcode
	n.Neighborhood = billing.Neighborhood
	if strings.TrimSpace(n.Neighborhood) == "" {
		n.Neighborhood = billing.City
	}
	n.AddressFull = FullAddress(billing.Address1, number, billing.Address2, n.Neighborhood, billing.City, billing.Postcode)
}

func (e *SiteExtractor) extractSchedule(ctx context.Context, meta orders.Meta, n *orders.Normalized) {
	deliveryTime, hasDeliveryTime := meta.NonEmpty(MetaDeliveryTime)
	pickupTime, hasPickupTime := meta.NonEmpty(MetaPickupTime)

	if hasDeliveryTime {
		n.RawTime = deliveryTime
		if ValidWindow(deliveryTime) {
			n.RequestedWindow = deliveryTime
		} else {
			warn(e.logg, ctx, "extract.window_invalid", map[string]any{"order_id": n.ID, "delivery_time": deliveryTime})
		}
	}
	if n.RequestedWindow == "" && hasPickupTime {
		n.RequestedWindow = pickupTime
		if n.RawTime == "" {
			n.RawTime = pickupTime
		}
	}

	for _, key := range []string{MetaDeliveryDate, MetaPickupDate} {
		rawDate, ok := meta.NonEmpty(key)
		if !ok {
			continue
		}
		if date, ok := parseDate(rawDate, e.loc); ok {
			n.RequestedDate = date
			return
		}
		warn(e.logg, ctx, "extract.date_invalid", map[string]any{"order_id": n.ID, key: rawDate})
	}
}

func (e *SiteExtractor) extractProducts(ctx context.Context, orderID string, items []woocommerce.LineItem) []orders.Product {
	products := make([]orders.Product, 0, len(items))
	for _, item := range items {
		product := orders.Product{Name: item.Name, Quantity: item.Quantity}
		product.Total, _ = parseMoney(item.Total.String())

		for _, m := range item.MetaData {
			key := strings.TrimSpace(m.DisplayKey)
			if key == "" {
				key = strings.TrimSpace(m.Key)
			}
			value, ok := woocommerce.ScalarText(m.DisplayValue)
			if !ok || strings.TrimSpace(value) == "" {
				value, _ = woocommerce.ScalarText(m.Value)
			}
			value = strings.TrimSpace(value)
			if m.Key == weightMetaKey {
				product.WeightGrams = value
				continue
			}
			if key == "" || value == "" || strings.HasPrefix(key, "_") {
				continue
			}
			product.Variations = append(product.Variations, key+": "+value)
		}

		if item.ProductID != 0 && e.products != nil {
			weight, ok, err := e.products.ProductWeight(ctx, item.ProductID)
			switch {
			case err != nil:
				cause := fmt.Errorf("product %d metadata lookup: %w", item.ProductID, err)
				if e.logg != nil {
					e.logg.Error(e.logg.WithField(ctx, "product_id", item.ProductID), "extract.product_lookup_failed", err)
				}
				if e.alerts != nil {
					e.alerts.AlertOperator(ctx, orderID, cause)
				}
			case ok:
				product.WeightGrams = weight
			}
		}
		products = append(products, product)
	}
	return products
}
