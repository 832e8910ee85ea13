// Package orders holds the source-independent order model and its
// positional row serialization.
package orders

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aogosto/order-triage/pkg/fabapp"
	"github.com/aogosto/order-triage/pkg/woocommerce"
)

// RawOrder is a site order as returned by the WooCommerce API.
type RawOrder = woocommerce.Order

// AppOrder is an app order detail as returned by the panel.
type AppOrder = fabapp.Order

// Meta is the typed metadata lookup over RawOrder.MetaData.
type Meta = woocommerce.Meta

type Source string

const (
	SourceSite Source = "site"
	SourceApp  Source = "app"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// Dropdown literals shared by the sheets and the rule tables.
const (
	StatusScheduled = "Agendado"
	StatusPending   = "Pendente"
	StatusNone      = "-"
	CourierNone     = "-"
)

// Placeholder coordinates written when the order has no geolocation.
const (
	PlaceholderLatitude  = "latitude"
	PlaceholderLongitude = "longitude"
)

// Product is one line item after enrichment.
type Product struct {
	Name        string
	Quantity    int
	Variations  []string
	WeightGrams string
	Total       decimal.Decimal
}

// Line renders the product in the sheet's product list format.
func (p Product) Line() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(" (Qtd: ")
	b.WriteString(strconv.Itoa(p.Quantity))
	b.WriteString(")")
	parts := make([]string, 0, len(p.Variations)+1)
	parts = append(parts, p.Variations...)
	if p.WeightGrams != "" {
		parts = append(parts, "Peso: "+p.WeightGrams+"g")
	}
	if len(parts) > 0 {
		b.WriteString(" - ")
		b.WriteString(strings.Join(parts, " | "))
	}
	b.WriteString(" *")
	return b.String()
}

// Fee is an order fee line; negative totals are discounts.
type Fee struct {
	Name  string
	Total decimal.Decimal
}

// Normalized is the flat order record every destination table receives.
type Normalized struct {
	Source Source
	ID     string

	CreatedAt time.Time
	OrderDate string // DD-MM
	OrderTime string // HH:MM

	FirstName string
	FullName  string
	Phone     string

	// PaymentCode and SellerCode are the raw codes the rule tables map
	// into Payment, Company and Vendor.
	PaymentCode  string
	PaymentTitle string
	Payment      string
	SellerCode   string
	Company      string
	Vendor       string

	Total       decimal.Decimal
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Fees        []Fee

	Status  string
	Courier string

	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	Postcode     string
	AddressFull  string
	Latitude     string
	Longitude    string

	Store          string
	EffectiveStore string

	CustomerNote   string
	Observation    string
	DeliveryType   DeliveryType
	ShippingMethod string

	// RequestedWindow and RequestedDate carry what the customer asked for;
	// Window and Date hold the classified values.
	RequestedWindow string
	RawTime         string
	RequestedDate   string
	Window          string
	Date            string
	Scheduled       bool
	AutoScheduled   bool

	Products    []Product
	ProductText string

	CouponCode     string
	CouponValue    string
	CouponType     string
	CouponDiscount decimal.Decimal
	GiftCard       string

	StripeAccount  string
	PagarmeAccount string
}

// ProductList joins the product lines, unless the extractor already rendered them.
func (n *Normalized) ProductList() string {
	if n.ProductText != "" {
		return n.ProductText
	}
	lines := make([]string, 0, len(n.Products))
	for _, p := range n.Products {
		lines = append(lines, p.Line())
	}
	return strings.Join(lines, "\n")
}
