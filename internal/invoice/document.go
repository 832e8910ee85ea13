// Package invoice renders the printable order slip for the dispatch desk.
package invoice

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/internal/schedule"
)

const (
	defaultPickupUnit = "Central Distribuição (Sagrada Família)"
	appPickupUnit     = "Retirada na Unidade (Av. Silviano Brandão, 685, Sagrada Família)"
	urgentMethod      = "go! express (em até 1 hora!)"
	unknownVendor     = "Não especificado"
	qrSize            = 256
)

// highlighted items are printed between asterisks so packers do not miss them.
var highlighted = map[string]struct{}{
	"carvão": {},
	"acendedor de churrasqueira – fogaço | r$: 2,00 (uni)": {},
}

type Line struct {
	Name        string
	Variations  string
	Quantity    int
	Subtotal    string
	Highlighted bool
}

type Adjustment struct {
	Label  string
	Amount string
}

// Document is everything the slip template prints.
type Document struct {
	Title         string
	App           bool
	FullName      string
	Phone         string
	Pickup        bool
	PickupUnit    string
	Address       string
	Date          string
	Scheduled     bool
	Today         bool
	Time          string
	Method        string
	Urgent        bool
	HasVariations bool
	Lines         []Line
	Subtotal      string
	ShippingFee   string
	Adjustments   []Adjustment
	Total         string
	PaymentTitle  string
	Vendor        string
	Note          string
	QRCode        template.URL
}

// FileName is the stored object name for the order's slip.
func FileName(order *orders.Normalized) string {
	if order.Source == orders.SourceApp {
		return "Invoice_App_" + order.ID + ".pdf"
	}
	return "Invoice_" + order.ID + ".pdf"
}

// AssignURL is the link the dispatch QR code opens.
func AssignURL(base, orderID string) string {
	q := url.Values{}
	q.Set("action", "AssignDelivery")
	q.Set("id", orderID)
	return base + "?" + q.Encode()
}

// FormatPhone renders a Brazilian mobile as "(DD) P XXXX-XXXX". Other
// shapes are returned as given.
func FormatPhone(phone string) string {
	digits := strings.TrimPrefix(orders.NormalizePhone(phone), "55")
	if len(digits) != 11 {
		return phone
	}
	return fmt.Sprintf("(%s) %s %s-%s", digits[0:2], digits[2:3], digits[3:7], digits[7:11])
}

// NewDocument builds the slip contents for order as of now.
func NewDocument(order *orders.Normalized, now time.Time, assignBase string) (*Document, error) {
	doc := &Document{
		Title:        "#" + order.ID,
		App:          order.Source == orders.SourceApp,
		FullName:     order.FullName,
		Phone:        FormatPhone(order.Phone),
		Pickup:       order.DeliveryType == orders.DeliveryTypePickup,
		Address:      order.AddressFull,
		Method:       order.ShippingMethod,
		Urgent:       strings.ToLower(strings.TrimSpace(order.ShippingMethod)) == urgentMethod,
		Subtotal:     money(order.Subtotal),
		ShippingFee:  money(order.ShippingFee),
		Total:        money(order.Total),
		PaymentTitle: order.PaymentTitle,
		Vendor:       order.Vendor,
		Note:         order.CustomerNote,
	}
	if doc.App {
		doc.Title = "Pedido App #" + order.ID
		doc.PickupUnit = appPickupUnit
		doc.Note = order.Observation
	} else {
		doc.PickupUnit = order.Store
		if doc.PickupUnit == "" {
			doc.PickupUnit = defaultPickupUnit
		}
	}
	if doc.Vendor == "" {
		doc.Vendor = unknownVendor
	}

	doc.Date = "Não informada"
	if order.Date != "" {
		if d, err := time.Parse(schedule.DateLayout, order.Date); err == nil {
			doc.Date = d.Format("02/01/2006")
			today := now.Format(schedule.DateLayout)
			doc.Scheduled = order.Date > today
			doc.Today = order.Date == today
		}
	}

	doc.Time = order.RawTime
	if doc.Time == "" {
		doc.Time = order.RequestedWindow
	}
	if doc.Time == "" {
		doc.Time = "Não informado"
	}

	for _, p := range order.Products {
		variations := append([]string(nil), p.Variations...)
		if p.WeightGrams != "" {
			variations = append(variations, "Aprox. "+p.WeightGrams+"g")
		}
		if len(variations) > 0 {
			doc.HasVariations = true
		}
		line := Line{
			Name:       p.Name,
			Variations: strings.Join(variations, ", "),
			Quantity:   p.Quantity,
			Subtotal:   money(p.Total),
		}
		if _, ok := highlighted[strings.ToLower(strings.TrimSpace(p.Name))]; ok {
			line.Highlighted = true
			line.Name = "*** " + p.Name + " ***"
		}
		if line.Variations == "" {
			line.Variations = "-"
		}
		doc.Lines = append(doc.Lines, line)
	}

	if order.CouponCode != "" {
		doc.Adjustments = append(doc.Adjustments, Adjustment{
			Label:  "Cupom (" + order.CouponCode + ")",
			Amount: "-" + money(order.CouponDiscount.Abs()),
		})
	}
	for _, fee := range order.Fees {
		if fee.Total.IsNegative() {
			doc.Adjustments = append(doc.Adjustments, Adjustment{
				Label:  "Desconto (" + fee.Name + ")",
				Amount: "-" + money(fee.Total.Abs()),
			})
		}
	}

	if assignBase != "" {
		png, err := qrcode.Encode(AssignURL(assignBase, order.ID), qrcode.Medium, qrSize)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		doc.QRCode = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}
	return doc, nil
}

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}
