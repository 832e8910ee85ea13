package orders

import "github.com/shopspring/decimal"

// Schema versions the column layout of a destination table.
type Schema struct {
	Name    string
	Version int
	Width   int
}

var (
	SiteSchemaV1 = Schema{Name: "site", Version: 1, Width: 39}
	AppSchemaV1  = Schema{Name: "app", Version: 1, Width: 35}
)

// Column positions, 0-based.
const (
	ColID = iota
	ColOrderDate
	ColOrderTime
	ColNeighborhood
	ColFirstName
	ColPayment
	ColTotal
	ColTotalCopy
	ColCompany
	ColShippingFee
	ColStatus
	ColCourier
	ColStreet
	ColNumber
	ColPostcode
	ColComplement
	ColLatitude
	ColLongitude
	ColStore
	colReserved19
	ColCity
	colReserved21
	ColPhone
	ColCustomerNote
	ColDeliveryType
	ColWindow
	ColDate
	colReserved27
	colReserved28
	ColProducts
	colReserved30
	colReserved31
	ColCouponCode
	ColCouponValue
	ColCouponType
	ColGiftCard
	ColStripeAccount
	ColEffectiveStore
	ColPagarmeAccount
	columnCount
)

// Row serializes the order into exactly schema.Width cells. Absent values
// are empty strings, money is float64.
func (n *Normalized) Row(schema Schema) []any {
	row := make([]any, columnCount)
	for i := range row {
		row[i] = ""
	}

	row[ColID] = n.ID
	row[ColOrderDate] = n.OrderDate
	row[ColOrderTime] = n.OrderTime
	row[ColNeighborhood] = n.Neighborhood
	row[ColFirstName] = n.FirstName
	row[ColPayment] = n.Payment
	row[ColTotal] = money(n.Total)
	row[ColTotalCopy] = money(n.Total)
	row[ColCompany] = n.Company
	row[ColShippingFee] = money(n.ShippingFee)
	row[ColStatus] = n.Status
	row[ColCourier] = n.Courier
	row[ColStreet] = n.Street
	row[ColNumber] = n.Number
	row[ColPostcode] = n.Postcode
	row[ColComplement] = n.Complement
	row[ColLatitude] = coordinate(n.Latitude)
	row[ColLongitude] = coordinate(n.Longitude)
	row[ColStore] = n.Store
	row[ColCity] = n.City
	row[ColPhone] = n.Phone
	row[ColCustomerNote] = n.CustomerNote
	row[ColDeliveryType] = string(n.DeliveryType)
	row[ColWindow] = n.Window
	row[ColDate] = n.Date
	row[ColProducts] = n.ProductList()
	row[ColCouponCode] = n.CouponCode
	row[ColCouponValue] = n.CouponValue
	row[ColCouponType] = n.CouponType
	row[ColGiftCard] = n.GiftCard
	row[ColStripeAccount] = n.StripeAccount
	row[ColEffectiveStore] = n.EffectiveStore
	row[ColPagarmeAccount] = n.PagarmeAccount

	out := make([]any, schema.Width)
	for i := range out {
		if i < len(row) {
			out[i] = row[i]
		} else {
			out[i] = ""
		}
	}
	return out
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// coordinate writes parseable coordinates as numbers and anything else,
// including the placeholders, as text.
func coordinate(v string) any {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return v
	}
	f, _ := d.Float64()
	return f
}
