package woocommerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return strings.TrimSpace(string(f))
}

// Order mirrors the subset of the WooCommerce v3 order payload the pipeline reads.
type Order struct {
	ID                 FlexString     `json:"id" validate:"required"`
	Status             string         `json:"status"`
	DateCreated        string         `json:"date_created" validate:"required"`
	DateModified       string         `json:"date_modified"`
	Total              FlexString     `json:"total"`
	ShippingTotal      FlexString     `json:"shipping_total"`
	CustomerNote       string         `json:"customer_note"`
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	Billing            Billing        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	MetaData           []MetaEntry    `json:"meta_data"`
	LineItems          []LineItem     `json:"line_items"`
	CouponLines        []CouponLine   `json:"coupon_lines"`
	FeeLines           []FeeLine      `json:"fee_lines"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
}

// Meta indexes the order-level metadata.
func (o Order) Meta() Meta {
	return NewMeta(o.MetaData)
}

type Billing struct {
	FirstName    string     `json:"first_name" validate:"required"`
	LastName     string     `json:"last_name"`
	Company      FlexString `json:"company"`
	Address1     string     `json:"address_1"`
	Address2     string     `json:"address_2"`
	Number       FlexString `json:"number"`
	Neighborhood string     `json:"neighborhood"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	Postcode     string     `json:"postcode"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone" validate:"required"`
}

type Address struct {
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Address1     string     `json:"address_1"`
	Address2     string     `json:"address_2"`
	Number       FlexString `json:"number"`
	Neighborhood string     `json:"neighborhood"`
	City         string     `json:"city"`
	Postcode     string     `json:"postcode"`
}

type MetaEntry struct {
	ID    int64           `json:"id"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type LineItemMeta struct {
	Key          string          `json:"key"`
	Value        json.RawMessage `json:"value"`
	DisplayKey   string          `json:"display_key"`
	DisplayValue json.RawMessage `json:"display_value"`
}

type LineItem struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	ProductID int64          `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Subtotal  FlexString     `json:"subtotal"`
	Total     FlexString     `json:"total"`
	MetaData  []LineItemMeta `json:"meta_data"`
}

type CouponLine struct {
	Code         string      `json:"code"`
	Discount     FlexString  `json:"discount"`
	DiscountType string      `json:"discount_type"`
	MetaData     []MetaEntry `json:"meta_data"`
}

type FeeLine struct {
	Name  string     `json:"name"`
	Total FlexString `json:"total"`
}

type ShippingLine struct {
	MethodTitle string     `json:"method_title"`
	MethodID    string     `json:"method_id"`
	Total       FlexString `json:"total"`
}

// Product is the product detail used for weight enrichment.
type Product struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	MetaData []MetaEntry `json:"meta_data"`
}
