package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aogosto/order-triage/pkg/woocommerce"
)

func couponLine(info string) woocommerce.CouponLine {
	line := woocommerce.CouponLine{Code: "BEMVINDO", Discount: "15.00", DiscountType: "fixed_cart"}
	if info != "" {
		line.MetaData = []woocommerce.MetaEntry{{Key: "coupon_info", Value: json.RawMessage(info)}}
	}
	return line
}

func TestParseCouponShapes(t *testing.T) {
	cases := []struct {
		name      string
		info      string
		wantValue string
		wantType  string
		partial   bool
	}{
		{"no info falls back to line", "", "15.00", "fixed_cart", false},
		{"json list", `[101, "BEMVINDO", "percent", 10]`, "10", "percent", false},
		{"json map amount", `{"amount": 12.5, "type": "fixed_cart"}`, "12.5", "fixed_cart", false},
		{"json map discount_value only", `{"discount_value": 0, "discount_type": "percent"}`, "0", "percent", false},
		{"string holding json", `"{\"value\": 7, \"discount_type\": \"fixed_product\"}"`, "7", "fixed_product", false},
		{"python literal list", `"[101, 'BEMVINDO', 'percent', 5.0, True]"`, "5.0", "percent", false},
		{"python literal dict", `"{'discount': 20, 'type': 'fixed_cart', 'free_shipping': False}"`, "20", "fixed_cart", false},
		{"short list falls back", `[1, 2]`, "15.00", "fixed_cart", false},
		{"opaque string falls back", `"BEMVINDO|10|percent"`, "15.00", "fixed_cart", true},
		{"unterminated literal falls back", `"{'amount: 10}"`, "15.00", "fixed_cart", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			coupon, ok := ParseCoupon([]woocommerce.CouponLine{couponLine(tc.info)})
			assert.True(t, ok)
			assert.Equal(t, "BEMVINDO", coupon.Code)
			assert.Equal(t, tc.wantValue, coupon.Value)
			assert.Equal(t, tc.wantType, coupon.Type)
			assert.Equal(t, tc.partial, coupon.Partial)
		})
	}
}

func TestParseCouponOnlyFirstLine(t *testing.T) {
	second := couponLine(`[1, "X", "percent", 99]`)
	second.Code = "SEGUNDO"
	coupon, ok := ParseCoupon([]woocommerce.CouponLine{couponLine(""), second})
	assert.True(t, ok)
	assert.Equal(t, "BEMVINDO", coupon.Code)
	assert.Equal(t, "15.00", coupon.Value)

	_, ok = ParseCoupon(nil)
	assert.False(t, ok)
}

func TestPythonLiteralToJSON(t *testing.T) {
	out, ok := pythonLiteralToJSON(`('a', "it's", None, True)`)
	assert.True(t, ok)
	assert.JSONEq(t, `["a", "it's", null, true]`, out)

	_, ok = pythonLiteralToJSON(`{'a': undefined}`)
	assert.False(t, ok)
}
