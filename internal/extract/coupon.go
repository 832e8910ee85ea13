package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aogosto/order-triage/pkg/woocommerce"
)

// Coupon is the parsed value and type of an order's first coupon.
type Coupon struct {
	Code  string
	Value string
	Type  string
	// Partial is set when coupon_info was present but could not be read.
	Partial bool
}

// ParseCoupon reads the first coupon line. coupon_info wins over the line's
// own discount fields when it yields anything.
func ParseCoupon(lines []woocommerce.CouponLine) (Coupon, bool) {
	if len(lines) == 0 {
		return Coupon{}, false
	}
	line := lines[0]
	out := Coupon{Code: strings.TrimSpace(line.Code)}

	found := false
	if raw, ok := woocommerce.NewMeta(line.MetaData).Raw("coupon_info"); ok {
		info, parsed := decodeCouponInfo(raw)
		if !parsed {
			out.Partial = true
		}
		switch v := info.(type) {
		case []any:
			if len(v) >= 4 {
				out.Value = pyString(v[3])
				out.Type = pyString(v[2])
				found = true
			}
		case map[string]any:
			if val, ok := firstTruthy(v, "amount", "value", "discount", "discount_value"); ok {
				out.Value = pyString(val)
				found = true
			}
			if typ, ok := firstTruthy(v, "type", "discount_type"); ok {
				out.Type = pyString(typ)
				found = true
			}
		}
	}
	if !found {
		out.Value = line.Discount.String()
		out.Type = line.DiscountType
	}
	return out, true
}

// decodeCouponInfo accepts a JSON value, a string holding JSON, or a string
// holding a Python literal. The bool is false when the text was opaque.
func decodeCouponInfo(raw json.RawMessage) (any, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, true
	}
	if trimmed[0] != '"' {
		v, err := decodeNumberJSON(trimmed)
		return v, err == nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if v, err := decodeNumberJSON([]byte(s)); err == nil {
		return v, true
	}
	converted, ok := pythonLiteralToJSON(s)
	if !ok {
		return s, false
	}
	v, err := decodeNumberJSON([]byte(converted))
	if err != nil {
		return s, false
	}
	return v, true
}

func decodeNumberJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data")
	}
	return v, nil
}

// pythonLiteralToJSON rewrites single-quoted strings, tuples and the
// True/False/None keywords into JSON.
func pythonLiteralToJSON(s string) (string, bool) {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			quote := r
			b.WriteRune('"')
			i++
			closed := false
			for ; i < len(runes); i++ {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					next := runes[i+1]
					i++
					if next == '\'' {
						b.WriteRune('\'')
					} else {
						b.WriteRune('\\')
						b.WriteRune(next)
					}
					continue
				}
				if c == quote {
					closed = true
					break
				}
				if c == '"' {
					b.WriteString(`\"`)
					continue
				}
				b.WriteRune(c)
			}
			if !closed {
				return "", false
			}
			b.WriteRune('"')
		case r == '(':
			b.WriteRune('[')
		case r == ')':
			b.WriteRune(']')
		case isIdentStart(r):
			j := i
			for j < len(runes) && isIdentStart(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			switch word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				return "", false
			}
			i = j - 1
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), true
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func firstTruthy(m map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := m[key]; ok && truthy(v) {
			return v, true
		}
	}
	last := keys[len(keys)-1]
	if v, ok := m[last]; ok && v != nil {
		return v, true
	}
	return nil, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// pyString renders scalars the way the sheet has always received them.
func pyString(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
