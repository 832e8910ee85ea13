// Package rules maps raw order codes to the labels the destination tables
// expect and enforces the dropdown whitelists.
package rules

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/pkg/logger"
)

//go:embed default_rules.yaml
var defaultRules []byte

type document struct {
	Payment struct {
		Codes         map[string]string `yaml:"codes"`
		TitlePrefixes []titlePrefix     `yaml:"title_prefixes"`
		Fallback      string            `yaml:"fallback"`
	} `yaml:"payment"`
	AppPayment map[string]string `yaml:"app_payment"`
	Sellers    struct {
		Default string            `yaml:"default"`
		Codes   map[string]string `yaml:"codes"`
	} `yaml:"sellers"`
	Stores     map[string][]string  `yaml:"stores"`
	CD         map[string][]string  `yaml:"cd"`
	Whitelists map[string]Whitelist `yaml:"whitelists"`
}

type titlePrefix struct {
	Prefix string `yaml:"prefix"`
	Label  string `yaml:"label"`
}

// Whitelist is the closed set of values a dropdown column accepts.
type Whitelist struct {
	Allowed []string `yaml:"allowed"`
	Default string   `yaml:"default"`
}

func (w Whitelist) allows(v string) bool {
	return slices.Contains(w.Allowed, v)
}

// Field names used by Enforce.
const (
	FieldPayment = "payment"
	FieldStatus  = "status"
	FieldCourier = "courier"
)

// Rules is immutable after Load and safe for concurrent use.
type Rules struct {
	paymentCodes    map[string]string
	titlePrefixes   []titlePrefix
	paymentFallback string
	appPayments     map[string]string
	sellerDefault   string
	sellers         map[string]string
	stores          map[string]string
	cd              map[string]string
	payment         Whitelist
	status          Whitelist
	courier         Whitelist
	logg            *logger.Logger
}

type Option func(*Rules)

func WithLogger(logg *logger.Logger) Option {
	return func(r *Rules) {
		r.logg = logg
	}
}

// Default returns the embedded rule tables.
func Default(opts ...Option) (*Rules, error) {
	return Load("", opts...)
}

// Load parses the embedded tables and merges the override file on top when
// path is set. Maps merge key by key, lists replace.
func Load(path string, opts ...Option) (*Rules, error) {
	var doc document
	if err := yaml.Unmarshal(defaultRules, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded rules: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse rules file %s: %w", path, err)
		}
	}
	r, err := compile(doc)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

func compile(doc document) (*Rules, error) {
	r := &Rules{
		paymentCodes:    make(map[string]string, len(doc.Payment.Codes)),
		titlePrefixes:   doc.Payment.TitlePrefixes,
		paymentFallback: doc.Payment.Fallback,
		appPayments:     doc.AppPayment,
		sellerDefault:   doc.Sellers.Default,
		sellers:         doc.Sellers.Codes,
		stores:          make(map[string]string),
		cd:              make(map[string]string),
	}
	for code, label := range doc.Payment.Codes {
		r.paymentCodes[strings.TrimSpace(code)] = label
	}
	for canonical, aliases := range doc.Stores {
		r.stores[Fold(canonical)] = canonical
		for _, alias := range aliases {
			r.stores[Fold(alias)] = canonical
		}
	}
	for key, aliases := range doc.CD {
		for _, alias := range aliases {
			r.cd[Fold(alias)] = key
		}
	}

	for _, field := range []string{FieldPayment, FieldStatus, FieldCourier} {
		wl, ok := doc.Whitelists[field]
		if !ok || len(wl.Allowed) == 0 {
			return nil, fmt.Errorf("whitelist %q is missing", field)
		}
		if !wl.allows(wl.Default) {
			return nil, fmt.Errorf("whitelist %q default %q is not allowed", field, wl.Default)
		}
		switch field {
		case FieldPayment:
			r.payment = wl
		case FieldStatus:
			r.status = wl
		case FieldCourier:
			r.courier = wl
		}
	}
	if r.paymentFallback == "" {
		r.paymentFallback = r.payment.Default
	}
	return r, nil
}

// PaymentLabel maps a site payment code, falling back to the title prefixes
// and then to the sentinel label.
func (r *Rules) PaymentLabel(ctx context.Context, code, title string) string {
	code = strings.TrimSpace(code)
	if label, ok := r.paymentCodes[code]; ok {
		return label
	}
	for _, rule := range r.titlePrefixes {
		if rule.Prefix != "" && strings.HasPrefix(title, rule.Prefix) {
			return rule.Label
		}
	}
	if code != "" && r.logg != nil {
		r.logg.Warn(r.logg.WithField(ctx, "payment_method", code), "rules.payment_unmapped")
	}
	return r.paymentFallback
}

// AppPaymentLabel maps an app payment option title.
func (r *Rules) AppPaymentLabel(title string) string {
	if label, ok := r.appPayments[strings.TrimSpace(title)]; ok {
		return label
	}
	return r.paymentFallback
}

// Seller resolves a billing company code to a seller name. Empty codes map to
// the default seller, unknown codes pass through.
func (r *Rules) Seller(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return r.sellerDefault
	}
	if name, ok := r.sellers[code]; ok {
		return name
	}
	return code
}

// KnownSeller reports whether the code maps to a named seller.
func (r *Rules) KnownSeller(code string) (string, bool) {
	name, ok := r.sellers[strings.TrimSpace(code)]
	return name, ok
}

// CanonicalStore returns the canonical store name for an alias. Unmapped
// values pass through unchanged.
func (r *Rules) CanonicalStore(raw string) string {
	if canonical, ok := r.stores[Fold(raw)]; ok {
		return canonical
	}
	return raw
}

// CD returns the distribution-center key the store belongs to.
func (r *Rules) CD(store string) (string, bool) {
	key, ok := r.cd[Fold(store)]
	return key, ok
}

// Substitution records a whitelist replacement.
type Substitution struct {
	Field string
	From  string
	To    string
}

// Enforce replaces dropdown values outside their whitelist with the
// whitelist default. Applying it twice changes nothing the second time.
func (r *Rules) Enforce(ctx context.Context, order *orders.Normalized) []Substitution {
	var subs []Substitution
	apply := func(field string, wl Whitelist, value *string) {
		if wl.allows(*value) {
			return
		}
		subs = append(subs, Substitution{Field: field, From: *value, To: wl.Default})
		if r.logg != nil {
			fctx := r.logg.WithFields(ctx, map[string]any{"field": field, "from": *value, "to": wl.Default})
			r.logg.Warn(fctx, "rules.whitelist_substitution")
		}
		*value = wl.Default
	}
	apply(FieldPayment, r.payment, &order.Payment)
	apply(FieldStatus, r.status, &order.Status)
	apply(FieldCourier, r.courier, &order.Courier)
	return subs
}

// Whitelist exposes the configured whitelist for field.
func (r *Rules) Whitelist(field string) (Whitelist, bool) {
	switch field {
	case FieldPayment:
		return r.payment, true
	case FieldStatus:
		return r.status, true
	case FieldCourier:
		return r.courier, true
	}
	return Whitelist{}, false
}

// Apply resolves the rule-mapped fields of a normalized order in place and
// then enforces the whitelists.
func (r *Rules) Apply(ctx context.Context, order *orders.Normalized) []Substitution {
	switch order.Source {
	case orders.SourceApp:
		order.Payment = r.AppPaymentLabel(order.PaymentTitle)
	default:
		order.Payment = r.PaymentLabel(ctx, order.PaymentCode, order.PaymentTitle)
		order.Company = r.Seller(order.SellerCode)
		if name, ok := r.KnownSeller(order.SellerCode); ok {
			order.Vendor = name
		} else {
			order.Vendor = strings.TrimSpace(order.SellerCode)
		}
	}
	order.Store = r.CanonicalStore(order.Store)
	return r.Enforce(ctx, order)
}
