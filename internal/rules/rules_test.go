package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aogosto/order-triage/internal/orders"
)

func mustDefault(t *testing.T) *Rules {
	t.Helper()
	r, err := Default()
	require.NoError(t, err)
	return r
}

func TestPaymentLabel(t *testing.T) {
	r := mustDefault(t)
	ctx := context.Background()
	cases := []struct {
		code, title, want string
	}{
		{"cod", "", "Cartão"},
		{" stripe_cc ", "", "Crédito Site"},
		{"pagarme_custom_pix", "Pix", "Pix"},
		{"todo_incomm", "", "Cartão Presente Ao Gosto Card"},
		{"unknown_gateway", "Vale Alimentação Ticket", "V.A"},
		{"unknown_gateway", "Boleto", "Sem método de pagamento"},
		{"", "", "Sem método de pagamento"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, r.PaymentLabel(ctx, tc.code, tc.title), "code %q title %q", tc.code, tc.title)
	}
}

func TestAppPaymentLabel(t *testing.T) {
	r := mustDefault(t)
	assert.Equal(t, "Cartão", r.AppPaymentLabel("Cartão de Débito"))
	assert.Equal(t, "V.A", r.AppPaymentLabel("Voucher"))
	assert.Equal(t, "Sem método de pagamento", r.AppPaymentLabel("Pix no app"))
}

func TestSeller(t *testing.T) {
	r := mustDefault(t)
	assert.Equal(t, "Site", r.Seller(""))
	assert.Equal(t, "Alline", r.Seller("07"))
	assert.Equal(t, "Lorena", r.Seller("062"))
	assert.Equal(t, "999", r.Seller("999"))
	_, ok := r.KnownSeller("999")
	assert.False(t, ok)
}

func TestCanonicalStoreFoldsAliases(t *testing.T) {
	r := mustDefault(t)
	assert.Equal(t, "Unidade Barreiro", r.CanonicalStore("  CD  Barreiro "))
	assert.Equal(t, "Unidade Sion", r.CanonicalStore("UnidadeSion"))
	assert.Equal(t, "Central Distribuição (Sagrada Família)", r.CanonicalStore("central distribuicao (sagrada familia)"))
	assert.Equal(t, "Loja Nova", r.CanonicalStore("Loja Nova"))
}

func TestCD(t *testing.T) {
	r := mustDefault(t)
	key, ok := r.CD("Unidade Barreiro")
	assert.True(t, ok)
	assert.Equal(t, "barreiro", key)
	key, ok = r.CD("SION")
	assert.True(t, ok)
	assert.Equal(t, "sion", key)
	_, ok = r.CD("Central Distribuição (Sagrada Família)")
	assert.False(t, ok)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "sagrada familia", Fold("  Sagrada   Família "))
	assert.Equal(t, "haiti", Fold("HAITÍ"))
}

func TestEnforceSubstitutesDefaults(t *testing.T) {
	r := mustDefault(t)
	order := &orders.Normalized{Payment: "Bitcoin", Status: "Aguardando", Courier: "João"}
	subs := r.Enforce(context.Background(), order)
	require.Len(t, subs, 3)
	assert.Equal(t, "Sem método de pagamento", order.Payment)
	assert.Equal(t, "Pendente", order.Status)
	assert.Equal(t, "-", order.Courier)

	assert.Empty(t, r.Enforce(context.Background(), order))
}

func TestEnforceProperties(t *testing.T) {
	r := mustDefault(t)
	payment, _ := r.Whitelist(FieldPayment)
	status, _ := r.Whitelist(FieldStatus)
	courier, _ := r.Whitelist(FieldCourier)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("enforced fields are whitelisted and enforcement is idempotent", prop.ForAll(
		func(p, s, c string) bool {
			order := &orders.Normalized{Payment: p, Status: s, Courier: c}
			r.Enforce(context.Background(), order)
			first := *order
			if !payment.allows(order.Payment) || !status.allows(order.Status) || !courier.allows(order.Courier) {
				return false
			}
			if len(r.Enforce(context.Background(), order)) != 0 {
				return false
			}
			return order.Payment == first.Payment && order.Status == first.Status && order.Courier == first.Courier
		},
		gen.OneGenOf(gen.AnyString(), gen.OneConstOf("Pix", "Cartão", "Dinheiro")),
		gen.OneGenOf(gen.AnyString(), gen.OneConstOf("Agendado", "-", "Entregue")),
		gen.OneGenOf(gen.AnyString(), gen.OneConstOf("-", "Nenhum")),
	))

	properties.TestingRun(t)
}

func TestLoadOverrideMergesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	override := []byte(`
payment:
  codes:
    "pix_novo": "Pix"
sellers:
  codes:
    "90": "Bruna"
`)
	require.NoError(t, os.WriteFile(path, override, 0o600))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Pix", r.PaymentLabel(context.Background(), "pix_novo", ""))
	assert.Equal(t, "Cartão", r.PaymentLabel(context.Background(), "cod", ""))
	assert.Equal(t, "Bruna", r.Seller("90"))
	assert.Equal(t, "Alline", r.Seller("7"))
}

func TestLoadRejectsDefaultOutsideWhitelist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	override := []byte(`
whitelists:
  courier:
    allowed: ["-"]
    default: "Ninguém"
`)
	require.NoError(t, os.WriteFile(path, override, 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplySiteOrder(t *testing.T) {
	r := mustDefault(t)
	order := &orders.Normalized{
		Source:       orders.SourceSite,
		PaymentCode:  "pagarme_custom_pix",
		PaymentTitle: "Pix",
		SellerCode:   "07",
		Store:        "unidade sion",
		Status:       orders.StatusScheduled,
		Courier:      orders.CourierNone,
	}
	subs := r.Apply(context.Background(), order)
	assert.Empty(t, subs)
	assert.Equal(t, "Pix", order.Payment)
	assert.Equal(t, "Alline", order.Company)
	assert.Equal(t, "Alline", order.Vendor)
	assert.Equal(t, "Unidade Sion", order.Store)
}

func TestApplyAppOrderKeepsCompany(t *testing.T) {
	r := mustDefault(t)
	order := &orders.Normalized{
		Source:       orders.SourceApp,
		PaymentTitle: "Voucher",
		Company:      "App",
		Status:       "Desconhecido",
		Courier:      orders.CourierNone,
	}
	subs := r.Apply(context.Background(), order)
	assert.Equal(t, "V.A", order.Payment)
	assert.Equal(t, "App", order.Company)
	require.Len(t, subs, 1)
	assert.Equal(t, FieldStatus, subs[0].Field)
}

func TestApplyUnknownSellerKeepsCode(t *testing.T) {
	r := mustDefault(t)
	order := &orders.Normalized{Source: orders.SourceSite, SellerCode: " 999 ", Status: orders.StatusNone, Courier: orders.CourierNone}
	r.Apply(context.Background(), order)
	assert.Equal(t, "999", order.Company)
	assert.Equal(t, "999", order.Vendor)
}
