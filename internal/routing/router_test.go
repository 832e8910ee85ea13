package routing

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aogosto/order-triage/internal/rules"
	"github.com/aogosto/order-triage/pkg/config"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := rules.Default()
	require.NoError(t, err)
	router, err := New(TablesFromConfig(config.TablesConfig{
		NewOrders:  "Novos Pedidos",
		Scheduled:  "Agendados",
		CDBarreiro: "CD Barreiro",
		CDSion:     "CD Sion",
	}), r)
	require.NoError(t, err)
	return router
}

func TestRoutePrecedence(t *testing.T) {
	router := newTestRouter(t)
	cases := []struct {
		name      string
		store     string
		scheduled bool
		want      Destination
	}{
		{"cd beats scheduled", "Unidade Barreiro", true, Destination{Table: "CD Barreiro", Kind: KindCD}},
		{"cd alias folded", "  sion ", false, Destination{Table: "CD Sion", Kind: KindCD}},
		{"scheduled", "Central Distribuição (Sagrada Família)", true, Destination{Table: "Agendados", Kind: KindScheduled}},
		{"new", "Central Distribuição (Sagrada Família)", false, Destination{Table: "Novos Pedidos", Kind: KindNew}},
		{"unknown store", "", false, Destination{Table: "Novos Pedidos", Kind: KindNew}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, router.Route(tc.store, tc.scheduled))
		})
	}
}

func TestNewRequiresTables(t *testing.T) {
	r, err := rules.Default()
	require.NoError(t, err)
	_, err = New(Tables{NewOrders: "Novos Pedidos"}, r)
	assert.Error(t, err)
	_, err = New(Tables{NewOrders: "a", Scheduled: "b"}, nil)
	assert.Error(t, err)
}

func TestTablesAllIsStable(t *testing.T) {
	tables := newTestRouter(t).Tables()
	assert.Equal(t, []string{"Novos Pedidos", "Agendados", "CD Barreiro", "CD Sion"}, tables.All())
}

func TestRouteIsDeterministic(t *testing.T) {
	router := newTestRouter(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("same store and flag give the same destination", prop.ForAll(
		func(store string, scheduled bool) bool {
			first := router.Route(store, scheduled)
			second := router.Route(store, scheduled)
			if first != second || first.Table == "" {
				return false
			}
			if first.Kind == KindScheduled && !scheduled {
				return false
			}
			return true
		},
		gen.OneGenOf(gen.AnyString(), gen.OneConstOf("Unidade Barreiro", "Unidade Sion", "barreiro", "CD SION")),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
