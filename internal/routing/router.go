// Package routing picks the destination table for a normalized order.
package routing

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aogosto/order-triage/pkg/config"
)

type Kind string

const (
	KindCD        Kind = "cd"
	KindScheduled Kind = "scheduled"
	KindNew       Kind = "new"
)

type Destination struct {
	Table string
	Kind  Kind
}

// CDResolver maps a store name to a distribution-center key.
type CDResolver interface {
	CD(store string) (string, bool)
}

// Tables names the destination tabs. CD is keyed by distribution-center key.
type Tables struct {
	NewOrders string
	Scheduled string
	CD        map[string]string
}

// TablesFromConfig builds the table set from configuration.
func TablesFromConfig(cfg config.TablesConfig) Tables {
	return Tables{
		NewOrders: cfg.NewOrders,
		Scheduled: cfg.Scheduled,
		CD: map[string]string{
			"barreiro": cfg.CDBarreiro,
			"sion":     cfg.CDSion,
		},
	}
}

// All lists every destination tab once, in a stable order.
func (t Tables) All() []string {
	out := make([]string, 0, 2+len(t.CD))
	seen := make(map[string]struct{}, cap(out))
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	add(t.NewOrders)
	add(t.Scheduled)
	for _, key := range slices.Sorted(maps.Keys(t.CD)) {
		add(t.CD[key])
	}
	return out
}

type Router struct {
	tables Tables
	cds    CDResolver
}

func New(tables Tables, cds CDResolver) (*Router, error) {
	if tables.NewOrders == "" || tables.Scheduled == "" {
		return nil, fmt.Errorf("new-orders and scheduled tables are required")
	}
	if cds == nil {
		return nil, fmt.Errorf("cd resolver required")
	}
	return &Router{tables: tables, cds: cds}, nil
}

// Route applies CD alias, then scheduled, then new orders.
func (r *Router) Route(store string, scheduled bool) Destination {
	if key, ok := r.cds.CD(store); ok {
		if table, ok := r.tables.CD[key]; ok && table != "" {
			return Destination{Table: table, Kind: KindCD}
		}
	}
	if scheduled {
		return Destination{Table: r.tables.Scheduled, Kind: KindScheduled}
	}
	return Destination{Table: r.tables.NewOrders, Kind: KindNew}
}

// Tables returns the configured table set.
func (r *Router) Tables() Tables {
	return r.tables
}
