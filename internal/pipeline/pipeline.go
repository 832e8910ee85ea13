// Package pipeline runs one polling cycle per source: fetch, normalize,
// route, write and notify, recording every handled id in the ledger.
package pipeline

import (
	"context"
	"fmt"

	"github.com/aogosto/order-triage/internal/ledger"
	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/internal/routing"
	"github.com/aogosto/order-triage/internal/rules"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/retry"
)

type Outcome string

const (
	OutcomeWritten     Outcome = "written"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeWriteFailed Outcome = "write_failed"
	OutcomeRejected    Outcome = "rejected"
	OutcomeInvalid     Outcome = "invalid"
)

// RowWriter appends rows to destination tables.
type RowWriter interface {
	Contains(ctx context.Context, table, id string) (bool, error)
	Write(ctx context.Context, table string, row []any) (int, error)
}

type Notifier interface {
	NotifyCustomer(ctx context.Context, order *orders.Normalized) error
	AlertOperator(ctx context.Context, orderID string, cause error)
}

type InvoiceGenerator interface {
	Generate(ctx context.Context, order *orders.Normalized) (string, error)
}

type RuleSet interface {
	Apply(ctx context.Context, order *orders.Normalized) []rules.Substitution
}

type Router interface {
	Route(store string, scheduled bool) routing.Destination
}

type OrderObserver interface {
	IncOrder(source, outcome string)
}

// Deps are shared by both source pipelines.
type Deps struct {
	Rules    RuleSet
	Router   Router
	Writer   RowWriter
	Notifier Notifier
	// Invoices is optional.
	Invoices InvoiceGenerator
	Retry    retry.Policy
	Observer OrderObserver
	Logger   *logger.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Rules == nil:
		return fmt.Errorf("rules required")
	case d.Router == nil:
		return fmt.Errorf("router required")
	case d.Writer == nil:
		return fmt.Errorf("row writer required")
	case d.Notifier == nil:
		return fmt.Errorf("notifier required")
	}
	return nil
}

// core holds the steps both sources share once an order is normalized.
type core struct {
	Deps
	source orders.Source
	schema orders.Schema
	ledger ledger.Store
	// alertCustomerFailures forwards customer send failures to the operator.
	alertCustomerFailures bool
}

// deliver routes, writes and notifies one normalized order. key is the
// ledger id; it is added to seen whenever the order must not be retried.
func (c *core) deliver(ctx context.Context, key string, n *orders.Normalized, seen ledger.Set) Outcome {
	ctx = c.Logger.WithOrderID(ctx, n.ID)

	for _, sub := range c.Rules.Apply(ctx, n) {
		c.Logger.Debug(c.Logger.WithField(ctx, "field", sub.Field), "order.field_substituted")
	}
	dest := c.Router.Route(n.Store, n.Scheduled)
	ctx = c.Logger.WithTable(ctx, dest.Table)

	dup, err := c.Writer.Contains(ctx, dest.Table, n.ID)
	if err != nil {
		c.fail(ctx, key, n.ID, seen, fmt.Errorf("check %s for duplicates: %w", dest.Table, err))
		return OutcomeWriteFailed
	}
	if dup {
		c.Logger.Info(ctx, "order.duplicate")
		c.record(ctx, key, seen)
		return OutcomeDuplicate
	}

	rowNum, err := c.Writer.Write(ctx, dest.Table, n.Row(c.schema))
	if err != nil {
		c.fail(ctx, key, n.ID, seen, fmt.Errorf("write to %s: %w", dest.Table, err))
		return OutcomeWriteFailed
	}
	c.record(ctx, key, seen)
	c.Logger.Info(c.Logger.WithFields(ctx, map[string]any{"row": rowNum, "kind": string(dest.Kind)}), "order.written")

	if dest.Kind == routing.KindNew && c.Invoices != nil {
		if _, err := c.Invoices.Generate(ctx, n); err != nil {
			c.Logger.Error(ctx, "order.invoice_failed", err)
		}
	}

	if err := c.Notifier.NotifyCustomer(ctx, n); err != nil {
		c.Logger.Error(ctx, "order.customer_notify_failed", err)
		if c.alertCustomerFailures {
			c.Notifier.AlertOperator(ctx, n.ID, err)
		}
	}
	return OutcomeWritten
}

// reject handles an order that failed validation: it is alerted once and
// never retried.
func (c *core) reject(ctx context.Context, key, orderID string, seen ledger.Set, err error) Outcome {
	ctx = c.Logger.WithOrderID(ctx, orderID)
	c.fail(ctx, key, orderID, seen, err)
	return OutcomeInvalid
}

func (c *core) fail(ctx context.Context, key, orderID string, seen ledger.Set, err error) {
	c.Logger.Error(c.Logger.WithField(ctx, "code", string(pkgerrors.CodeOf(err))), "order.failed", err)
	c.Notifier.AlertOperator(ctx, orderID, err)
	c.record(ctx, key, seen)
}

// record adds key to the ledger and persists it right away so later side
// effects cannot cause a repeat write.
func (c *core) record(ctx context.Context, key string, seen ledger.Set) {
	seen.Add(key)
	if err := c.ledger.Save(ctx, seen); err != nil {
		c.Logger.Error(ctx, "ledger.save_failed", err)
	}
}

func (c *core) observe(outcome Outcome) {
	if c.Observer != nil {
		c.Observer.IncOrder(string(c.source), string(outcome))
	}
}

// Summary counts outcomes of one cycle.
type Summary map[Outcome]int

func (s Summary) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}
