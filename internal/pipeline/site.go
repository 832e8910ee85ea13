package pipeline

import (
	"context"
	"fmt"

	"github.com/aogosto/order-triage/internal/ledger"
	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/internal/schedule"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/woocommerce"
)

// SiteSource lists storefront orders.
type SiteSource interface {
	ListOrders(ctx context.Context, params woocommerce.ListParams) ([]woocommerce.Order, error)
}

type SiteExtractor interface {
	Extract(ctx context.Context, raw orders.RawOrder) (*orders.Normalized, bool, error)
}

type Classifier interface {
	Classify(ctx context.Context, in schedule.Input) schedule.Result
}

type SiteConfig struct {
	Source     SiteSource
	Extractor  SiteExtractor
	Classifier Classifier
	Ledger     ledger.Store
	List       woocommerce.ListParams
}

// Site processes storefront orders.
type Site struct {
	core
	src        SiteSource
	extractor  SiteExtractor
	classifier Classifier
	list       woocommerce.ListParams
}

func NewSite(cfg SiteConfig, deps Deps) (*Site, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil || cfg.Extractor == nil || cfg.Classifier == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("site source, extractor, classifier and ledger are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &Site{
		core: core{
			Deps:                  deps,
			source:                orders.SourceSite,
			schema:                orders.SiteSchemaV1,
			ledger:                cfg.Ledger,
			alertCustomerFailures: true,
		},
		src:        cfg.Source,
		extractor:  cfg.Extractor,
		classifier: cfg.Classifier,
		list:       cfg.List,
	}, nil
}

func (s *Site) Name() string {
	return string(orders.SourceSite)
}

// RunCycle fetches the latest orders and handles every one not yet in the
// ledger. The returned error covers fetch and ledger failures only.
func (s *Site) RunCycle(ctx context.Context) (Summary, error) {
	ctx = s.Logger.WithSource(ctx, s.Name())
	seen, err := s.ledger.Load(ctx)
	if err != nil {
		return nil, err
	}

	var batch []woocommerce.Order
	err = s.Retry.Do(ctx, func(ctx context.Context) (err error) {
		batch, err = s.src.ListOrders(ctx, s.list)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list site orders").WithRetryable(false)
	}

	summary := Summary{}
	for _, raw := range batch {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		id := raw.ID.String()
		if seen.Has(id) {
			continue
		}
		outcome, handled := s.process(ctx, raw, seen)
		if !handled {
			continue
		}
		summary[outcome]++
		s.observe(outcome)
	}
	return summary, nil
}

func (s *Site) process(ctx context.Context, raw orders.RawOrder, seen ledger.Set) (Outcome, bool) {
	id := raw.ID.String()
	n, ok, err := s.extractor.Extract(ctx, raw)
	if err != nil {
		return s.reject(ctx, id, id, seen, err), true
	}
	if !ok {
		return OutcomeRejected, true
	}

	res := s.classifier.Classify(ctx, schedule.Input{
		OrderID:   n.ID,
		Window:    n.RequestedWindow,
		RawTime:   n.RawTime,
		Date:      n.RequestedDate,
		CreatedAt: n.CreatedAt,
	})
	n.Status = res.Status
	n.Date = res.Date
	n.Window = res.Window
	n.Scheduled = res.Scheduled
	n.AutoScheduled = res.AutoScheduled
	if res.AfterClose {
		s.Logger.Warn(s.Logger.WithOrderID(ctx, n.ID), "order.after_close")
	}

	return s.deliver(ctx, id, n, seen), true
}
