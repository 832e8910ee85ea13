package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/aogosto/order-triage/internal/ledger"
	"github.com/aogosto/order-triage/internal/orders"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/fabapp"
	"github.com/aogosto/order-triage/pkg/logger"
)

const defaultAppBatch = 5

// AppSource reads the app panel.
type AppSource interface {
	ListOrders(ctx context.Context) ([]fabapp.OrderRef, error)
	Order(ctx context.Context, id string) (*fabapp.Order, error)
}

type AppExtractor interface {
	Extract(ctx context.Context, raw orders.AppOrder, now time.Time) (*orders.Normalized, bool, error)
}

type AppConfig struct {
	Source    AppSource
	Extractor AppExtractor
	Ledger    ledger.Store
	// BatchSize caps the orders written per cycle.
	BatchSize int
	Clock     func() time.Time
}

// App processes app panel orders. The ledger is keyed by panel id.
type App struct {
	core
	src       AppSource
	extractor AppExtractor
	batch     int
	clock     func() time.Time
}

func NewApp(cfg AppConfig, deps Deps) (*App, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil || cfg.Extractor == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("app source, extractor and ledger are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	a := &App{
		core: core{
			Deps:   deps,
			source: orders.SourceApp,
			schema: orders.AppSchemaV1,
			ledger: cfg.Ledger,
		},
		src:       cfg.Source,
		extractor: cfg.Extractor,
		batch:     cfg.BatchSize,
		clock:     cfg.Clock,
	}
	if a.batch <= 0 {
		a.batch = defaultAppBatch
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	return a, nil
}

func (a *App) Name() string {
	return string(orders.SourceApp)
}

func (a *App) RunCycle(ctx context.Context) (Summary, error) {
	ctx = a.Logger.WithSource(ctx, a.Name())
	seen, err := a.ledger.Load(ctx)
	if err != nil {
		return nil, err
	}

	var refs []fabapp.OrderRef
	err = a.Retry.Do(ctx, func(ctx context.Context) (err error) {
		refs, err = a.src.ListOrders(ctx)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list app orders").WithRetryable(false)
	}

	summary := Summary{}
	now := a.clock()
	for _, ref := range refs {
		if summary[OutcomeWritten] >= a.batch {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		key := ref.ID.String()
		if key == "" {
			continue
		}
		if seen.Has(key) {
			a.Logger.Debug(a.Logger.WithOrderID(ctx, key), "order.already_registered")
			continue
		}

		var raw *fabapp.Order
		err := a.Retry.Do(ctx, func(ctx context.Context) (err error) {
			raw, err = a.src.Order(ctx, key)
			return err
		})
		if err != nil {
			// Left out of the ledger so the next cycle fetches it again.
			a.Logger.Error(a.Logger.WithOrderID(ctx, key), "order.fetch_failed", err)
			continue
		}

		outcome, handled := a.process(ctx, key, *raw, now, seen)
		if !handled {
			continue
		}
		summary[outcome]++
		a.observe(outcome)
	}
	return summary, nil
}

func (a *App) process(ctx context.Context, key string, raw orders.AppOrder, now time.Time, seen ledger.Set) (Outcome, bool) {
	n, ok, err := a.extractor.Extract(ctx, raw, now)
	if err != nil {
		id := raw.OrderNumber.String()
		if id == "" {
			id = key
		}
		return a.reject(ctx, key, id, seen, err), true
	}
	if !ok {
		return "", false
	}
	return a.deliver(ctx, key, n, seen), true
}
