package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/aogosto/order-triage/internal/extract"
	"github.com/aogosto/order-triage/internal/invoice"
	"github.com/aogosto/order-triage/internal/ledger"
	"github.com/aogosto/order-triage/internal/notify"
	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/internal/pipeline"
	"github.com/aogosto/order-triage/internal/poller"
	"github.com/aogosto/order-triage/internal/routing"
	"github.com/aogosto/order-triage/internal/rules"
	"github.com/aogosto/order-triage/internal/schedule"
	"github.com/aogosto/order-triage/internal/tables"
	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/db"
	"github.com/aogosto/order-triage/pkg/fabapp"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/metrics"
	"github.com/aogosto/order-triage/pkg/redis"
	"github.com/aogosto/order-triage/pkg/retry"
	"github.com/aogosto/order-triage/pkg/sheets"
	"github.com/aogosto/order-triage/pkg/storage"
	"github.com/aogosto/order-triage/pkg/whatsapp"
	"github.com/aogosto/order-triage/pkg/woocommerce"
)

const siteOrderStatus = "processing"

// service is the wired process: the poller group plus what must be closed
// on shutdown.
type service struct {
	logg    *logger.Logger
	pollers *poller.Group
	closers []func() error
}

func (s *service) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logg.Error(ctx, "error during shutdown", err)
		}
	}
	s.closers = nil
}

func build(ctx context.Context, cfg *config.Config, logg *logger.Logger) (_ *service, err error) {
	svc := &service{logg: logg, pollers: poller.NewGroup()}
	defer func() {
		if err != nil {
			svc.close(ctx)
		}
	}()

	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)
	pollMetrics := metrics.NewPollMetrics(prometheus.DefaultRegisterer)
	policy := retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.Delay)

	ruleSet, err := loadRules(cfg.Rules, logg)
	if err != nil {
		return nil, err
	}
	router, err := routing.New(routing.TablesFromConfig(cfg.Tables), ruleSet)
	if err != nil {
		return nil, err
	}

	sheetsClient, err := sheets.New(ctx, cfg.Sheets, sheets.WithObserver(pipelineMetrics))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	writer, err := tables.NewWriter(sheetsClient, tables.Options{
		TemplateRow: cfg.Sheets.TemplateRow,
		TextColumns: cfg.Sheets.TextColumns,
		Retry:       policy,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}
	if err := writer.PrepareTextColumns(ctx, router.Tables().All(), cfg.Sheets.SetupTextColumns); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "tables.prepare_failed")
	}

	dispatcher, err := buildDispatcher(cfg.WhatsApp, pipelineMetrics, logg)
	if err != nil {
		return nil, err
	}

	var invoices pipeline.InvoiceGenerator
	if cfg.Invoice.Enabled {
		gen, closeFn, err := buildInvoices(ctx, cfg.Invoice, loc, pipelineMetrics, logg)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, closeFn)
		invoices = gen
	}

	deps := pipeline.Deps{
		Rules:    ruleSet,
		Router:   router,
		Writer:   writer,
		Notifier: dispatcher,
		Invoices: invoices,
		Retry:    policy,
		Observer: pipelineMetrics,
		Logger:   logg,
	}

	stores, err := newLedgerFactory(ctx, cfg, logg, svc)
	if err != nil {
		return nil, err
	}
	locks, err := newLockFactory(ctx, cfg, logg, svc)
	if err != nil {
		return nil, err
	}

	if cfg.Site.Enabled {
		site, err := buildSite(cfg, loc, deps, dispatcher, stores, logg)
		if err != nil {
			return nil, err
		}
		if err := svc.addPoller(site, cfg.Site.Interval, cfg, locks, pollMetrics, dispatcher); err != nil {
			return nil, err
		}
	}
	if cfg.AppPanel.Enabled {
		app, err := buildApp(cfg, loc, deps, stores, logg)
		if err != nil {
			return nil, err
		}
		if err := svc.addPoller(app, cfg.AppPanel.Interval, cfg, locks, pollMetrics, dispatcher); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func loadRules(cfg config.RulesConfig, logg *logger.Logger) (*rules.Rules, error) {
	if cfg.File == "" {
		return rules.Default(rules.WithLogger(logg))
	}
	return rules.Load(cfg.File, rules.WithLogger(logg))
}

func buildDispatcher(cfg config.WhatsAppConfig, observer notify.Observer, logg *logger.Logger) (*notify.Dispatcher, error) {
	opts := notify.Options{OperatorPhone: cfg.OperatorPhone, Observer: observer, Logger: logg}
	if cfg.SiteURL != "" {
		client, err := whatsapp.NewClient(whatsapp.DialectEvolution, cfg.SiteURL, cfg.SiteAPIKey, whatsapp.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, fmt.Errorf("site whatsapp client: %w", err)
		}
		opts.Site = client
	}
	if cfg.AppURL != "" && cfg.AppToken != "" {
		client, err := whatsapp.NewClient(whatsapp.DialectWzap, cfg.AppURL, cfg.AppToken, whatsapp.WithTimeout(cfg.Timeout))
		if err != nil {
			return nil, fmt.Errorf("app whatsapp client: %w", err)
		}
		opts.App = client
	}
	return notify.NewDispatcher(opts)
}

func buildInvoices(ctx context.Context, cfg config.InvoiceConfig, loc *time.Location, observer invoice.Observer, logg *logger.Logger) (*invoice.Service, func() error, error) {
	var (
		store   storage.Store
		closers []func() error
	)
	if cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("invoice bucket: %w", err)
		}
		store = gcs
		closers = append(closers, gcs.Close)
	} else {
		local, err := storage.NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("invoice dir: %w", err)
		}
		store = local
	}

	renderer := invoice.NewChromeRenderer(invoice.ChromeOptions{
		RemoteURL: cfg.ChromeURL,
		NoSandbox: cfg.NoSandbox,
		Timeout:   cfg.Timeout,
		Logger:    logg,
	})
	closers = append(closers, renderer.Close)
	closeAll := func() error {
		var err error
		for _, fn := range closers {
			err = multierr.Append(err, fn())
		}
		return err
	}

	svc, err := invoice.NewService(invoice.Options{
		Renderer:  renderer,
		Store:     store,
		AssignURL: cfg.AssignURL,
		Location:  loc,
		Observer:  observer,
		Logger:    logg,
	})
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	return svc, closeAll, nil
}

func buildSite(cfg *config.Config, loc *time.Location, deps pipeline.Deps, alerts extract.Alerter, stores ledgerFactory, logg *logger.Logger) (*pipeline.Site, error) {
	client, err := newSiteClient(cfg.Site, loc)
	if err != nil {
		return nil, err
	}
	extractor, err := extract.NewSiteExtractor(extract.SiteParams{
		Location: loc,
		Products: client,
		Alerts:   alerts,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	classifier, err := schedule.New(loc, logg)
	if err != nil {
		return nil, err
	}
	store, err := stores(string(orders.SourceSite), cfg.Site.LedgerFile)
	if err != nil {
		return nil, err
	}
	return pipeline.NewSite(pipeline.SiteConfig{
		Source:     client,
		Extractor:  extractor,
		Classifier: classifier,
		Ledger:     store,
		List:       siteListParams(cfg.Site),
	}, deps)
}

func newSiteClient(cfg config.SiteConfig, loc *time.Location) (*woocommerce.Client, error) {
	client, err := woocommerce.NewClient(cfg.BaseURL, cfg.ConsumerKey, cfg.ConsumerSecret,
		woocommerce.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		woocommerce.WithLocation(loc),
	)
	if err != nil {
		return nil, fmt.Errorf("woocommerce client: %w", err)
	}
	return client, nil
}

func siteListParams(cfg config.SiteConfig) woocommerce.ListParams {
	return woocommerce.ListParams{
		Status:   siteOrderStatus,
		PerPage:  cfg.PerPage,
		Lookback: cfg.Lookback,
	}
}

func buildApp(cfg *config.Config, loc *time.Location, deps pipeline.Deps, stores ledgerFactory, logg *logger.Logger) (*pipeline.App, error) {
	client, err := fabapp.NewClient(cfg.AppPanel.StoreID,
		fabapp.WithBaseURL(cfg.AppPanel.BaseURL),
		fabapp.WithAuthToken(cfg.AppPanel.AuthToken),
		fabapp.WithHTTPClient(&http.Client{Timeout: cfg.AppPanel.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("app panel client: %w", err)
	}
	extractor, err := extract.NewAppExtractor(loc, logg)
	if err != nil {
		return nil, err
	}
	store, err := stores(string(orders.SourceApp), cfg.AppPanel.LedgerFile)
	if err != nil {
		return nil, err
	}
	return pipeline.NewApp(pipeline.AppConfig{
		Source:    client,
		Extractor: extractor,
		Ledger:    store,
		BatchSize: cfg.AppPanel.BatchSize,
		Clock:     func() time.Time { return time.Now().In(loc) },
	}, deps)
}

// ledgerFactory opens the ledger of one source.
type ledgerFactory func(source, file string) (ledger.Store, error)

func newLedgerFactory(ctx context.Context, cfg *config.Config, logg *logger.Logger, svc *service) (ledgerFactory, error) {
	if cfg.Ledger.Backend != config.LedgerBackendSQL {
		return func(_ string, file string) (ledger.Store, error) {
			return ledger.NewFileStore(filepath.Join(cfg.Ledger.Dir, file), logg)
		}, nil
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("ledger database: %w", err)
	}
	svc.closers = append(svc.closers, client.Close)
	return func(source, _ string) (ledger.Store, error) {
		return ledger.NewSQLStore(ctx, client, source)
	}, nil
}

// lockFactory returns the cycle lock of one source.
type lockFactory func(source string) (poller.Lock, error)

func newLockFactory(ctx context.Context, cfg *config.Config, logg *logger.Logger, svc *service) (lockFactory, error) {
	if cfg.Redis.URL == "" {
		return func(source string) (poller.Lock, error) {
			return poller.NewFileLock(filepath.Join(cfg.Ledger.Dir, source+".cycle.lock"))
		}, nil
	}
	client, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, fmt.Errorf("cycle lock redis: %w", err)
	}
	svc.closers = append(svc.closers, client.Close)
	return func(source string) (poller.Lock, error) {
		return poller.NewRedisLock(client, client.LockKey(source), cfg.Redis.LockTTL)
	}, nil
}

func (s *service) addPoller(job poller.Job, interval time.Duration, cfg *config.Config, locks lockFactory, m *metrics.PollMetrics, alerts poller.Alerter) error {
	lock, err := locks(job.Name())
	if err != nil {
		return err
	}
	p, err := poller.NewService(poller.ServiceParams{
		Logger:   s.logg,
		Job:      job,
		Lock:     lock,
		Metrics:  m,
		Alerter:  alerts,
		Interval: interval,
		Cooldown: cfg.Retry.CycleCooldown,
	})
	if err != nil {
		return err
	}
	s.pollers.Add(p)
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
