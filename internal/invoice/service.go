package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/storage"
)

const contentTypePDF = "application/pdf"

// Observer counts rendered invoices.
type Observer interface {
	IncInvoice(source string, err error)
}

type Options struct {
	Renderer  Renderer
	Store     storage.Store
	AssignURL string
	Location  *time.Location
	Clock     func() time.Time
	Observer  Observer
	Logger    *logger.Logger
}

// Service builds, renders and stores order slips.
type Service struct {
	renderer  Renderer
	store     storage.Store
	assignURL string
	loc       *time.Location
	clock     func() time.Time
	observer  Observer
	logg      *logger.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Renderer == nil {
		return nil, fmt.Errorf("invoice renderer required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("invoice store required")
	}
	s := &Service{
		renderer:  opts.Renderer,
		store:     opts.Store,
		assignURL: opts.AssignURL,
		loc:       opts.Location,
		clock:     opts.Clock,
		observer:  opts.Observer,
		logg:      opts.Logger,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s, nil
}

// Generate renders the order's slip and returns where it was stored.
func (s *Service) Generate(ctx context.Context, order *orders.Normalized) (string, error) {
	location, err := s.generate(ctx, order)
	if s.observer != nil {
		s.observer.IncInvoice(string(order.Source), err)
	}
	if err != nil {
		return "", err
	}
	if s.logg != nil {
		lctx := s.logg.WithOrderID(ctx, order.ID)
		s.logg.Info(s.logg.WithField(lctx, "location", location), "invoice.stored")
	}
	return location, nil
}

func (s *Service) generate(ctx context.Context, order *orders.Normalized) (string, error) {
	doc, err := NewDocument(order, s.clock().In(s.loc), s.assignURL)
	if err != nil {
		return "", err
	}
	html, err := HTML(doc)
	if err != nil {
		return "", fmt.Errorf("render invoice html: %w", err)
	}
	pdf, err := s.renderer.Render(ctx, html)
	if err != nil {
		return "", err
	}
	return s.store.Put(ctx, FileName(order), contentTypePDF, pdf)
}
