// Package sheets wraps the Google Sheets v4 API with quota limiting and
// error classification.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/aogosto/order-triage/pkg/config"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/retry"
)

// OpObserver receives every backend call outcome.
type OpObserver interface {
	IncSheets(op string, err error)
}

// TabProperties are the grid properties of one tab.
type TabProperties struct {
	SheetID     int64
	Title       string
	RowCount    int64
	ColumnCount int64
}

type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	observer      OpObserver
}

type Option func(*Client)

// WithLimiter replaces the request limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

func WithObserver(o OpObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func clientOptions(cfg config.SheetsConfig) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// New authenticates with the service account in cfg.
func New(ctx context.Context, cfg config.SheetsConfig, opts ...Option) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	svc, err := gsheets.NewService(ctx, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	base := []Option{WithLimiter(quotaLimiter(cfg))}
	return NewFromService(svc, cfg.SpreadsheetID, append(base, opts...)...), nil
}

// quotaLimiter is the configured per-process request budget. WithLimiter
// passed to New overrides it.
func quotaLimiter(cfg config.SheetsConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst)
}

// NewFromService wraps an existing service, e.g. one pointed at a test server.
func NewFromService(svc *gsheets.Service, spreadsheetID string, opts ...Option) *Client {
	client := &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		limiter:       rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Tabs lists every tab with its grid properties.
func (c *Client) Tabs(ctx context.Context) ([]TabProperties, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	c.observe("spreadsheets.get", err)
	if err != nil {
		return nil, classify(err, "get spreadsheet metadata")
	}
	tabs := make([]TabProperties, 0, len(resp.Sheets))
	for _, sheet := range resp.Sheets {
		if sheet == nil || sheet.Properties == nil {
			continue
		}
		props := TabProperties{SheetID: sheet.Properties.SheetId, Title: sheet.Properties.Title}
		if grid := sheet.Properties.GridProperties; grid != nil {
			props.RowCount = grid.RowCount
			props.ColumnCount = grid.ColumnCount
		}
		tabs = append(tabs, props)
	}
	return tabs, nil
}

// Tab returns the properties of the tab named title.
func (c *Client) Tab(ctx context.Context, title string) (*TabProperties, error) {
	tabs, err := c.Tabs(ctx)
	if err != nil {
		return nil, err
	}
	for _, tab := range tabs {
		if tab.Title == title {
			t := tab
			return &t, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("tab %q not found", title))
}

// BatchUpdate applies requests atomically.
func (c *Client) BatchUpdate(ctx context.Context, requests []*gsheets.Request) error {
	if len(requests) == 0 {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	c.observe("spreadsheets.batchUpdate", err)
	if err != nil {
		return classify(err, "batch update")
	}
	return nil
}

// UpdateRow writes one row of raw values into an A1 range.
func (c *Client) UpdateRow(ctx context.Context, a1Range string, row []any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1Range, &gsheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption("RAW").Context(ctx).Do()
	c.observe("values.update", err)
	if err != nil {
		return classify(err, "update values")
	}
	return nil
}

// ColumnValues returns the populated cells of a single column range.
func (c *Client) ColumnValues(ctx context.Context, a1Range string) ([]string, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1Range).MajorDimension("COLUMNS").Context(ctx).Do()
	c.observe("values.get", err)
	if err != nil {
		return nil, classify(err, "get values")
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(resp.Values[0]))
	for _, cell := range resp.Values[0] {
		out = append(out, fmt.Sprint(cell))
	}
	return out, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sheets rate limiter").WithRetryable(false)
	}
	return nil
}

func (c *Client) observe(op string, err error) {
	if c.observer != nil {
		c.observer.IncSheets(op, err)
	}
}

func classify(err error, op string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		typed := pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
		if gerr.Code == http.StatusNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op)
		}
		if gerr.Code != http.StatusTooManyRequests && gerr.Code < http.StatusInternalServerError {
			typed = typed.WithRetryable(false)
		}
		return typed
	}
	// Transport failures are worth another attempt; cancellation and
	// undecodable responses are not.
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op).WithRetryable(retry.IsTransient(err))
}
