package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
)

// Thermal roll page in millimetres.
const (
	PaperWidthMM  = 72.0
	PaperHeightMM = 297.0

	defaultRenderTimeout = 30 * time.Second
)

// Renderer turns a complete HTML document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

type ChromeOptions struct {
	// RemoteURL points at a running Chrome DevTools endpoint. Empty starts a
	// local headless browser.
	RemoteURL string
	NoSandbox bool
	Timeout   time.Duration
	Logger    *logger.Logger
}

// ChromeRenderer prints HTML through headless Chrome.
type ChromeRenderer struct {
	timeout     time.Duration
	logg        *logger.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	r := &ChromeRenderer{timeout: opts.Timeout, logg: opts.Logger}
	if r.timeout <= 0 {
		r.timeout = defaultRenderTimeout
	}
	if opts.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
		return r
	}
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if opts.NoSandbox {
		flags = append(flags, chromedp.NoSandbox)
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), flags...)
	return r
}

func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice html is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()
	// Tie the tab to the caller's deadline.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				WithPaperWidth(mmToInches(PaperWidthMM)).
				WithPaperHeight(mmToInches(PaperHeightMM)).
				WithMarginTop(0).
				WithMarginRight(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("invoice render timed out after %s", r.timeout))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice render failed").WithRetryable(false)
	}
	if len(pdf) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rendered invoice is empty")
	}
	return pdf, nil
}

// Close shuts the browser allocator down.
func (r *ChromeRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
