// Package schedule decides an order's delivery date, window and status from
// what the customer asked for and when the order was placed.
package schedule

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/pkg/logger"
)

const (
	DateLayout    = "2006-01-02"
	DefaultWindow = "12:00 - 15:00"

	clockLayout     = "15:04"
	synthesizedSpan = 3 * time.Hour
)

var windowPattern = regexp.MustCompile(`^\d{2}:\d{2} - \d{2}:\d{2}$`)

// Cutoffs are offsets from local midnight after which same-day orders roll
// over to the next day.
type Cutoffs struct {
	Weekday  time.Duration
	Saturday time.Duration
	Sunday   time.Duration
}

// DefaultCutoffs are the storefront's same-day limits.
var DefaultCutoffs = Cutoffs{
	Weekday:  18 * time.Hour,
	Saturday: 17 * time.Hour,
	Sunday:   13 * time.Hour,
}

// DefaultHardClose is when the distribution center stops dispatching.
const DefaultHardClose = 21 * time.Hour

func (c Cutoffs) For(day time.Weekday) time.Duration {
	switch day {
	case time.Saturday:
		return c.Saturday
	case time.Sunday:
		return c.Sunday
	default:
		return c.Weekday
	}
}

type Input struct {
	OrderID   string
	Window    string
	RawTime   string
	Date      string
	CreatedAt time.Time
}

type Result struct {
	Status        string
	Date          string
	Window        string
	Scheduled     bool
	AutoScheduled bool
	// AfterClose is set when the order arrived after the hard close.
	AfterClose bool
}

// Classifier is deterministic given its Clock.
type Classifier struct {
	Location  *time.Location
	Cutoffs   Cutoffs
	HardClose time.Duration
	Clock     func() time.Time
	Logger    *logger.Logger
}

// New returns a classifier with the default cutoffs and the wall clock.
func New(loc *time.Location, logg *logger.Logger) (*Classifier, error) {
	if loc == nil {
		return nil, fmt.Errorf("location required")
	}
	return &Classifier{
		Location:  loc,
		Cutoffs:   DefaultCutoffs,
		HardClose: DefaultHardClose,
		Clock:     time.Now,
		Logger:    logg,
	}, nil
}

func (c *Classifier) Classify(ctx context.Context, in Input) Result {
	now := c.now().In(c.Location)
	today := now.Format(DateLayout)

	res := Result{
		Status: orders.StatusNone,
		Window: c.window(ctx, in),
		Date:   today,
	}

	future := false
	if date, ok := c.explicitDate(ctx, in); ok {
		switch {
		case date > today:
			future = true
			res.Date = date
		case date == today:
			res.Date = date
		default:
			c.warn(ctx, in.OrderID, "schedule.past_date", map[string]any{"date": date, "today": today})
		}
	}

	if future {
		res.Status = orders.StatusScheduled
		res.Scheduled = true
		return res
	}

	if !in.CreatedAt.IsZero() {
		created := in.CreatedAt.In(c.Location)
		sinceMidnight := clockOffset(created)
		if sinceMidnight >= c.Cutoffs.For(created.Weekday()) {
			res.Date = created.AddDate(0, 0, 1).Format(DateLayout)
			res.Status = orders.StatusScheduled
			res.Scheduled = true
			res.AutoScheduled = true
			res.AfterClose = c.HardClose > 0 && sinceMidnight >= c.HardClose
		}
	}
	return res
}

func (c *Classifier) window(ctx context.Context, in Input) string {
	window := strings.TrimSpace(in.Window)
	if windowPattern.MatchString(window) {
		return window
	}
	for _, candidate := range []string{in.RawTime, window} {
		if synthesized, ok := SynthesizeWindow(candidate); ok {
			return synthesized
		}
	}
	if window != "" || strings.TrimSpace(in.RawTime) != "" {
		c.warn(ctx, in.OrderID, "schedule.window_invalid", map[string]any{"window": in.Window, "raw_time": in.RawTime})
	}
	return DefaultWindow
}

// SynthesizeWindow turns a single "HH:MM" into a three hour window. Hours
// wrap at midnight.
func SynthesizeWindow(raw string) (string, bool) {
	start, err := time.Parse(clockLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	end := start.Add(synthesizedSpan)
	return start.Format(clockLayout) + " - " + end.Format(clockLayout), true
}

func (c *Classifier) explicitDate(ctx context.Context, in Input) (string, bool) {
	raw := strings.TrimSpace(in.Date)
	if raw == "" {
		return "", false
	}
	t, err := time.ParseInLocation(DateLayout, raw, c.Location)
	if err != nil {
		c.warn(ctx, in.OrderID, "schedule.date_invalid", map[string]any{"date": raw})
		return "", false
	}
	return t.Format(DateLayout), true
}

func (c *Classifier) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

func (c *Classifier) warn(ctx context.Context, orderID, msg string, fields map[string]any) {
	if c.Logger == nil {
		return
	}
	ctx = c.Logger.WithOrderID(ctx, orderID)
	c.Logger.Warn(c.Logger.WithFields(ctx, fields), msg)
}

func clockOffset(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
