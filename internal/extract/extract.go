// Package extract turns raw source payloads into normalized orders.
package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
)

const dateLayout = "2006-01-02"

var windowPattern = regexp.MustCompile(`^\d{2}:\d{2} - \d{2}:\d{2}$`)

// ValidWindow reports whether s is a full "HH:MM - HH:MM" window.
func ValidWindow(s string) bool {
	return windowPattern.MatchString(s)
}

// Alerter forwards per-order problems to the operator.
type Alerter interface {
	AlertOperator(ctx context.Context, orderID string, cause error)
}

func validationError(v *validator.Validate, payload any) error {
	if err := v.Struct(payload); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order is missing required fields")
	}
	return nil
}

// parseDate accepts any layout dateparse understands, day first, and
// returns YYYY-MM-DD.
func parseDate(raw string, loc *time.Location) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t.Format(dateLayout), true
	}
	t, err := dateparse.ParseIn(raw, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return "", false
	}
	return t.In(loc).Format(dateLayout), true
}

// parseMoney reads decimal text that may use a comma separator.
func parseMoney(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func warn(logg *logger.Logger, ctx context.Context, msg string, fields map[string]any) {
	if logg == nil {
		return
	}
	logg.Warn(logg.WithFields(ctx, fields), msg)
}
