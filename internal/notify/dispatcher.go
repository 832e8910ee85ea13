// Package notify sends WhatsApp messages to customers and the operator.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aogosto/order-triage/internal/orders"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/whatsapp"
)

// DefaultOperatorPhone receives processing alerts.
const DefaultOperatorPhone = "5531998501560"

const (
	kindCustomer = "customer"
	kindOperator = "operator"
)

// Sender delivers one text message.
type Sender interface {
	Send(ctx context.Context, phone, text string) (*whatsapp.Response, error)
}

// Observer counts send outcomes.
type Observer interface {
	IncNotification(kind string, err error)
}

type Options struct {
	// Site and App are the gateways for each source's customers.
	Site          Sender
	App           Sender
	OperatorPhone string
	Observer      Observer
	Logger        *logger.Logger
}

type Dispatcher struct {
	site          Sender
	app           Sender
	operatorPhone string
	observer      Observer
	logg          *logger.Logger
}

func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Site == nil && opts.App == nil {
		return nil, fmt.Errorf("at least one whatsapp sender required")
	}
	phone := orders.NormalizePhone(opts.OperatorPhone)
	if phone == "" {
		phone = DefaultOperatorPhone
	}
	return &Dispatcher{
		site:          opts.Site,
		app:           opts.App,
		operatorPhone: phone,
		observer:      opts.Observer,
		logg:          opts.Logger,
	}, nil
}

// NotifyCustomer sends the order confirmation. A missing name or phone is
// a permanent error; gateway failures are returned for the caller to log.
func (d *Dispatcher) NotifyCustomer(ctx context.Context, order *orders.Normalized) error {
	if strings.TrimSpace(order.FirstName) == "" {
		return pkgerrors.New(pkgerrors.CodePermanent, "customer name not set")
	}
	phone := orders.NormalizePhone(order.Phone)
	if !orders.ValidPhone(phone) {
		return pkgerrors.New(pkgerrors.CodePermanent, fmt.Sprintf("customer phone %q is not valid", order.Phone))
	}
	sender := d.senderFor(order.Source)
	if sender == nil {
		return pkgerrors.New(pkgerrors.CodeConfig, fmt.Sprintf("no whatsapp sender for source %s", order.Source))
	}
	text, err := Render(order)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render customer message")
	}

	if d.logg != nil {
		d.logg.Info(d.logg.WithOrderID(ctx, order.ID), "notify.customer_sending")
	}
	_, err = sender.Send(ctx, phone, text)
	d.observe(kindCustomer, err)
	return err
}

// AlertOperator reports an order processing failure. It never fails; send
// errors are logged.
func (d *Dispatcher) AlertOperator(ctx context.Context, orderID string, cause error) {
	sender := d.site
	if sender == nil {
		sender = d.app
	}
	if orderID == "" {
		orderID = "N/A"
	}
	text := fmt.Sprintf("⚠️ Erro no processamento do pedido %s: %v", orderID, cause)
	_, err := sender.Send(ctx, d.operatorPhone, text)
	d.observe(kindOperator, err)
	if d.logg == nil {
		return
	}
	lctx := d.logg.WithOrderID(ctx, orderID)
	if err != nil {
		d.logg.Error(lctx, "notify.operator_failed", err)
		return
	}
	d.logg.Info(lctx, "notify.operator_sent")
}

func (d *Dispatcher) senderFor(source orders.Source) Sender {
	if source == orders.SourceApp {
		return d.app
	}
	return d.site
}

func (d *Dispatcher) observe(kind string, err error) {
	if d.observer != nil {
		d.observer.IncNotification(kind, err)
	}
}
