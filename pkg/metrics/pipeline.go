package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics counts per-order outcomes and side effects.
type PipelineMetrics struct {
	orders        *prometheus.CounterVec
	sheets        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	invoices      *prometheus.CounterVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_processed_total",
		Help: "Orders handled by the pipeline, by terminal outcome.",
	}, []string{"source", "outcome"})
	sheets := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sheets_requests_total",
		Help: "Spreadsheet backend calls.",
	}, []string{"op", "status"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "WhatsApp messages by kind.",
	}, []string{"kind", "status"})
	invoices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_rendered_total",
		Help: "Invoice documents rendered.",
	}, []string{"source", "status"})
	reg.MustRegister(orders, sheets, notifications, invoices)
	return &PipelineMetrics{
		orders:        orders,
		sheets:        sheets,
		notifications: notifications,
		invoices:      invoices,
	}
}

func (p *PipelineMetrics) IncOrder(source, outcome string) {
	if p == nil || p.orders == nil {
		return
	}
	p.orders.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

func (p *PipelineMetrics) IncSheets(op string, err error) {
	if p == nil || p.sheets == nil {
		return
	}
	p.sheets.WithLabelValues(normalizeLabel(op), statusLabel(err)).Inc()
}

func (p *PipelineMetrics) IncNotification(kind string, err error) {
	if p == nil || p.notifications == nil {
		return
	}
	p.notifications.WithLabelValues(normalizeLabel(kind), statusLabel(err)).Inc()
}

func (p *PipelineMetrics) IncInvoice(source string, err error) {
	if p == nil || p.invoices == nil {
		return
	}
	p.invoices.WithLabelValues(normalizeLabel(source), statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
