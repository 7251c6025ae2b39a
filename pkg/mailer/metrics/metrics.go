// Package metrics exposes Prometheus instrumentation for composing and sending email.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/missive/pkg/mailer"
)

// Collector records compose outcomes and delivery attempts.
// It implements mailer.Observer; wrap a transport with Sender to count deliveries.
type Collector struct {
	composeTotal    *prometheus.CounterVec
	composeDuration *prometheus.HistogramVec
	sendTotal       *prometheus.CounterVec
	sendDuration    prometheus.Histogram
}

// NewCollector registers the mailer metrics with reg, or the default registerer when nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		composeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "missive",
			Subsystem: "mailer",
			Name:      "compose_total",
			Help:      "Total template compositions by outcome",
		}, []string{"template", "outcome"}),
		composeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "missive",
			Subsystem: "mailer",
			Name:      "compose_duration_seconds",
			Help:      "Latency of template composition",
			Buckets:   prometheus.DefBuckets,
		}, []string{"template"}),
		sendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "missive",
			Subsystem: "mailer",
			Name:      "send_total",
			Help:      "Total delivery attempts by status",
		}, []string{"status"}),
		sendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "missive",
			Subsystem: "mailer",
			Name:      "send_duration_seconds",
			Help:      "Latency of delivery through the transport",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(c.composeTotal, c.composeDuration, c.sendTotal, c.sendDuration)
	return c
}

// ObserveCompose implements mailer.Observer.
func (c *Collector) ObserveCompose(template string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.composeTotal.WithLabelValues(template, Outcome(err)).Inc()
	c.composeDuration.WithLabelValues(template).Observe(duration.Seconds())
}

// Sender wraps next so every delivery is counted and timed.
func (c *Collector) Sender(next mailer.Sender) mailer.Sender {
	return mailer.SenderFunc(func(ctx context.Context, msg *mailer.Message) error {
		start := time.Now()
		err := next.Send(ctx, msg)
		if c != nil {
			status := "sent"
			if err != nil {
				status = "failed"
			}
			c.sendTotal.WithLabelValues(status).Inc()
			c.sendDuration.Observe(time.Since(start).Seconds())
		}
		return err
	})
}

// Outcome maps a compose error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, mailer.ErrTemplateNotFound):
		return "not_found"
	case errors.Is(err, mailer.ErrInvalidFrontmatter),
		errors.Is(err, mailer.ErrUnknownKey),
		errors.Is(err, mailer.ErrMissingKey),
		errors.Is(err, mailer.ErrInvalidContentType),
		errors.Is(err, mailer.ErrNoBody):
		return "invalid_template"
	case errors.Is(err, mailer.ErrNoRecipients), errors.Is(err, mailer.ErrInvalidAddress):
		return "invalid_recipients"
	case errors.Is(err, mailer.ErrInvalidAttachment), errors.Is(err, mailer.ErrAttachmentRead):
		return "attachment"
	case errors.Is(err, mailer.ErrRenderFailed):
		return "render"
	default:
		return "error"
	}
}

var _ mailer.Observer = (*Collector)(nil)
