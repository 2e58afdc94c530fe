// Package metrics exposes render-loop activity as Prometheus metrics.
package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/loop"
)

const namespace = "reflux"

// Collector tracks trace updates, render durations and render nesting.
//
// Renders nest when a renderer dispatches synchronously; the depth gauge
// reports how many renders are in progress and each render's duration is
// measured from its own render-start.
type Collector struct {
	updates       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	renderSeconds prometheus.Histogram
	renderDepth   prometheus.Gauge

	mu     sync.Mutex
	starts []time.Time
	now    func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithNow sets the time source used to measure renders. Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(c *Collector) {
		c.now = now
	}
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	c := &Collector{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Trace updates observed, by kind",
		}, []string{"kind"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs, by outcome (ok, quota_exceeded, panic, error)",
		}, []string{"outcome"}),

		renderSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_seconds",
			Help:      "Time from render-start to render-complete",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),

		renderDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "render_depth",
			Help:      "Renders currently in progress",
		}),

		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, col := range []prometheus.Collector{c.updates, c.runs, c.renderSeconds, c.renderDepth} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Observe records one trace update.
func (c *Collector) Observe(kind loop.UpdateKind) {
	c.updates.WithLabelValues(string(kind)).Inc()

	switch kind {
	case loop.KindRenderStart:
		c.mu.Lock()
		c.starts = append(c.starts, c.now())
		c.renderDepth.Set(float64(len(c.starts)))
		c.mu.Unlock()

	case loop.KindRenderComplete:
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(c.starts) == 0 {
			return
		}
		start := c.starts[len(c.starts)-1]
		c.starts = c.starts[:len(c.starts)-1]
		c.renderDepth.Set(float64(len(c.starts)))
		c.renderSeconds.Observe(c.now().Sub(start).Seconds())
	}
}

// Abandon forgets renders that will never complete, e.g. after a session
// was torn down from inside a render.
func (c *Collector) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts = c.starts[:0]
	c.renderDepth.Set(0)
}

// RecordRun counts a finished run by the error RunLoop returned.
func (c *Collector) RecordRun(err error) {
	outcome := "ok"
	var re *engine.RuntimeError
	switch {
	case err == nil:
	case errors.As(err, &re) && re.Code == engine.ErrCodeQuotaExceeded:
		outcome = "quota_exceeded"
	case errors.As(err, &re) && re.Code == engine.ErrCodeLoopPanic:
		outcome = "panic"
	default:
		outcome = "error"
	}
	c.runs.WithLabelValues(outcome).Inc()
}

// Listener returns an engine.RunLoop listener feeding c.
func Listener[S any](c *Collector) func(engine.Stamped[S]) {
	return func(u engine.Stamped[S]) {
		c.Observe(u.Kind)
	}
}
