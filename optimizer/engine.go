package optimizer

import (
	"context"
	"time"

	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/metrics"
	"github.com/AzielCF/az-speed/pkg/optmonitor"
	"github.com/sirupsen/logrus"
)

// ErrorRecorder is the emergency throttle as seen by the engine.
type ErrorRecorder interface {
	RecordError(ctx context.Context, reason string) error
	IsEmergencyDisabled(ctx context.Context) bool
}

// Engine turns an incoming request into a Plan and applies it to the
// origin response.
type Engine struct {
	registry *Registry
	throttle ErrorRecorder
	paths    domain.CommercePaths
	monitor  *optmonitor.Monitor
}

func NewEngine(registry *Registry, throttle ErrorRecorder, paths domain.CommercePaths, monitor *optmonitor.Monitor) *Engine {
	return &Engine{registry: registry, throttle: throttle, paths: paths, monitor: monitor}
}

func (e *Engine) Monitor() *optmonitor.Monitor {
	return e.monitor
}

// Evaluate runs only the gate, for diagnostics.
func (e *Engine) Evaluate(ctx context.Context, info domain.RequestInfo) (domain.RequestContext, safety.Decision) {
	rc := domain.Derive(info, e.paths)
	return rc, e.registry.Gate(ctx).Evaluate(rc)
}

// Plan is the per-request optimization state.
type Plan struct {
	Built

	RC       domain.RequestContext
	info     domain.RequestInfo
	pipeline *pipeline.Pipeline
	engine   *Engine
}

// Prepare derives the request context and lets the registry build the
// pipeline. A failing module leaves the plan empty.
func (e *Engine) Prepare(ctx context.Context, info domain.RequestInfo) *Plan {
	rc := domain.Derive(info, e.paths)
	p := pipeline.New(rc)

	built, err := e.registry.Build(ctx, p)
	if err != nil {
		e.recordError(ctx, err.Error())
		p = pipeline.New(rc)
		built.Modules = nil
	}
	return &Plan{Built: built, RC: rc, info: info, pipeline: p, engine: e}
}

func (e *Engine) recordError(ctx context.Context, reason string) {
	if err := e.throttle.RecordError(ctx, reason); err != nil {
		logrus.WithError(err).Error("[SAFETY] failed to record error")
	}
}

func (pl *Plan) Registrations() []pipeline.Registration {
	return pl.pipeline.Registrations()
}

// Intercept returns a response that replaces the origin round trip.
func (pl *Plan) Intercept(ctx context.Context) *pipeline.Interception {
	in, err := pl.pipeline.Intercept()
	if err != nil {
		pl.engine.recordError(ctx, err.Error())
		return nil
	}
	if in != nil {
		pl.record(optmonitor.Event{Status: optmonitor.StatusIntercepted}, 0)
	}
	return in
}

// FilterHeaders lets the modules adjust the origin response headers.
func (pl *Plan) FilterHeaders(ctx context.Context, h pipeline.Header) {
	if err := pl.pipeline.FilterHeaders(h); err != nil {
		pl.engine.recordError(ctx, err.Error())
	}
}

// Apply rewrites an HTML body. It never fails: on any error the original
// body comes back and the error counts toward the emergency threshold.
func (pl *Plan) Apply(ctx context.Context, body []byte) []byte {
	ev := optmonitor.Event{BytesIn: len(body), BytesOut: len(body)}
	if !pl.pipeline.HasDocumentHooks() {
		ev.Status = optmonitor.StatusSkipped
		metrics.Optimizations.WithLabelValues(ev.Status).Inc()
		pl.record(ev, 0)
		return body
	}

	start := time.Now()
	out, err := pl.pipeline.Render(body)
	elapsed := time.Since(start)
	metrics.OptimizeDuration.Observe(elapsed.Seconds())

	if err != nil {
		logrus.WithError(err).WithField("path", pl.RC.Path).Warn("[OPTIMIZER] rewrite failed, serving original document")
		pl.engine.recordError(ctx, err.Error())
		ev.Status = optmonitor.StatusFallback
		ev.Error = err.Error()
		metrics.Optimizations.WithLabelValues(ev.Status).Inc()
		pl.record(ev, elapsed)
		return body
	}

	ev.Status = optmonitor.StatusOptimized
	ev.BytesOut = len(out)
	metrics.Optimizations.WithLabelValues(ev.Status).Inc()
	if saved := ev.Saved(); saved > 0 {
		metrics.BytesSaved.Add(float64(saved))
	}
	pl.record(ev, elapsed)
	return out
}

// Skip records a document passed through unread because the gate refused
// the request or the emergency flag is up.
func (pl *Plan) Skip(size int) {
	metrics.Optimizations.WithLabelValues(optmonitor.StatusSkipped).Inc()
	pl.record(optmonitor.Event{Status: optmonitor.StatusSkipped, BytesIn: size, BytesOut: size}, 0)
}

func (pl *Plan) record(ev optmonitor.Event, elapsed time.Duration) {
	if pl.engine.monitor == nil {
		return
	}
	ev.Method = pl.info.Method
	ev.Path = pl.RC.Path
	ev.Reason = string(pl.Decision.Reason)
	if pl.Emergency {
		ev.Reason = "emergency"
	}
	ev.Modules = pl.Modules
	ev.Hooks = pl.pipeline.Len()
	ev.DurationMs = elapsed.Milliseconds()
	pl.engine.monitor.Record(ev)
}
