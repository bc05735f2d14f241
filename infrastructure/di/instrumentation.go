package di

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"astraea-backend/application/ports"
	querybus "astraea-backend/application/queries/bus"
	"astraea-backend/domain/core/entities"
	"astraea-backend/domain/events"
	"astraea-backend/pkg/extensions"
	"astraea-backend/pkg/observability"
)

// errPipelineFailed marks failed-run observations. The observers only
// inspect it for nilness.
var errPipelineFailed = errors.New("analysis pipeline failed")

// registerLifecycleHooks attaches the built-in observers to the analysis
// lifecycle points the application service fires. Metrics and completion
// logging live here so the service stays coupled to neither.
func registerLifecycleHooks(
	hooks *extensions.HookManager,
	metrics *observability.Collector,
	cw *observability.CloudWatchPublisher,
	logger *zap.Logger,
) {
	hooks.Register(extensions.HookAfterAnalysisGenerate, func(ctx context.Context, data interface{}) error {
		payload, ok := data.(extensions.AnalysisHookData)
		if !ok {
			return nil
		}
		duration := time.Duration(payload.DurationMS) * time.Millisecond
		metrics.ObserveAnalysis("pipeline", duration, nil)
		cw.RecordAnalysis(ctx, "pipeline", duration, nil)
		logger.Info("Analysis pipeline completed",
			zap.String("analysisID", payload.AnalysisID),
			zap.String("userID", payload.UserID),
			zap.Int("overallScore", payload.OverallScore),
			zap.String("rating", payload.Rating),
			zap.Int64("durationMS", payload.DurationMS),
		)
		return nil
	})

	hooks.Register(extensions.HookAnalysisFailed, func(ctx context.Context, data interface{}) error {
		payload, ok := data.(extensions.AnalysisHookData)
		if !ok {
			return nil
		}
		duration := time.Duration(payload.DurationMS) * time.Millisecond
		metrics.ObserveAnalysis("pipeline", duration, errPipelineFailed)
		cw.RecordAnalysis(ctx, "pipeline", duration, errPipelineFailed)
		cw.RecordError(ctx, "analysis_pipeline")
		logger.Warn("Analysis pipeline failed",
			zap.String("userID", payload.UserID),
			zap.Int64("durationMS", payload.DurationMS),
		)
		return nil
	})
}

// instrumentedEventBus counts publishes on the way through to the inner bus.
type instrumentedEventBus struct {
	inner   ports.EventBus
	metrics *observability.Collector
}

func instrumentEventBus(inner ports.EventBus, metrics *observability.Collector) ports.EventBus {
	if metrics == nil {
		return inner
	}
	return &instrumentedEventBus{inner: inner, metrics: metrics}
}

func (b *instrumentedEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	err := b.inner.Publish(ctx, event)
	b.count(1, err)
	return err
}

func (b *instrumentedEventBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	err := b.inner.PublishBatch(ctx, batch)
	b.count(len(batch), err)
	return err
}

func (b *instrumentedEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	return b.inner.Subscribe(eventType, handler)
}

func (b *instrumentedEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	return b.inner.Unsubscribe(eventType, handler)
}

func (b *instrumentedEventBus) count(n int, err error) {
	if err != nil {
		b.metrics.EventsFailed.Add(float64(n))
		return
	}
	b.metrics.EventsPublished.Add(float64(n))
}

// instrumentedEphemeris counts calls to the external provider by outcome.
type instrumentedEphemeris struct {
	inner   ports.EphemerisProvider
	metrics *observability.Collector
}

func instrumentEphemeris(inner ports.EphemerisProvider, metrics *observability.Collector) ports.EphemerisProvider {
	if metrics == nil {
		return inner
	}
	return &instrumentedEphemeris{inner: inner, metrics: metrics}
}

func (e *instrumentedEphemeris) ChartAt(ctx context.Context, data ports.BirthData) (*entities.BirthChart, error) {
	chart, err := e.inner.ChartAt(ctx, data)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.EphemerisRequests.WithLabelValues(outcome).Inc()
	return chart, err
}

// relayingPublisher reports outbox relay outcomes to CloudWatch. The relay
// runs outside any request, so these counts are the only visibility into it
// on Lambda.
type relayingPublisher struct {
	inner ports.EventPublisher
	cw    *observability.CloudWatchPublisher
}

func relayPublisher(inner ports.EventPublisher, cw *observability.CloudWatchPublisher) ports.EventPublisher {
	if cw == nil {
		return inner
	}
	return &relayingPublisher{inner: inner, cw: cw}
}

func (p *relayingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	err := p.inner.Publish(ctx, event)
	if err != nil {
		p.cw.RecordEventRelay(ctx, 0, 1)
		return err
	}
	p.cw.RecordEventRelay(ctx, 1, 0)
	return nil
}

func (p *relayingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	err := p.inner.PublishBatch(ctx, batch)
	if err != nil {
		p.cw.RecordEventRelay(ctx, 0, len(batch))
		return err
	}
	p.cw.RecordEventRelay(ctx, len(batch), 0)
	return nil
}

// queryMetrics feeds the query bus middleware into the Prometheus collector.
type queryMetrics struct {
	collector *observability.Collector
}

func (m *queryMetrics) StartTimer(metric, label string) querybus.Timer {
	start := time.Now()
	return timerFunc(func() {
		m.collector.QueryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	})
}

func (m *queryMetrics) Increment(metric, label string) {
	switch metric {
	case "query_count":
		m.collector.Queries.WithLabelValues(label, "total").Inc()
	case "query_errors":
		m.collector.Queries.WithLabelValues(label, "error").Inc()
	case "query_success":
		m.collector.Queries.WithLabelValues(label, "success").Inc()
	}
}

type timerFunc func()

func (f timerFunc) Stop() { f() }
