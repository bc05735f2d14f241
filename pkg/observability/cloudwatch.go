package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchPublisher pushes metrics for the Lambda entry points, where a
// Prometheus scrape target makes no sense. All methods are best-effort: a
// metrics failure never fails the operation being measured.
type CloudWatchPublisher struct {
	client    *cloudwatch.Client
	namespace string
	logger    *zap.Logger
}

// NewCloudWatchPublisher creates a publisher for the given namespace. A
// nil client turns every method into a no-op.
func NewCloudWatchPublisher(client *cloudwatch.Client, namespace string, logger *zap.Logger) *CloudWatchPublisher {
	return &CloudWatchPublisher{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordAnalysis records one analysis computation with its duration.
func (p *CloudWatchPublisher) RecordAnalysis(ctx context.Context, mode string, duration time.Duration, err error) {
	if p.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	dimensions := []types.Dimension{
		{Name: aws.String("Mode"), Value: aws.String(mode)},
		{Name: aws.String("Status"), Value: aws.String(status)},
	}

	p.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("AnalysisDuration"),
			Dimensions: dimensions,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("AnalysisCount"),
			Dimensions: dimensions,
			Value:      aws.Float64(1),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

// RecordLatency records the duration of a named operation.
func (p *CloudWatchPublisher) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	if p.client == nil {
		return
	}

	p.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("OperationLatency"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Operation"), Value: aws.String(operation)},
			},
			Value:     aws.Float64(float64(latency.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

// RecordError counts an error occurrence by type.
func (p *CloudWatchPublisher) RecordError(ctx context.Context, errorType string) {
	if p.client == nil {
		return
	}

	p.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("Errors"),
			Dimensions: []types.Dimension{
				{Name: aws.String("ErrorType"), Value: aws.String(errorType)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

// RecordEventRelay records one outbox relay pass.
func (p *CloudWatchPublisher) RecordEventRelay(ctx context.Context, published, failed int) {
	if p.client == nil {
		return
	}

	p.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("EventsPublished"),
			Value:      aws.Float64(float64(published)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("EventsFailed"),
			Value:      aws.Float64(float64(failed)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		},
	})
}

func (p *CloudWatchPublisher) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(p.namespace),
		MetricData: data,
	}
	if _, err := p.client.PutMetricData(ctx, input); err != nil {
		p.logger.Warn("failed to publish cloudwatch metrics", zap.Error(err))
	}
}
