package observability

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray segments around pipeline stages. Disabled tracers
// pass straight through, so local runs need no daemon.
type Tracer struct {
	serviceName string
	enabled     bool
}

// NewTracer creates a tracer. When enabled is false every method is a
// no-op.
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{serviceName: serviceName, enabled: enabled}
}

// Capture runs fn inside a subsegment named after the operation. On the
// Lambda path the runtime supplies the root segment.
func (t *Tracer) Capture(ctx context.Context, name string, fn func(context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	return xray.Capture(ctx, fmt.Sprintf("%s.%s", t.serviceName, name), fn)
}

// AnnotateAnalysis indexes the current segment by user and analysis so
// traces can be found from either ID.
func (t *Tracer) AnnotateAnalysis(ctx context.Context, userID, analysisID string) {
	if !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		_ = seg.AddAnnotation("user_id", userID)
		_ = seg.AddAnnotation("analysis_id", analysisID)
	}
}
