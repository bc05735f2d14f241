package di

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"astraea-backend/pkg/extensions"
	"astraea-backend/pkg/observability"
)

// The collector is a process-wide singleton, so these tests assert on
// deltas rather than absolute counts.
func newTestHookManager(t *testing.T) (*extensions.HookManager, *observability.Collector) {
	t.Helper()
	collector := observability.NewCollector("test")
	cw := observability.NewCloudWatchPublisher(nil, "test", zap.NewNop())
	return ProvideHookManager(collector, cw, zap.NewNop()), collector
}

func pipelineCount(collector *observability.Collector, status string) float64 {
	return testutil.ToFloat64(collector.AnalysesGenerated.WithLabelValues("pipeline", status))
}

func TestLifecycleHooksRecordCompletedAnalyses(t *testing.T) {
	hooks, collector := newTestHookManager(t)
	successBefore := pipelineCount(collector, "success")
	failureBefore := pipelineCount(collector, "failure")

	err := hooks.Execute(context.Background(), extensions.HookAfterAnalysisGenerate, extensions.AnalysisHookData{
		AnalysisID:   "a1",
		UserID:       "u1",
		Operation:    "generate",
		OverallScore: 72,
		Rating:       "Good",
		DurationMS:   (150 * time.Millisecond).Milliseconds(),
	})

	assert.NoError(t, err)
	assert.Equal(t, successBefore+1, pipelineCount(collector, "success"))
	assert.Equal(t, failureBefore, pipelineCount(collector, "failure"))
}

func TestLifecycleHooksRecordFailedAnalyses(t *testing.T) {
	hooks, collector := newTestHookManager(t)
	failureBefore := pipelineCount(collector, "failure")

	err := hooks.Execute(context.Background(), extensions.HookAnalysisFailed, extensions.AnalysisHookData{
		UserID:     "u1",
		Operation:  "generate",
		DurationMS: 40,
	})

	assert.NoError(t, err)
	assert.Equal(t, failureBefore+1, pipelineCount(collector, "failure"))
}

func TestLifecycleHooksIgnoreUnexpectedPayloads(t *testing.T) {
	hooks, collector := newTestHookManager(t)
	successBefore := pipelineCount(collector, "success")

	err := hooks.Execute(context.Background(), extensions.HookAfterAnalysisGenerate, "not hook data")

	assert.NoError(t, err)
	assert.Equal(t, successBefore, pipelineCount(collector, "success"))
}
