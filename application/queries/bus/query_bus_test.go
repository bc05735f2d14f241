package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupQuery struct {
	ID      string
	Invalid bool
}

func (q lookupQuery) Validate() error {
	if q.Invalid {
		return errors.New("id is required")
	}
	return nil
}

type unregisteredQuery struct{}

func (unregisteredQuery) Validate() error { return nil }

// mapCache is a minimal in-memory Cache for middleware tests.
type mapCache struct {
	entries map[string]interface{}
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]interface{})}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	value, found := c.entries[key]
	return value, found
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	c.entries[key] = value
	c.sets++
	return nil
}

type recordingMetrics struct {
	increments []string
	timers     []string
	stops      int
}

func (m *recordingMetrics) StartTimer(metric, label string) Timer {
	m.timers = append(m.timers, metric+":"+label)
	return &recordingTimer{metrics: m}
}

func (m *recordingMetrics) Increment(metric, label string) {
	m.increments = append(m.increments, metric+":"+label)
}

type recordingTimer struct {
	metrics *recordingMetrics
}

func (t *recordingTimer) Stop() {
	t.metrics.stops++
}

func TestQueryBusRoutesToRegisteredHandler(t *testing.T) {
	b := NewQueryBus()

	err := b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return "result:" + query.(lookupQuery).ID, nil
	}))
	require.NoError(t, err)

	result, err := b.Ask(context.Background(), lookupQuery{ID: "42"})

	require.NoError(t, err)
	assert.Equal(t, "result:42", result)
}

func TestQueryBusValidatesBeforeDispatch(t *testing.T) {
	b := NewQueryBus()

	handlerCalled := false
	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		handlerCalled = true
		return nil, nil
	})))

	result, err := b.Ask(context.Background(), lookupQuery{Invalid: true})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "query validation failed")
	assert.False(t, handlerCalled)
}

func TestQueryBusRejectsUnregisteredQuery(t *testing.T) {
	b := NewQueryBus()

	result, err := b.Ask(context.Background(), unregisteredQuery{})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestQueryBusRejectsDuplicateRegistration(t *testing.T) {
	b := NewQueryBus()
	handler := QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, nil
	})

	require.NoError(t, b.Register(lookupQuery{}, handler))
	err := b.Register(lookupQuery{}, handler)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestQueryBusWrapsHandlerErrors(t *testing.T) {
	b := NewQueryBus()
	boom := errors.New("index offline")

	require.NoError(t, b.Register(lookupQuery{}, QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, boom
	})))

	result, err := b.Ask(context.Background(), lookupQuery{ID: "42"})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "query handler failed")
}

func TestCachingMiddlewareServesRepeatReadsFromCache(t *testing.T) {
	cache := newMapCache()
	calls := 0
	handler := NewCachingMiddleware(cache, 60).Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return "result:" + query.(lookupQuery).ID, nil
	}))

	ctx := context.Background()
	first, err := handler.Handle(ctx, lookupQuery{ID: "42"})
	require.NoError(t, err)
	second, err := handler.Handle(ctx, lookupQuery{ID: "42"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCachingMiddlewareKeysOnQueryFields(t *testing.T) {
	cache := newMapCache()
	calls := 0
	handler := NewCachingMiddleware(cache, 60).Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return query.(lookupQuery).ID, nil
	}))

	ctx := context.Background()
	first, err := handler.Handle(ctx, lookupQuery{ID: "a"})
	require.NoError(t, err)
	second, err := handler.Handle(ctx, lookupQuery{ID: "b"})
	require.NoError(t, err)

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
	assert.Equal(t, 2, calls)
}

func TestCachingMiddlewareDoesNotCacheFailures(t *testing.T) {
	cache := newMapCache()
	calls := 0
	handler := NewCachingMiddleware(cache, 60).Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return nil, errors.New("index offline")
	}))

	ctx := context.Background()
	_, err := handler.Handle(ctx, lookupQuery{ID: "42"})
	require.Error(t, err)
	_, err = handler.Handle(ctx, lookupQuery{ID: "42"})
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, cache.sets)
}

func TestMetricsMiddlewareCountsOutcomes(t *testing.T) {
	metrics := &recordingMetrics{}
	mw := NewMetricsMiddleware(metrics)

	ok := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return "ok", nil
	}))
	failing := mw.Wrap(QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		return nil, errors.New("index offline")
	}))

	ctx := context.Background()
	_, err := ok.Handle(ctx, lookupQuery{ID: "42"})
	require.NoError(t, err)
	_, err = failing.Handle(ctx, lookupQuery{ID: "42"})
	require.Error(t, err)

	assert.Contains(t, metrics.increments, "query_count:lookupQuery")
	assert.Contains(t, metrics.increments, "query_success:lookupQuery")
	assert.Contains(t, metrics.increments, "query_errors:lookupQuery")
	assert.Equal(t, []string{"query_duration:lookupQuery", "query_duration:lookupQuery"}, metrics.timers)
	assert.Equal(t, 2, metrics.stops)
}
