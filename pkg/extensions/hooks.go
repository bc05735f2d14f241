package extensions

import (
	"context"
	"fmt"
	"sync"
)

// HookPoint represents a point in the application where hooks can be registered
type HookPoint string

// Analysis lifecycle hook points fired by the analysis service.
const (
	HookBeforeAnalysisGenerate HookPoint = "before_analysis_generate"
	HookAfterAnalysisGenerate  HookPoint = "after_analysis_generate"
	HookAnalysisFailed         HookPoint = "analysis_failed"
)

// Hook represents a function that can be executed at a hook point
type Hook func(ctx context.Context, data interface{}) error

// HookManager manages hooks for extension points
type HookManager struct {
	hooks map[HookPoint][]Hook
	mu    sync.RWMutex
}

// NewHookManager creates a new hook manager
func NewHookManager() *HookManager {
	return &HookManager{
		hooks: make(map[HookPoint][]Hook),
	}
}

// Register registers a hook for a specific hook point
func (m *HookManager) Register(point HookPoint, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hooks[point] == nil {
		m.hooks[point] = []Hook{}
	}
	m.hooks[point] = append(m.hooks[point], hook)
}

// Execute runs the point's hooks in registration order and stops at the
// first failure.
func (m *HookManager) Execute(ctx context.Context, point HookPoint, data interface{}) error {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for i, hook := range hooks {
		if err := hook(ctx, data); err != nil {
			return fmt.Errorf("hook %d at %s failed: %w", i, point, err)
		}
	}
	return nil
}

// ExecuteAsync fires the point's hooks without waiting. Hooks must never
// block analysis generation, so errors are dropped.
func (m *HookManager) ExecuteAsync(ctx context.Context, point HookPoint, data interface{}) {
	m.mu.RLock()
	hooks := m.hooks[point]
	m.mu.RUnlock()

	for _, hook := range hooks {
		go func(h Hook) {
			_ = h(ctx, data)
		}(hook)
	}
}

// AnalysisHookData is the payload delivered to analysis lifecycle hooks.
type AnalysisHookData struct {
	AnalysisID   string                 `json:"analysis_id"`
	UserID       string                 `json:"user_id"`
	Operation    string                 `json:"operation"`
	OverallScore int                    `json:"overall_score,omitempty"`
	Rating       string                 `json:"rating,omitempty"`
	DurationMS   int64                  `json:"duration_ms,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}
