package events

import (
	"encoding/json"
	"fmt"
)

// Unmarshal rebuilds a concrete event from its JSON form. The event type
// travels out of band (store column, EventBridge detail-type), matching how
// the events were published.
func Unmarshal(eventType string, data []byte) (DomainEvent, error) {
	switch eventType {
	case "analysis.requested":
		var e AnalysisRequested
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return e, nil

	case "analysis.completed":
		var e AnalysisCompleted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return e, nil

	case "analysis.deleted":
		var e AnalysisDeleted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return e, nil

	case "analysis.failed":
		var e AnalysisFailed
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
