package valueobjects

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Baseline label bounds. Environment-specific limits are enforced by the
// analysis validator on top of these.
const (
	maxChartLabelRunes = 100
)

// ChartLabel is a value object naming one side of a relationship analysis,
// e.g. "Alex" or "Person 1".
type ChartLabel struct {
	value string
}

// NewChartLabel creates a label with validation.
func NewChartLabel(value string) (ChartLabel, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ChartLabel{}, errors.New("chart label cannot be empty")
	}
	if utf8.RuneCountInString(value) > maxChartLabelRunes {
		return ChartLabel{}, fmt.Errorf("chart label exceeds maximum length of %d characters", maxChartLabelRunes)
	}
	return ChartLabel{value: value}, nil
}

// ChartLabelOrDefault creates a label, falling back to the given default when
// the input is blank.
func ChartLabelOrDefault(value, fallback string) (ChartLabel, error) {
	if strings.TrimSpace(value) == "" {
		return NewChartLabel(fallback)
	}
	return NewChartLabel(value)
}

// String returns the label text.
func (l ChartLabel) String() string {
	return l.value
}

// Equals checks if two ChartLabels are equal
func (l ChartLabel) Equals(other ChartLabel) bool {
	return l.value == other.value
}

// IsZero checks if the ChartLabel is the zero value
func (l ChartLabel) IsZero() bool {
	return l.value == ""
}

// MarshalJSON implements json.Marshaler
func (l ChartLabel) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", l.value)), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (l *ChartLabel) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ChartLabel must be a string")
	}
	l.value = strings.TrimSpace(string(data[1 : len(data)-1]))
	return nil
}
