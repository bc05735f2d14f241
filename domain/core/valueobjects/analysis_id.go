package valueobjects

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisID is a value object identifying one relationship analysis.
// IDs embed a millisecond timestamp so lexical ordering within a user's
// partition follows creation order, plus a UUID fragment for uniqueness.
type AnalysisID struct {
	value string
}

// NewAnalysisID creates a new AnalysisID for the current instant.
func NewAnalysisID() AnalysisID {
	frag := strings.Split(uuid.New().String(), "-")[0]
	return AnalysisID{value: fmt.Sprintf("%d-%s", time.Now().UnixMilli(), frag)}
}

// NewAnalysisIDFromString creates an AnalysisID from an existing string.
func NewAnalysisIDFromString(id string) (AnalysisID, error) {
	if id == "" {
		return AnalysisID{}, errors.New("analysis ID cannot be empty")
	}
	ts, frag, ok := strings.Cut(id, "-")
	if !ok || ts == "" || frag == "" {
		return AnalysisID{}, errors.New("analysis ID must be <timestamp>-<fragment>")
	}
	if _, err := strconv.ParseInt(ts, 10, 64); err != nil {
		return AnalysisID{}, errors.New("analysis ID timestamp must be numeric")
	}
	return AnalysisID{value: id}, nil
}

// String returns the string representation of the AnalysisID
func (id AnalysisID) String() string {
	return id.value
}

// CreatedAt returns the creation instant embedded in the ID.
func (id AnalysisID) CreatedAt() time.Time {
	ts, _, _ := strings.Cut(id.value, "-")
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Equals checks if two AnalysisIDs are equal
func (id AnalysisID) Equals(other AnalysisID) bool {
	return id.value == other.value
}

// IsZero checks if the AnalysisID is the zero value
func (id AnalysisID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id AnalysisID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *AnalysisID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("AnalysisID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// UserID is a value object identifying the owner of charts and analyses.
type UserID struct {
	value string
}

// NewUserID creates a UserID from an existing identifier string.
func NewUserID(id string) (UserID, error) {
	if strings.TrimSpace(id) == "" {
		return UserID{}, errors.New("user ID cannot be empty")
	}
	return UserID{value: id}, nil
}

// String returns the string representation of the UserID
func (id UserID) String() string {
	return id.value
}

// Equals checks if two UserIDs are equal
func (id UserID) Equals(other UserID) bool {
	return id.value == other.value
}

// IsZero checks if the UserID is the zero value
func (id UserID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id UserID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *UserID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("UserID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
