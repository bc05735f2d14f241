package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "astraea-backend/pkg/errors"
)

type sampleRequest struct {
	Name  string  `validate:"required,max=10"`
	Kind  string  `validate:"omitempty,oneof=natal synastry"`
	Score float64 `validate:"min=0,max=100"`
}

func TestValidateStruct_Passes(t *testing.T) {
	err := ValidateStruct(sampleRequest{Name: "ok", Kind: "natal", Score: 50})
	assert.NoError(t, err)
}

func TestValidateStruct_ReturnsTypedErrorWithDetails(t *testing.T) {
	err := ValidateStruct(sampleRequest{Kind: "bogus", Score: 200})
	require.Error(t, err)
	require.True(t, apperrors.IsValidation(err))

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Details, "name")
	assert.Contains(t, appErr.Details, "kind")
	assert.Contains(t, appErr.Details, "score")
}

func TestParseBirthDateTime_AcceptsCommonLayouts(t *testing.T) {
	cases := map[string]string{
		"rfc3339":        "1990-06-15T08:30:00Z",
		"offset":         "1990-06-15T09:30:00+01:00",
		"naive seconds":  "1990-06-15T08:30:00",
		"naive minutes":  "1990-06-15T08:30",
		"space separator": "1990-06-15 08:30",
	}

	want := time.Date(1990, 6, 15, 8, 30, 0, 0, time.UTC)
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseBirthDateTime(input)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseBirthDateTime_RejectsGarbage(t *testing.T) {
	_, err := ParseBirthDateTime("June 15th 1990")
	assert.Error(t, err)

	_, err = ParseBirthDateTime("  ")
	assert.Error(t, err)
}
