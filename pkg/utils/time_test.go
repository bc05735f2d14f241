package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBirthDateTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "rfc3339 with offset normalizes to utc",
			input: "1990-06-15T14:30:00+02:00",
			want:  time.Date(1990, 6, 15, 12, 30, 0, 0, time.UTC),
		},
		{
			name:  "naive seconds read as utc",
			input: "1990-06-15T14:30:00",
			want:  time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name:  "naive minutes",
			input: "1990-06-15T14:30",
			want:  time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name:  "space separator",
			input: "1990-06-15 14:30",
			want:  time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name:  "surrounding whitespace",
			input: "  1990-06-15T14:30  ",
			want:  time.Date(1990, 6, 15, 14, 30, 0, 0, time.UTC),
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "date only",
			input:   "1990-06-15",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "next tuesday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBirthDateTime(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
