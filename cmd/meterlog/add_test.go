package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jgoulah/meterlog/pkg/models"
)

func TestParseValues(t *testing.T) {
	counters := models.DefaultCounters()

	tests := []struct {
		name        string
		args        []string
		want        map[string]float64
		errorString string
	}{
		{
			name: "columns and names",
			args: []string{"gas=12.5", "Water=3", "electricity= 1000 "},
			want: map[string]float64{"gas": 12.5, "water": 3, "electricity": 1000},
		},
		{
			name:        "missing equals sign",
			args:        []string{"gas"},
			errorString: "use counter=value",
		},
		{
			name:        "unknown counter",
			args:        []string{"oil=1"},
			errorString: `unknown counter "oil"`,
		},
		{
			name:        "not a number",
			args:        []string{"gas=abc"},
			errorString: "invalid value for gas",
		},
		{
			name:        "negative",
			args:        []string{"gas=-1"},
			errorString: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValues(tt.args, counters)
			if tt.errorString != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errorString) {
					t.Fatalf("expected error containing %q, got %v", tt.errorString, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s: expected %v, got %v", k, v, got[k])
				}
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-04-09T08:15:00Z", time.Date(2024, 4, 9, 8, 15, 0, 0, time.UTC)},
		{"2024-04-09 08:15:30", time.Date(2024, 4, 9, 8, 15, 30, 0, loc)},
		{"2024-04-09 08:15", time.Date(2024, 4, 9, 8, 15, 0, 0, loc)},
		{"2024-04-09", time.Date(2024, 4, 9, 0, 0, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTime(tt.input, loc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := parseTime("yesterday", loc); err == nil {
		t.Error("expected error for unsupported format")
	}
}
