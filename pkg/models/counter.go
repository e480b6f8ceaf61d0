package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Counter describes one tracked meter. Everything except Column is display metadata.
type Counter struct {
	Name       string `yaml:"name" json:"name"`
	Column     string `yaml:"column" json:"column"`
	Unit       string `yaml:"unit" json:"unit"`
	LightColor string `yaml:"light_color" json:"light_color"`
	DarkColor  string `yaml:"dark_color" json:"dark_color"`
}

// DefaultCounters is the counter set used when the config defines none
func DefaultCounters() []Counter {
	return []Counter{
		{Name: "Gas", Column: "gas", Unit: "m³", LightColor: "#f6c9a8", DarkColor: "#d9661f"},
		{Name: "Water", Column: "water", Unit: "m³", LightColor: "#b5d3f0", DarkColor: "#1f6fbf"},
		{Name: "Electricity", Column: "electricity", Unit: "kWh", LightColor: "#f3e3a1", DarkColor: "#b89a10"},
	}
}

// FindCounter looks a counter up by column or by name
func FindCounter(counters []Counter, key string) (Counter, bool) {
	for _, c := range counters {
		if c.Column == key || strings.EqualFold(c.Name, key) {
			return c, true
		}
	}
	return Counter{}, false
}

// Columns returns the column names in configuration order
func Columns(counters []Counter) []string {
	cols := make([]string, 0, len(counters))
	for _, c := range counters {
		cols = append(cols, c.Column)
	}
	return cols
}

var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var reservedColumns = map[string]bool{
	"id":         true,
	"rdate":      true,
	"created_at": true,
}

// ValidateColumn checks that column can be used as a counter column in the readings table
func ValidateColumn(column string) error {
	if !columnPattern.MatchString(column) {
		return fmt.Errorf("invalid column %q: must match %s", column, columnPattern)
	}
	if reservedColumns[column] {
		return fmt.Errorf("column %q is reserved", column)
	}
	return nil
}
