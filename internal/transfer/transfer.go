// Package transfer reads and writes the JSON import/export format:
// an array of objects with an integer "rdate" (ms since epoch) and one
// number per counter column.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/jgoulah/meterlog/pkg/models"
)

// ErrMalformed is returned when import data does not have the expected shape
var ErrMalformed = errors.New("malformed import data")

const dateKey = "rdate"

// ExportFilename names an export file after the instant it was taken
func ExportFilename(now time.Time) string {
	return "meterlog-export-" + now.UTC().Format("20060102T150405Z") + ".json"
}

// Encode writes readings in the import/export format
func Encode(w io.Writer, readings []models.Reading, counters []models.Counter) error {
	out := make([]map[string]any, 0, len(readings))
	for _, r := range readings {
		obj := map[string]any{dateKey: r.Timestamp}
		for _, c := range counters {
			if v, ok := r.Value(c.Column); ok {
				obj[c.Column] = v
			}
		}
		out = append(out, obj)
	}

	if err := json.MarshalWrite(w, out, json.Deterministic(true), jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("encoding readings: %w", err)
	}
	return nil
}

// Decode parses import data and returns its records sorted by rdate.
// Any invalid record rejects the whole input; keys that are not counters are ignored.
func Decode(r io.Reader, counters []models.Counter) ([]models.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import data: %w", err)
	}
	if kind := jsontext.Value(data).Kind(); kind != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformed)
	}

	var raw []map[string]jsontext.Value
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	records := make([]models.Record, 0, len(raw))
	for i, obj := range raw {
		rec, err := decodeRecord(obj, counters)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].RDate < records[j].RDate })
	return records, nil
}

func decodeRecord(obj map[string]jsontext.Value, counters []models.Counter) (models.Record, error) {
	rdate, err := field[int64](obj, dateKey)
	if err != nil {
		return models.Record{}, err
	}

	rec := models.Record{
		RDate:  rdate,
		Values: make(map[string]float64, len(counters)),
	}
	for _, c := range counters {
		v, err := field[float64](obj, c.Column)
		if err != nil {
			return models.Record{}, err
		}
		rec.Values[c.Column] = v
	}
	return rec, nil
}

// field decodes obj[key] into T. Fractions and out-of-range numbers fail for integer T.
func field[T int64 | float64](obj map[string]jsontext.Value, key string) (T, error) {
	var zero T
	raw, ok := obj[key]
	if !ok {
		return zero, fmt.Errorf("missing %q", key)
	}

	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("%q: %v", key, err)
	}
	if v == nil {
		return zero, fmt.Errorf("%q is null", key)
	}
	return *v, nil
}
