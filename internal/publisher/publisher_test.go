package publisher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jgoulah/meterlog/internal/config"
	"github.com/jgoulah/meterlog/pkg/models"
)

func TestNewRequiresTarget(t *testing.T) {
	if _, err := New(config.MQTTConfig{}, config.HAConfig{}, nil); err == nil {
		t.Fatal("expected error when nothing is enabled")
	}
	if _, err := New(config.MQTTConfig{}, config.HAConfig{Enabled: true, URL: "http://ha"}, nil); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNaming(t *testing.T) {
	p, err := New(config.MQTTConfig{TopicPrefix: "home/meters"}, config.HAConfig{
		Enabled:      true,
		URL:          "http://ha",
		Token:        "t",
		EntityPrefix: "my-house",
	}, nil)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if got := p.Topic("Warm Water"); got != "home/meters/warm-water/state" {
		t.Errorf("unexpected topic %q", got)
	}
	if got := p.EntityID("Warm Water"); got != "sensor.my_house_warm_water" {
		t.Errorf("unexpected entity id %q", got)
	}
}

func TestPublishHomeAssistant(t *testing.T) {
	var (
		gotPath  string
		gotAuth  string
		gotState HAPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotState); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	p, err := New(config.MQTTConfig{}, config.HAConfig{Enabled: true, URL: srv.URL + "/", Token: "secret"}, nil)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer p.Close()

	err = p.Publish(State{
		Counter:    models.Counter{Name: "Gas", Column: "gas", Unit: "m³"},
		Time:       time.Date(2024, 4, 9, 8, 0, 0, 0, time.UTC),
		Value:      1234.5,
		RatePerDay: 2.25,
		HasRate:    true,
		Year:       2024,
		YearToDate: 310,
	})
	if err != nil {
		t.Fatalf("publishing: %v", err)
	}

	if gotPath != "/api/states/sensor.meterlog_gas" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotState.State != "1234.500" {
		t.Errorf("unexpected state %q", gotState.State)
	}
	if gotState.Attributes["unit_of_measurement"] != "m³" || gotState.Attributes["rate_per_day"] != 2.25 {
		t.Errorf("unexpected attributes %v", gotState.Attributes)
	}
}

func TestPublishHomeAssistantError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New(config.MQTTConfig{}, config.HAConfig{Enabled: true, URL: srv.URL, Token: "bad"}, nil)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}

	if err := p.Publish(State{Counter: models.Counter{Name: "Gas"}}); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSnapshot(t *testing.T) {
	counters := []models.Counter{
		{Name: "Gas", Column: "gas"},
		{Name: "Water", Column: "water"},
	}
	day := func(d int) time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d) }
	readings := []models.Reading{
		models.NewReading(day(0), map[string]float64{"gas": 100}),
		models.NewReading(day(2), map[string]float64{"gas": 104}),
		models.NewReading(day(3), map[string]float64{"gas": 107}),
	}

	states := Snapshot(counters, readings)
	if len(states) != 1 {
		t.Fatalf("expected only gas to have a state, got %d", len(states))
	}
	s := states[0]
	if s.Value != 107 || !s.HasRate || s.RatePerDay != 3 {
		t.Errorf("unexpected state %+v", s)
	}
	if s.Year != 2024 || s.YearToDate != 7 {
		t.Errorf("unexpected year to date %+v", s)
	}
}
