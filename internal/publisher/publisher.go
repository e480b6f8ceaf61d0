package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/jgoulah/meterlog/internal/config"
)

// Publisher pushes counter states to MQTT and/or Home Assistant
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	httpClient  *http.Client
	log         *zap.Logger
}

// New creates a publisher for every enabled target
func New(mqttCfg config.MQTTConfig, haCfg config.HAConfig, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !mqttCfg.Enabled && !haCfg.Enabled {
		return nil, fmt.Errorf("no publish target enabled (configure mqtt or home_assistant)")
	}

	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	p := &Publisher{
		topicPrefix: mqttCfg.GetTopicPrefix(),
		haConfig:    haCfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}

	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("meterlog-" + uuid.NewString())
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		p.client = mqtt.NewClient(opts)
		if token := p.client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
		log.Debug("connected to MQTT broker", zap.String("broker", mqttCfg.Broker))
	}

	return p, nil
}

// StatePayload is the JSON body sent over MQTT
type StatePayload struct {
	Counter    string   `json:"counter"`
	Unit       string   `json:"unit"`
	Value      float64  `json:"value"`
	RatePerDay *float64 `json:"rate_per_day,omitempty"`
	Year       int      `json:"year"`
	YearToDate float64  `json:"year_to_date"`
	ReadAt     string   `json:"read_at"`
}

// HAPayload matches the Home Assistant POST /api/states/<entity_id> body
type HAPayload struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// Publish sends s to every enabled target
func (p *Publisher) Publish(s State) error {
	if p.client != nil {
		if err := p.publishMQTT(s); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(s); err != nil {
			return err
		}
	}
	return nil
}

// Topic returns the MQTT state topic for a counter name
func (p *Publisher) Topic(counterName string) string {
	return fmt.Sprintf("%s/%s/state", p.topicPrefix, slug.Make(counterName))
}

// EntityID returns the Home Assistant sensor entity for a counter name
func (p *Publisher) EntityID(counterName string) string {
	return fmt.Sprintf("sensor.%s_%s",
		strings.ReplaceAll(slug.Make(p.haConfig.GetEntityPrefix()), "-", "_"),
		strings.ReplaceAll(slug.Make(counterName), "-", "_"))
}

func (p *Publisher) publishMQTT(s State) error {
	payload := StatePayload{
		Counter:    s.Counter.Name,
		Unit:       s.Counter.Unit,
		Value:      s.Value,
		Year:       s.Year,
		YearToDate: s.YearToDate,
		ReadAt:     s.Time.Format(time.RFC3339),
	}
	if s.HasRate {
		rate := s.RatePerDay
		payload.RatePerDay = &rate
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	topic := p.Topic(s.Counter.Name)
	token := p.client.Publish(topic, 1, true, body)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}

	p.log.Debug("published MQTT state", zap.String("topic", topic))
	return nil
}

func (p *Publisher) publishHA(s State) error {
	entityID := p.EntityID(s.Counter.Name)
	apiURL := fmt.Sprintf("%s/api/states/%s", strings.TrimRight(p.haConfig.URL, "/"), entityID)

	attrs := map[string]any{
		"friendly_name":       s.Counter.Name,
		"unit_of_measurement": s.Counter.Unit,
		"state_class":         "total_increasing",
		"year":                s.Year,
		"year_to_date":        s.YearToDate,
		"read_at":             s.Time.Format(time.RFC3339),
	}
	if s.HasRate {
		attrs["rate_per_day"] = s.RatePerDay
	}

	body, err := json.Marshal(HAPayload{
		State:      fmt.Sprintf("%.3f", s.Value),
		Attributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequest("POST", apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	p.log.Debug("published Home Assistant state", zap.String("entity_id", entityID))
	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
