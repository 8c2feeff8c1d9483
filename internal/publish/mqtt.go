// Package publish pushes widget records to an MQTT broker so signage
// screens and home automation can follow the countdown.
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smokyabdulrahman/prayer-widget/internal/display"
	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
	"github.com/smokyabdulrahman/prayer-widget/internal/widget"
)

// Topic suffixes under {prefix}/{city}/.
const (
	TopicSchedule = "schedule"
	TopicTick     = "tick"
	TopicPeriod   = "period"
	TopicError    = "error"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
	disconnectWait = 250 // ms
)

// PublishFunc delivers one message.
type PublishFunc func(topic string, retained bool, payload []byte) error

// SchedulePayload is published (retained) whenever a schedule is applied.
type SchedulePayload struct {
	City     string          `json:"city"`
	Schedule prayer.Schedule `json:"schedule"`
}

// PeriodPayload is published (retained) on every period change.
type PeriodPayload struct {
	City   string `json:"city"`
	Period string `json:"period"`
	Theme  string `json:"theme"`
	Night  bool   `json:"night"`
}

// ErrorPayload is published when a refresh fails.
type ErrorPayload struct {
	City   string `json:"city"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// MQTT is a widget.Sink publishing JSON records. Publish failures are
// logged and never reach the session.
type MQTT struct {
	prefix     string
	publish    PublishFunc
	disconnect func()
}

// New returns a sink that hands every record to publish. prefix is the
// topic root, e.g. "prayer-widget".
func New(prefix string, publish PublishFunc) *MQTT {
	return &MQTT{
		prefix:     strings.Trim(prefix, "/"),
		publish:    publish,
		disconnect: func() {},
	}
}

// Connect dials broker (e.g. "tcp://localhost:1883") and returns a sink
// publishing under prefix.
func Connect(broker, prefix string) (*MQTT, error) {
	if broker == "" {
		return nil, errors.New("mqtt broker must not be empty")
	}

	clientID := "prayer-widget-" + uuid.NewString()
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", broker).Str("client_id", clientID).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", broker, token.Error())
	}

	m := New(prefix, func(topic string, retained bool, payload []byte) error {
		token := client.Publish(topic, qos, retained, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publishing to %s: timed out", topic)
		}
		return token.Error()
	})
	m.disconnect = func() { client.Disconnect(disconnectWait) }
	return m, nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.disconnect()
}

// Topic returns the full topic for a city and record kind.
func (m *MQTT) Topic(city, kind string) string {
	return m.prefix + "/" + topicSegment(city) + "/" + kind
}

func (m *MQTT) Schedule(city string, s prayer.Schedule) {
	m.send(m.Topic(city, TopicSchedule), true, SchedulePayload{City: city, Schedule: s})
}

func (m *MQTT) Tick(t widget.Tick) {
	m.send(m.Topic(t.City, TopicTick), false, t)
}

func (m *MQTT) Period(city string, p prayer.Period) {
	m.send(m.Topic(city, TopicPeriod), true, PeriodPayload{
		City:   city,
		Period: p.String(),
		Theme:  display.PeriodTheme(p).Name,
		Night:  p.Night(),
	})
}

func (m *MQTT) Error(f widget.Failure) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	m.send(m.Topic(f.City, TopicError), false, ErrorPayload{
		City:   f.City,
		Reason: f.Reason.String(),
		Error:  msg,
	})
}

func (m *MQTT) send(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("encoding MQTT payload")
		return
	}
	if err := m.publish(topic, retained, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
	}
}

// topicSegment makes a city name safe as a single topic level.
func topicSegment(city string) string {
	r := strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")
	return strings.ToLower(r.Replace(city))
}
