package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/ourabridge/internal/domain/model"
	"github.com/okian/ourabridge/internal/domain/sensor"
	"github.com/okian/ourabridge/pkg/logger"
)

const (
	payloadOnline  = "online"
	payloadOffline = "offline"

	availabilityAll     = "all"
	statusValueTemplate = "{{ value_json.state }}"
)

// ErrPublish wraps every failed publish.
var ErrPublish = errors.New("mqtt publish failed")

// Publisher turns snapshots into retained MQTT sensor messages.
//
// Topics, with <p> the topic prefix:
//
//	<p>/<sensor>/state         sensor value
//	<p>/<sensor>/attributes    JSON attributes
//	<p>/<sensor>/availability  online or offline
//	<p>/status                 bridge status JSON, also the last will
//
// Discovery configs go to <discovery>/sensor/<node>/<sensor>/config and are
// re-sent whenever the device descriptor changes. A sensor is available only
// while both its own topic and the bridge status say online.
type Publisher struct {
	client          Client
	topicPrefix     string
	discoveryPrefix string
	nodeID          string
	deviceName      string
	retain          bool
	qos             byte
	timeout         time.Duration
	logger          logger.Logger

	mu        sync.Mutex
	announced *sensor.Device
}

// NewPublisher creates a publisher on a connected client.
func NewPublisher(client Client, opts ...Option) *Publisher {
	p := &Publisher{
		client:          client,
		topicPrefix:     defaultTopicPrefix,
		discoveryPrefix: defaultDiscoveryPrefix,
		nodeID:          defaultNodeID,
		deviceName:      defaultDeviceName,
		retain:          true,
		qos:             1,
		timeout:         defaultPublishTimeout,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("mqtt")
	return p
}

// Name identifies the publisher.
func (p *Publisher) Name() string { return "mqtt" }

// StatusTopic is where bridge status is published.
func (p *Publisher) StatusTopic() string { return p.topicPrefix + "/status" }

// StateTopic returns the value topic for a sensor key.
func (p *Publisher) StateTopic(key string) string { return p.topicPrefix + "/" + key + "/state" }

// AttributesTopic returns the attribute topic for a sensor key.
func (p *Publisher) AttributesTopic(key string) string {
	return p.topicPrefix + "/" + key + "/attributes"
}

// AvailabilityTopic returns the availability topic for a sensor key.
func (p *Publisher) AvailabilityTopic(key string) string {
	return p.topicPrefix + "/" + key + "/availability"
}

// DiscoveryTopic returns the Home Assistant config topic for a sensor key.
func (p *Publisher) DiscoveryTopic(key string) string {
	return p.discoveryPrefix + "/sensor/" + p.nodeID + "/" + key + "/config"
}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

type availability struct {
	Topic         string `json:"topic"`
	ValueTemplate string `json:"value_template,omitempty"`
}

type discoveryConfig struct {
	Name                string          `json:"name"`
	UniqueID            string          `json:"unique_id"`
	ObjectID            string          `json:"object_id"`
	StateTopic          string          `json:"state_topic"`
	JSONAttributesTopic string          `json:"json_attributes_topic"`
	Availability        []availability  `json:"availability"`
	AvailabilityMode    string          `json:"availability_mode"`
	UnitOfMeasurement   string          `json:"unit_of_measurement,omitempty"`
	StateClass          string          `json:"state_class,omitempty"`
	Icon                string          `json:"icon,omitempty"`
	Device              discoveryDevice `json:"device"`
}

// Publish sends discovery (when needed), state, attributes and availability
// for every sensor, then marks the bridge fresh.
func (p *Publisher) Publish(ctx context.Context, snap model.Snapshot) error {
	device := sensor.DeviceFor(snap, p.deviceName)

	var errs []error
	if p.needsAnnounce(device) {
		if err := p.announce(device); err != nil {
			errs = append(errs, err)
		} else {
			p.mu.Lock()
			p.announced = &device
			p.mu.Unlock()
		}
	}

	for _, st := range sensor.States(snap) {
		if !st.Available {
			errs = append(errs, p.send(p.AvailabilityTopic(st.Key), payloadOffline, true))
			continue
		}
		attrs, err := json.Marshal(st.Attributes)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s attributes: %w", st.Key, err))
			continue
		}
		errs = append(errs,
			p.send(p.StateTopic(st.Key), fmt.Sprint(st.Value), p.retain),
			p.send(p.AttributesTopic(st.Key), string(attrs), p.retain),
			p.send(p.AvailabilityTopic(st.Key), payloadOnline, true),
		)
	}

	errs = append(errs, p.sendStatus(snap.CycleID, false, ""))

	if err := errors.Join(errs...); err != nil {
		p.logger.Error(ctx, "publish incomplete", logger.String("cycle_id", snap.CycleID), logger.Error(err))
		return err
	}
	p.logger.Debug(ctx, "snapshot published", logger.String("cycle_id", snap.CycleID))
	return nil
}

// MarkStale tells subscribers the last cycle failed; retained states stay as they were.
func (p *Publisher) MarkStale(ctx context.Context, cycleID string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := p.sendStatus(cycleID, true, reason); err != nil {
		p.logger.Error(ctx, "failed to publish stale status", logger.Error(err))
		return err
	}
	return nil
}

func (p *Publisher) needsAnnounce(d sensor.Device) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.announced == nil || *p.announced != d
}

func (p *Publisher) announce(d sensor.Device) error {
	dev := discoveryDevice{
		Identifiers:  []string{d.Identifier},
		Name:         d.Name,
		Manufacturer: d.Manufacturer,
		Model:        d.Model,
		SWVersion:    d.FirmwareVersion,
	}
	var errs []error
	for _, s := range sensor.All() {
		avail := []availability{
			{Topic: p.AvailabilityTopic(s.Key)},
			{Topic: p.StatusTopic(), ValueTemplate: statusValueTemplate},
		}
		cfg := discoveryConfig{
			Name:                s.Name,
			UniqueID:            d.Identifier + "_" + s.Key,
			ObjectID:            p.nodeID + "_" + s.Key,
			StateTopic:          p.StateTopic(s.Key),
			JSONAttributesTopic: p.AttributesTopic(s.Key),
			Availability:        avail,
			AvailabilityMode:    availabilityAll,
			UnitOfMeasurement:   s.Unit,
			StateClass:          s.StateClass,
			Icon:                s.Icon,
			Device:              dev,
		}
		b, err := json.Marshal(cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s discovery: %w", s.Key, err))
			continue
		}
		errs = append(errs, p.send(p.DiscoveryTopic(s.Key), string(b), true))
	}
	return errors.Join(errs...)
}

type status struct {
	State       string    `json:"state"`
	CycleID     string    `json:"cycle_id,omitempty"`
	Stale       bool      `json:"stale"`
	Error       string    `json:"error,omitempty"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	Attribution string    `json:"attribution"`
}

// OfflineStatus is the status payload the broker publishes as the last will
// when the bridge drops.
func OfflineStatus() string {
	b, _ := json.Marshal(status{
		State:       payloadOffline,
		Stale:       true,
		Attribution: sensor.Attribution,
	})
	return string(b)
}

func (p *Publisher) sendStatus(cycleID string, stale bool, reason string) error {
	b, err := json.Marshal(status{
		State:       payloadOnline,
		CycleID:     cycleID,
		Stale:       stale,
		Error:       reason,
		PublishedAt: time.Now().UTC(),
		Attribution: sensor.Attribution,
	})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	return p.send(p.StatusTopic(), string(b), true)
}

func (p *Publisher) send(topic, payload string, retained bool) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("%w: %s: timed out", ErrPublish, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}
