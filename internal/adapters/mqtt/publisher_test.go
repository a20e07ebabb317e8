package mqtt_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ourabridge/internal/adapters/mqtt"
	"github.com/okian/ourabridge/internal/domain/model"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	payload  string
	retained bool
}

type fakeClient struct {
	mu       sync.Mutex
	messages map[string]message
	count    map[string]int
	fail     error
}

func newFakeClient() *fakeClient {
	return &fakeClient{messages: map[string]message{}, count: map[string]int{}}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[topic] = message{payload: payload.(string), retained: retained}
	c.count[topic]++
	return &fakeToken{err: c.fail}
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Disconnect(uint)   {}

func (c *fakeClient) get(topic string) (message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.messages[topic]
	return m, ok
}

func snapshot(withHeartRate bool) model.Snapshot {
	records := map[model.Kind]model.Record{
		model.KindRing: model.RingConfiguration{
			ID: "ring", Color: "stealth_black", Design: "balance",
			FirmwareVersion: "4.22.4", HardwareType: "gen4", SetUpAt: "2024-11-11", Size: 13,
		},
		model.KindDailyReadiness:         model.DailyReadiness{ID: "r", Day: "2024-11-12", Score: 82},
		model.KindDailyCardiovascularAge: model.DailyCardiovascularAge{Day: "2024-11-12", VascularAge: 34},
	}
	if withHeartRate {
		records[model.KindHeartRate] = model.HeartRate{BPM: 61, Source: "awake", Timestamp: "t"}
	}
	return model.NewSnapshot("c-1", time.Now(), records, nil)
}

func TestPublisher(t *testing.T) {
	convey.Convey("Given a publisher on a fake broker", t, func() {
		client := newFakeClient()
		pub := mqtt.NewPublisher(client, mqtt.WithTopicPrefix("oura"), mqtt.WithDiscoveryPrefix("homeassistant"))
		ctx := context.Background()

		convey.So(pub.Name(), convey.ShouldEqual, "mqtt")

		convey.Convey("When a snapshot is published", func() {
			convey.So(pub.Publish(ctx, snapshot(true)), convey.ShouldBeNil)

			convey.Convey("Then present sensors get state, attributes and online", func() {
				m, ok := client.get("oura/daily_readiness/state")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(m.payload, convey.ShouldEqual, "82")
				convey.So(m.retained, convey.ShouldBeTrue)

				m, _ = client.get("oura/heartrate/availability")
				convey.So(m.payload, convey.ShouldEqual, "online")

				m, _ = client.get("oura/heartrate/attributes")
				var attrs map[string]any
				convey.So(json.Unmarshal([]byte(m.payload), &attrs), convey.ShouldBeNil)
				convey.So(attrs["source"], convey.ShouldEqual, "awake")
				convey.So(attrs["attribution"], convey.ShouldEqual, "Data provided by Oura API")
			})

			convey.Convey("Then absent sensors are offline with no state", func() {
				m, _ := client.get("oura/daily_sleep/availability")
				convey.So(m.payload, convey.ShouldEqual, "offline")
				_, ok := client.get("oura/daily_sleep/state")
				convey.So(ok, convey.ShouldBeFalse)
			})

			convey.Convey("Then cardiovascular age is never published", func() {
				_, ok := client.get("oura/daily_cardiovascular_age/state")
				convey.So(ok, convey.ShouldBeFalse)
				_, ok = client.get("homeassistant/sensor/oura_ring/daily_cardiovascular_age/config")
				convey.So(ok, convey.ShouldBeFalse)
			})

			convey.Convey("Then discovery describes the ring", func() {
				m, ok := client.get("homeassistant/sensor/oura_ring/heartrate/config")
				convey.So(ok, convey.ShouldBeTrue)
				var cfg map[string]any
				convey.So(json.Unmarshal([]byte(m.payload), &cfg), convey.ShouldBeNil)
				convey.So(cfg["unique_id"], convey.ShouldEqual, "ring_heartrate")
				convey.So(cfg["state_topic"], convey.ShouldEqual, "oura/heartrate/state")
				convey.So(cfg["unit_of_measurement"], convey.ShouldEqual, "bpm")
				device := cfg["device"].(map[string]any)
				convey.So(device["model"], convey.ShouldEqual, "Stealth_black Balance Gen4 Ring")
				convey.So(device["manufacturer"], convey.ShouldEqual, "Oura")
			})

			convey.Convey("Then sensor availability also follows the bridge status", func() {
				m, _ := client.get("homeassistant/sensor/oura_ring/heartrate/config")
				var cfg map[string]any
				convey.So(json.Unmarshal([]byte(m.payload), &cfg), convey.ShouldBeNil)
				convey.So(cfg["availability_mode"], convey.ShouldEqual, "all")
				_, legacy := cfg["availability_topic"]
				convey.So(legacy, convey.ShouldBeFalse)

				avail := cfg["availability"].([]any)
				convey.So(avail, convey.ShouldHaveLength, 2)
				own := avail[0].(map[string]any)
				bridge := avail[1].(map[string]any)
				convey.So(own["topic"], convey.ShouldEqual, "oura/heartrate/availability")
				convey.So(bridge["topic"], convey.ShouldEqual, pub.StatusTopic())
				convey.So(bridge["value_template"], convey.ShouldEqual, "{{ value_json.state }}")
			})

			convey.Convey("Then the bridge status is fresh and online", func() {
				m, _ := client.get(pub.StatusTopic())
				var st map[string]any
				convey.So(json.Unmarshal([]byte(m.payload), &st), convey.ShouldBeNil)
				convey.So(st["stale"], convey.ShouldEqual, false)
				convey.So(st["state"], convey.ShouldEqual, "online")
			})

			convey.Convey("When the next snapshot has the same device", func() {
				convey.So(pub.Publish(ctx, snapshot(false)), convey.ShouldBeNil)

				convey.Convey("Then discovery is not resent and heart rate goes offline", func() {
					convey.So(client.count["homeassistant/sensor/oura_ring/heartrate/config"], convey.ShouldEqual, 1)
					m, _ := client.get("oura/heartrate/availability")
					convey.So(m.payload, convey.ShouldEqual, "offline")
				})
			})
		})

		convey.Convey("When a cycle fails", func() {
			convey.So(pub.Publish(ctx, snapshot(true)), convey.ShouldBeNil)
			convey.So(pub.MarkStale(ctx, "c-2", errors.New("invalid response")), convey.ShouldBeNil)

			convey.Convey("Then previous states stay and status is stale", func() {
				m, _ := client.get("oura/daily_readiness/state")
				convey.So(m.payload, convey.ShouldEqual, "82")
				m, _ = client.get(pub.StatusTopic())
				convey.So(m.payload, convey.ShouldContainSubstring, `"stale":true`)
				convey.So(m.payload, convey.ShouldContainSubstring, "invalid response")
			})
		})

		convey.Convey("When the bridge drops off the broker", func() {
			var will map[string]any
			convey.So(json.Unmarshal([]byte(mqtt.OfflineStatus()), &will), convey.ShouldBeNil)

			convey.Convey("Then the last will uses the status JSON shape", func() {
				convey.So(will["state"], convey.ShouldEqual, "offline")
				convey.So(will["stale"], convey.ShouldEqual, true)
				_, hasTime := will["published_at"]
				convey.So(hasTime, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the broker rejects publishes", func() {
			client.fail = errors.New("not connected")
			err := pub.Publish(ctx, snapshot(true))

			convey.So(errors.Is(err, mqtt.ErrPublish), convey.ShouldBeTrue)
		})
	})
}
