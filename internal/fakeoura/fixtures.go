// Package fakeoura serves canned Oura v2 usercollection responses for tests
// and local development.
package fakeoura

import (
	"encoding/json"

	"github.com/okian/ourabridge/internal/domain/model"
)

var fixtures = map[model.Kind]string{
	model.KindRing: `{
		"id": "ring-8f2c",
		"color": "brushed_silver",
		"design": "heritage",
		"firmware_version": "2.9.20",
		"hardware_type": "gen3",
		"set_up_at": "2023-02-14T09:12:00+00:00",
		"size": 9
	}`,
	model.KindDailyReadiness: `{
		"id": "readiness-1",
		"day": "2024-11-12",
		"score": 82,
		"temperature_deviation": -0.12,
		"temperature_trend_deviation": 0.05,
		"timestamp": "2024-11-12T00:00:00+00:00",
		"contributors": {
			"activity_balance": 78,
			"body_temperature": 98,
			"hrv_balance": 71,
			"previous_day_activity": 85,
			"previous_night": 80,
			"recovery_index": 67,
			"resting_heart_rate": 93,
			"sleep_balance": 84
		}
	}`,
	model.KindDailyResilience: `{
		"id": "resilience-1",
		"day": "2024-11-12",
		"level": "solid",
		"contributors": {
			"sleep_recovery": 71.3,
			"daytime_recovery": 32.4,
			"stress": 52.9
		}
	}`,
	model.KindDailySleep: `{
		"id": "sleep-1",
		"day": "2024-11-12",
		"score": 76,
		"timestamp": "2024-11-12T00:00:00+00:00",
		"contributors": {
			"deep_sleep": 92,
			"efficiency": 88,
			"latency": 75,
			"rem_sleep": 64,
			"restfulness": 70,
			"timing": 94,
			"total_sleep": 72
		}
	}`,
	model.KindDailyStress: `{
		"id": "stress-1",
		"stress_high": 5400,
		"recovery_high": 2700,
		"day": "2024-11-12",
		"day_summary": "normal"
	}`,
	model.KindHeartRate: `{
		"bpm": 61,
		"source": "awake",
		"timestamp": "2024-11-12T08:15:00+00:00"
	}`,
	model.KindDailyCardiovascularAge: `{
		"day": "2024-11-12",
		"vascular_age": 34
	}`,
	model.KindPersonalInfo: `{
		"id": "user-1",
		"age": 36,
		"weight": 72.5,
		"height": 1.78,
		"biological_sex": "female",
		"email": "someone@example.com"
	}`,
	model.KindDailyActivity: `{
		"id": "activity-1",
		"score": 88,
		"active_calories": 512,
		"average_met_minutes": 1.59375,
		"contributors": {
			"meet_daily_targets": 60,
			"move_every_hour": 100,
			"recovery_time": 100,
			"stay_active": 82,
			"training_frequency": 71,
			"training_volume": 96
		},
		"equivalent_walking_distance": 9120,
		"high_activity_met_minutes": 12,
		"high_activity_time": 180,
		"inactivity_alerts": 1,
		"low_activity_met_minutes": 210,
		"low_activity_time": 15840,
		"medium_activity_met_minutes": 150,
		"medium_activity_time": 2760,
		"meters_to_target": 1800,
		"non_wear_time": 600,
		"resting_time": 25200,
		"sedentary_met_minutes": 12,
		"sedentary_time": 31500,
		"steps": 10342,
		"target_calories": 450,
		"target_meters": 9000,
		"total_calories": 2650,
		"day": "2024-11-12",
		"timestamp": "2024-11-12T04:00:00+00:00"
	}`,
}

// Fixture returns the canned item for kind, or nil for unknown kinds.
// The returned slice is a fresh copy.
func Fixture(kind model.Kind) json.RawMessage {
	s, ok := fixtures[kind]
	if !ok {
		return nil
	}
	return json.RawMessage(s)
}

// Envelope wraps items in the list response shape {"data": [...]}.
func Envelope(items ...json.RawMessage) []byte {
	if items == nil {
		items = []json.RawMessage{}
	}
	b, _ := json.Marshal(struct {
		Data []json.RawMessage `json:"data"`
		Next *string           `json:"next_token"`
	}{Data: items})
	return b
}

// Body returns the default successful body for kind: an envelope with one
// item for list resources, the bare object for singletons.
func Body(kind model.Kind) []byte {
	if kind.Singleton() {
		return []byte(Fixture(kind))
	}
	return Envelope(Fixture(kind))
}

// Without returns a copy of the fixture for kind with the named top-level
// field removed.
func Without(kind model.Kind, field string) json.RawMessage {
	var obj map[string]json.RawMessage
	_ = json.Unmarshal(Fixture(kind), &obj)
	delete(obj, field)
	b, _ := json.Marshal(obj)
	return b
}
