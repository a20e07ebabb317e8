// Package sensor maps snapshot records to the published sensor set.
package sensor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/okian/ourabridge/internal/domain/model"
)

// Attribution is attached to every published state.
const Attribution = "Data provided by Oura API"

// StateClassMeasurement marks numeric sensors with a continuous value.
const StateClassMeasurement = "measurement"

// Sensor describes one published value derived from a record kind.
type Sensor struct {
	Key        string
	Name       string
	Kind       model.Kind
	Unit       string
	Icon       string
	StateClass string
	Value      func(model.Record) any
	Attributes func(model.Record) map[string]any
}

// State is a sensor evaluated against a snapshot.
type State struct {
	Key        string         `json:"key"`
	Name       string         `json:"name"`
	Metric     string         `json:"metric"`
	Available  bool           `json:"available"`
	Value      any            `json:"value"`
	Unit       string         `json:"unit,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Numeric returns the state value as a float when it is a number.
func (s State) Numeric() (float64, bool) {
	switch v := s.Value.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// All returns the sensor table. Cardiovascular age is fetched but not published.
func All() []Sensor {
	return []Sensor{
		{
			Key:        "daily_readiness",
			Name:       "Readiness score",
			Kind:       model.KindDailyReadiness,
			Icon:       "mdi:battery-heart-variant",
			StateClass: StateClassMeasurement,
			Value: func(r model.Record) any {
				if v, ok := r.(model.DailyReadiness); ok {
					return v.Score
				}
				return nil
			},
			Attributes: func(r model.Record) map[string]any {
				v, ok := r.(model.DailyReadiness)
				if !ok {
					return nil
				}
				c := v.Contributors
				return map[string]any{
					"day":                         v.Day,
					"temperature_deviation":       v.TemperatureDeviation,
					"temperature_trend_deviation": v.TemperatureTrendDeviation,
					"activity_balance":            c.ActivityBalance,
					"body_temperature":            c.BodyTemperature,
					"hrv_balance":                 c.HRVBalance,
					"previous_day_activity":       c.PreviousDayActivity,
					"previous_night":              c.PreviousNight,
					"recovery_index":              c.RecoveryIndex,
					"resting_heart_rate":          c.RestingHeartRate,
					"sleep_balance":               c.SleepBalance,
				}
			},
		},
		{
			Key:  "daily_resilience",
			Name: "Resilience level",
			Kind: model.KindDailyResilience,
			Icon: "mdi:shield-sun",
			Value: func(r model.Record) any {
				if v, ok := r.(model.DailyResilience); ok {
					return v.Level
				}
				return nil
			},
			Attributes: func(r model.Record) map[string]any {
				v, ok := r.(model.DailyResilience)
				if !ok {
					return nil
				}
				return map[string]any{
					"day":              v.Day,
					"sleep_recovery":   v.Contributors.SleepRecovery,
					"daytime_recovery": v.Contributors.DaytimeRecovery,
					"stress":           v.Contributors.Stress,
				}
			},
		},
		{
			Key:        "daily_sleep",
			Name:       "Sleep score",
			Kind:       model.KindDailySleep,
			Icon:       "mdi:sleep",
			StateClass: StateClassMeasurement,
			Value: func(r model.Record) any {
				if v, ok := r.(model.DailySleep); ok {
					return v.Score
				}
				return nil
			},
			Attributes: func(r model.Record) map[string]any {
				v, ok := r.(model.DailySleep)
				if !ok {
					return nil
				}
				c := v.Contributors
				return map[string]any{
					"day":         v.Day,
					"deep_sleep":  c.DeepSleep,
					"efficiency":  c.Efficiency,
					"latency":     c.Latency,
					"rem_sleep":   c.REMSleep,
					"restfulness": c.Restfulness,
					"timing":      c.Timing,
					"total_sleep": c.TotalSleep,
				}
			},
		},
		{
			Key:        "daily_stress",
			Name:       "Stress high",
			Kind:       model.KindDailyStress,
			Unit:       "s",
			Icon:       "mdi:head-flash",
			StateClass: StateClassMeasurement,
			Value: func(r model.Record) any {
				if v, ok := r.(model.DailyStress); ok {
					return v.StressHigh
				}
				return nil
			},
			Attributes: func(r model.Record) map[string]any {
				v, ok := r.(model.DailyStress)
				if !ok {
					return nil
				}
				attrs := map[string]any{
					"day":           v.Day,
					"recovery_high": v.RecoveryHigh,
					"day_summary":   nil,
				}
				if v.DaySummary != nil {
					attrs["day_summary"] = *v.DaySummary
				}
				return attrs
			},
		},
		{
			Key:        "heartrate",
			Name:       "Heart rate",
			Kind:       model.KindHeartRate,
			Unit:       "bpm",
			Icon:       "mdi:heart-pulse",
			StateClass: StateClassMeasurement,
			Value: func(r model.Record) any {
				if v, ok := r.(model.HeartRate); ok {
					return v.BPM
				}
				return nil
			},
			Attributes: func(r model.Record) map[string]any {
				v, ok := r.(model.HeartRate)
				if !ok {
					return nil
				}
				return map[string]any{
					"source":    v.Source,
					"timestamp": v.Timestamp,
				}
			},
		},
		{
			Key:        "daily_activity",
			Name:       "Activity score",
			Kind:       model.KindDailyActivity,
			Icon:       "mdi:run",
			StateClass: StateClassMeasurement,
			Value: func(r model.Record) any {
				if v, ok := r.(model.DailyActivity); ok {
					return v.Score
				}
				return nil
			},
			Attributes: func(r model.Record) map[string]any {
				v, ok := r.(model.DailyActivity)
				if !ok {
					return nil
				}
				c := v.Contributors
				return map[string]any{
					"day":                v.Day,
					"steps":              v.Steps,
					"active_calories":    v.ActiveCalories,
					"total_calories":     v.TotalCalories,
					"meters_to_target":   v.MetersToTarget,
					"inactivity_alerts":  v.InactivityAlerts,
					"meet_daily_targets": c.MeetDailyTargets,
					"move_every_hour":    c.MoveEveryHour,
					"recovery_time":      c.RecoveryTime,
					"stay_active":        c.StayActive,
					"training_frequency": c.TrainingFrequency,
					"training_volume":    c.TrainingVolume,
				}
			},
		},
	}
}

// Lookup finds a sensor by key.
func Lookup(key string) (Sensor, bool) {
	for _, s := range All() {
		if s.Key == key {
			return s, true
		}
	}
	return Sensor{}, false
}

// Evaluate computes the state of one sensor. A sensor is available only
// when its metric is present in the snapshot.
func (s Sensor) Evaluate(snap model.Snapshot) State {
	st := State{
		Key:    s.Key,
		Name:   s.Name,
		Metric: s.Kind.String(),
		Unit:   s.Unit,
	}
	rec, ok := snap.Get(s.Kind)
	if !ok {
		return st
	}
	st.Value = s.Value(rec)
	if st.Value == nil {
		return st
	}
	st.Available = true
	st.Attributes = map[string]any{"attribution": Attribution}
	if s.Attributes != nil {
		for k, v := range s.Attributes(rec) {
			st.Attributes[k] = v
		}
	}
	return st
}

// States evaluates every sensor against snap, in table order.
func States(snap model.Snapshot) []State {
	sensors := All()
	out := make([]State, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, s.Evaluate(snap))
	}
	return out
}

// Device identifies the ring the sensors belong to.
type Device struct {
	Identifier      string `json:"identifier"`
	Name            string `json:"name"`
	Manufacturer    string `json:"manufacturer"`
	Model           string `json:"model"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
}

// DeviceFor builds the device descriptor from the snapshot's ring record.
func DeviceFor(snap model.Snapshot, name string) Device {
	d := Device{
		Identifier:   "ring",
		Name:         name,
		Manufacturer: "Oura",
		Model:        "Ring",
	}
	ring, ok := snap.Ring()
	if !ok {
		return d
	}
	d.Identifier = ring.ID
	d.FirmwareVersion = ring.FirmwareVersion
	d.Model = strings.Join([]string{
		capitalize(ring.Color),
		capitalize(ring.Design),
		capitalize(ring.HardwareType),
		"Ring",
	}, " ")
	return d
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
