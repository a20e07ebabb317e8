// Package model contains the typed Oura records and the per-cycle snapshot
// passed between the fetcher, the orchestrator and the publishers.
package model

import (
	"fmt"
	"sort"
)

// Kind tags a record with the upstream resource it came from.
// Its String form is the stable metric name used as the snapshot key.
type Kind int

const (
	KindUnknown Kind = iota
	KindRing
	KindDailyReadiness
	KindDailyResilience
	KindDailySleep
	KindDailyStress
	KindHeartRate
	KindDailyCardiovascularAge
	KindPersonalInfo
	KindDailyActivity
)

// Window selects which query window a resource is fetched with.
type Window int

const (
	// WindowNone sends no query parameters.
	WindowNone Window = iota
	// WindowDate sends start_date=yesterday&end_date=tomorrow.
	WindowDate
	// WindowDateTime sends start_datetime=today&end_datetime=tomorrow.
	WindowDateTime
)

type kindInfo struct {
	name      string
	path      string
	window    Window
	singleton bool
}

var kinds = map[Kind]kindInfo{
	KindRing:                   {name: "ring", path: "ring_configuration", window: WindowNone},
	KindDailyReadiness:         {name: "daily_readiness", path: "daily_readiness", window: WindowDate},
	KindDailyResilience:        {name: "daily_resilience", path: "daily_resilience", window: WindowDate},
	KindDailySleep:             {name: "daily_sleep", path: "daily_sleep", window: WindowDate},
	KindDailyStress:            {name: "daily_stress", path: "daily_stress", window: WindowDate},
	KindHeartRate:              {name: "heartrate", path: "heartrate", window: WindowDateTime},
	KindDailyCardiovascularAge: {name: "daily_cardiovascular_age", path: "daily_cardiovascular_age", window: WindowDate},
	KindPersonalInfo:           {name: "personal_info", path: "personal_info", window: WindowNone, singleton: true},
	KindDailyActivity:          {name: "daily_activity", path: "daily_activity", window: WindowDate},
}

// Kinds lists every known resource in fetch order.
func Kinds() []Kind {
	return []Kind{
		KindRing,
		KindDailyReadiness,
		KindDailyResilience,
		KindDailySleep,
		KindDailyStress,
		KindHeartRate,
		KindDailyCardiovascularAge,
		KindPersonalInfo,
		KindDailyActivity,
	}
}

// String returns the metric name, e.g. "daily_readiness".
func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Path returns the upstream resource path relative to the API host.
func (k Kind) Path() string { return kinds[k].path }

// Window returns the query window used when fetching k.
func (k Kind) Window() Window { return kinds[k].window }

// Singleton reports whether the resource returns a bare object instead of a data envelope.
func (k Kind) Singleton() bool { return kinds[k].singleton }

// Valid reports whether k is a known resource.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// MarshalText lets Kind be used as a JSON object key.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses a metric name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown metric %q", string(b))
	}
	*k = parsed
	return nil
}

// ParseKind resolves a metric name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, info := range kinds {
		if info.name == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// MetricNames returns the sorted metric names of ks.
func MetricNames(ks []Kind) []string {
	names := make([]string, 0, len(ks))
	for _, k := range ks {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return names
}
