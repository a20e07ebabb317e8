package model

// Record is one validated item from an upstream resource.
type Record interface {
	Kind() Kind
}

// RingConfiguration describes the ring hardware.
type RingConfiguration struct {
	ID              string `json:"id"`
	Color           string `json:"color"`
	Design          string `json:"design"`
	FirmwareVersion string `json:"firmware_version"`
	HardwareType    string `json:"hardware_type"`
	SetUpAt         string `json:"set_up_at"`
	Size            int    `json:"size"`
}

// ReadinessContributors are the readiness sub-scores.
type ReadinessContributors struct {
	ActivityBalance     int `json:"activity_balance"`
	BodyTemperature     int `json:"body_temperature"`
	HRVBalance          int `json:"hrv_balance"`
	PreviousDayActivity int `json:"previous_day_activity"`
	PreviousNight       int `json:"previous_night"`
	RecoveryIndex       int `json:"recovery_index"`
	RestingHeartRate    int `json:"resting_heart_rate"`
	SleepBalance        int `json:"sleep_balance"`
}

// DailyReadiness is one day's readiness summary.
type DailyReadiness struct {
	ID                        string                `json:"id"`
	Day                       string                `json:"day"`
	Score                     int                   `json:"score"`
	TemperatureDeviation      float64               `json:"temperature_deviation"`
	TemperatureTrendDeviation float64               `json:"temperature_trend_deviation"`
	Timestamp                 string                `json:"timestamp"`
	Contributors              ReadinessContributors `json:"contributors"`
}

// ResilienceContributors are the resilience sub-scores.
type ResilienceContributors struct {
	SleepRecovery   float64 `json:"sleep_recovery"`
	DaytimeRecovery float64 `json:"daytime_recovery"`
	Stress          float64 `json:"stress"`
}

// DailyResilience is one day's resilience level.
type DailyResilience struct {
	ID           string                 `json:"id"`
	Day          string                 `json:"day"`
	Level        string                 `json:"level"`
	Contributors ResilienceContributors `json:"contributors"`
}

// SleepContributors are the sleep sub-scores.
type SleepContributors struct {
	DeepSleep   int `json:"deep_sleep"`
	Efficiency  int `json:"efficiency"`
	Latency     int `json:"latency"`
	REMSleep    int `json:"rem_sleep"`
	Restfulness int `json:"restfulness"`
	Timing      int `json:"timing"`
	TotalSleep  int `json:"total_sleep"`
}

// DailySleep is one day's sleep score.
type DailySleep struct {
	ID           string            `json:"id"`
	Day          string            `json:"day"`
	Score        int               `json:"score"`
	Timestamp    string            `json:"timestamp"`
	Contributors SleepContributors `json:"contributors"`
}

// DailyStress is one day's stress summary. DaySummary may be null upstream.
type DailyStress struct {
	ID           string  `json:"id"`
	StressHigh   int     `json:"stress_high"`
	RecoveryHigh int     `json:"recovery_high"`
	Day          string  `json:"day"`
	DaySummary   *string `json:"day_summary"`
}

// HeartRate is a single heart-rate sample.
type HeartRate struct {
	BPM       int    `json:"bpm"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// DailyCardiovascularAge is one day's vascular age estimate.
type DailyCardiovascularAge struct {
	Day         string `json:"day"`
	VascularAge int    `json:"vascular_age"`
}

// PersonalInfo is the account profile.
type PersonalInfo struct {
	ID            string  `json:"id"`
	Age           int     `json:"age"`
	Weight        float64 `json:"weight"`
	Height        float64 `json:"height"`
	BiologicalSex string  `json:"biological_sex"`
}

// ActivityContributors are the activity sub-scores.
type ActivityContributors struct {
	MeetDailyTargets  int `json:"meet_daily_targets"`
	MoveEveryHour     int `json:"move_every_hour"`
	RecoveryTime      int `json:"recovery_time"`
	StayActive        int `json:"stay_active"`
	TrainingFrequency int `json:"training_frequency"`
	TrainingVolume    int `json:"training_volume"`
}

// DailyActivity is one day's activity summary.
type DailyActivity struct {
	ID                        string               `json:"id"`
	Score                     int                  `json:"score"`
	ActiveCalories            int                  `json:"active_calories"`
	AverageMETMinutes         float64              `json:"average_met_minutes"`
	Contributors              ActivityContributors `json:"contributors"`
	EquivalentWalkingDistance int                  `json:"equivalent_walking_distance"`
	HighActivityMETMinutes    int                  `json:"high_activity_met_minutes"`
	HighActivityTime          int                  `json:"high_activity_time"`
	InactivityAlerts          int                  `json:"inactivity_alerts"`
	LowActivityMETMinutes     int                  `json:"low_activity_met_minutes"`
	LowActivityTime           int                  `json:"low_activity_time"`
	MediumActivityMETMinutes  int                  `json:"medium_activity_met_minutes"`
	MediumActivityTime        int                  `json:"medium_activity_time"`
	MetersToTarget            int                  `json:"meters_to_target"`
	NonWearTime               int                  `json:"non_wear_time"`
	RestingTime               int                  `json:"resting_time"`
	SedentaryMETMinutes       int                  `json:"sedentary_met_minutes"`
	SedentaryTime             int                  `json:"sedentary_time"`
	Steps                     int                  `json:"steps"`
	TargetCalories            int                  `json:"target_calories"`
	TargetMeters              int                  `json:"target_meters"`
	TotalCalories             int                  `json:"total_calories"`
	Day                       string               `json:"day"`
	Timestamp                 string               `json:"timestamp"`
}

func (RingConfiguration) Kind() Kind      { return KindRing }
func (DailyReadiness) Kind() Kind         { return KindDailyReadiness }
func (DailyResilience) Kind() Kind        { return KindDailyResilience }
func (DailySleep) Kind() Kind             { return KindDailySleep }
func (DailyStress) Kind() Kind            { return KindDailyStress }
func (HeartRate) Kind() Kind              { return KindHeartRate }
func (DailyCardiovascularAge) Kind() Kind { return KindDailyCardiovascularAge }
func (PersonalInfo) Kind() Kind           { return KindPersonalInfo }
func (DailyActivity) Kind() Kind          { return KindDailyActivity }

// PlaceholderRing is the ring descriptor used when the ring endpoint is not fetched.
func PlaceholderRing() RingConfiguration {
	return RingConfiguration{
		ID:              "ring",
		Color:           "stealth_black",
		Design:          "balance",
		FirmwareVersion: "4.22.4",
		HardwareType:    "gen4",
		SetUpAt:         "2024-11-11",
		Size:            13,
	}
}
