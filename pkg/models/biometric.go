package models

import "time"

// Metric column names shared by the warehouse adapters and the prompt builder.
const (
	MetricTotalSleepSeconds     = "total_sleep_seconds"
	MetricDeepSleepSeconds      = "deep_sleep_seconds"
	MetricLightSleepSeconds     = "light_sleep_seconds"
	MetricREMSleepSeconds       = "rem_sleep_seconds"
	MetricAwakeSeconds          = "awake_seconds"
	MetricSleepHRAverage        = "sleep_hr_average"
	MetricSleepHRLowest         = "sleep_hr_lowest"
	MetricSteps                 = "steps"
	MetricHighActivityMinutes   = "high_activity_minutes"
	MetricMediumActivityMinutes = "medium_activity_minutes"
	MetricLowActivityMinutes    = "low_activity_minutes"
	MetricCaloriesTotal         = "calories_total"
	MetricNonWearSeconds        = "non_wear_seconds"
)

// SleepMetricColumns are selected from the sleep table, in this order.
var SleepMetricColumns = []string{
	MetricTotalSleepSeconds,
	MetricDeepSleepSeconds,
	MetricLightSleepSeconds,
	MetricREMSleepSeconds,
	MetricAwakeSeconds,
	MetricSleepHRAverage,
	MetricSleepHRLowest,
}

// ActivityMetricColumns are selected from the activity table, in this order.
var ActivityMetricColumns = []string{
	MetricSteps,
	MetricHighActivityMinutes,
	MetricMediumActivityMinutes,
	MetricLowActivityMinutes,
	MetricCaloriesTotal,
	MetricNonWearSeconds,
}

// Metric is a single named value of a biometric record.
// Value is nil when the wearable reported no data for that day.
type Metric struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// BiometricRecord is one (participant, date) row of joined sleep and activity data.
type BiometricRecord struct {
	Date time.Time `json:"date"`
	// ParticipantID is empty when the query ran without returning the participant column.
	ParticipantID string   `json:"participant_uid,omitempty"`
	Metrics       []Metric `json:"metrics"`
}

// Metric returns the value for name and whether the column was present.
func (r BiometricRecord) Metric(name string) (any, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// ParticipantIDs returns the distinct non-empty participant ids in fetch order.
func ParticipantIDs(records []BiometricRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range records {
		if r.ParticipantID == "" || seen[r.ParticipantID] {
			continue
		}
		seen[r.ParticipantID] = true
		ids = append(ids, r.ParticipantID)
	}
	return ids
}
