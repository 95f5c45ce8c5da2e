package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

func day(s string) time.Time {
	t, _ := time.Parse(SummaryDateLayout, s)
	return t
}

func TestFormatRecord(t *testing.T) {
	r := models.BiometricRecord{
		Date:          day("2025-07-01"),
		ParticipantID: "u1",
		Metrics: []models.Metric{
			{Name: models.MetricTotalSleepSeconds, Value: int64(25200)},
			{Name: models.MetricSleepHRAverage, Value: 54.5},
			{Name: models.MetricSteps, Value: nil},
		},
	}

	assert.Equal(t, "date=2025-07-01 participant=u1 total_sleep_seconds=25200 sleep_hr_average=54.5 steps=null", FormatRecord(r))
}

func TestFormatRecord_QuotesUnsafeParticipant(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"user 7", `participant="user 7"`},
		{"u1\nsteps=99999", `participant="u1\nsteps=99999"`},
		{`a"b`, `participant="a\"b"`},
		{"a=b", `participant="a=b"`},
		{"user-7_x@site", "participant=user-7_x@site"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			r := models.BiometricRecord{Date: day("2025-07-01"), ParticipantID: tt.id}

			line := FormatRecord(r)

			assert.Equal(t, "date=2025-07-01 "+tt.want, line)
			assert.NotContains(t, line, "\n", "record stays on one line")
		})
	}
}

func TestFormatRecords_OneLinePerRecordWithUnsafeIDs(t *testing.T) {
	records := []models.BiometricRecord{
		{Date: day("2025-07-01"), ParticipantID: "a\nb"},
		{Date: day("2025-07-02"), ParticipantID: "c d"},
	}

	lines := strings.Split(strings.TrimSuffix(FormatRecords(records), "\n"), "\n")

	assert.Len(t, lines, 2)
}

func TestFormatRecord_NoParticipant(t *testing.T) {
	r := models.BiometricRecord{
		Date:    day("2025-07-01"),
		Metrics: []models.Metric{{Name: models.MetricSteps, Value: int64(8000)}},
	}

	assert.Equal(t, "date=2025-07-01 steps=8000", FormatRecord(r))
}

func TestFormatRecords_OneLinePerRecordInOrder(t *testing.T) {
	records := []models.BiometricRecord{
		{Date: day("2025-07-02"), ParticipantID: "u2", Metrics: []models.Metric{{Name: models.MetricSteps, Value: int64(1)}}},
		{Date: day("2025-07-01"), ParticipantID: "u1", Metrics: []models.Metric{{Name: models.MetricSteps, Value: int64(2)}}},
		{Date: day("2025-07-03"), ParticipantID: "u1", Metrics: []models.Metric{{Name: models.MetricSteps, Value: int64(3)}}},
	}

	out := FormatRecords(records)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	require.Len(t, lines, len(records))
	for i, r := range records {
		assert.Equal(t, FormatRecord(r), lines[i], "line %d must match record %d", i, i)
	}
	assert.Equal(t, out, FormatRecords(records), "serialization must be deterministic")
}

func TestBuildSystemMessage_SingleParticipant(t *testing.T) {
	msg := BuildSystemMessage("u1")

	for _, m := range metricDescriptions {
		assert.Contains(t, msg, m.name)
	}
	for _, f := range models.AdviceTextFields {
		assert.Contains(t, msg, f)
	}
	assert.Contains(t, msg, `The `+"`id`"+` field MUST be exactly "u1"`)
	assert.Contains(t, msg, "stale")
	assert.Contains(t, msg, "must start with `{` or `[`")
	assert.Contains(t, msg, "single JSON object")
}

func TestBuildSystemMessage_AllParticipants(t *testing.T) {
	msg := BuildSystemMessage("")

	assert.Contains(t, msg, "JSON array")
	assert.NotContains(t, msg, "MUST be exactly")
}

func TestBuildUserMessage(t *testing.T) {
	records := []models.BiometricRecord{
		{Date: day("2025-07-01"), ParticipantID: "u1", Metrics: []models.Metric{
			{Name: models.MetricSteps, Value: int64(8000)},
			{Name: models.MetricTotalSleepSeconds, Value: int64(25200)},
		}},
	}

	msg := BuildUserMessage(records)

	assert.Contains(t, msg, "400 to 600 characters")
	assert.Contains(t, msg, "not a medical or fitness professional")
	assert.True(t, strings.HasSuffix(msg, "date=2025-07-01 participant=u1 steps=8000 total_sleep_seconds=25200\n"))
}

func TestBuildUserMessage_Empty(t *testing.T) {
	msg := BuildUserMessage(nil)

	assert.Contains(t, msg, "no records")
}

func TestBuildAdvicePrompt(t *testing.T) {
	p := BuildAdvicePrompt(nil, "u9")

	assert.Equal(t, BuildSystemMessage("u9"), p.System)
	assert.Equal(t, BuildUserMessage(nil), p.User)
}
