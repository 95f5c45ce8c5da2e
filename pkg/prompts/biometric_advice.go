// Package prompts builds the fixed advice prompt sent to the chat-completion provider.
package prompts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// SummaryDateLayout is the date format used in serialized records.
const SummaryDateLayout = "2006-01-02"

// metricDescriptions gives the model the meaning and unit of every metric column.
var metricDescriptions = []struct {
	name string
	desc string
}{
	{models.MetricTotalSleepSeconds, "total time asleep during the main sleep period, in seconds"},
	{models.MetricDeepSleepSeconds, "time in deep (slow-wave) sleep, in seconds"},
	{models.MetricLightSleepSeconds, "time in light sleep, in seconds"},
	{models.MetricREMSleepSeconds, "time in REM sleep, in seconds"},
	{models.MetricAwakeSeconds, "time awake after first falling asleep, in seconds"},
	{models.MetricSleepHRAverage, "average heart rate while asleep, in beats per minute"},
	{models.MetricSleepHRLowest, "lowest heart rate while asleep, in beats per minute"},
	{models.MetricSteps, "step count for the day"},
	{models.MetricHighActivityMinutes, "minutes of high-intensity activity"},
	{models.MetricMediumActivityMinutes, "minutes of medium-intensity activity"},
	{models.MetricLowActivityMinutes, "minutes of low-intensity activity"},
	{models.MetricCaloriesTotal, "total calories burned for the day, in kcal"},
	{models.MetricNonWearSeconds, "time the device was not worn, in seconds"},
}

// AdvicePrompt is the system and user message pair for one advice request.
type AdvicePrompt struct {
	System string
	User   string
}

// BuildAdvicePrompt creates the prompt for one request. participantID is the
// requested participant, or empty when advice is wanted for every participant
// present in records.
func BuildAdvicePrompt(records []models.BiometricRecord, participantID string) AdvicePrompt {
	return AdvicePrompt{
		System: BuildSystemMessage(participantID),
		User:   BuildUserMessage(records),
	}
}

// BuildSystemMessage describes the metrics and fixes the JSON-only reply contract.
func BuildSystemMessage(participantID string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a sleep and activity coach reviewing daily summaries from a wrist-worn wearable.\n\n")

	prompt.WriteString("## Metrics\n\n")
	prompt.WriteString("Each record line has `date` (YYYY-MM-DD), `participant` (opaque id) and these metrics:\n")
	for _, m := range metricDescriptions {
		prompt.WriteString(fmt.Sprintf("- %s: %s\n", m.name, m.desc))
	}
	prompt.WriteString("\n")

	prompt.WriteString("## Data Quality\n\n")
	prompt.WriteString("The data has gaps. A value of `null` means the device reported nothing for that metric on that day.\n")
	prompt.WriteString("The same value repeated over several days may be stale data rather than a real pattern.\n")
	prompt.WriteString("Do not over-interpret missing or repeated values, and say so when a conclusion rests on little data.\n\n")

	prompt.WriteString("## Response Format\n\n")
	if participantID != "" {
		prompt.WriteString("Respond with a single JSON object:\n")
		prompt.WriteString("```json\n")
		prompt.WriteString(adviceObjectExample(participantID))
		prompt.WriteString("\n```\n\n")
		prompt.WriteString(fmt.Sprintf("The `id` field MUST be exactly %q.\n", participantID))
	} else {
		prompt.WriteString("Respond with a JSON array containing one object per participant found in the records:\n")
		prompt.WriteString("```json\n[\n")
		prompt.WriteString(adviceObjectExample("<participant id>"))
		prompt.WriteString("\n]\n```\n\n")
		prompt.WriteString("Each `id` MUST be the participant id exactly as it appears in the records.\n")
	}
	prompt.WriteString("Use only these field names. Every value is a plain string.\n")
	prompt.WriteString("Your response must start with `{` or `[` and contain nothing else: no markdown fences, no commentary.\n")

	return prompt.String()
}

func adviceObjectExample(id string) string {
	return fmt.Sprintf(`{
  %q: %q,
  %q: "...",
  %q: "...",
  %q: "...",
  %q: "..."
}`, models.AdviceFieldID, id,
		models.AdviceFieldSleepAnalysis,
		models.AdviceFieldActivityAnalysis,
		models.AdviceFieldRecommendations,
		models.AdviceFieldOverallAssessment)
}

// BuildUserMessage frames the request for a lay reader and appends the serialized records.
func BuildUserMessage(records []models.BiometricRecord) string {
	var prompt strings.Builder

	prompt.WriteString("Write health advice for the participant, who is not a medical or fitness professional.\n")
	prompt.WriteString("Use plain language and explain what each number means in everyday terms.\n")
	prompt.WriteString("Write roughly 400 to 600 characters for each field.\n")
	prompt.WriteString("Where it helps, compare against typical adult ranges and against the participant's own earlier days.\n\n")

	prompt.WriteString("## Records\n\n")
	if len(records) == 0 {
		prompt.WriteString("(no records in the requested window)\n")
		return prompt.String()
	}
	prompt.WriteString(FormatRecords(records))

	return prompt.String()
}

// FormatRecords serializes records one per line, in the given order.
// Keys are date, participant, then metrics in select order.
func FormatRecords(records []models.BiometricRecord) string {
	var out strings.Builder
	for _, r := range records {
		out.WriteString(FormatRecord(r))
		out.WriteString("\n")
	}
	return out.String()
}

// FormatRecord flattens one record to space-separated key=value pairs.
func FormatRecord(r models.BiometricRecord) string {
	parts := make([]string, 0, len(r.Metrics)+2)
	parts = append(parts, "date="+formatDate(r.Date))
	if r.ParticipantID != "" {
		parts = append(parts, "participant="+formatParticipant(r.ParticipantID))
	}
	for _, m := range r.Metrics {
		parts = append(parts, m.Name+"="+formatValue(m.Value))
	}
	return strings.Join(parts, " ")
}

// formatParticipant quotes ids that would otherwise split the line or a pair.
func formatParticipant(id string) string {
	needsQuote := strings.ContainsFunc(id, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r) || r == '"' || r == '='
	})
	if needsQuote {
		return strconv.Quote(id)
	}
	return id
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "null"
	}
	return t.Format(SummaryDateLayout)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return formatDate(val)
	default:
		return fmt.Sprint(val)
	}
}
