package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/ekaya-inc/biometric-advisor/pkg/jsonutil"
)

// Field names of the advice object the model is instructed to produce.
const (
	AdviceFieldID                = "id"
	AdviceFieldSleepAnalysis     = "sleep_analysis"
	AdviceFieldActivityAnalysis  = "activity_analysis"
	AdviceFieldRecommendations   = "recommendations"
	AdviceFieldOverallAssessment = "overall_assessment"
)

// AdviceTextFields lists the four free-text analysis fields in output order.
var AdviceTextFields = []string{
	AdviceFieldSleepAnalysis,
	AdviceFieldActivityAnalysis,
	AdviceFieldRecommendations,
	AdviceFieldOverallAssessment,
}

// ErrUnexpectedShape is returned when a reply is valid JSON but neither an object nor an array.
var ErrUnexpectedShape = errors.New("reply is neither a JSON object nor a JSON array")

// AdviceResult is one advice entry of a model reply.
// Fields are extracted best-effort; an entry that is not a JSON object has IsObject false.
type AdviceResult struct {
	ID                string
	SleepAnalysis     string
	ActivityAnalysis  string
	Recommendations   string
	OverallAssessment string

	IsObject bool
	Raw      json.RawMessage
}

// ReplyShape tags an AdviceReply.
type ReplyShape int

const (
	ReplySingle ReplyShape = iota + 1
	ReplyMany
)

func (s ReplyShape) String() string {
	switch s {
	case ReplySingle:
		return "single"
	case ReplyMany:
		return "many"
	default:
		return "unknown"
	}
}

// AdviceReply is the parsed model output: Single (one object) or Many (an array).
// It marshals back to exactly the JSON the model produced.
type AdviceReply struct {
	Shape   ReplyShape
	Results []AdviceResult
	raw     json.RawMessage
}

// DecodeAdviceReply parses data as either an advice object or an array of entries.
// Syntax errors are returned as-is; other valid JSON yields ErrUnexpectedShape.
func DecodeAdviceReply(data []byte) (*AdviceReply, error) {
	trimmed := bytes.TrimSpace(data)
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}

	switch trimmed[0] {
	case '{':
		return &AdviceReply{
			Shape:   ReplySingle,
			Results: []AdviceResult{decodeAdviceResult(trimmed)},
			raw:     trimmed,
		}, nil
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, err
		}
		results := make([]AdviceResult, 0, len(elems))
		for _, elem := range elems {
			results = append(results, decodeAdviceResult(elem))
		}
		return &AdviceReply{Shape: ReplyMany, Results: results, raw: trimmed}, nil
	default:
		return nil, ErrUnexpectedShape
	}
}

func decodeAdviceResult(raw json.RawMessage) AdviceResult {
	result := AdviceResult{Raw: raw}

	fields, ok := jsonutil.ObjectFields(raw)
	if !ok {
		return result
	}

	result.IsObject = true
	result.ID = jsonutil.FieldText(fields[AdviceFieldID])
	result.SleepAnalysis = jsonutil.FieldText(fields[AdviceFieldSleepAnalysis])
	result.ActivityAnalysis = jsonutil.FieldText(fields[AdviceFieldActivityAnalysis])
	result.Recommendations = jsonutil.FieldText(fields[AdviceFieldRecommendations])
	result.OverallAssessment = jsonutil.FieldText(fields[AdviceFieldOverallAssessment])
	return result
}

// Raw returns the JSON text of the whole reply.
func (r *AdviceReply) Raw() json.RawMessage {
	return r.raw
}

// MarshalJSON re-emits the model's JSON unchanged in content and order.
func (r *AdviceReply) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// PersistedAdviceRow is one append-only row of the advice table.
type PersistedAdviceRow struct {
	WriteDate         time.Time `json:"write_date"`
	ParticipantUID    string    `json:"participant_uid"`
	SleepAnalysis     string    `json:"sleep_analysis"`
	ActivityAnalysis  string    `json:"activity_analysis"`
	Recommendations   string    `json:"recommendations"`
	OverallAssessment string    `json:"overall_assessment"`
}

// NewPersistedAdviceRow builds the row for result, written on the UTC calendar day of writeDate.
func NewPersistedAdviceRow(result AdviceResult, writeDate time.Time) PersistedAdviceRow {
	y, m, d := writeDate.UTC().Date()
	return PersistedAdviceRow{
		WriteDate:         time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		ParticipantUID:    result.ID,
		SleepAnalysis:     result.SleepAnalysis,
		ActivityAnalysis:  result.ActivityAnalysis,
		Recommendations:   result.Recommendations,
		OverallAssessment: result.OverallAssessment,
	}
}
