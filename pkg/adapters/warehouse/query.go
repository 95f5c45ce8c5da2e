package warehouse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// Join key columns present in both source tables.
const (
	ColumnSummaryDate    = "summary_date"
	ColumnParticipantUID = "participant_uid"
)

// Advice table columns, in insert order.
var AdviceColumns = []string{
	"write_date",
	ColumnParticipantUID,
	models.AdviceFieldSleepAnalysis,
	models.AdviceFieldActivityAnalysis,
	models.AdviceFieldRecommendations,
	models.AdviceFieldOverallAssessment,
}

// Dialect captures the SQL differences between warehouse engines.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bound parameter.
	Placeholder func(n int) string
	// QuoteTable quotes a validated "schema.table" name.
	QuoteTable func(name string) string
	// TopLimit renders the row cap as SELECT TOP (n) instead of LIMIT n.
	TopLimit bool
	// DateParam converts a date bound for a DATE column; nil binds time.Time as is.
	DateParam func(t time.Time) any
}

// SelectColumns returns the fetch result columns in order: date, participant, metrics.
func SelectColumns() []string {
	cols := make([]string, 0, 2+len(models.SleepMetricColumns)+len(models.ActivityMetricColumns))
	cols = append(cols, ColumnSummaryDate, ColumnParticipantUID)
	cols = append(cols, models.SleepMetricColumns...)
	cols = append(cols, models.ActivityMetricColumns...)
	return cols
}

// BuildFetchQuery renders the join of the sleep and activity tables.
// Table names and the limit come from validated configuration; every
// request-derived value is returned as a bound argument.
func BuildFetchQuery(d Dialect, tables Tables, q FetchQuery) (string, []any) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return d.Placeholder(len(args))
	}
	bindDate := func(t time.Time) string {
		if d.DateParam != nil {
			return bind(d.DateParam(t))
		}
		return bind(t)
	}

	selectList := make([]string, 0, len(SelectColumns()))
	selectList = append(selectList, "s."+ColumnSummaryDate, "s."+ColumnParticipantUID)
	for _, c := range models.SleepMetricColumns {
		selectList = append(selectList, "s."+c)
	}
	for _, c := range models.ActivityMetricColumns {
		selectList = append(selectList, "a."+c)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if d.TopLimit {
		sb.WriteString("TOP (" + strconv.Itoa(q.Limit) + ") ")
	}
	sb.WriteString(strings.Join(selectList, ", "))
	sb.WriteString("\nFROM " + d.QuoteTable(tables.Sleep) + " AS s")
	sb.WriteString("\nJOIN " + d.QuoteTable(tables.Activity) + " AS a")
	sb.WriteString(fmt.Sprintf(" ON a.%[1]s = s.%[1]s AND a.%[2]s = s.%[2]s", ColumnSummaryDate, ColumnParticipantUID))

	conds := []string{
		"s." + models.MetricTotalSleepSeconds + " >= " + bind(q.MinSleepSeconds),
		"a." + models.MetricNonWearSeconds + " <= " + bind(q.MaxNonWearSeconds),
	}
	if q.ParticipantID != "" {
		conds = append(conds, "s."+ColumnParticipantUID+" = "+bind(q.ParticipantID))
	}
	if !q.From.IsZero() {
		conds = append(conds, "s."+ColumnSummaryDate+" >= "+bindDate(q.From))
	}
	if !q.To.IsZero() {
		conds = append(conds, "s."+ColumnSummaryDate+" <= "+bindDate(q.To))
	}
	sb.WriteString("\nWHERE " + strings.Join(conds, "\n  AND "))

	sb.WriteString(fmt.Sprintf("\nORDER BY s.%s, s.%s", ColumnParticipantUID, ColumnSummaryDate))
	if !d.TopLimit {
		sb.WriteString("\nLIMIT " + strconv.Itoa(q.Limit))
	}

	return sb.String(), args
}

// RecordFromValues builds a record from one result row in SelectColumns order.
// Numeric values are normalized to int64 or float64; missing values stay nil.
func RecordFromValues(values []any) (models.BiometricRecord, error) {
	cols := SelectColumns()
	if len(values) != len(cols) {
		return models.BiometricRecord{}, fmt.Errorf("row has %d columns, expected %d", len(values), len(cols))
	}

	date, err := toDate(values[0])
	if err != nil {
		return models.BiometricRecord{}, fmt.Errorf("%s: %w", ColumnSummaryDate, err)
	}

	var participant string
	switch v := values[1].(type) {
	case nil:
	case string:
		participant = v
	case []byte:
		participant = string(v)
	default:
		return models.BiometricRecord{}, fmt.Errorf("%s: unexpected type %T", ColumnParticipantUID, values[1])
	}

	metrics := make([]models.Metric, 0, len(cols)-2)
	for i, name := range cols[2:] {
		v, err := normalizeNumber(values[i+2])
		if err != nil {
			return models.BiometricRecord{}, fmt.Errorf("%s: %w", name, err)
		}
		metrics = append(metrics, models.Metric{Name: name, Value: v})
	}

	return models.BiometricRecord{
		Date:          date,
		ParticipantID: participant,
		Metrics:       metrics,
	}, nil
}

func toDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return time.Parse("2006-01-02", d)
	case nil:
		return time.Time{}, fmt.Errorf("is null")
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
}

func normalizeNumber(v any) (any, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case []byte:
		// SQL Server returns DECIMAL as text.
		return parseNumeric(string(n))
	case string:
		return parseNumeric(n)
	default:
		return nil, fmt.Errorf("unexpected type %T", v)
	}
}

func parseNumeric(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not numeric: %q", s)
	}
	return f, nil
}

// AdviceRowValues returns row's values in AdviceColumns order.
func AdviceRowValues(row models.PersistedAdviceRow) []any {
	return []any{
		row.WriteDate,
		row.ParticipantUID,
		row.SleepAnalysis,
		row.ActivityAnalysis,
		row.Recommendations,
		row.OverallAssessment,
	}
}

// BuildInsertQuery renders a single multi-row INSERT for rows.
func BuildInsertQuery(d Dialect, table string, rows []models.PersistedAdviceRow) (string, []any) {
	args := make([]any, 0, len(rows)*len(AdviceColumns))
	tuples := make([]string, 0, len(rows))
	for _, row := range rows {
		values := AdviceRowValues(row)
		if d.DateParam != nil {
			values[0] = d.DateParam(row.WriteDate)
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = d.Placeholder(len(args))
		}
		tuples = append(tuples, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QuoteTable(table), strings.Join(AdviceColumns, ", "), strings.Join(tuples, ", "))
	return query, args
}
