// Package bigquery reads biometric summaries from and streams advice rows into BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// Dialect renders positional ? parameters, backtick-quoted tables and DATE parameters as civil.Date.
var Dialect = warehouse.Dialect{
	Placeholder: func(int) string { return "?" },
	QuoteTable:  func(name string) string { return "`" + name + "`" },
	DateParam:   func(t time.Time) any { return civil.DateOf(t) },
}

// Warehouse queries BigQuery with Application Default Credentials.
type Warehouse struct {
	client *bigquery.Client
	tables warehouse.Tables
	logger *zap.Logger
}

// Open creates a client for cfg.ProjectID. Extra options are for tests and emulators.
func Open(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger, opts ...option.ClientOption) (*Warehouse, error) {
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = bigquery.DetectProjectID
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return New(client, warehouse.TablesFromConfig(cfg), logger.Named("warehouse.bigquery")), nil
}

// New wraps an existing client.
func New(client *bigquery.Client, tables warehouse.Tables, logger *zap.Logger) *Warehouse {
	return &Warehouse{client: client, tables: tables, logger: logger}
}

// FetchBiometrics implements warehouse.Warehouse.
func (w *Warehouse) FetchBiometrics(ctx context.Context, q warehouse.FetchQuery) ([]models.BiometricRecord, error) {
	sql, args := warehouse.BuildFetchQuery(Dialect, w.tables, q)
	w.logger.Debug("Fetching biometrics", zap.String("query", logging.SanitizeQuery(sql)), zap.Int("params", len(args)))

	query := w.client.Query(sql)
	query.Parameters = make([]bigquery.QueryParameter, len(args))
	for i, arg := range args {
		query.Parameters[i] = bigquery.QueryParameter{Value: arg}
	}

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	records := make([]models.BiometricRecord, 0)
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating rows: %w", err)
		}

		record, err := warehouse.RecordFromValues(convertValues(row))
		if err != nil {
			return nil, fmt.Errorf("malformed row %d: %w", len(records), err)
		}
		records = append(records, record)
	}

	return records, nil
}

// convertValues maps BigQuery value types onto the ones RecordFromValues accepts.
func convertValues(row []bigquery.Value) []any {
	values := make([]any, len(row))
	for i, v := range row {
		switch val := v.(type) {
		case civil.Date:
			values[i] = val.In(time.UTC)
		case *big.Rat:
			if val == nil {
				values[i] = nil
				continue
			}
			f, _ := val.Float64()
			values[i] = f
		default:
			values[i] = val
		}
	}
	return values
}

// adviceRow is the streaming-insert shape of models.PersistedAdviceRow.
type adviceRow struct {
	WriteDate         civil.Date `bigquery:"write_date"`
	ParticipantUID    string     `bigquery:"participant_uid"`
	SleepAnalysis     string     `bigquery:"sleep_analysis"`
	ActivityAnalysis  string     `bigquery:"activity_analysis"`
	Recommendations   string     `bigquery:"recommendations"`
	OverallAssessment string     `bigquery:"overall_assessment"`
}

// InsertAdvice streams all rows in one insertAll call. BigQuery may accept
// some rows and reject others; rejected rows are listed in *InsertError.
func (w *Warehouse) InsertAdvice(ctx context.Context, rows []models.PersistedAdviceRow) error {
	if len(rows) == 0 {
		return nil
	}

	project, dataset, table, err := splitTable(w.tables.Advice)
	if err != nil {
		return err
	}

	items := make([]*adviceRow, len(rows))
	for i, r := range rows {
		items[i] = &adviceRow{
			WriteDate:         civil.DateOf(r.WriteDate),
			ParticipantUID:    r.ParticipantUID,
			SleepAnalysis:     r.SleepAnalysis,
			ActivityAnalysis:  r.ActivityAnalysis,
			Recommendations:   r.Recommendations,
			OverallAssessment: r.OverallAssessment,
		}
	}

	ds := w.client.Dataset(dataset)
	if project != "" {
		ds = w.client.DatasetInProject(project, dataset)
	}
	inserter := ds.Table(table).Inserter()
	if err := inserter.Put(ctx, items); err != nil {
		return &warehouse.InsertError{Details: putErrorDetails(err), Err: err}
	}
	return nil
}

// putErrorDetails flattens a PutMultiError into one line per rejected row.
func putErrorDetails(err error) []string {
	var multi bigquery.PutMultiError
	if !errors.As(err, &multi) {
		return []string{logging.SanitizeError(err)}
	}

	details := make([]string, 0, len(multi))
	for _, rowErr := range multi {
		msgs := make([]string, 0, len(rowErr.Errors))
		for _, e := range rowErr.Errors {
			msgs = append(msgs, e.Error())
		}
		details = append(details, fmt.Sprintf("row %d: %s", rowErr.RowIndex, strings.Join(msgs, "; ")))
	}
	return details
}

// splitTable accepts dataset.table or project.dataset.table. An empty
// project means the client's own project.
func splitTable(name string) (project, dataset, table string, err error) {
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return "", "", "", fmt.Errorf("advice table %q must be dataset.table or project.dataset.table", name)
		}
	}
	switch len(parts) {
	case 2:
		return "", parts[0], parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("advice table %q must be dataset.table or project.dataset.table", name)
	}
}

// DisplayName implements warehouse.Warehouse.
func (w *Warehouse) DisplayName() string {
	return "BigQuery"
}

// Close closes the client.
func (w *Warehouse) Close() error {
	return w.client.Close()
}

var _ warehouse.Warehouse = (*Warehouse)(nil)
