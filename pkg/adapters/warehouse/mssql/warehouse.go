// Package mssql stores biometric records and advice in SQL Server via database/sql.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// Dialect renders @pN placeholders, bracket-quoted names and TOP (n).
var Dialect = warehouse.Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	QuoteTable:  quoteTable,
	TopLimit:    true,
}

// quoteTable returns [schema].[table], escaping ] as ]] like QUOTENAME.
// A bare table name defaults to the dbo schema.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) == 1 {
		parts = []string{"dbo", parts[0]}
	}
	for i, p := range parts {
		parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

// Warehouse reads and writes the biometric tables of a SQL Server database.
type Warehouse struct {
	db     *sql.DB
	tables warehouse.Tables
	logger *zap.Logger
}

// Open connects with SQL Server authentication.
func Open(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (*Warehouse, error) {
	logger = logger.Named("warehouse.mssql")
	connStr := buildConnectionString(cfg)
	logger.Info("Connecting to warehouse", zap.String("dsn", logging.SanitizeConnectionString(connStr)))

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to sql server: %s", logging.SanitizeError(err))
	}

	return New(db, warehouse.TablesFromConfig(cfg), logger), nil
}

// New wraps an existing *sql.DB.
func New(db *sql.DB, tables warehouse.Tables, logger *zap.Logger) *Warehouse {
	return &Warehouse{db: db, tables: tables, logger: logger}
}

func buildConnectionString(cfg *config.WarehouseConfig) string {
	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.SSLMode == "disable" {
		query.Add("encrypt", "false")
	} else {
		query.Add("encrypt", "true")
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort()
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.ResolvedHost(),
		port,
		query.Encode(),
	)
}

// FetchBiometrics implements warehouse.Warehouse.
func (w *Warehouse) FetchBiometrics(ctx context.Context, q warehouse.FetchQuery) ([]models.BiometricRecord, error) {
	query, args := warehouse.BuildFetchQuery(Dialect, w.tables, q)
	w.logger.Debug("Fetching biometrics", zap.String("query", logging.SanitizeQuery(query)), zap.Int("params", len(args)))

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	records := make([]models.BiometricRecord, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		record, err := warehouse.RecordFromValues(values)
		if err != nil {
			return nil, fmt.Errorf("malformed row %d: %w", len(records), err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// maxInsertParams stays under SQL Server's 2100 parameter limit per statement.
const maxInsertParams = 2000

// insertBatchRows is also well below the 1000 row VALUES limit.
var insertBatchRows = maxInsertParams / len(warehouse.AdviceColumns)

// InsertAdvice writes all rows in one transaction, using as few multi-row
// INSERT statements as the parameter limit allows.
func (w *Warehouse) InsertAdvice(ctx context.Context, rows []models.PersistedAdviceRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return insertFailure(err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rows); start += insertBatchRows {
		end := min(start+insertBatchRows, len(rows))
		if err := w.insertBatch(ctx, tx, rows[start:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return insertFailure(err)
	}
	return nil
}

func (w *Warehouse) insertBatch(ctx context.Context, tx *sql.Tx, rows []models.PersistedAdviceRow) error {
	query, args := warehouse.BuildInsertQuery(Dialect, w.tables.Advice, rows)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return insertFailure(err)
	}

	if n, err := result.RowsAffected(); err == nil && n != int64(len(rows)) {
		return &warehouse.InsertError{
			Details: []string{fmt.Sprintf("expected %d rows inserted, got %d", len(rows), n)},
			Err:     fmt.Errorf("insert advice rows: short write"),
		}
	}
	return nil
}

func insertFailure(err error) error {
	return &warehouse.InsertError{
		Details: []string{logging.SanitizeError(err)},
		Err:     fmt.Errorf("insert advice rows: %w", err),
	}
}

// DisplayName implements warehouse.Warehouse.
func (w *Warehouse) DisplayName() string {
	return "SQL Server"
}

// Close closes the database handle.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

var _ warehouse.Warehouse = (*Warehouse)(nil)
