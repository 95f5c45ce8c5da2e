package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
	"github.com/ekaya-inc/biometric-advisor/pkg/database"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// Dialect renders $n placeholders and double-quoted identifiers.
var Dialect = warehouse.Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	QuoteTable:  quoteTable,
}

func quoteTable(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

// Warehouse reads and writes the biometric tables of a PostgreSQL database.
type Warehouse struct {
	db     *database.Pool
	tables warehouse.Tables
	logger *zap.Logger
}

// Open connects to PostgreSQL and, when a migrations path is configured,
// brings the schema up to date first.
func Open(ctx context.Context, cfg *config.WarehouseConfig, logger *zap.Logger) (*Warehouse, error) {
	logger = logger.Named("warehouse.postgres")
	connStr := buildConnectionString(cfg)
	logger.Info("Connecting to warehouse", zap.String("dsn", logging.SanitizeConnectionString(connStr)))

	if cfg.MigrationsPath != "" {
		if _, err := database.Migrate(connStr, cfg.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("migrate warehouse schema: %s", logging.SanitizeError(err))
		}
	}

	db, err := database.OpenPool(ctx, connStr, database.PoolOptions{StatementTimeout: cfg.StatementTimeout})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %s", logging.SanitizeError(err))
	}

	return New(db, warehouse.TablesFromConfig(cfg), logger), nil
}

// New wraps an existing pool.
func New(db *database.Pool, tables warehouse.Tables, logger *zap.Logger) *Warehouse {
	return &Warehouse{db: db, tables: tables, logger: logger}
}

// FetchBiometrics implements warehouse.Warehouse.
func (w *Warehouse) FetchBiometrics(ctx context.Context, q warehouse.FetchQuery) ([]models.BiometricRecord, error) {
	query, args := warehouse.BuildFetchQuery(Dialect, w.tables, q)
	w.logger.Debug("Fetching biometrics", zap.String("query", logging.SanitizeQuery(query)), zap.Int("params", len(args)))

	rows, err := w.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	records := make([]models.BiometricRecord, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		record, err := warehouse.RecordFromValues(convertValues(values))
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

// convertValues maps pgx value types onto the ones RecordFromValues accepts.
// NUMERIC arrives as pgtype.Numeric; whole numbers become int64, the rest float64.
func convertValues(values []any) []any {
	for i, v := range values {
		n, ok := v.(pgtype.Numeric)
		if !ok {
			continue
		}
		if !n.Valid {
			values[i] = nil
			continue
		}
		if n.Exp >= 0 && !n.NaN && n.InfinityModifier == pgtype.Finite {
			if iv, err := n.Int64Value(); err == nil && iv.Valid {
				values[i] = iv.Int64
				continue
			}
		}
		if fv, err := n.Float64Value(); err == nil && fv.Valid {
			values[i] = fv.Float64
		}
	}
	return values
}

// InsertAdvice copies rows in with a single COPY; PostgreSQL applies it atomically.
func (w *Warehouse) InsertAdvice(ctx context.Context, rows []models.PersistedAdviceRow) error {
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = warehouse.AdviceRowValues(row)
	}

	n, err := w.db.CopyFrom(ctx,
		pgx.Identifier(strings.Split(w.tables.Advice, ".")),
		warehouse.AdviceColumns,
		pgx.CopyFromRows(values),
	)
	if err != nil {
		return &warehouse.InsertError{
			Details: []string{logging.SanitizeError(err)},
			Err:     fmt.Errorf("copy advice rows: %w", err),
		}
	}

	w.logger.Debug("Inserted advice rows", zap.Int64("rows", n))
	return nil
}

// DisplayName implements warehouse.Warehouse.
func (w *Warehouse) DisplayName() string {
	return "PostgreSQL"
}

// Close releases the pool.
func (w *Warehouse) Close() error {
	w.db.Close()
	return nil
}

var _ warehouse.Warehouse = (*Warehouse)(nil)
