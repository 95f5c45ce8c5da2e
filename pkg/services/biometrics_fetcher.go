package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/config"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// FetchRequest selects the records to analyze.
type FetchRequest struct {
	// ParticipantID is empty to fetch every participant.
	ParticipantID string
	// From and To are inclusive summary dates. When both are zero the
	// configured lookback window ending today is used.
	From time.Time
	To   time.Time
}

// BiometricsFetcher loads the joined sleep and activity records for one request.
type BiometricsFetcher interface {
	FetchRecords(ctx context.Context, req FetchRequest) ([]models.BiometricRecord, error)
}

type biometricsFetcher struct {
	warehouse warehouse.Warehouse
	cfg       config.PipelineConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewBiometricsFetcher creates a fetcher reading from wh with the pipeline filters in cfg.
func NewBiometricsFetcher(wh warehouse.Warehouse, cfg config.PipelineConfig, logger *zap.Logger) BiometricsFetcher {
	return &biometricsFetcher{
		warehouse: wh,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.Named("fetcher"),
	}
}

func (f *biometricsFetcher) FetchRecords(ctx context.Context, req FetchRequest) ([]models.BiometricRecord, error) {
	q, err := f.buildQuery(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	records, err := f.warehouse.FetchBiometrics(ctx, q)
	if err != nil {
		f.logger.Error("Biometrics query failed",
			zap.String("warehouse", f.warehouse.DisplayName()),
			zap.String("error", logging.SanitizeError(err)))
		return nil, apperrors.NewQueryError(err)
	}

	f.logger.Info("Fetched biometric records",
		zap.Int("records", len(records)),
		zap.Bool("single_participant", req.ParticipantID != ""),
		zap.Duration("elapsed", time.Since(start)))

	return records, nil
}

func (f *biometricsFetcher) buildQuery(req FetchRequest) (warehouse.FetchQuery, error) {
	if f.cfg.RowLimit < 1 || f.cfg.RowLimit > config.MaxRowLimit {
		return warehouse.FetchQuery{}, apperrors.NewValidationError(
			fmt.Sprintf("row limit must be between 1 and %d", config.MaxRowLimit), apperrors.ErrInvalidRowLimit)
	}

	from, to := req.From, req.To
	if from.IsZero() && to.IsZero() && f.cfg.LookbackDays > 0 {
		today := truncateToDay(f.now())
		from = today.AddDate(0, 0, -f.cfg.LookbackDays)
		to = today
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return warehouse.FetchQuery{}, apperrors.NewValidationError(
			"from must not be after to", apperrors.ErrInvalidDateRange)
	}

	return warehouse.FetchQuery{
		ParticipantID:     req.ParticipantID,
		From:              from,
		To:                to,
		MinSleepSeconds:   int64(f.cfg.MinSleepSeconds),
		MaxNonWearSeconds: int64(f.cfg.MaxNonWearSeconds),
		Limit:             f.cfg.RowLimit,
	}, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var _ BiometricsFetcher = (*biometricsFetcher)(nil)
