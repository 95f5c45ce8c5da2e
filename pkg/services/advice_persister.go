package services

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/llm"
	"github.com/ekaya-inc/biometric-advisor/pkg/logging"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// PersistRequest is the request context the reply is checked against.
type PersistRequest struct {
	// ParticipantID is the requested participant, empty in multi-participant mode.
	ParticipantID string
	// Participants are the distinct ids present in the fetched records.
	Participants []string
}

// AdvicePersister parses the model reply, writes attributable entries back to
// the warehouse and returns the parsed reply.
type AdvicePersister interface {
	Persist(ctx context.Context, reply string, req PersistRequest) (*models.AdviceReply, error)
}

type advicePersister struct {
	warehouse warehouse.Warehouse
	now       func() time.Time
	logger    *zap.Logger
}

// NewAdvicePersister creates a persister appending to wh's advice table.
func NewAdvicePersister(wh warehouse.Warehouse, logger *zap.Logger) AdvicePersister {
	return &advicePersister{
		warehouse: wh,
		now:       time.Now,
		logger:    logger.Named("persister"),
	}
}

func (p *advicePersister) Persist(ctx context.Context, reply string, req PersistRequest) (*models.AdviceReply, error) {
	stripped := llm.UnwrapFences(reply)

	parsed, err := models.DecodeAdviceReply([]byte(stripped))
	if err != nil {
		if errors.Is(err, models.ErrUnexpectedShape) {
			p.logger.Error("Model reply has unexpected structure",
				zap.String("reply", logging.TruncateString(stripped, logging.MaxReplyLogLength)))
			return nil, apperrors.NewSchemaError(err)
		}
		p.logger.Error("Model reply is not valid JSON",
			zap.Error(err),
			zap.String("reply", logging.TruncateString(stripped, logging.MaxReplyLogLength)))
		return nil, apperrors.NewParseError(err)
	}

	rows := p.buildRows(parsed, req)
	if len(rows) == 0 {
		p.logger.Info("No attributable advice entries; skipping insert",
			zap.Stringer("shape", parsed.Shape),
			zap.Int("entries", len(parsed.Results)))
		return parsed, nil
	}

	if err := p.warehouse.InsertAdvice(ctx, rows); err != nil {
		details := []string{logging.SanitizeError(err)}
		var insertErr *warehouse.InsertError
		if errors.As(err, &insertErr) && len(insertErr.Details) > 0 {
			details = insertErr.Details
		}
		p.logger.Error("Advice insert failed",
			zap.String("warehouse", p.warehouse.DisplayName()),
			zap.Int("rows", len(rows)),
			zap.Strings("details", details))

		stageErr := apperrors.NewPersistenceError(p.warehouse.DisplayName(), details, err)
		stageErr.Payload = parsed
		return nil, stageErr
	}

	p.logger.Info("Advice persisted",
		zap.Stringer("shape", parsed.Shape),
		zap.Int("entries", len(parsed.Results)),
		zap.Int("rows", len(rows)))

	return parsed, nil
}

// buildRows keeps entries that are objects with an id the request can attribute.
func (p *advicePersister) buildRows(parsed *models.AdviceReply, req PersistRequest) []models.PersistedAdviceRow {
	writeDate := p.now()
	rows := make([]models.PersistedAdviceRow, 0, len(parsed.Results))

	for i, result := range parsed.Results {
		switch {
		case !result.IsObject:
			p.logger.Warn("Dropping advice entry that is not an object", zap.Int("index", i))
		case result.ID == "":
			p.logger.Warn("Dropping advice entry without id", zap.Int("index", i))
		case req.ParticipantID != "" && result.ID != req.ParticipantID:
			p.logger.Warn("Dropping advice entry for a different participant",
				zap.Int("index", i),
				zap.String("requested_id", req.ParticipantID),
				zap.String("reply_id", result.ID))
		case req.ParticipantID == "" && !slices.Contains(req.Participants, result.ID):
			p.logger.Warn("Dropping advice entry for a participant not in the fetched records",
				zap.Int("index", i),
				zap.String("reply_id", result.ID))
		default:
			rows = append(rows, models.NewPersistedAdviceRow(result, writeDate))
		}
	}

	return rows
}

var _ AdvicePersister = (*advicePersister)(nil)
