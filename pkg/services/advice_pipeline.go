package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// AdviceService runs fetch, generate and persist for one request, strictly in order.
// The first failing stage ends the request; nothing is retried.
type AdviceService interface {
	GetAdvice(ctx context.Context, req FetchRequest) (*models.AdviceReply, error)
}

type adviceService struct {
	fetcher   BiometricsFetcher
	generator AdviceGenerator
	persister AdvicePersister
	logger    *zap.Logger
}

// NewAdviceService wires the three stages.
func NewAdviceService(fetcher BiometricsFetcher, generator AdviceGenerator, persister AdvicePersister, logger *zap.Logger) AdviceService {
	return &adviceService{
		fetcher:   fetcher,
		generator: generator,
		persister: persister,
		logger:    logger.Named("advice"),
	}
}

func (s *adviceService) GetAdvice(ctx context.Context, req FetchRequest) (*models.AdviceReply, error) {
	start := time.Now()

	records, err := s.fetcher.FetchRecords(ctx, req)
	if err != nil {
		return nil, err
	}

	reply, err := s.generator.Generate(ctx, records, req.ParticipantID)
	if err != nil {
		return nil, err
	}

	advice, err := s.persister.Persist(ctx, reply, PersistRequest{
		ParticipantID: req.ParticipantID,
		Participants:  models.ParticipantIDs(records),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Advice pipeline completed", zap.Duration("elapsed", time.Since(start)))
	return advice, nil
}

var _ AdviceService = (*adviceService)(nil)
