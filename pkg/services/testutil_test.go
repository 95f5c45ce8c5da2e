package services

import (
	"time"

	"github.com/ekaya-inc/biometric-advisor/pkg/config"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

var fixedNow = time.Date(2025, 7, 10, 15, 30, 0, 0, time.UTC)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		RowLimit:          100,
		MinSleepSeconds:   1800,
		MaxNonWearSeconds: 14400,
		LookbackDays:      30,
	}
}

func record(date, participant string, steps, sleep int64) models.BiometricRecord {
	d, _ := time.Parse("2006-01-02", date)
	return models.BiometricRecord{
		Date:          d,
		ParticipantID: participant,
		Metrics: []models.Metric{
			{Name: models.MetricTotalSleepSeconds, Value: sleep},
			{Name: models.MetricSteps, Value: steps},
		},
	}
}

const adviceU1 = `{"id":"u1","sleep_analysis":"s","activity_analysis":"a","recommendations":"r","overall_assessment":"o"}`
