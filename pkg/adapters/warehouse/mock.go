package warehouse

import (
	"context"

	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// MockWarehouse is a configurable mock for testing the pipeline.
// Set the function fields to control behavior in tests.
type MockWarehouse struct {
	// FetchBiometricsFunc is called by FetchBiometrics. If nil, returns Records.
	FetchBiometricsFunc func(ctx context.Context, q FetchQuery) ([]models.BiometricRecord, error)
	// InsertAdviceFunc is called by InsertAdvice. If nil, returns nil.
	InsertAdviceFunc func(ctx context.Context, rows []models.PersistedAdviceRow) error

	Records []models.BiometricRecord
	Name    string

	// Call tracking for verification
	FetchCalls  []FetchQuery
	InsertCalls [][]models.PersistedAdviceRow
	Closed      bool
}

// NewMockWarehouse returns a mock that serves records and accepts every insert.
func NewMockWarehouse(records ...models.BiometricRecord) *MockWarehouse {
	return &MockWarehouse{Records: records, Name: "BigQuery"}
}

func (m *MockWarehouse) FetchBiometrics(ctx context.Context, q FetchQuery) ([]models.BiometricRecord, error) {
	m.FetchCalls = append(m.FetchCalls, q)
	if m.FetchBiometricsFunc != nil {
		return m.FetchBiometricsFunc(ctx, q)
	}
	return m.Records, nil
}

func (m *MockWarehouse) InsertAdvice(ctx context.Context, rows []models.PersistedAdviceRow) error {
	m.InsertCalls = append(m.InsertCalls, rows)
	if m.InsertAdviceFunc != nil {
		return m.InsertAdviceFunc(ctx, rows)
	}
	return nil
}

func (m *MockWarehouse) DisplayName() string {
	if m.Name == "" {
		return "BigQuery"
	}
	return m.Name
}

func (m *MockWarehouse) Close() error {
	m.Closed = true
	return nil
}

var _ Warehouse = (*MockWarehouse)(nil)
