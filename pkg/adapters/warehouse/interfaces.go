// Package warehouse defines the tabular store the advice pipeline reads
// biometric records from and appends advice rows to.
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ekaya-inc/biometric-advisor/pkg/models"
)

// Warehouse reads joined sleep/activity records and appends advice rows.
// Implementations are safe for concurrent use.
type Warehouse interface {
	// FetchBiometrics runs one read-only query and returns rows ordered by participant, then date.
	FetchBiometrics(ctx context.Context, q FetchQuery) ([]models.BiometricRecord, error)

	// InsertAdvice appends rows in a single batch. Rows the store rejected are
	// reported through *InsertError; rows it accepted are not rolled back.
	InsertAdvice(ctx context.Context, rows []models.PersistedAdviceRow) error

	// DisplayName is the human-readable store name, e.g. "BigQuery".
	DisplayName() string

	// Close releases the underlying client or pool.
	Close() error
}

// FetchQuery holds the bound parameters of one fetch.
type FetchQuery struct {
	// ParticipantID restricts the query to one participant when non-empty.
	ParticipantID string
	// From and To bound summary_date inclusively; zero values are open.
	From time.Time
	To   time.Time

	MinSleepSeconds   int64
	MaxNonWearSeconds int64
	Limit             int
}

// Tables names the three tables the adapters use.
type Tables struct {
	Sleep    string
	Activity string
	Advice   string
}

// InsertError reports rows the store refused during a batch insert.
type InsertError struct {
	Details []string
	Err     error
}

func (e *InsertError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("insert advice: %v", e.Err)
	}
	return fmt.Sprintf("insert advice: %d row error(s): %s", len(e.Details), strings.Join(e.Details, "; "))
}

func (e *InsertError) Unwrap() error {
	return e.Err
}
