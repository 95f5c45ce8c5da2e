//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/adapters/warehouse"
	"github.com/ekaya-inc/biometric-advisor/pkg/models"
	"github.com/ekaya-inc/biometric-advisor/pkg/testhelpers"
)

var testTables = warehouse.Tables{
	Sleep:    "dev.sleep_daily_summary",
	Activity: "dev.activity_daily_summary",
	Advice:   "dev.health_advice",
}

func seed(t *testing.T, tdb *testhelpers.TestDB) {
	t.Helper()
	tdb.Truncate(t, testTables.Sleep, testTables.Activity, testTables.Advice)

	ctx := context.Background()
	_, err := tdb.DB.Exec(ctx, `
		INSERT INTO dev.sleep_daily_summary (summary_date, participant_uid, total_sleep_seconds, sleep_hr_average)
		VALUES ('2025-07-01', 'u2', 25000, 55.5),
		       ('2025-07-02', 'u1', 26000, NULL),
		       ('2025-07-01', 'u1', 25200, 54.0),
		       ('2025-07-03', 'u1', 600, 60.0)`)
	require.NoError(t, err)

	_, err = tdb.DB.Exec(ctx, `
		INSERT INTO dev.activity_daily_summary (summary_date, participant_uid, steps, non_wear_seconds)
		VALUES ('2025-07-01', 'u2', 4000, 0),
		       ('2025-07-02', 'u1', 9000, 20000),
		       ('2025-07-01', 'u1', 8000, 100),
		       ('2025-07-03', 'u1', 7000, 0)`)
	require.NoError(t, err)
}

func defaultQuery() warehouse.FetchQuery {
	return warehouse.FetchQuery{MinSleepSeconds: 1800, MaxNonWearSeconds: 14400, Limit: 100}
}

func TestWarehouse_FetchBiometrics_FiltersAndOrders(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	seed(t, tdb)
	wh := New(tdb.DB, testTables, zap.NewNop())

	records, err := wh.FetchBiometrics(context.Background(), defaultQuery())
	require.NoError(t, err)

	// u1 2025-07-02 fails the non-wear filter, u1 2025-07-03 the sleep filter.
	require.Len(t, records, 2)
	assert.Equal(t, "u1", records[0].ParticipantID)
	assert.Equal(t, "u2", records[1].ParticipantID)

	steps, _ := records[0].Metric(models.MetricSteps)
	assert.Equal(t, int64(8000), steps)
	hr, _ := records[0].Metric(models.MetricSleepHRAverage)
	assert.Equal(t, 54.0, hr)
	deep, _ := records[0].Metric(models.MetricDeepSleepSeconds)
	assert.Nil(t, deep)
}

func TestWarehouse_FetchBiometrics_ParticipantAndWindow(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	seed(t, tdb)
	wh := New(tdb.DB, testTables, zap.NewNop())

	q := defaultQuery()
	q.ParticipantID = "u2' OR '1'='1"
	records, err := wh.FetchBiometrics(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, records, "participant id must be bound, not interpolated")

	q = defaultQuery()
	q.ParticipantID = "u1"
	q.From = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	q.To = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	records, err = wh.FetchBiometrics(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), records[0].Date)
}

func TestWarehouse_InsertAdvice_AppendOnly(t *testing.T) {
	tdb := testhelpers.GetTestDB(t)
	seed(t, tdb)
	wh := New(tdb.DB, testTables, zap.NewNop())

	rows := []models.PersistedAdviceRow{
		{WriteDate: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC), ParticipantUID: "u1", SleepAnalysis: "fine"},
	}
	require.NoError(t, wh.InsertAdvice(context.Background(), rows))
	require.NoError(t, wh.InsertAdvice(context.Background(), rows))

	var count int
	err := tdb.DB.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM dev.health_advice WHERE participant_uid = 'u1' AND activity_analysis = ''").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "repeated inserts create duplicate rows")
}
