package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahnoorn23/AnomalyDetectionProject-3rdYear/models"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &DB{conn}, mock
}

var generatedAt = time.Date(2024, 8, 12, 6, 0, 0, 0, time.UTC)

func storedResult() *models.AnalysisResult {
	day := time.Date(2024, 8, 11, 0, 0, 0, 0, time.UTC)
	return &models.AnalysisResult{
		GeneratedAt: generatedAt,
		Records:     96,
		Dropped:     []int{5},
		Anomalies:   &models.AnomalyReport{Anomalies: 4, ZAnomalies: 1, RollingAnomaly: 3},
		Clusters: &models.ClusterReport{
			Assignment: models.ClusterAssignment{
				Centroids:  []float64{-0.8, 0.1, 2.4},
				Inertia:    12.5,
				Iterations: 6,
				Converged:  true,
			},
		},
		Summary: models.Summary{
			DailyUsage:    []models.DailyTotal{{Day: day, Total: 310.5}},
			AnomalyCounts: []models.AnomalyCount{{Day: day, Count: 4}},
			ClusterMeans: []models.ClusterMean{
				{ClusterID: 0, Mean: 1.2, Size: 40},
				{ClusterID: 1, Mean: 3.4, Size: 50},
			},
		},
	}
}

func TestCreateTables(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analysis_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.CreateTables(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	db, mock := newMock(t)
	result := storedResult()
	day := result.Summary.DailyUsage[0].Day

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analysis_runs").
		WithArgs(generatedAt, 96, 1, 4, 1, 3, 3, 12.5, true, 6, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO daily_usage").
		WithArgs(int64(7), day, 310.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO anomaly_summary").
		WithArgs(int64(7), day, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO cluster_summary").
		WithArgs(int64(7), 0, 1.2, 40).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO cluster_summary").
		WithArgs(int64(7), 1, 3.4, 50).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := db.SaveRun(context.Background(), result)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO analysis_runs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec("INSERT INTO daily_usage").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := db.Write(context.Background(), storedResult())
	assert.ErrorContains(t, err, "inserting daily usage: disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRequiresReports(t *testing.T) {
	db, mock := newMock(t)
	result := storedResult()
	result.Clusters = nil

	_, err := db.SaveRun(context.Background(), result)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var runColumns = []string{
	"id", "generated_at", "records", "dropped", "anomalies", "z_anomalies", "rolling_anomalies",
	"cluster_k", "inertia", "converged", "iterations", "centroids",
}

func TestLatestRun(t *testing.T) {
	db, mock := newMock(t)
	day := time.Date(2024, 8, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM analysis_runs").
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow(int64(7), generatedAt, int64(96), int64(1), int64(4), int64(1), int64(3),
				int64(3), 12.5, true, int64(6), []byte("{-0.8,0.1,2.4}")))
	mock.ExpectQuery("FROM anomaly_summary").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"day", "anomalies"}).AddRow(day, int64(4)))

	run, err := db.LatestRun(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, int64(7), run.ID)
	assert.Equal(t, generatedAt, run.GeneratedAt)
	assert.Equal(t, 96, run.Records)
	assert.Equal(t, 4, run.Anomalies)
	assert.Equal(t, 3, run.ClusterK)
	assert.True(t, run.Converged)
	assert.Equal(t, []float64{-0.8, 0.1, 2.4}, run.Centroids)
	assert.Equal(t, []models.AnomalyCount{{Day: day, Count: 4}}, run.AnomalyCounts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestRunEmpty(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM analysis_runs").WillReturnRows(sqlmock.NewRows(runColumns))

	run, err := db.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}
