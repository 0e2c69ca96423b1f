package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type dbTestRow struct {
	ID   uint
	Name string
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&dbTestRow{}))
	return db
}

func TestDBPlugin_RecordsQueries(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewDBMetrics(provider.Meter("db"), DBInstrumentationConfig{SlowQueryThreshold: time.Hour}, zaptest.NewLogger(t))
	require.NoError(t, err)

	db := openTestDB(t)
	require.NoError(t, db.Use(NewDBPlugin(metrics, time.Hour)))

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&dbTestRow{Name: "a"}).Error)
	var rows []dbTestRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	require.NoError(t, db.WithContext(ctx).Exec("UPDATE db_test_rows SET name = ?", "b").Error)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	byOp := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "db_query_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				op, _ := dp.Attributes.Value(AttrDBOperation)
				byOp[op.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), byOp["INSERT"])
	assert.Equal(t, int64(1), byOp["SELECT"])
	assert.Equal(t, int64(1), byOp["UPDATE"])
}

func TestDetectOperation(t *testing.T) {
	assert.Equal(t, "SELECT", detectOperation("  select 1"))
	assert.Equal(t, "SELECT", detectOperation("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.Equal(t, "DELETE", detectOperation("delete from x"))
	assert.Equal(t, "OTHER", detectOperation("VACUUM"))
}

func TestInstrumentDB_Disabled(t *testing.T) {
	db := openTestDB(t)
	meters, err := NewMeterProvider(context.Background(), config.TelemetryConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	metrics, err := InstrumentDB(context.Background(), db, DBInstrumentationConfig{}, meters, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func TestInstrumentDB_TracingOnly(t *testing.T) {
	db := openTestDB(t)
	cfg := DBInstrumentationConfigFrom(config.TelemetryConfig{Enabled: true, DBTraceEnabled: true}, "sqlite")
	require.True(t, cfg.TraceEnabled)

	metrics, err := InstrumentDB(context.Background(), db, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, metrics)

	var count int64
	require.NoError(t, db.Model(&dbTestRow{}).Count(&count).Error)
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := NewDBMetrics(provider.Meter("db"), DBInstrumentationConfig{PoolStatsInterval: time.Hour}, nil)
	require.NoError(t, err)

	sqlDB, err := openTestDB(t).DB()
	require.NoError(t, err)
	metrics.StartPoolStats(context.Background(), sqlDB)
	metrics.Stop()
	metrics.Stop()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["db_pool_connections"])
	assert.True(t, names["db_pool_connections_max"])
}
