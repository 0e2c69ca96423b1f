package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/donation/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
	defaultPoolStatsInterval  = 15 * time.Second
)

// DBInstrumentationConfig configures database tracing and metrics
type DBInstrumentationConfig struct {
	TraceEnabled       bool
	DBName             string
	SlowQueryThreshold time.Duration
	PoolStatsInterval  time.Duration
}

// DBInstrumentationConfigFrom maps telemetry settings
func DBInstrumentationConfigFrom(cfg config.TelemetryConfig, dbName string) DBInstrumentationConfig {
	return DBInstrumentationConfig{
		TraceEnabled:       cfg.Enabled && cfg.DBTraceEnabled,
		DBName:             dbName,
		SlowQueryThreshold: cfg.DBSlowQueryThresh,
	}
}

// DBMetrics holds query and connection pool instruments
type DBMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
	poolConns      *Gauge
	poolConnsMax   *Gauge

	slowThreshold time.Duration
	interval      time.Duration
	sqlDB         *sql.DB
	logger        *zap.Logger
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewDBMetrics creates the database instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBInstrumentationConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, &MetricsError{Op: "NewDBMetrics", Err: "meter cannot be nil"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &DBMetrics{
		slowThreshold: cfg.SlowQueryThreshold,
		interval:      cfg.PoolStatsInterval,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
	if m.slowThreshold <= 0 {
		m.slowThreshold = defaultSlowQueryThreshold
	}
	if m.interval <= 0 {
		m.interval = defaultPoolStatsInterval
	}

	var err error
	if m.queryTotal, err = NewCounter(meter, "db_query_total", "Database queries by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total", "Queries slower than the slow query threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.poolConns, err = NewGauge(meter, "db_pool_connections", "Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolConnsMax, err = NewGauge(meter, "db_pool_connections_max", "Maximum open connections", "{connection}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	op := AttrDBOperation.String(operation)
	m.queryTotal.Inc(ctx, op)
	m.queryDuration.RecordDuration(ctx, duration, op)
	if duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// StartPoolStats samples sql.DB pool stats until Stop
func (m *DBMetrics) StartPoolStats(ctx context.Context, sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	m.sqlDB = sqlDB
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	stats := m.sqlDB.Stats()
	m.poolConnsMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.poolConns.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.poolConns.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.poolConns.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool sampling. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
	})
}

type queryStartKey struct{}

// DBPlugin is a GORM plugin that times every statement, feeds DBMetrics and
// annotates the otelgorm span with table, row count and slow query markers
type DBPlugin struct {
	metrics       *DBMetrics
	slowThreshold time.Duration
}

// NewDBPlugin creates the plugin. metrics may be nil to annotate spans only.
func NewDBPlugin(metrics *DBMetrics, slowThreshold time.Duration) *DBPlugin {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowQueryThreshold
	}
	return &DBPlugin{metrics: metrics, slowThreshold: slowThreshold}
}

// Name implements gorm.Plugin
func (p *DBPlugin) Name() string {
	return "donation:db_instrumentation"
}

// Initialize implements gorm.Plugin
func (p *DBPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	type hook struct {
		name   string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}
	hooks := []hook{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, ""},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, ""},
	}
	for _, h := range hooks {
		if err := h.before(p.Name()+":before_"+h.name, p.before); err != nil {
			return err
		}
		if err := h.after(p.Name()+":after_"+h.name, p.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBPlugin) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (p *DBPlugin) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		operation := op
		if operation == "" {
			operation = detectOperation(db.Statement.SQL.String())
		}
		if p.metrics != nil {
			p.metrics.RecordQuery(ctx, operation, db.Statement.Table, elapsed)
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
		}
		if elapsed > p.slowThreshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}

// detectOperation returns the leading SQL verb for raw statements
func detectOperation(statement string) string {
	statement = strings.ToUpper(strings.TrimSpace(statement))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"} {
		if strings.HasPrefix(statement, verb) {
			if verb == "WITH" {
				return "SELECT"
			}
			return verb
		}
	}
	return "OTHER"
}

// InstrumentDB installs otelgorm tracing when enabled and the timing plugin
// whenever tracing or metrics are on. The returned DBMetrics is nil when
// metrics are disabled; the caller stops it on shutdown.
func InstrumentDB(ctx context.Context, db *gorm.DB, cfg DBInstrumentationConfig, meters *MeterProvider, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metricsOn := meters != nil && meters.IsEnabled()
	if !cfg.TraceEnabled && !metricsOn {
		return nil, nil
	}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithoutQueryVariables()}
		if cfg.DBName != "" {
			opts = append(opts, otelgorm.WithDBName(cfg.DBName))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}

	var metrics *DBMetrics
	if metricsOn {
		var err error
		if metrics, err = NewDBMetrics(meters.Meter("db.client"), cfg, logger); err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			metrics.StartPoolStats(ctx, sqlDB)
		}
	}

	if err := db.Use(NewDBPlugin(metrics, cfg.SlowQueryThreshold)); err != nil {
		if metrics != nil {
			metrics.Stop()
		}
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", cfg.TraceEnabled),
		zap.Bool("metrics", metricsOn),
	)
	return metrics, nil
}
