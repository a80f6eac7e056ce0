package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"hoc_companion/internal/config"
)

// DB wraps the marketing database connection. It runs the read-only queries
// the context assembler needs and keeps query statistics for request logs.
type DB struct {
	conn         *sqlx.DB
	queryTimeout time.Duration

	mu     sync.Mutex
	closed bool
	stats  QueryStats
}

// DBConfig holds database configuration
type DBConfig struct {
	// Connection settings
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeouts
	QueryTimeout time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() DBConfig {
	return DBConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "aldi_hoc_companion",
		SSLMode:  "disable",

		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,

		QueryTimeout: 10 * time.Second,
	}
}

// DSN returns the lib/pq connection string
func (cfg DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode,
	)
}

// NewDB connects to PostgreSQL and configures the pool
func NewDB(cfg DBConfig) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return NewDBFromConn(conn, cfg.QueryTimeout), nil
}

// NewDBFromConn wraps an existing sqlx connection
func NewDBFromConn(conn *sqlx.DB, queryTimeout time.Duration) *DB {
	return &DB{
		conn:         conn,
		queryTimeout: queryTimeout,
		stats:        QueryStats{Connected: true},
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.stats.Connected = false
	db.mu.Unlock()

	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if db.isClosed() {
		return ErrNotConnected
	}
	return db.conn.PingContext(ctx)
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := db.conn.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("health check query failed: %w", err)
	}

	return nil
}

// Execute runs a read-only query and returns every row as a column map.
// []byte values are returned as strings.
func (db *DB) Execute(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	if db.isClosed() {
		return nil, ErrNotConnected
	}

	if db.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := db.execute(ctx, query, args...)
	db.record(time.Since(start))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (db *DB) execute(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := db.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	result := make([]map[string]any, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}

func (db *DB) record(elapsed time.Duration) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stats.QueryCount++
	db.stats.TotalQueryTime += elapsed
	db.stats.LastQueryTime = elapsed
}

func (db *DB) isClosed() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.closed
}

// QueryStats counts the queries run through Execute
type QueryStats struct {
	Connected      bool
	QueryCount     int64
	TotalQueryTime time.Duration
	LastQueryTime  time.Duration
}

// Since returns the statistics accumulated after prev was taken
func (s QueryStats) Since(prev QueryStats) QueryStats {
	return QueryStats{
		Connected:      s.Connected,
		QueryCount:     s.QueryCount - prev.QueryCount,
		TotalQueryTime: s.TotalQueryTime - prev.TotalQueryTime,
		LastQueryTime:  s.LastQueryTime,
	}
}

// QueryStats returns a snapshot of the query statistics
func (db *DB) QueryStats() QueryStats {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.stats
}

// PoolStats mirrors database/sql pool statistics
type PoolStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	MaxIdleClosed      int64
	MaxLifetimeClosed  int64
}

// GetStats returns current pool statistics
func (db *DB) GetStats() PoolStats {
	stats := db.conn.Stats()

	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

// Conn returns the underlying sqlx connection
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// DBConfigFrom maps the database settings onto a DBConfig
func DBConfigFrom(c config.DatabaseConfig) DBConfig {
	return DBConfig{
		Host:            c.Host,
		Port:            c.Port,
		Database:        c.Name,
		User:            c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		QueryTimeout:    c.QueryTimeout,
	}
}
