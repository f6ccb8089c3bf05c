// Package sqlbulk writes large in-memory collections of mapped structs to a
// MySQL-compatible database with multi-row INSERT / UPSERT / UPDATE
// statements, propagates server-generated identity values back onto the
// entities, and cascades the operation to declared child collections.
package sqlbulk

import (
	"database/sql"
	"sync"

	"github.com/go-sql-driver/mysql"

	"github.com/sqlbulk/sqlbulk/logger"
	"github.com/sqlbulk/sqlbulk/schema"
)

// Config configures a DB when it is opened
type Config struct {
	// Logger receives statement traces and warnings; logger.Default when nil
	Logger logger.Interface
	// NamingStrategy maps type and field names to tables and columns
	NamingStrategy schema.Namer
	// DefaultBatchSize rows per statement when a call does not set one
	DefaultBatchSize int
	// PrepareStmt caches prepared statements keyed by statement text
	PrepareStmt bool
	// DryRun synthesizes and binds statements without executing them
	DryRun bool
	// ConnPool the database connection pool, a *sql.DB unless injected
	ConnPool ConnPool

	cacheStore *sync.Map
	gate       *connGate
}

// DB bulk write entry point, safe for concurrent use
type DB struct {
	*Config
}

// Open connects to a MySQL DSN and returns a DB
func Open(dsn string, config *Config) (*DB, error) {
	dsnConf, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(dsnConf)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	config.ConnPool = sql.OpenDB(connector)
	return New(config)
}

// New returns a DB over an existing connection pool
func New(config *Config) (*DB, error) {
	if config == nil {
		config = &Config{}
	}
	if config.ConnPool == nil {
		return nil, ErrInvalidDB
	}
	if config.Logger == nil {
		config.Logger = logger.Default
	}
	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}
	if config.DefaultBatchSize <= 0 {
		config.DefaultBatchSize = DefaultBatchSize
	}
	config.cacheStore = &sync.Map{}
	config.gate = &connGate{}

	if config.PrepareStmt {
		config.ConnPool = NewPreparedStmtDB(config.ConnPool)
	}

	return &DB{Config: config}, nil
}

// Session carries per-call overrides
type Session struct {
	Logger logger.Interface
	DryRun bool
}

// Session returns a shallow DB clone with the overrides applied
func (db *DB) Session(config *Session) *DB {
	tx := &DB{Config: &Config{}}
	*tx.Config = *db.Config

	if config.Logger != nil {
		tx.Logger = config.Logger
	}
	if config.DryRun {
		tx.DryRun = true
	}
	return tx
}

// Close releases the underlying pool and any cached prepared statements
func (db *DB) Close() error {
	if stmtDB, ok := db.ConnPool.(*PreparedStmtDB); ok {
		stmtDB.Close()
	}
	if sqlDB, err := db.sqlDB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}

func (db *DB) sqlDB() (*sql.DB, error) {
	if sqlDB, ok := db.ConnPool.(*sql.DB); ok {
		return sqlDB, nil
	}
	if connector, ok := db.ConnPool.(GetDBConnector); ok && connector != nil {
		return connector.GetDBConn()
	}
	return nil, ErrInvalidDB
}
