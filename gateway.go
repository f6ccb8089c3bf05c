package sqlbulk

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ConnPool db conns pool interface
type ConnPool interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// GetDBConnector SQL db connector
type GetDBConnector interface {
	GetDBConn() (*sql.DB, error)
}

// exec runs the statement, traces it, and reports rows affected plus the
// first server-generated identity of the statement
func (db *DB) exec(ctx context.Context, stmt *Statement) (rowsAffected, lastInsertID int64, err error) {
	if err = db.ensureOpen(ctx); err != nil {
		return 0, 0, err
	}

	begin := time.Now()
	result, err := db.ConnPool.ExecContext(ctx, stmt.SQL.String(), stmt.Vars...)
	if err == nil {
		rowsAffected, _ = result.RowsAffected()
		lastInsertID, _ = result.LastInsertId()
	}
	db.Logger.Trace(ctx, begin, func() (string, int64) {
		return stmt.Explain(), rowsAffected
	}, err)
	return rowsAffected, lastInsertID, classifyErr(err)
}

// query runs the statement and returns its rows; the caller owns Close
func (db *DB) query(ctx context.Context, stmt *Statement) (*sql.Rows, error) {
	if err := db.ensureOpen(ctx); err != nil {
		return nil, err
	}

	begin := time.Now()
	rows, err := db.ConnPool.QueryContext(ctx, stmt.SQL.String(), stmt.Vars...)
	db.Logger.Trace(ctx, begin, func() (string, int64) {
		return stmt.Explain(), -1
	}, err)
	return rows, classifyErr(err)
}

// connGate verifies connectivity before the first statement; a failed ping
// re-arms the gate so the next call checks again instead of inheriting a
// stale verdict
type connGate struct {
	mu   sync.Mutex
	open bool
}

func (db *DB) ensureOpen(ctx context.Context) error {
	db.gate.mu.Lock()
	defer db.gate.mu.Unlock()

	if db.gate.open {
		return nil
	}

	sqlDB, err := db.sqlDB()
	if err != nil {
		// injected pool without *sql.DB access, nothing to ping
		db.gate.open = true
		return nil
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	db.gate.open = true
	return nil
}

// classifyErr folds driver failures into the two sentinel categories:
// connectivity problems wrap ErrConnection, everything the server rejected
// wraps ErrStatement
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return fmt.Errorf("%w: %v", ErrStatement, err)
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	return fmt.Errorf("%w: %v", ErrStatement, err)
}

// Stmt defers Prepare completion so concurrent callers of the same query
// text share one server-side statement
type Stmt struct {
	*sql.Stmt
	prepared   chan struct{}
	prepareErr error
}

// PreparedStmtDB caches prepared statements keyed by statement text
type PreparedStmtDB struct {
	Stmts map[string]*Stmt
	Mux   *sync.RWMutex
	ConnPool
}

// NewPreparedStmtDB creates a statement-caching pool over connPool
func NewPreparedStmtDB(connPool ConnPool) *PreparedStmtDB {
	return &PreparedStmtDB{
		ConnPool: connPool,
		Stmts:    make(map[string]*Stmt),
		Mux:      &sync.RWMutex{},
	}
}

// GetDBConn returns the underlying *sql.DB
func (db *PreparedStmtDB) GetDBConn() (*sql.DB, error) {
	if sqlDB, ok := db.ConnPool.(*sql.DB); ok {
		return sqlDB, nil
	}
	if connector, ok := db.ConnPool.(GetDBConnector); ok && connector != nil {
		return connector.GetDBConn()
	}
	return nil, ErrInvalidDB
}

// Close closes all cached statements
func (db *PreparedStmtDB) Close() {
	db.Mux.Lock()
	defer db.Mux.Unlock()

	for _, stmt := range db.Stmts {
		go func(s *Stmt) {
			<-s.prepared
			if s.Stmt != nil {
				s.Stmt.Close()
			}
		}(stmt)
	}
	db.Stmts = make(map[string]*Stmt)
}

func (db *PreparedStmtDB) prepare(ctx context.Context, query string) (*Stmt, error) {
	db.Mux.RLock()
	if stmt, ok := db.Stmts[query]; ok {
		db.Mux.RUnlock()
		<-stmt.prepared
		if stmt.prepareErr != nil {
			return nil, stmt.prepareErr
		}
		return stmt, nil
	}
	db.Mux.RUnlock()

	db.Mux.Lock()
	// double check, another goroutine may have prepared it meanwhile
	if stmt, ok := db.Stmts[query]; ok {
		db.Mux.Unlock()
		<-stmt.prepared
		if stmt.prepareErr != nil {
			return nil, stmt.prepareErr
		}
		return stmt, nil
	}

	cacheStmt := &Stmt{prepared: make(chan struct{})}
	db.Stmts[query] = cacheStmt
	db.Mux.Unlock()

	defer close(cacheStmt.prepared)

	stmt, err := db.ConnPool.PrepareContext(ctx, query)
	if err != nil {
		cacheStmt.prepareErr = err
		db.Mux.Lock()
		delete(db.Stmts, query)
		db.Mux.Unlock()
		return nil, err
	}

	cacheStmt.Stmt = stmt
	return cacheStmt, nil
}

func (db *PreparedStmtDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	stmt, err := db.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	result, err := stmt.ExecContext(ctx, args...)
	if errors.Is(err, driver.ErrBadConn) {
		db.evict(query, stmt)
	}
	return result, err
}

func (db *PreparedStmtDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	stmt, err := db.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if errors.Is(err, driver.ErrBadConn) {
		db.evict(query, stmt)
	}
	return rows, err
}

func (db *PreparedStmtDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	stmt, err := db.prepare(ctx, query)
	if err != nil {
		return db.ConnPool.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

func (db *PreparedStmtDB) evict(query string, stmt *Stmt) {
	db.Mux.Lock()
	if cached, ok := db.Stmts[query]; ok && cached == stmt {
		delete(db.Stmts, query)
	}
	db.Mux.Unlock()

	go func() {
		<-stmt.prepared
		if stmt.Stmt != nil {
			stmt.Stmt.Close()
		}
	}()
}
