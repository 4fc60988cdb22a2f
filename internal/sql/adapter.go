package sql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"golang.org/x/sync/singleflight"

	_ "github.com/go-sql-driver/mysql" //import for driver support
	_ "github.com/lib/pq"              //import for driver support
)

const (
	defaultMaxOpenConns    int           = 10
	defaultConnMaxIdleTime time.Duration = 30 * time.Second
	defaultConnectTimeout  time.Duration = 15 * time.Second
)

// Config holds the connection parameters, the password is never logged
type Config struct {
	Driver          string        `json:"driver"`
	Hostname        string        `json:"hostname"`
	Port            string        `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"-"`
	Database        string        `json:"database"`
	Encrypt         bool          `json:"encrypt"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `json:"connect_timeout"`
	CreateSchema    bool          `json:"create_schema"`
}

// OpenFunc opens and verifies a pool, it's swapped out in tests
type OpenFunc func(ctx context.Context, driverName, dataSourceName string) (*sql.DB, error)

// Handle is what the repository needs from a connection, *sql.DB
// satisfies it
type Handle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Adapter owns the process wide pool; it's created lazily on first use and
// concurrent first callers share a single connection attempt. A failed
// attempt isn't cached or retried, the next call tries again.
type Adapter struct {
	sync.RWMutex
	config  Config
	dialect dialect
	group   singleflight.Group
	db      *sql.DB
	epoch   uint64
	openFx  OpenFunc
	utilities.Logger
}

func NewAdapter(parameters ...any) *Adapter {
	a := &Adapter{
		openFx:  openDB,
		dialect: mysqlDialect{},
		Logger:  utilities.NewNopLogger(),
	}
	a.config.MaxOpenConns = defaultMaxOpenConns
	a.config.ConnMaxIdleTime = defaultConnMaxIdleTime
	a.config.ConnectTimeout = defaultConnectTimeout
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			a.Logger = p
		case OpenFunc:
			a.openFx = p
		case Config:
			a.config = p
		}
	}
	if d, err := newDialect(a.config.Driver); err == nil {
		a.dialect = d
	}
	return a
}

func openDB(ctx context.Context, driverName, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func atoSeconds(s string) (time.Duration, error) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(i) * time.Second, nil
}

func (a *Adapter) Configure(envs map[string]string) error {
	a.Lock()
	defer a.Unlock()

	if driver, ok := envs["DATABASE_DRIVER"]; ok {
		a.config.Driver = driver
	}
	if databaseHost := envs["DATABASE_HOST"]; databaseHost != "" {
		a.config.Hostname = databaseHost
	}
	if databasePort := envs["DATABASE_PORT"]; databasePort != "" {
		a.config.Port = databasePort
	}
	if database := envs["DATABASE_NAME"]; database != "" {
		a.config.Database = database
	}
	if username := envs["DATABASE_USER"]; username != "" {
		a.config.Username = username
	}
	if password := envs["DATABASE_PASSWORD"]; password != "" {
		a.config.Password = password
	}
	if encrypt := envs["DATABASE_ENCRYPT"]; encrypt != "" {
		a.config.Encrypt, _ = strconv.ParseBool(encrypt)
	}
	if s := envs["DATABASE_MAX_OPEN_CONNS"]; s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_MAX_OPEN_CONNS: %w", err)
		}
		a.config.MaxOpenConns = i
	}
	if s := envs["DATABASE_MAX_IDLE_CONNS"]; s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_MAX_IDLE_CONNS: %w", err)
		}
		a.config.MaxIdleConns = i
	}
	if s := envs["DATABASE_CONN_MAX_IDLE_TIME"]; s != "" {
		d, err := atoSeconds(s)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_CONN_MAX_IDLE_TIME: %w", err)
		}
		a.config.ConnMaxIdleTime = d
	}
	if s := envs["DATABASE_CONNECT_TIMEOUT"]; s != "" {
		d, err := atoSeconds(s)
		if err != nil {
			return fmt.Errorf("invalid DATABASE_CONNECT_TIMEOUT: %w", err)
		}
		a.config.ConnectTimeout = d
	}
	if s := envs["DATABASE_CREATE_SCHEMA"]; s != "" {
		a.config.CreateSchema, _ = strconv.ParseBool(s)
	}
	d, err := newDialect(a.config.Driver)
	if err != nil {
		return err
	}
	a.dialect = d
	return nil
}

// Open doesn't connect, the pool is created by the first call to Connection
func (a *Adapter) Open(ctx context.Context) error {
	return nil
}

// Close drains and closes the pool if there is one; a subsequent call to
// Connection will create a new pool.
func (a *Adapter) Close(ctx context.Context) error {
	a.Lock()
	defer a.Unlock()

	// an attempt in flight when the pool is closed discards what it opens
	a.epoch++
	if a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		a.Error(ctx, "error while closing %s pool: %s", a.dialect.driverName(), err)
	}
	a.db = nil
	return nil
}

func (a *Adapter) Driver() string {
	a.RLock()
	defer a.RUnlock()

	return a.dialect.driverName()
}

// Connection returns the pool, creating it if needed. The attempt is shared
// by every concurrent caller and isn't tied to any one of them; each caller
// only stops waiting when its own context is done.
func (a *Adapter) Connection(ctx context.Context) (*sql.DB, error) {
	a.RLock()
	db := a.db
	a.RUnlock()
	if db != nil {
		return db, nil
	}
	chResult := a.group.DoChan("connect", func() (any, error) {
		a.RLock()
		db, config, dbDialect, epoch := a.db, a.config, a.dialect, a.epoch
		a.RUnlock()
		if db != nil {
			return db, nil
		}
		connectCtx, cancel := context.WithoutCancel(ctx), context.CancelFunc(func() {})
		if config.ConnectTimeout > 0 {
			connectCtx, cancel = context.WithTimeout(connectCtx, config.ConnectTimeout)
		}
		defer cancel()
		db, err := a.connect(connectCtx, config, dbDialect)
		if err != nil {
			return nil, err
		}
		a.Lock()
		defer a.Unlock()
		if a.epoch != epoch {
			_ = db.Close()
			return nil, data.NewConnectionError(fmt.Sprintf("%s pool closed while connecting",
				dbDialect.driverName()), nil)
		}
		a.db = db
		return db, nil
	})
	select {
	case <-ctx.Done():
		return nil, data.NewConnectionError("gave up waiting for a connection", ctx.Err())
	case result := <-chResult:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*sql.DB), nil
	}
}

func (a *Adapter) connect(ctx context.Context, config Config, dbDialect dialect) (*sql.DB, error) {
	driverName := dbDialect.driverName()
	port := config.Port
	if port == "" {
		port = dbDialect.defaultPort()
	}
	address := net.JoinHostPort(config.Hostname, port)
	a.Debug(ctx, "connecting to %s database %q at %s as %q", driverName,
		config.Database, address, config.Username)
	db, err := a.openFx(ctx, driverName, dbDialect.dataSourceName(config))
	if err != nil {
		a.Error(ctx, "connection to %s database %q at %s as %q failed: %s",
			driverName, config.Database, address, config.Username, err)
		return nil, data.NewConnectionError(fmt.Sprintf("unable to connect to %s database %q at %s as %q",
			driverName, config.Database, address, config.Username), err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	if config.CreateSchema {
		if _, err := db.ExecContext(ctx, dbDialect.schema()); err != nil {
			_ = db.Close()
			return nil, data.NewConnectionError(fmt.Sprintf("unable to create schema in %s database %q",
				driverName, config.Database), err)
		}
	}
	a.Info(ctx, "connected to %s database %q at %s", driverName, config.Database, address)
	return db, nil
}
