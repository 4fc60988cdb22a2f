package sql

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

const (
	DriverMySql    string = "mysql"
	DriverPostgres string = "postgres"
)

const (
	mysqlErrDuplicateEntry uint16 = 1062
	postgresUniqueViolation       = "23505"
)

// dialect isolates everything that differs between backends: connection
// strings, placeholders, RETURNING support and constraint violation codes
type dialect interface {
	driverName() string
	defaultPort() string
	dataSourceName(config Config) string
	rebind(query string) string
	returning() bool
	isDuplicate(err error) bool
	schema() string
}

func newDialect(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	case "", DriverMySql:
		return mysqlDialect{}, nil
	case DriverPostgres, "postgresql":
		return postgresDialect{}, nil
	}
}

type mysqlDialect struct{}

func (mysqlDialect) driverName() string  { return DriverMySql }
func (mysqlDialect) defaultPort() string { return "3306" }
func (mysqlDialect) returning() bool     { return false }

func (mysqlDialect) rebind(query string) string { return query }

func (d mysqlDialect) dataSourceName(config Config) string {
	port := config.Port
	if port == "" {
		port = d.defaultPort()
	}
	c := mysql.NewConfig()
	c.User = config.Username
	c.Passwd = config.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(config.Hostname, port)
	c.DBName = config.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Timeout = config.ConnectTimeout
	c.Params = map[string]string{"time_zone": "'+00:00'"}
	if config.Encrypt {
		c.TLSConfig = "skip-verify"
	}
	return c.FormatDSN()
}

func (mysqlDialect) isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

func (mysqlDialect) schema() string {
	return `CREATE TABLE IF NOT EXISTS ` + tableEmployees + ` (
		id INT NOT NULL AUTO_INCREMENT,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
		department VARCHAR(100) NULL,
		date_hired DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		PRIMARY KEY (id),
		UNIQUE KEY employees_email (email)
	)`
}

type postgresDialect struct{}

func (postgresDialect) driverName() string  { return DriverPostgres }
func (postgresDialect) defaultPort() string { return "5432" }
func (postgresDialect) returning() bool     { return true }

// rebind swaps ? placeholders for $n, none of the queries contain a literal ?
func (postgresDialect) rebind(query string) string {
	var builder strings.Builder
	var n int

	for _, r := range query {
		if r != '?' {
			builder.WriteRune(r)
			continue
		}
		n++
		builder.WriteString("$" + strconv.Itoa(n))
	}
	return builder.String()
}

func (d postgresDialect) dataSourceName(config Config) string {
	port := config.Port
	if port == "" {
		port = d.defaultPort()
	}
	sslMode := "disable"
	if config.Encrypt {
		sslMode = "require"
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	if config.ConnectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(config.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     net.JoinHostPort(config.Hostname, port),
		Path:     "/" + config.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (postgresDialect) isDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == postgresUniqueViolation
}

func (postgresDialect) schema() string {
	return `CREATE TABLE IF NOT EXISTS ` + tableEmployees + ` (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		department VARCHAR(100),
		date_hired TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT employees_email UNIQUE (email)
	)`
}
