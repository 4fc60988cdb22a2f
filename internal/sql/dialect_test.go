package sql

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestDialect(t *testing.T) {
	config := Config{
		Hostname:       "localhost",
		Username:       "portal",
		Password:       "p@ss word",
		Database:       "portal",
		ConnectTimeout: 5 * time.Second,
	}

	t.Run("MySql", func(t *testing.T) {
		d, err := newDialect("")
		assert.Nil(t, err)
		assert.Equal(t, DriverMySql, d.driverName())
		dsn := d.dataSourceName(config)
		parsed, err := mysql.ParseDSN(dsn)
		assert.Nil(t, err)
		assert.Equal(t, "localhost:3306", parsed.Addr)
		assert.Equal(t, "p@ss word", parsed.Passwd)
		assert.Equal(t, "portal", parsed.DBName)
		assert.True(t, parsed.ParseTime)
		assert.Equal(t, 5*time.Second, parsed.Timeout)
		assert.Equal(t, "SELECT ? FROM x", d.rebind("SELECT ? FROM x"))
		assert.False(t, d.returning())
		assert.True(t, d.isDuplicate(errors.Wrap(&mysql.MySQLError{Number: 1062}, "insert")))
		assert.False(t, d.isDuplicate(&mysql.MySQLError{Number: 1045}))
		assert.False(t, d.isDuplicate(&pq.Error{Code: "23505"}))

		encrypted := config
		encrypted.Encrypt = true
		parsed, err = mysql.ParseDSN(d.dataSourceName(encrypted))
		assert.Nil(t, err)
		assert.Equal(t, "skip-verify", parsed.TLSConfig)
	})

	t.Run("Postgres", func(t *testing.T) {
		d, err := newDialect("PostgreSQL")
		assert.Nil(t, err)
		assert.Equal(t, DriverPostgres, d.driverName())
		dsn := d.dataSourceName(config)
		assert.Contains(t, dsn, "postgres://portal:")
		assert.Contains(t, dsn, "@localhost:5432/portal")
		assert.Contains(t, dsn, "sslmode=disable")
		assert.Contains(t, dsn, "connect_timeout=5")
		_, err = pq.ParseURL(dsn)
		assert.Nil(t, err)
		assert.Equal(t, "a = $1 AND b = $2 AND c IN ($3)", d.rebind("a = ? AND b = ? AND c IN (?)"))
		assert.True(t, d.returning())
		assert.True(t, d.isDuplicate(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
		assert.False(t, d.isDuplicate(&pq.Error{Code: "23503"}))
		assert.False(t, d.isDuplicate(&mysql.MySQLError{Number: 1062}))
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := newDialect("sqlserver")
		assert.NotNil(t, err)
	})
}
