package main

import (
	"context"
	gosql "database/sql"
	"testing"

	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type connector struct {
	attempts int
	errs     []error
}

func (c *connector) Connection(ctx context.Context) (*gosql.DB, error) {
	c.attempts++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return nil, err
	}
	return &gosql.DB{}, nil
}

func TestCreateCache(t *testing.T) {
	c, err := createCache(map[string]string{})
	assert.Nil(t, err)
	assert.Nil(t, c)

	for _, cacheType := range []string{"memory", "redis", "stash-memory", "stash-redis"} {
		c, err := createCache(map[string]string{"CACHE_TYPE": cacheType})
		assert.Nil(t, err, cacheType)
		assert.NotNil(t, c, cacheType)
	}

	_, err = createCache(map[string]string{"CACHE_TYPE": "memcached"})
	assert.NotNil(t, err)
}

func TestWarmUp(t *testing.T) {
	ctx, logger := context.TODO(), utilities.NewNopLogger()
	refused := data.NewConnectionError("unable to connect", errors.New("connection refused"))

	//not configured, nothing is attempted
	c := &connector{}
	err := warmUp(ctx, map[string]string{}, c, logger)
	assert.Nil(t, err)
	assert.Equal(t, 0, c.attempts)

	//connection errors are retried
	c = &connector{errs: []error{refused, refused}}
	err = warmUp(ctx, map[string]string{"DATABASE_CONNECT_RETRIES": "5"}, c, logger)
	assert.Nil(t, err)
	assert.Equal(t, 3, c.attempts)

	//until retries run out
	c = &connector{errs: []error{refused, refused, refused}}
	err = warmUp(ctx, map[string]string{"DATABASE_CONNECT_RETRIES": "2"}, c, logger)
	assert.NotNil(t, err)
	assert.Equal(t, 2, c.attempts)

	//anything else isn't
	c = &connector{errs: []error{errors.New("bad dsn")}}
	err = warmUp(ctx, map[string]string{"DATABASE_CONNECT_RETRIES": "5"}, c, logger)
	assert.NotNil(t, err)
	assert.Equal(t, 1, c.attempts)
}
