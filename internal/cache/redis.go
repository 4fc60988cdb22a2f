package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefixEmployee string = "employee_portal:employee:"
	keyPrefixSearch   string = "employee_portal:search:"
	keyPattern        string = "employee_portal:*"
)

// redisCache stores every employee and search under its own key so redis
// expires them, nothing is pruned locally
type redisCache struct {
	sync.RWMutex
	redisClient *redis.Client
	config      struct {
		address  string
		port     string
		password string
		database int
		timeout  time.Duration
		ttl      time.Duration
	}
	utilities.Logger
}

func NewRedis(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &redisCache{
		Logger: utilities.NewNopLogger(),
	}
	c.config.address = "localhost"
	c.config.port = "6379"
	c.config.timeout = 10 * time.Second
	c.config.ttl = defaultTTL
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

func employeeKey(id int64) string {
	return keyPrefixEmployee + strconv.FormatInt(id, 10)
}

func (c *redisCache) client(ctx context.Context) (*redis.Client, context.Context, context.CancelFunc, error) {
	c.RLock()
	redisClient, timeout := c.redisClient, c.config.timeout
	c.RUnlock()

	if redisClient == nil {
		return nil, nil, nil, errors.New("redis cache not open")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return redisClient, ctx, cancel, nil
}

func (c *redisCache) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	if redisAddress, ok := envs["REDIS_ADDRESS"]; ok {
		c.config.address = redisAddress
	}
	if redisPort, ok := envs["REDIS_PORT"]; ok {
		c.config.port = redisPort
	}
	if redisPassword, ok := envs["REDIS_PASSWORD"]; ok {
		c.config.password = redisPassword
	}
	if redisDatabase, ok := envs["REDIS_DATABASE"]; ok {
		i, _ := strconv.ParseInt(redisDatabase, 10, 64)
		c.config.database = int(i)
	}
	if redisTimeout, ok := envs["REDIS_TIMEOUT"]; ok {
		i, _ := strconv.ParseInt(redisTimeout, 10, 64)
		c.config.timeout = time.Duration(i) * time.Second
	}
	configureTTL(envs, &c.config.ttl)
	return nil
}

func (c *redisCache) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(c.config.address, c.config.port),
		Password: c.config.password,
		DB:       c.config.database,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return fmt.Errorf("unable to connect to redis at %s:%s: %w",
			c.config.address, c.config.port, err)
	}
	c.redisClient = redisClient
	return nil
}

func (c *redisCache) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if c.redisClient == nil {
		return nil
	}
	if err := c.redisClient.Close(); err != nil {
		c.Error(ctx, "error while shutting down redis client: %s", err)
	}
	c.redisClient = nil
	return nil
}

func (c *redisCache) deletePattern(ctx context.Context, redisClient *redis.Client, pattern string) error {
	var keys []string

	iter := redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return redisClient.Del(ctx, keys...).Err()
}

func (c *redisCache) Clear(ctx context.Context) error {
	redisClient, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return c.deletePattern(ctx, redisClient, keyPattern)
}

func (c *redisCache) SearchesClear(ctx context.Context) error {
	redisClient, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	return c.deletePattern(ctx, redisClient, keyPrefixSearch+"*")
}

func (c *redisCache) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	redisClient, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	bytes, err := redisClient.Get(ctx, employeeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeeNotCached
		}
		return nil, err
	}
	employee := &data.Employee{}
	if err := employee.UnmarshalBinary(bytes); err != nil {
		return nil, err
	}
	return employee, nil
}

func (c *redisCache) EmployeesRead(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	redisClient, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	searchKey, err := search.ToKey()
	if err != nil {
		return nil, err
	}
	bytes, err := redisClient.Get(ctx, keyPrefixSearch+searchKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeeSearchNotCached
		}
		return nil, err
	}
	entry := &searchEntry{}
	if err := entry.UnmarshalBinary(bytes); err != nil {
		return nil, err
	}
	employees := make([]*data.Employee, 0, len(entry.Ids))
	if len(entry.Ids) == 0 {
		return employees, nil
	}
	keys := make([]string, 0, len(entry.Ids))
	for _, id := range entry.Ids {
		keys = append(keys, employeeKey(id))
	}
	values, err := redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, value := range values {
		s, ok := value.(string)
		if !ok {
			c.Trace(ctx, "employee %d evicted, search %s no longer valid", entry.Ids[i], searchKey)
			if err := redisClient.Del(ctx, keyPrefixSearch+searchKey).Err(); err != nil {
				c.Error(ctx, "error while deleting search (%s): %s", searchKey, err)
			}
			return nil, ErrEmployeeSearchNotCached
		}
		employee := &data.Employee{}
		if err := employee.UnmarshalBinary([]byte(s)); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
	}
	return employees, nil
}

func (c *redisCache) EmployeesWrite(ctx context.Context, search *data.EmployeeSearch, employees ...*data.Employee) error {
	redisClient, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	c.RLock()
	ttl := c.config.ttl
	c.RUnlock()
	if ttl < 0 {
		ttl = 0
	}
	pipe := redisClient.TxPipeline()
	for _, employee := range employees {
		bytes, err := employee.MarshalBinary()
		if err != nil {
			return err
		}
		pipe.Set(ctx, employeeKey(employee.Id), bytes, ttl)
	}
	if search != nil {
		searchKey, err := search.ToKey()
		if err != nil {
			return err
		}
		bytes, err := newSearchEntry(employees).MarshalBinary()
		if err != nil {
			return err
		}
		pipe.Set(ctx, keyPrefixSearch+searchKey, bytes, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *redisCache) EmployeesDelete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	redisClient, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, employeeKey(id))
	}
	return redisClient.Del(ctx, keys...).Err()
}
