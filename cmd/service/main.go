package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/cache"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/logic"
	"github.com/antonio-alexander/go-employee-portal/internal/service"
	"github.com/antonio-alexander/go-employee-portal/internal/sql"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"
	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

func main() {
	pwd, _ := os.Getwd()
	args := os.Args[1:]
	envs := internal.Envs(os.Environ())
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(pwd, args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

func createCache(envs map[string]string, parameters ...any) (interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	cache.Cache
}, error) {
	switch cacheType := envs["CACHE_TYPE"]; cacheType {
	default:
		return nil, errors.Errorf("unsupported CACHE_TYPE: %s", cacheType)
	case "":
		return nil, nil
	case "memory":
		return cache.NewMemory(parameters...), nil
	case "redis":
		return cache.NewRedis(parameters...), nil
	case "stash-memory":
		return cache.NewStash(append(parameters, memory.New())...), nil
	case "stash-redis":
		return cache.NewStash(append(parameters, redis.New())...), nil
	}
}

// warmUp establishes the pool before the listener opens, re-invoking the
// adapter with exponential backoff; it's a no-op unless retries are
// configured
func warmUp(ctx context.Context, envs map[string]string, connector sql.Connector, logger utilities.Logger) error {
	retries, _ := strconv.Atoi(envs["DATABASE_CONNECT_RETRIES"])
	if retries <= 0 {
		return nil
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if _, err := connector.Connection(ctx); err != nil {
			if data.KindOf(err) != data.KindConnection {
				return struct{}{}, backoff.Permanent(err)
			}
			logger.Info(ctx, "database not ready: %s", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(retries)))
	return err
}

func Main(pwd string, args []string, envs map[string]string, osSignal chan os.Signal) error {
	var wg sync.WaitGroup

	//read config file, the environment takes precedence
	if configFile := envs["CONFIG_FILE"]; configFile != "" {
		if err := internal.ReadConfigFile(configFile, envs); err != nil {
			return err
		}
	}

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create utilities
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)
	timers := utilities.NewTimers()
	counter := utilities.NewCounter()

	//print version info
	logger.Info(ctx, "server: go-employee-portal v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	//create sql, configure and open
	sql := sql.NewSql(logger)
	if err := sql.Configure(envs); err != nil {
		return err
	}
	if err := sql.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := sql.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing sql: %s", err)
		}
	}()
	if err := warmUp(ctx, envs, sql, logger); err != nil {
		return err
	}

	// create cache
	cache, err := createCache(envs, logger)
	if err != nil {
		return err
	}
	if cache != nil {
		if err := cache.Configure(envs); err != nil {
			return err
		}
		if err := cache.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(context.Background()); err != nil {
				logger.Error(context.Background(), "error while closing cache: %s", err)
			}
		}()
	}

	//create logic, configure and open
	parameters := []any{sql, logger, counter}
	if cache != nil {
		parameters = append(parameters, cache)
	}
	logic := logic.NewLogic(parameters...)
	if err := logic.Configure(envs); err != nil {
		return err
	}
	if err := logic.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := logic.Close(context.Background()); err != nil {
			logger.Error(context.Background(), "error while closing logic: %s", err)
		}
	}()

	//create service, configure and open
	parameters = []any{logic, logger, counter, timers}
	if cache != nil {
		parameters = append(parameters, cache)
	}
	service := service.NewService(parameters...)
	if err := service.Configure(envs); err != nil {
		return err
	}
	if err := service.Open(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	wg.Wait()
	if err := service.Close(context.Background()); err != nil {
		logger.Error(context.Background(), "error while closing service: %s", err)
	}
	return nil
}
