package internal

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func GenerateId() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// LaunchContext returns a context that is cancelled once a signal is received
// on osSignal (or cancel is called); the go routine watching the signal is
// tracked by wg.
func LaunchContext(wg *sync.WaitGroup, osSignal chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		close(started)
		select {
		case <-ctx.Done():
		case <-osSignal:
		}
	}()
	<-started
	return ctx, cancel
}

// Envs folds environ (KEY=VALUE pairs) into a map, values may contain '='
func Envs(environ []string) map[string]string {
	envs := make(map[string]string)
	for _, env := range environ {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
	return envs
}

// ReadConfigFile loads a flat yaml document of KEY: value pairs; keys already
// present in envs win over the file so real environment variables can
// override it.
func ReadConfigFile(configFile string, envs map[string]string) error {
	var values map[string]string

	bytes, err := os.ReadFile(configFile)
	if err != nil {
		return errors.Wrapf(err, "unable to read config file %s", configFile)
	}
	if err := yaml.Unmarshal(bytes, &values); err != nil {
		return errors.Wrapf(err, "unable to parse config file %s", configFile)
	}
	for key, value := range values {
		if _, ok := envs[key]; ok {
			continue
		}
		envs[key] = value
	}
	return nil
}
