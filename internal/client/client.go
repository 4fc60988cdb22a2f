package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/pkg/errors"
)

// MessageConnectionFailed is the message of every error caused by the
// service being unreachable
const MessageConnectionFailed string = "Failed to connect to server"

type Client interface {
	EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error)
	EmployeeRead(ctx context.Context, id int64) (*data.Employee, error)
	EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error)
	EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error)
	CacheClear(ctx context.Context) error
	CacheCountersRead(ctx context.Context) (*data.CacheCounters, error)
	CacheCountersClear(ctx context.Context) error
	TimersRead(ctx context.Context) (*data.Timers, error)
	TimersClear(ctx context.Context) error
}

type client struct {
	sync.RWMutex
	config struct {
		protocol   string
		address    string
		port       string
		timeout    time.Duration
		apiKey     string
		sslCaFile  string
		sslCrtFile string
		sslKeyFile string
	}
	address    string
	httpClient *http.Client
	utilities.Logger
}

func NewClient(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Client
} {
	c := &client{
		httpClient: &http.Client{},
		Logger:     utilities.NewNopLogger(),
	}
	c.config.protocol = "http"
	c.config.address = "localhost"
	c.config.port = "8080"
	c.config.timeout = 10 * time.Second
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	return c
}

// errorFromResponse converts a non-2xx response into a *data.Error so
// callers can branch on kind the same way they would server side
func errorFromResponse(statusCode int, body []byte) error {
	var response data.ResponseError

	if err := json.Unmarshal(body, &response); err != nil || response.Error == "" {
		response.Error = http.StatusText(statusCode)
	}
	e := &data.Error{
		Message: response.Error,
		Fields:  response.Fields,
	}
	if response.Details != "" {
		e.Err = errors.New(response.Details)
	}
	switch statusCode {
	default:
		e.Kind = data.KindStore
	case http.StatusBadRequest:
		e.Kind = data.KindBadRequest
		if len(response.Fields) > 0 {
			e.Kind = data.KindValidation
		}
	case http.StatusUnauthorized:
		e.Kind = data.KindUnauthorized
	case http.StatusNotFound:
		e.Kind = data.KindNotFound
	case http.StatusConflict:
		e.Kind = data.KindDuplicateEmail
	}
	return e
}

func (c *client) doRequest(ctx context.Context, method, uri string, item any) ([]byte, error) {
	var body io.Reader

	c.RLock()
	apiKey, httpClient := c.config.apiKey, c.httpClient
	c.RUnlock()

	switch d := item.(type) {
	case url.Values:
		if len(d) > 0 {
			uri = uri + "?" + d.Encode()
		}
	case nil:
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		request.Header.Set(data.HeaderApiKey, apiKey)
	}
	correlationId := internal.CorrelationIdFromCtx(ctx)
	if correlationId == "" {
		correlationId = internal.GenerateId()
	}
	request.Header.Set(internal.HeaderCorrelationId, correlationId)
	response, err := httpClient.Do(request)
	if err != nil {
		c.Debug(ctx, "%s %s failed: %s", method, uri, err)
		return nil, data.NewConnectionError(MessageConnectionFailed,
			errors.Wrapf(err, "%s %s", method, uri))
	}
	defer response.Body.Close()
	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, data.NewConnectionError(MessageConnectionFailed,
			errors.Wrap(err, "unable to read response"))
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, errorFromResponse(response.StatusCode, payload)
	}
	return payload, nil
}

func (c *client) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	if address, ok := envs["CLIENT_ADDRESS"]; ok {
		c.config.address = address
	}
	if port, ok := envs["CLIENT_PORT"]; ok {
		c.config.port = port
	}
	if protocol, ok := envs["CLIENT_PROTOCOL"]; ok {
		c.config.protocol = protocol
	}
	if timeout, ok := envs["CLIENT_TIMEOUT"]; ok {
		i, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid CLIENT_TIMEOUT")
		}
		c.config.timeout = time.Duration(i) * time.Second
	}
	if apiKey, ok := envs["CLIENT_API_KEY"]; ok {
		c.config.apiKey = apiKey
	}
	if sslCaFile, ok := envs["SSL_CA_FILE"]; ok {
		c.config.sslCaFile = sslCaFile
	}
	if sslKeyFile, ok := envs["SSL_KEY_FILE"]; ok {
		c.config.sslKeyFile = sslKeyFile
	}
	if sslCrtFile, ok := envs["SSL_CRT_FILE"]; ok {
		c.config.sslCrtFile = sslCrtFile
	}
	return nil
}

func (c *client) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	switch c.config.protocol {
	default:
		return errors.Errorf("unsupported protocol: %s", c.config.protocol)
	case "http", "https":
		c.address = fmt.Sprintf("%s://%s", c.config.protocol,
			net.JoinHostPort(c.config.address, c.config.port))
	}
	transport, err := newTransport(c.config.sslCaFile, c.config.sslCrtFile,
		c.config.sslKeyFile)
	if err != nil {
		return err
	}
	c.httpClient = &http.Client{
		Timeout:   c.config.timeout,
		Transport: transport,
	}
	c.Debug(ctx, "client configured for %s", c.address)
	return nil
}

func (c *client) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

func (c *client) uri(format string, v ...any) string {
	c.RLock()
	defer c.RUnlock()

	return c.address + fmt.Sprintf(format, v...)
}

func (c *client) employeeResponse(bytes []byte) (*data.Employee, error) {
	response := &data.Response{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, errors.Wrap(err, "unable to decode employee response")
	}
	return response.Employee, nil
}

func (c *client) EmployeeCreate(ctx context.Context, fields data.EmployeeFields) (*data.Employee, error) {
	bytes, err := c.doRequest(ctx, http.MethodPost, c.uri(data.RouteEmployees), &fields)
	if err != nil {
		return nil, err
	}
	return c.employeeResponse(bytes)
}

func (c *client) EmployeeRead(ctx context.Context, id int64) (*data.Employee, error) {
	bytes, err := c.doRequest(ctx, http.MethodGet, c.uri(data.RouteEmployeesIdf, id), nil)
	if err != nil {
		return nil, err
	}
	return c.employeeResponse(bytes)
}

func (c *client) EmployeesSearch(ctx context.Context, search data.EmployeeSearch) ([]*data.Employee, error) {
	var response data.ResponseEmployees

	bytes, err := c.doRequest(ctx, http.MethodGet, c.uri(data.RouteEmployees), search.ToParams())
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bytes, &response); err != nil {
		return nil, errors.Wrap(err, "unable to decode employees response")
	}
	if response.Employees == nil {
		response.Employees = []*data.Employee{}
	}
	return response.Employees, nil
}

func (c *client) EmployeeUpdate(ctx context.Context, id int64, fields data.EmployeeFields) (*data.Employee, error) {
	bytes, err := c.doRequest(ctx, http.MethodPut, c.uri(data.RouteEmployeesIdf, id), &fields)
	if err != nil {
		return nil, err
	}
	return c.employeeResponse(bytes)
}

func (c *client) EmployeeDelete(ctx context.Context, id int64) (*data.Employee, error) {
	bytes, err := c.doRequest(ctx, http.MethodDelete, c.uri(data.RouteEmployeesIdf, id), nil)
	if err != nil {
		return nil, err
	}
	return c.employeeResponse(bytes)
}

func (c *client) CacheClear(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodDelete, c.uri(data.RouteCache), nil)
	return err
}

func (c *client) CacheCountersRead(ctx context.Context) (*data.CacheCounters, error) {
	bytes, err := c.doRequest(ctx, http.MethodGet, c.uri(data.RouteCacheCounters), nil)
	if err != nil {
		return nil, err
	}
	response := &data.CacheCounters{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) CacheCountersClear(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodDelete, c.uri(data.RouteCacheCounters), nil)
	return err
}

func (c *client) TimersRead(ctx context.Context) (*data.Timers, error) {
	bytes, err := c.doRequest(ctx, http.MethodGet, c.uri(data.RouteTimers), nil)
	if err != nil {
		return nil, err
	}
	response := &data.Timers{}
	if err := json.Unmarshal(bytes, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *client) TimersClear(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodDelete, c.uri(data.RouteTimers), nil)
	return err
}
