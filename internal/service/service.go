package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/cache"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/logic"
	"github.com/antonio-alexander/go-employee-portal/internal/utilities"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

const (
	modeDevelopment        string        = "development"
	defaultShutdownTimeout time.Duration = 10 * time.Second
	maxBodySize            int64         = 1 << 20
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

type service struct {
	sync.RWMutex
	sync.WaitGroup
	config struct {
		address          string
		port             string
		shutdownTimeout  time.Duration
		apiKey           string
		mode             string
		allowedOrigins   []string
		allowedMethods   []string
		allowedHeaders   []string
		allowCredentials bool
		corsDisabled     bool
		corsDebug        bool
		timersEnabled    bool
	}
	ctx     context.Context
	cancel  context.CancelFunc
	router  *mux.Router
	handler http.Handler
	server  *http.Server
	cache   internal.Clearer
	logic   logic.Logic
	utilities.Logger
	utilities.Counter
	utilities.Timers
}

// NewService builds the router up front so the service can be used as an
// http.Handler without being opened
func NewService(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	http.Handler
} {
	s := &service{
		router:  mux.NewRouter(),
		Logger:  utilities.NewNopLogger(),
		Counter: utilities.NewCounter(),
		Timers:  utilities.NewTimers(),
	}
	s.config.shutdownTimeout = defaultShutdownTimeout
	s.config.allowedMethods = []string{http.MethodGet, http.MethodPost,
		http.MethodPut, http.MethodDelete, http.MethodOptions}
	s.config.allowedHeaders = []string{"Content-Type", data.HeaderApiKey,
		internal.HeaderCorrelationId}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case interface {
			cache.Cache
			internal.Clearer
		}:
			s.cache = p
		case logic.Logic:
			s.logic = p
		case utilities.Counter:
			s.Counter = p
		case utilities.Timers:
			s.Timers = p
		case utilities.Logger:
			s.Logger = p
		}
	}
	s.buildRoutes()
	s.handler = s.router
	return s
}

func (s *service) settings() (apiKey string, details, timersEnabled bool) {
	s.RLock()
	defer s.RUnlock()

	return s.config.apiKey, s.config.mode == modeDevelopment, s.config.timersEnabled
}

func (s *service) launchServer() error {
	started := make(chan struct{})
	chErr := make(chan error, 1)
	server := s.server
	s.Add(1)
	go func() {
		defer s.WaitGroup.Done()
		defer close(chErr)

		close(started)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			chErr <- err
		}
	}()
	<-started
	select {
	case err := <-chErr:
		//KIM: a server that fails within a second of starting (e.g. the port
		// is already in use) is reported as a failure to open
		if err != nil {
			return err
		}
		return nil
	case <-time.After(time.Second):
		s.Info(s.ctx, "started server: %s", server.Addr)
		return nil
	}
}

func (s *service) startTimer(ctx context.Context, group string) func() {
	if _, _, timersEnabled := s.settings(); !timersEnabled {
		return func() {}
	}
	index := s.Timers.Start(group)
	return func() {
		s.Trace(ctx, "%s took %v", group, s.Timers.Stop(group, index))
	}
}

// respond writes item, failures writing the response can only be logged
func (s *service) respond(ctx context.Context, writer http.ResponseWriter, statusCode int, item any) {
	if err := handleResponse(writer, statusCode, item); err != nil {
		s.Error(ctx, "error while writing response: %s", err)
	}
}

func (s *service) respondError(ctx context.Context, writer http.ResponseWriter, err error) {
	_, details, _ := s.settings()
	statusCode, response := errorResponse(err, details)
	if statusCode == http.StatusInternalServerError {
		s.Error(ctx, "internal server error: %s", err)
	}
	s.respond(ctx, writer, statusCode, response)
}

// authenticate compares the shared secret in constant time, it's a no-op
// when no secret is configured
func (s *service) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		apiKey, _, _ := s.settings()
		if apiKey != "" && subtle.ConstantTimeCompare(
			[]byte(request.Header.Get(data.HeaderApiKey)), []byte(apiKey)) != 1 {
			ctx := internal.CtxFromRequest(request)
			s.Debug(ctx, "rejected request to %s: api key mismatch", request.URL.Path)
			s.respondError(ctx, writer, data.ErrUnauthorized)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (s *service) decodeFields(request *http.Request) (data.EmployeeFields, error) {
	var fields data.EmployeeFields

	decoder := json.NewDecoder(request.Body)
	if err := decoder.Decode(&fields); err != nil {
		return data.EmployeeFields{}, data.NewBadRequest("Invalid request body", err)
	}
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return data.EmployeeFields{}, err
	}
	return fields, nil
}

func (s *service) endpointDefault(writer http.ResponseWriter, request *http.Request) {
	fmt.Fprintf(writer,
		"go-employee-portal\n"+
			"Version: \"%s\"\n"+
			"Git Commit: \"%s\"\n"+
			"Git Branch: \"%s\"\n",
		Version, GitCommit, GitBranch)
}

func (s *service) endpointEmployeeCreate(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_create")()

	request.Body = http.MaxBytesReader(writer, request.Body, maxBodySize)
	defer request.Body.Close()
	fields, err := s.decodeFields(request)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	employee, err := s.logic.EmployeeCreate(ctx, fields)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	s.respond(ctx, writer, http.StatusCreated, &data.Response{
		Message:  data.MessageEmployeeCreated,
		Employee: employee,
	})
	s.Trace(ctx, "executed employee_create: %d", employee.Id)
}

func (s *service) endpointEmployeeRead(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_read")()

	id, err := idFromPath(mux.Vars(request))
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	employee, err := s.logic.EmployeeRead(ctx, id)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	s.respond(ctx, writer, http.StatusOK, &data.Response{
		Employee: employee,
	})
	s.Trace(ctx, "executed employee_read: %d", employee.Id)
}

func (s *service) endpointEmployeesSearch(writer http.ResponseWriter, request *http.Request) {
	var search data.EmployeeSearch

	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employees_search")()

	search.FromParams(request.URL.Query())
	employees, err := s.logic.EmployeesSearch(ctx, search)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	s.respond(ctx, writer, http.StatusOK, &data.ResponseEmployees{
		Employees: employees,
	})
	s.Trace(ctx, "executed employees_search: %d employees", len(employees))
}

func (s *service) endpointEmployeeUpdate(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_update")()

	id, err := idFromPath(mux.Vars(request))
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	request.Body = http.MaxBytesReader(writer, request.Body, maxBodySize)
	defer request.Body.Close()
	fields, err := s.decodeFields(request)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	employee, err := s.logic.EmployeeUpdate(ctx, id, fields)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	s.respond(ctx, writer, http.StatusOK, &data.Response{
		Message:  data.MessageEmployeeUpdated,
		Employee: employee,
	})
	s.Trace(ctx, "executed employee_update: %d", employee.Id)
}

func (s *service) endpointEmployeeDelete(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_delete")()

	id, err := idFromPath(mux.Vars(request))
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	employee, err := s.logic.EmployeeDelete(ctx, id)
	if err != nil {
		s.respondError(ctx, writer, err)
		return
	}
	s.respond(ctx, writer, http.StatusOK, &data.Response{
		Message:  data.MessageEmployeeDeleted,
		Employee: employee,
	})
	s.Trace(ctx, "executed employee_delete: %d", id)
}

func (s *service) endpointCacheClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.respondError(ctx, writer, err)
			return
		}
		s.Trace(ctx, "executed cache_clear")
	}
	writer.WriteHeader(http.StatusNoContent)
}

func (s *service) endpointCacheCountersRead(writer http.ResponseWriter, request *http.Request) {
	s.respond(request.Context(), writer, http.StatusOK, s.Counter.ReadAll())
}

func (s *service) endpointCacheCountersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	s.Counter.Reset()
	writer.WriteHeader(http.StatusNoContent)
	s.Trace(ctx, "executed cache_counters_clear")
}

func (s *service) endpointTimersRead(writer http.ResponseWriter, request *http.Request) {
	s.respond(request.Context(), writer, http.StatusOK, s.Timers.ReadAll())
}

func (s *service) endpointTimersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	s.Timers.Clear()
	writer.WriteHeader(http.StatusNoContent)
	s.Trace(ctx, "executed timers_clear")
}

func (s *service) notAllowed(writer http.ResponseWriter, request *http.Request, methods ...string) {
	if err := methodNotAllowed(writer, methods...); err != nil {
		s.Error(request.Context(), "error while writing response: %s", err)
	}
}

// buildRoutes dispatches on method inside each handler (rather than with
// route matchers) so unsupported methods get a 405 with an Allow header
func (s *service) buildRoutes() {
	s.router.Use(s.authenticate)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respond(r.Context(), w, http.StatusNotFound, &data.ResponseError{Error: "Not found"})
	})
	s.router.HandleFunc("/", s.endpointDefault)
	s.router.HandleFunc(data.RouteEmployees, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			s.notAllowed(w, r, http.MethodGet, http.MethodPost)
		case http.MethodGet:
			s.endpointEmployeesSearch(w, r)
		case http.MethodPost:
			s.endpointEmployeeCreate(w, r)
		}
	})
	s.router.HandleFunc(data.RouteEmployeesId, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			s.notAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		case http.MethodGet:
			s.endpointEmployeeRead(w, r)
		case http.MethodPut:
			s.endpointEmployeeUpdate(w, r)
		case http.MethodDelete:
			s.endpointEmployeeDelete(w, r)
		}
	})
	s.router.HandleFunc(data.RouteCacheCounters, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			s.notAllowed(w, r, http.MethodGet, http.MethodDelete)
		case http.MethodGet:
			s.endpointCacheCountersRead(w, r)
		case http.MethodDelete:
			s.endpointCacheCountersClear(w, r)
		}
	})
	s.router.HandleFunc(data.RouteCache, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			s.notAllowed(w, r, http.MethodDelete)
		case http.MethodDelete:
			s.endpointCacheClear(w, r)
		}
	})
	s.router.HandleFunc(data.RouteTimers, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			s.notAllowed(w, r, http.MethodGet, http.MethodDelete)
		case http.MethodGet:
			s.endpointTimersRead(w, r)
		case http.MethodDelete:
			s.endpointTimersClear(w, r)
		}
	})
}

func (s *service) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	s.RLock()
	handler := s.handler
	s.RUnlock()

	handler.ServeHTTP(writer, request)
}

func (s *service) Configure(envs map[string]string) error {
	s.Lock()
	defer s.Unlock()

	if address, ok := envs["SERVICE_ADDRESS"]; ok {
		s.config.address = address
	}
	if port, ok := envs["SERVICE_PORT"]; ok {
		s.config.port = port
	}
	if shutdownTimeoutString, ok := envs["SERVICE_SHUTDOWN_TIMEOUT"]; ok {
		if shutdownTimeoutInt, err := strconv.Atoi(shutdownTimeoutString); err == nil {
			if timeout := time.Duration(shutdownTimeoutInt) * time.Second; timeout > 0 {
				s.config.shutdownTimeout = timeout
			}
		}
	}
	if apiKey, ok := envs["SERVICE_API_KEY"]; ok {
		s.config.apiKey = apiKey
	}
	if mode, ok := envs["SERVICE_MODE"]; ok {
		s.config.mode = strings.ToLower(mode)
	}
	if allowCredentialsString, ok := envs["SERVICE_CORS_ALLOW_CREDENTIALS"]; ok {
		if allowCredentials, err := strconv.ParseBool(allowCredentialsString); err == nil {
			s.config.allowCredentials = allowCredentials
		}
	}
	if allowedOrigins := envs["SERVICE_CORS_ALLOWED_ORIGINS"]; allowedOrigins != "" {
		s.config.allowedOrigins = strings.Split(allowedOrigins, ",")
	}
	if allowedMethods := envs["SERVICE_CORS_ALLOWED_METHODS"]; allowedMethods != "" {
		s.config.allowedMethods = strings.Split(allowedMethods, ",")
	}
	if allowedHeaders := envs["SERVICE_CORS_ALLOWED_HEADERS"]; allowedHeaders != "" {
		s.config.allowedHeaders = strings.Split(allowedHeaders, ",")
	}
	if corsDisabledString, ok := envs["SERVICE_CORS_DISABLED"]; ok {
		if corsDisabled, err := strconv.ParseBool(corsDisabledString); err == nil {
			s.config.corsDisabled = corsDisabled
		}
	}
	if corsDebug, ok := envs["SERVICE_CORS_DEBUG"]; ok {
		if corsDebug, err := strconv.ParseBool(corsDebug); err == nil {
			s.config.corsDebug = corsDebug
		}
	}
	if timersEnabled := envs["SERVICE_TIMERS_ENABLED"]; timersEnabled != "" {
		s.config.timersEnabled, _ = strconv.ParseBool(timersEnabled)
	}
	s.handler = s.router
	if !s.config.corsDisabled {
		// cors sits outside authentication so preflight requests don't need
		// the api key
		s.handler = cors.New(cors.Options{
			AllowedOrigins:   s.config.allowedOrigins,
			AllowCredentials: s.config.allowCredentials,
			AllowedMethods:   s.config.allowedMethods,
			AllowedHeaders:   s.config.allowedHeaders,
			Debug:            s.config.corsDebug,
		}).Handler(s.router)
	}
	return nil
}

func (s *service) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.logic == nil {
		return fmt.Errorf("service requires logic")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.config.address, s.config.port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.launchServer(); err != nil {
		s.cancel()
		s.server = nil
		return err
	}
	return nil
}

func (s *service) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.config.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.Error(ctx, "error while shutting down the server: %s", err)
	}
	s.cancel()
	s.Wait()
	s.server = nil
	return nil
}
