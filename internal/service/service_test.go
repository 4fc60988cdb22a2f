package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/antonio-alexander/go-employee-portal/internal"
	"github.com/antonio-alexander/go-employee-portal/internal/cache"
	"github.com/antonio-alexander/go-employee-portal/internal/data"
	"github.com/antonio-alexander/go-employee-portal/internal/logic"
	"github.com/antonio-alexander/go-employee-portal/internal/service"
	"github.com/antonio-alexander/go-employee-portal/internal/sql/sqltest"

	"github.com/stretchr/testify/assert"
)

const apiKey string = "s3cr3t"

type serviceTest struct {
	sql     *sqltest.Memory
	service interface {
		internal.Configurer
		internal.Opener
		http.Handler
	}
	headers map[string]string
}

func newServiceTest(t *testing.T, envs map[string]string) *serviceTest {
	s := sqltest.NewMemory()
	c := cache.NewMemory()
	l := logic.NewLogic(s, c)
	if !assert.Nil(t, l.Configure(envs)) {
		assert.FailNow(t, "unable to configure logic")
	}
	if !assert.Nil(t, l.Open(context.TODO())) {
		assert.FailNow(t, "unable to open logic")
	}
	svc := service.NewService(l, c)
	if !assert.Nil(t, svc.Configure(envs)) {
		assert.FailNow(t, "unable to configure service")
	}
	return &serviceTest{
		sql:     s,
		service: svc,
		headers: make(map[string]string),
	}
}

func (s *serviceTest) do(method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte

	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}
	request := httptest.NewRequest(method, path, bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	for key, value := range s.headers {
		request.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	s.service.ServeHTTP(recorder, request)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) *T {
	item := new(T)
	err := json.Unmarshal(recorder.Body.Bytes(), item)
	assert.Nil(t, err, recorder.Body.String())
	return item
}

func ada() data.EmployeeFields {
	return data.EmployeeFields{
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Department: "Engineering",
	}
}

func TestEndToEnd(t *testing.T) {
	for _, envs := range []map[string]string{
		{},
		{"LOGIC_CACHE_ENABLED": "true"},
	} {
		s := newServiceTest(t, envs)

		//create
		before := time.Now()
		recorder := s.do(http.MethodPost, data.RouteEmployees, ada())
		assert.Equal(t, http.StatusCreated, recorder.Code)
		created := decode[data.Response](t, recorder)
		assert.Equal(t, data.MessageEmployeeCreated, created.Message)
		if !assert.NotNil(t, created.Employee) {
			continue
		}
		assert.Greater(t, created.Employee.Id, int64(0))
		assert.False(t, created.Employee.DateHired.Before(before))
		path := fmt.Sprintf(data.RouteEmployeesIdf, created.Employee.Id)

		//read
		recorder = s.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		read := decode[data.Response](t, recorder)
		assert.Equal(t, created.Employee, read.Employee)

		//update
		fields := ada()
		fields.Department = "IT"
		recorder = s.do(http.MethodPut, path, fields)
		assert.Equal(t, http.StatusOK, recorder.Code)
		updated := decode[data.Response](t, recorder)
		assert.Equal(t, data.MessageEmployeeUpdated, updated.Message)
		assert.Equal(t, "IT", updated.Employee.Department)
		assert.Equal(t, created.Employee.Id, updated.Employee.Id)
		assert.Equal(t, created.Employee.Email, updated.Employee.Email)
		assert.Equal(t, created.Employee.DateHired, updated.Employee.DateHired)

		//read after update
		recorder = s.do(http.MethodGet, path, nil)
		assert.Equal(t, "IT", decode[data.Response](t, recorder).Employee.Department)

		//delete
		recorder = s.do(http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		deleted := decode[data.Response](t, recorder)
		assert.Equal(t, data.MessageEmployeeDeleted, deleted.Message)
		assert.Equal(t, created.Employee.Id, deleted.Employee.Id)

		//read after delete
		recorder = s.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, "Employee not found", decode[data.ResponseError](t, recorder).Error)
		recorder = s.do(http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	}
}

func TestEmployeeCreateIds(t *testing.T) {
	s := newServiceTest(t, nil)

	ids := make(map[int64]struct{})
	for i := 0; i < 5; i++ {
		before := time.Now()
		fields := ada()
		fields.Email = fmt.Sprintf("ada.%d@example.com", i)
		recorder := s.do(http.MethodPost, data.RouteEmployees, fields)
		if !assert.Equal(t, http.StatusCreated, recorder.Code) {
			continue
		}
		employee := decode[data.Response](t, recorder).Employee
		if !assert.NotNil(t, employee) {
			continue
		}
		assert.NotContains(t, ids, employee.Id)
		assert.False(t, employee.DateHired.Before(before))
		ids[employee.Id] = struct{}{}
	}
	assert.Len(t, ids, 5)

	//ids aren't reused after a delete
	recorder := s.do(http.MethodDelete, fmt.Sprintf(data.RouteEmployeesIdf, 5), nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	recorder = s.do(http.MethodPost, data.RouteEmployees, ada())
	assert.Equal(t, http.StatusCreated, recorder.Code)
	if employee := decode[data.Response](t, recorder).Employee; assert.NotNil(t, employee) {
		assert.NotContains(t, ids, employee.Id)
	}
}

func TestEmployeesSearch(t *testing.T) {
	s := newServiceTest(t, map[string]string{})
	for _, fields := range []data.EmployeeFields{
		ada(),
		{FirstName: "Grace", LastName: "Hopper", Email: "grace@navy.mil", Department: "IT"},
		{FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", Department: "IT"},
		{FirstName: "Edsger", LastName: "Dijkstra", Email: "ewd@utexas.edu"},
	} {
		recorder := s.do(http.MethodPost, data.RouteEmployees, fields)
		assert.Equal(t, http.StatusCreated, recorder.Code)
	}

	cases := map[string][]string{
		"":                {"ewd@utexas.edu", "alan@example.com", "grace@navy.mil", "ada@example.com"},
		"?department=all": {"ewd@utexas.edu", "alan@example.com", "grace@navy.mil", "ada@example.com"},
		"?search=ACE":     {"grace@navy.mil", "ada@example.com"},
		"?department=IT":  {"alan@example.com", "grace@navy.mil"},
		"?search=nobody":  {},

		"?search=example&department=IT": {"alan@example.com"},
	}
	for query, emails := range cases {
		recorder := s.do(http.MethodGet, data.RouteEmployees+query, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		response := decode[data.ResponseEmployees](t, recorder)
		assert.NotNil(t, response.Employees, query)
		results := []string{}
		for _, employee := range response.Employees {
			results = append(results, employee.Email)
		}
		assert.ElementsMatch(t, emails, results, query)
	}
	assert.Contains(t, s.do(http.MethodGet, data.RouteEmployees+"?search=nobody", nil).Body.String(),
		`"employees":[]`)
}

func TestErrorMapping(t *testing.T) {
	s := newServiceTest(t, map[string]string{})
	recorder := s.do(http.MethodPost, data.RouteEmployees, ada())
	assert.Equal(t, http.StatusCreated, recorder.Code)

	t.Run("InvalidId", func(t *testing.T) {
		for _, id := range []string{"abc", "0", "-1", "1.5", "99999999999999999999"} {
			for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
				recorder := s.do(method, data.RouteEmployees+"/"+id, ada())
				assert.Equal(t, http.StatusBadRequest, recorder.Code, id)
				assert.Equal(t, "Invalid employee ID", decode[data.ResponseError](t, recorder).Error)
			}
		}
	})

	t.Run("Validation", func(t *testing.T) {
		calls := s.sql.Calls("create")
		recorder := s.do(http.MethodPost, data.RouteEmployees, data.EmployeeFields{
			FirstName: "  ",
			Email:     "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		response := decode[data.ResponseError](t, recorder)
		assert.Contains(t, response.Fields, data.FieldFirstName)
		assert.Contains(t, response.Fields, data.FieldLastName)
		assert.Contains(t, response.Fields, data.FieldEmail)
		assert.Equal(t, calls, s.sql.Calls("create"))

		recorder = s.do(http.MethodPut, data.RouteEmployees+"/1", data.EmployeeFields{})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Zero(t, s.sql.Calls("update"))

		recorder = s.do(http.MethodPost, data.RouteEmployees, `{"firstName":`)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, "Invalid request body", decode[data.ResponseError](t, recorder).Error)

		fields := ada()
		fields.Email = "ada2@example.com"
		fields.Department = "Alchemy"
		recorder = s.do(http.MethodPost, data.RouteEmployees, fields)
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("Duplicate", func(t *testing.T) {
		recorder := s.do(http.MethodPost, data.RouteEmployees, ada())
		assert.Equal(t, http.StatusConflict, recorder.Code)
		assert.Equal(t, "Email already exists", decode[data.ResponseError](t, recorder).Error)

		recorder = s.do(http.MethodPost, data.RouteEmployees, data.EmployeeFields{
			FirstName: "Grace",
			LastName:  "Hopper",
			Email:     "grace@navy.mil",
		})
		assert.Equal(t, http.StatusCreated, recorder.Code)
		grace := decode[data.Response](t, recorder).Employee
		fields := ada()
		fields.FirstName = "Grace"
		recorder = s.do(http.MethodPut, fmt.Sprintf(data.RouteEmployeesIdf, grace.Id), fields)
		assert.Equal(t, http.StatusConflict, recorder.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		recorder := s.do(http.MethodPut, data.RouteEmployees+"/404", ada())
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		recorder = s.do(http.MethodDelete, data.RouteEmployees+"/404", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
		recorder = s.do(http.MethodGet, "/departments", nil)
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("Internal", func(t *testing.T) {
		s.sql.Fail(data.NewConnectionError("unable to connect to mysql database \"employees\"",
			errors.New("dial tcp: connection refused")))
		defer s.sql.Fail(nil)

		recorder := s.do(http.MethodGet, data.RouteEmployees, nil)
		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
		response := decode[data.ResponseError](t, recorder)
		assert.Equal(t, "Internal server error", response.Error)
		assert.Empty(t, response.Details)
		assert.NotContains(t, recorder.Body.String(), "connection refused")
	})
}

func TestDevelopmentDetails(t *testing.T) {
	s := newServiceTest(t, map[string]string{"SERVICE_MODE": "development"})
	s.sql.Fail(errors.New("table employees doesn't exist"))

	recorder := s.do(http.MethodGet, data.RouteEmployees+"/1", nil)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	response := decode[data.ResponseError](t, recorder)
	assert.Equal(t, "Internal server error", response.Error)
	assert.Equal(t, "table employees doesn't exist", response.Details)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newServiceTest(t, map[string]string{})
	cases := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodPut, data.RouteEmployees, "GET, POST"},
		{http.MethodDelete, data.RouteEmployees, "GET, POST"},
		{http.MethodPatch, data.RouteEmployees, "GET, POST"},
		{http.MethodPost, data.RouteEmployees + "/1", "GET, PUT, DELETE"},
		{http.MethodPatch, data.RouteEmployees + "/abc", "GET, PUT, DELETE"},
		{http.MethodPost, data.RouteTimers, "GET, DELETE"},
	}
	for _, c := range cases {
		recorder := s.do(c.method, c.path, nil)
		assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code, c.method+" "+c.path)
		assert.Equal(t, c.allow, recorder.Header().Get("Allow"))
	}
}

func TestAuthentication(t *testing.T) {
	s := newServiceTest(t, map[string]string{"SERVICE_API_KEY": apiKey})

	for _, key := range []string{"", "wrong", strings.ToUpper(apiKey)} {
		s.headers[data.HeaderApiKey] = key
		for _, r := range []struct {
			method string
			path   string
		}{
			{http.MethodGet, data.RouteEmployees},
			{http.MethodPost, data.RouteEmployees},
			{http.MethodGet, data.RouteEmployees + "/1"},
			{http.MethodGet, data.RouteEmployees + "/abc"},
			{http.MethodPut, data.RouteEmployees + "/1"},
			{http.MethodDelete, data.RouteEmployees + "/1"},
		} {
			recorder := s.do(r.method, r.path, ada())
			assert.Equal(t, http.StatusUnauthorized, recorder.Code, r.method+" "+r.path)
			assert.Equal(t, "Unauthorized", decode[data.ResponseError](t, recorder).Error)
		}
	}
	for _, operation := range []string{"create", "read", "search", "update", "delete"} {
		assert.Zero(t, s.sql.Calls(operation), operation)
	}

	s.headers[data.HeaderApiKey] = apiKey
	recorder := s.do(http.MethodPost, data.RouteEmployees, ada())
	assert.Equal(t, http.StatusCreated, recorder.Code)
	recorder = s.do(http.MethodGet, data.RouteEmployees, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCorsPreflight(t *testing.T) {
	s := newServiceTest(t, map[string]string{
		"SERVICE_API_KEY":              apiKey,
		"SERVICE_CORS_ALLOWED_ORIGINS": "http://localhost:3000",
	})
	request := httptest.NewRequest(http.MethodOptions, data.RouteEmployees, nil)
	request.Header.Set("Origin", "http://localhost:3000")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	request.Header.Set("Access-Control-Request-Headers", data.HeaderApiKey)
	recorder := httptest.NewRecorder()
	s.service.ServeHTTP(recorder, request)
	assert.NotEqual(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "http://localhost:3000", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestDiagnostics(t *testing.T) {
	s := newServiceTest(t, map[string]string{
		"LOGIC_CACHE_ENABLED":    "true",
		"SERVICE_TIMERS_ENABLED": "true",
	})

	recorder := s.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "go-employee-portal")

	recorder = s.do(http.MethodPost, data.RouteEmployees, ada())
	id := decode[data.Response](t, recorder).Employee.Id
	for i := 0; i < 2; i++ {
		recorder = s.do(http.MethodGet, fmt.Sprintf(data.RouteEmployeesIdf, id), nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	}

	recorder = s.do(http.MethodGet, data.RouteTimers, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	timers := decode[data.Timers](t, recorder)
	assert.Contains(t, timers.Totals, "employee_create")
	assert.Contains(t, timers.Totals, "employee_read")
	recorder = s.do(http.MethodDelete, data.RouteTimers, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = s.do(http.MethodDelete, data.RouteCache, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	recorder = s.do(http.MethodGet, fmt.Sprintf(data.RouteEmployeesIdf, id), nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 2, s.sql.Calls("read"))

	recorder = s.do(http.MethodDelete, data.RouteCacheCounters, nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	recorder = s.do(http.MethodGet, data.RouteCacheCounters, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
