package data

const (
	RouteEmployees      string = "/employees"
	RouteEmployeesId    string = RouteEmployees + "/{" + PathId + "}"
	RouteEmployeesIdf   string = RouteEmployees + "/%d"
	RouteCache          string = "/cache"
	RouteCacheCounters  string = RouteCache + "/counters"
	RouteTimers         string = "/timers"
	PathId              string = "id"
	ParameterSearch     string = "search"
	ParameterDepartment string = "department"
	HeaderApiKey        string = "X-Api-Key"
)

const (
	MessageEmployeeCreated string = "Employee created successfully"
	MessageEmployeeUpdated string = "Employee updated successfully"
	MessageEmployeeDeleted string = "Employee deleted successfully"
)

// Response is the body for single employee operations, message is only
// populated for mutations
type Response struct {
	Message  string    `json:"message,omitempty"`
	Employee *Employee `json:"employee"`
}

type ResponseEmployees struct {
	Employees []*Employee `json:"employees"`
}

// ResponseError is the body of every non-2xx response, details are only
// populated in development mode
type ResponseError struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
