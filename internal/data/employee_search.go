package data

import (
	"encoding/json"
	"net/url"
	"strings"
)

// EmployeeSearch filters a list; an empty search matches everything and a
// department of "all" (or empty) disables the department filter
type EmployeeSearch struct {
	Search     string `json:"search,omitempty"`
	Department string `json:"department,omitempty"`
}

func (e EmployeeSearch) HasSearch() bool {
	return e.Search != ""
}

func (e EmployeeSearch) HasDepartment() bool {
	return e.Department != "" && e.Department != DepartmentAll
}

func (e *EmployeeSearch) ToParams() url.Values {
	params := make(url.Values)
	if e.HasSearch() {
		params.Set(ParameterSearch, e.Search)
	}
	if e.HasDepartment() {
		params.Set(ParameterDepartment, e.Department)
	}
	return params
}

func (e *EmployeeSearch) FromParams(params url.Values) {
	for key, values := range params {
		if len(values) == 0 {
			continue
		}
		switch strings.ToLower(key) {
		case ParameterSearch:
			e.Search = values[0]
		case ParameterDepartment:
			e.Department = values[0]
		}
	}
}

// ToKey returns a deterministic key for caching the results of a search
func (e *EmployeeSearch) ToKey() (string, error) {
	search := EmployeeSearch{Search: e.Search}
	if e.HasDepartment() {
		search.Department = e.Department
	}
	bytes, err := json.Marshal(&search)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
