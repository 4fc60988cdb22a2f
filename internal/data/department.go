package data

import "slices"

// DepartmentAll is the filter sentinel that disables department filtering
const DepartmentAll string = "all"

var departments = []string{
	"IT",
	"HR",
	"Finance",
	"Marketing",
	"Operations",
	"Sales",
	"Design",
	"Engineering",
	"Customer Service",
}

// DepartmentCatalog returns the closed set of department labels
func DepartmentCatalog() []string {
	return slices.Clone(departments)
}

// IsDepartment reports whether department is assignable; empty means
// unassigned
func IsDepartment(department string) bool {
	return department == "" || slices.Contains(departments, department)
}

// Departments returns the distinct non-empty departments present in
// employees, catalog labels first in catalog order followed by anything
// unknown in order of appearance.
func Departments(employees []*Employee) []string {
	present := make(map[string]struct{})
	var unknown []string
	for _, employee := range employees {
		if employee == nil || employee.Department == "" {
			continue
		}
		if _, ok := present[employee.Department]; ok {
			continue
		}
		present[employee.Department] = struct{}{}
		if !slices.Contains(departments, employee.Department) {
			unknown = append(unknown, employee.Department)
		}
	}
	labels := make([]string, 0, len(present))
	for _, department := range departments {
		if _, ok := present[department]; ok {
			labels = append(labels, department)
		}
	}
	return append(labels, unknown...)
}
