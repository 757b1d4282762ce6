package department

type Department struct {
	ID       string
	Name     string
	IsActive bool
}

// ManagerAssignment grants a manager approval authority over one department.
type ManagerAssignment struct {
	ManagerID    string
	DepartmentID string
}
