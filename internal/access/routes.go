package access

// Modules of the back office.
const (
	ModuleSystem     = "system"
	ModuleEmployees  = "employees"
	ModuleAttendance = "attendance"
	ModulePayroll    = "payroll"
	ModuleProjects   = "projects"
	ModuleNotices    = "notices"
	ModuleDocuments  = "documents"
	ModuleRoles      = "roles"
	ModuleUsers      = "users"
	ModuleReports    = "reports"
)

// Landing and public paths.
const (
	PathAdmin        = "/admin"
	PathEmployees    = "/employees"
	PathProjects     = "/projects"
	PathAttendance   = "/attendance"
	PathDashboard    = "/dashboard"
	PathLogin        = "/login"
	PathUnauthorized = "/unauthorized"
)

// Permissions consulted by the landing-page ranking.
var (
	PermViewEmployees         = Permission{Module: ModuleEmployees, Action: ActionView, Resource: SpecificResource("employees")}
	PermViewProjects          = Permission{Module: ModuleProjects, Action: ActionView, Resource: SpecificResource("projects")}
	PermViewAttendanceRecords = Permission{Module: ModuleAttendance, Action: ActionView, Resource: SpecificResource("records")}
)

// DefaultRequirements is the static route table of the back office. The generic
// dashboard is deliberately absent; the fallback rule decides it.
func DefaultRequirements() []RouteRequirement {
	return []RouteRequirement{
		Require(PathAdmin, ModuleSystem, ActionView, "settings"),

		Require(PathEmployees, ModuleEmployees, ActionView, "employees"),
		Require("/employees/new", ModuleEmployees, ActionCreate, "employees"),
		Require("/employees/{id}", ModuleEmployees, ActionView, "employees"),
		Require("/employees/{id}/edit", ModuleEmployees, ActionUpdate, "employees"),

		Require(PathAttendance, ModuleAttendance, ActionView, "records"),
		Require("/attendance/approvals", ModuleAttendance, ActionApprove, "records"),
		Require("/attendance/{id}", ModuleAttendance, ActionView, "records"),

		Require("/payroll", ModulePayroll, ActionView, "payslips"),
		Require("/payroll/run", ModulePayroll, ActionCreate, "payslips"),
		Require("/payroll/{id}", ModulePayroll, ActionView, "payslips"),

		Require(PathProjects, ModuleProjects, ActionView, "projects"),
		Require("/projects/new", ModuleProjects, ActionCreate, "projects"),
		Require("/projects/{id}", ModuleProjects, ActionView, "projects"),
		Require("/projects/{id}/edit", ModuleProjects, ActionUpdate, "projects"),

		Require("/notices", ModuleNotices, ActionView, "notices"),
		Require("/notices/new", ModuleNotices, ActionCreate, "notices"),

		Require("/documents", ModuleDocuments, ActionView, "documents"),

		Require("/roles", ModuleRoles, ActionView, "roles"),
		Require("/roles/{id}/edit", ModuleRoles, ActionUpdate, "roles"),

		Require("/users", ModuleUsers, ActionView, "users"),

		Require("/reports", ModuleReports, ActionView, "reports"),
		Require("/reports/export", ModuleReports, ActionExport, "reports"),
	}
}

// DefaultRegistry builds a registry from DefaultRequirements.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultRequirements()...)
	if err != nil {
		panic("invalid default route table: " + err.Error())
	}
	return r
}

// DefaultMenu is the sidebar of the back office in display order.
func DefaultMenu() []MenuEntry {
	return []MenuEntry{
		{Label: "Dashboard", Path: PathDashboard},
		{Label: "Administration", Path: PathAdmin},
		{Label: "Employees", Path: PathEmployees},
		{Label: "Attendance", Path: PathAttendance},
		{Label: "Approvals", Path: "/attendance/approvals"},
		{Label: "Payroll", Path: "/payroll"},
		{Label: "Projects", Path: PathProjects},
		{Label: "Notices", Path: "/notices"},
		{Label: "Documents", Path: "/documents"},
		{Label: "Reports", Path: "/reports"},
		{Label: "Roles", Path: "/roles"},
		{Label: "Users", Path: "/users"},
	}
}
