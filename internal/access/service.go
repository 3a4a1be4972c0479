package access

// LandingPaths are the candidate default routes, from most to least privileged.
type LandingPaths struct {
	Admin      string
	Employees  string
	Projects   string
	Attendance string
	Dashboard  string
}

// DefaultLandingPaths returns the landing paths of the default route table.
func DefaultLandingPaths() LandingPaths {
	return LandingPaths{
		Admin:      PathAdmin,
		Employees:  PathEmployees,
		Projects:   PathProjects,
		Attendance: PathAttendance,
		Dashboard:  PathDashboard,
	}
}

// Service answers path-level access questions from a registry.
type Service struct {
	registry *Registry
	landing  LandingPaths
}

// NewService builds a Service. A nil registry behaves as an empty one.
func NewService(registry *Registry, landing LandingPaths) *Service {
	if landing.Dashboard == "" {
		landing = DefaultLandingPaths()
	}
	return &Service{registry: registry, landing: landing}
}

// Registry exposes the route table backing the service.
func (s *Service) Registry() *Registry { return s.registry }

// Landing exposes the configured landing paths.
func (s *Service) Landing() LandingPaths { return s.landing }

// CanAccessPath reports whether p may enter path.
//
// Paths without a registered requirement are closed, except the generic
// dashboard which any principal holding at least one permission may open.
func (s *Service) CanAccessPath(p *Principal, path string) bool {
	if !p.IsActive() {
		return false
	}
	if req, ok := s.registry.Resolve(path); ok {
		return Satisfies(p.Permissions, req.Module, req.Action, req.Resource)
	}
	return path == s.landing.Dashboard && p.Permissions.Len() > 0
}

// ResolveDefault picks the landing path for p. The order encodes the business
// ranking of roles and must not change.
func (s *Service) ResolveDefault(p *Principal) string {
	if p == nil {
		return s.landing.Dashboard
	}
	switch {
	case p.HasRole(RoleSuperAdmin) || p.Permissions.Contains(SystemWildcard):
		return s.landing.Admin
	case p.HasRole(RoleHRManager) || p.Can(PermViewEmployees):
		return s.landing.Employees
	case p.HasRole(RoleManager) && p.Can(PermViewProjects):
		return s.landing.Projects
	case p.HasRole(RoleManager) && p.Can(PermViewAttendanceRecords):
		return s.landing.Attendance
	case p.Can(PermViewAttendanceRecords):
		return s.landing.Attendance
	default:
		return s.landing.Dashboard
	}
}
