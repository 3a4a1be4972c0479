package access

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestGuard(mode Mode, checks Checks) *Guard {
	return NewGuard(newTestService(), GuardConfig{Mode: mode, Checks: checks})
}

func parseLocation(t *testing.T, r *Redirect) (string, url.Values) {
	t.Helper()
	require.NotNil(t, r)
	u, err := url.Parse(r.Location)
	require.NoError(t, err)
	return u.Path, u.Query()
}

func TestGuardEndToEndEmployeeDeniedRoles(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})
	p := principal(RoleEmployee, StatusActive, MustPermission("attendance", "view", "records"))

	res, applied := g.Check(context.Background(), "/roles", p)
	require.True(t, applied)
	assert.Equal(t, OutcomeRedirectAccessDenied, res.Decision.Outcome)
	assert.Equal(t, ReasonAccessDenied, res.Decision.Reason)
	assert.Equal(t, PathAttendance, res.Decision.TargetPath)
	assert.Equal(t, "/roles", res.Decision.AttemptedPath)
	require.NotNil(t, res.Decision.Required)
	assert.Equal(t, MustPermission("roles", "view", "roles"), *res.Decision.Required)

	path, q := parseLocation(t, res.Redirect)
	assert.Equal(t, PathAttendance, path)
	assert.Equal(t, "AccessDenied", q.Get(QueryError))
	assert.Equal(t, "/roles", q.Get(QueryAttempted))
	assert.Nil(t, res.Denial)
	assert.Equal(t, GuardDenied, g.Status())
}

func TestGuardAllowsRegisteredPath(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})
	p := principal(RoleEmployee, StatusActive, PermViewAttendanceRecords)

	res, applied := g.Check(context.Background(), "/attendance/12", p)
	require.True(t, applied)
	assert.True(t, res.Decision.Allowed())
	assert.Nil(t, res.Redirect)
	assert.Equal(t, []State{
		StateInitializing,
		StateCheckingAccountStatus,
		StateCheckingCustomPredicate,
		StateCheckingRoles,
		StateCheckingPermission,
		StateCheckingPathDefault,
		StateAllowed,
	}, res.Trace)
	assert.Equal(t, GuardAllowed, g.Status())
}

func TestGuardUnauthenticatedCarriesCallback(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})

	res, applied := g.Check(context.Background(), "/payroll/3", nil)
	require.True(t, applied)
	assert.Equal(t, OutcomeRedirectUnauthenticated, res.Decision.Outcome)
	assert.Equal(t, "/payroll/3", res.Decision.AttemptedPath)

	path, q := parseLocation(t, res.Redirect)
	assert.Equal(t, PathLogin, path)
	assert.Equal(t, "/payroll/3", q.Get(QueryCallbackURL))
	assert.Equal(t, []State{StateInitializing, StateCheckingAccountStatus, StateDenied}, res.Trace)
}

func TestGuardSessionErrorIsUnauthenticated(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})
	session := SessionFunc(func(context.Context) (*Principal, error) {
		return principal(RoleSuperAdmin, StatusActive, SystemWildcard), errors.New("session store down")
	})

	res, applied := g.Evaluate(context.Background(), "/admin", session)
	require.True(t, applied)
	assert.Equal(t, ReasonUnauthenticated, res.Decision.Reason)
}

func TestGuardInactiveShadowsPredicate(t *testing.T) {
	called := false
	g := newTestGuard(ModeRedirect, Checks{Predicate: func(*Principal) bool {
		called = true
		return true
	}})
	p := principal(RoleSuperAdmin, StatusInactive, SystemWildcard)

	res, applied := g.Check(context.Background(), "/admin", p)
	require.True(t, applied)
	assert.Equal(t, OutcomeRedirectAccountInactive, res.Decision.Outcome)
	assert.False(t, called, "predicate must not run for inactive accounts")

	path, q := parseLocation(t, res.Redirect)
	assert.Equal(t, PathLogin, path)
	assert.Equal(t, "AccountInactive", q.Get(QueryError))
}

func TestGuardNonActiveStatusesAreInactive(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})
	for _, status := range []Status{StatusInactive, StatusTerminated, StatusOnLeave, ParseStatus("Suspended")} {
		res, _ := g.Check(context.Background(), PathDashboard, principal(RoleEmployee, status, PermViewAttendanceRecords))
		assert.Equal(t, ReasonAccountInactive, res.Decision.Reason, status)
	}
}

func TestGuardShortCircuitsAtFirstFailure(t *testing.T) {
	perm := MustPermission("payroll", "create", "payslips")
	predicateCalls := 0
	g := newTestGuard(ModeRedirect, Checks{
		Predicate: func(*Principal) bool {
			predicateCalls++
			return false
		},
		Roles:      []string{RoleHRManager},
		Permission: &perm,
	})
	p := principal(RoleHRManager, StatusActive, perm)

	res, _ := g.Check(context.Background(), "/payroll/run", p)
	assert.Equal(t, ReasonAccessDenied, res.Decision.Reason)
	assert.Equal(t, 1, predicateCalls)
	assert.Equal(t, []State{
		StateInitializing,
		StateCheckingAccountStatus,
		StateCheckingCustomPredicate,
		StateDenied,
	}, res.Trace)
}

func TestGuardRoleCheck(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{Roles: []string{RoleSuperAdmin, RoleHRManager}})

	res, _ := g.Check(context.Background(), "/users", principal(RoleManager, StatusActive, PermViewProjects))
	assert.Equal(t, ReasonAccessDenied, res.Decision.Reason)
	assert.Equal(t, PathProjects, res.Decision.TargetPath)
	assert.Nil(t, res.Decision.Required)
	assert.Equal(t, StateCheckingRoles, res.Trace[len(res.Trace)-2])

	res, _ = g.Check(context.Background(), "/users", principal(RoleHRManager, StatusActive))
	assert.True(t, res.Decision.Allowed(), "explicit checks replace the path default")
}

func TestGuardPermissionCheck(t *testing.T) {
	perm := MustPermission("reports", "export", "reports")
	g := newTestGuard(ModeRedirect, Checks{Permission: &perm})

	res, _ := g.Check(context.Background(), "/reports/export", principal(RoleManager, StatusActive, MustPermission("reports", "view", "*")))
	assert.Equal(t, ReasonAccessDenied, res.Decision.Reason)
	require.NotNil(t, res.Decision.Required)
	assert.Equal(t, perm, *res.Decision.Required)
	assert.Equal(t, StateCheckingPermission, res.Trace[len(res.Trace)-2])

	res, _ = g.Check(context.Background(), "/reports/export", principal(RoleManager, StatusActive, MustPermission("reports", "all", "*")))
	assert.True(t, res.Decision.Allowed())
}

func TestGuardPanickingPredicateDenies(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{Predicate: func(*Principal) bool { panic("boom") }})
	res, applied := g.Check(context.Background(), "/notices", principal(RoleSuperAdmin, StatusActive, SystemWildcard))
	require.True(t, applied)
	assert.Equal(t, ReasonAccessDenied, res.Decision.Reason)
}

func TestGuardDeniedOwnLandingGoesToUnauthorized(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})
	p := principal(RoleEmployee, StatusActive)

	res, _ := g.Check(context.Background(), PathDashboard, p)
	assert.Equal(t, ReasonAccessDenied, res.Decision.Reason)
	assert.Equal(t, PathUnauthorized, res.Decision.TargetPath)
	path, q := parseLocation(t, res.Redirect)
	assert.Equal(t, PathUnauthorized, path)
	assert.Equal(t, PathDashboard, q.Get(QueryAttempted))
}

func TestGuardInlineModeSharesCheckLogic(t *testing.T) {
	redirect := newTestGuard(ModeRedirect, Checks{})
	inline := newTestGuard(ModeInline, Checks{})
	p := principal(RoleEmployee, StatusActive, PermViewAttendanceRecords)

	r1, _ := redirect.Check(context.Background(), "/roles", p)
	r2, _ := inline.Check(context.Background(), "/roles", p)
	assert.Equal(t, r1.Decision, r2.Decision)
	assert.Equal(t, r1.Trace, r2.Trace)

	require.Nil(t, r2.Redirect)
	require.NotNil(t, r2.Denial)
	assert.Equal(t, ReasonAccessDenied, r2.Denial.Reason)
	assert.Equal(t, "Access denied", r2.Denial.Title)
	assert.Equal(t, "You do not have permission to view Roles.", r2.Denial.Message)
	require.Len(t, r2.Denial.Actions, 2)
	assert.Equal(t, Affordance{Label: "Go back", Path: PathAttendance}, r2.Denial.Actions[0])
	assert.Equal(t, "Go to login", r2.Denial.Actions[1].Label)
	assert.Equal(t, "/login?callbackUrl=%2Froles", r2.Denial.Actions[1].Path)
}

func TestGuardInlineMessages(t *testing.T) {
	g := newTestGuard(ModeInline, Checks{})

	res, _ := g.Check(context.Background(), "/employees", nil)
	require.NotNil(t, res.Denial)
	assert.Equal(t, "Sign in required", res.Denial.Title)
	assert.Contains(t, res.Denial.Message, "/employees")

	res, _ = g.Check(context.Background(), "/employees", principal(RoleHRManager, StatusTerminated))
	require.NotNil(t, res.Denial)
	assert.Equal(t, ReasonAccountInactive, res.Denial.Reason)
	assert.Equal(t, "Account inactive", res.Denial.Title)

	withRoles := newTestGuard(ModeInline, Checks{Roles: []string{RoleSuperAdmin}})
	res, _ = withRoles.Check(context.Background(), "/admin", principal(RoleEmployee, StatusActive, PermViewAttendanceRecords))
	require.NotNil(t, res.Denial)
	assert.Equal(t, "You do not have access to this page.", res.Denial.Message)
}

func TestGuardReportsCheckingWhileSessionLoads(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newTestGuard(ModeRedirect, Checks{})
	assert.Equal(t, GuardIdle, g.Status())

	release := make(chan struct{})
	entered := make(chan struct{})
	session := SessionFunc(func(ctx context.Context) (*Principal, error) {
		close(entered)
		<-release
		return principal(RoleEmployee, StatusActive, PermViewAttendanceRecords), nil
	})

	done := make(chan Result)
	go func() {
		res, _ := g.Evaluate(context.Background(), "/attendance", session)
		done <- res
	}()

	<-entered
	assert.Equal(t, GuardChecking, g.Status())
	_, ok := g.Last()
	assert.False(t, ok)

	close(release)
	res := <-done
	assert.True(t, res.Decision.Allowed())
	assert.Equal(t, GuardAllowed, g.Status())
}

func TestGuardDiscardsSupersededEvaluation(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	var applied []Result
	g := NewGuard(newTestService(), GuardConfig{
		Mode: ModeRedirect,
		Apply: func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			applied = append(applied, r)
		},
	})

	employee := principal(RoleEmployee, StatusActive, PermViewAttendanceRecords)
	release := make(chan struct{})
	entered := make(chan struct{})
	slow := SessionFunc(func(context.Context) (*Principal, error) {
		close(entered)
		<-release
		return employee, nil
	})

	first := make(chan bool)
	go func() {
		_, ok := g.Evaluate(context.Background(), "/roles", slow)
		first <- ok
	}()
	<-entered

	second, ok := g.Evaluate(context.Background(), "/attendance", LoadedSession(employee))
	require.True(t, ok)
	assert.True(t, second.Decision.Allowed())

	close(release)
	require.False(t, <-first, "stale evaluation must not be applied")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, applied, 1)
	assert.Equal(t, second.Seq, applied[0].Seq)
	last, ok := g.Last()
	require.True(t, ok)
	assert.Equal(t, second.Seq, last.Seq)
	assert.Equal(t, GuardAllowed, g.Status())
}

func TestGuardCancelledWhileLoadingIsDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newTestGuard(ModeRedirect, Checks{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	session := SessionFunc(func(ctx context.Context) (*Principal, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, ok := g.Evaluate(ctx, "/employees", session)
	assert.False(t, ok)
	_, ok = g.Last()
	assert.False(t, ok)
	assert.Equal(t, GuardIdle, g.Status())
}

func TestGuardCancelledEvaluationKeepsLastStatus(t *testing.T) {
	g := newTestGuard(ModeRedirect, Checks{})
	admin := &Principal{ID: 1, Role: Role{Name: RoleSuperAdmin}, Status: StatusActive,
		Permissions: NewPermissionSet(SystemWildcard)}

	_, ok := g.Check(context.Background(), "/employees", admin)
	require.True(t, ok)
	require.Equal(t, GuardAllowed, g.Status())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocked := SessionFunc(func(ctx context.Context) (*Principal, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, ok = g.Evaluate(ctx, "/payroll", blocked)
	assert.False(t, ok)
	assert.Equal(t, GuardAllowed, g.Status())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CheckingPathDefault", StateCheckingPathDefault.String())
	assert.Equal(t, "Unknown", State(99).String())
	assert.Equal(t, "inline", ModeInline.String())
}
