package access

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mode selects how a denial is presented to the caller.
type Mode int

const (
	// ModeRedirect turns denials into a navigation instruction.
	ModeRedirect Mode = iota
	// ModeInline turns denials into a message with suggested actions.
	ModeInline
)

func (m Mode) String() string {
	if m == ModeInline {
		return "inline"
	}
	return "redirect"
}

// State is a step of the guard's evaluation.
type State int

const (
	StateInitializing State = iota
	StateCheckingAccountStatus
	StateCheckingCustomPredicate
	StateCheckingRoles
	StateCheckingPermission
	StateCheckingPathDefault
	StateAllowed
	StateDenied
)

var stateNames = [...]string{
	"Initializing",
	"CheckingAccountStatus",
	"CheckingCustomPredicate",
	"CheckingRoles",
	"CheckingPermission",
	"CheckingPathDefault",
	"Allowed",
	"Denied",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

func (s State) terminal() bool { return s == StateAllowed || s == StateDenied }

// Predicate is a caller-supplied check run before role and permission checks.
type Predicate func(*Principal) bool

// Checks are the optional explicit requirements of a guarded screen. When none is
// set the guard falls back to the route table for the requested path.
type Checks struct {
	Predicate  Predicate
	Roles      []string
	Permission *Permission
}

func (c Checks) empty() bool {
	return c.Predicate == nil && len(c.Roles) == 0 && c.Permission == nil
}

// AccessContext is the per-evaluation input of the guard.
type AccessContext struct {
	Principal *Principal
	Path      string
	Checks
}

// Session yields the principal once the external session layer has loaded it.
// A nil principal means there is no session.
type Session interface {
	Await(ctx context.Context) (*Principal, error)
}

// SessionFunc adapts a function to Session.
type SessionFunc func(ctx context.Context) (*Principal, error)

// Await implements Session.
func (f SessionFunc) Await(ctx context.Context) (*Principal, error) { return f(ctx) }

// LoadedSession is a Session that is already available.
func LoadedSession(p *Principal) Session {
	return SessionFunc(func(context.Context) (*Principal, error) { return p, nil })
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Mode             Mode
	Checks           Checks
	LoginPath        string
	UnauthorizedPath string
	// Apply receives every result that is still current when it completes. It runs
	// under the guard's lock and must not call back into the guard.
	Apply func(Result)
}

// GuardStatus is the externally visible progress of a guard.
type GuardStatus string

const (
	GuardIdle     GuardStatus = "idle"
	GuardChecking GuardStatus = "checking"
	GuardAllowed  GuardStatus = "allowed"
	GuardDenied   GuardStatus = "denied"
)

// Result is the outcome of one evaluation.
type Result struct {
	Seq      uint64
	Decision Decision
	// Redirect is set for denials in ModeRedirect.
	Redirect *Redirect
	// Denial is set for denials in ModeInline.
	Denial *Denial
	// Trace lists the states visited, in order.
	Trace []State
}

// Guard sequences account, predicate, role, permission and path checks into one
// decision. Each Evaluate call gets a sequence number; a result is applied only if
// no newer evaluation has started since.
type Guard struct {
	service *Service
	cfg     GuardConfig

	seq atomic.Uint64

	mu     sync.Mutex
	status GuardStatus
	last   *Result
}

// NewGuard returns a guard over service.
func NewGuard(service *Service, cfg GuardConfig) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = PathLogin
	}
	if cfg.UnauthorizedPath == "" {
		cfg.UnauthorizedPath = PathUnauthorized
	}
	return &Guard{service: service, cfg: cfg, status: GuardIdle}
}

// Status reports whether the guard is checking or what the last applied result was.
func (g *Guard) Status() GuardStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Last returns the most recently applied result.
func (g *Guard) Last() (Result, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return Result{}, false
	}
	return *g.last, true
}

// Evaluate waits for session, runs the checks for path and applies the result.
// The returned bool is false when the evaluation was superseded by a newer one or
// ctx ended while waiting for the session; such results must be discarded.
func (g *Guard) Evaluate(ctx context.Context, path string, session Session) (Result, bool) {
	seq := g.seq.Add(1)
	g.mu.Lock()
	g.status = GuardChecking
	g.mu.Unlock()

	var principal *Principal
	if session != nil {
		p, err := session.Await(ctx)
		if ctx.Err() != nil {
			g.abandon(seq)
			return Result{Seq: seq}, false
		}
		if err == nil {
			principal = p
		}
	}

	res := g.run(seq, AccessContext{Principal: principal, Path: path, Checks: g.cfg.Checks})
	return res, g.commit(res)
}

// Check runs the checks synchronously for an already-loaded principal.
func (g *Guard) Check(ctx context.Context, path string, p *Principal) (Result, bool) {
	return g.Evaluate(ctx, path, LoadedSession(p))
}

func (g *Guard) commit(res Result) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if res.Seq != g.seq.Load() {
		return false
	}
	g.last = &res
	if res.Decision.Allowed() {
		g.status = GuardAllowed
	} else {
		g.status = GuardDenied
	}
	if g.cfg.Apply != nil {
		g.cfg.Apply(res)
	}
	return true
}

// abandon settles the status back to the last applied result when the newest
// evaluation ends without a decision.
func (g *Guard) abandon(seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if seq != g.seq.Load() {
		return
	}
	switch {
	case g.last == nil:
		g.status = GuardIdle
	case g.last.Decision.Allowed():
		g.status = GuardAllowed
	default:
		g.status = GuardDenied
	}
}

// evaluation carries one pass through the state machine.
type evaluation struct {
	ac       AccessContext
	decision Decision
}

func (g *Guard) run(seq uint64, ac AccessContext) Result {
	e := &evaluation{ac: ac}
	trace := []State{StateInitializing}
	state := StateCheckingAccountStatus
	for !state.terminal() {
		trace = append(trace, state)
		state = g.step(state, e)
	}
	trace = append(trace, state)

	res := Result{Seq: seq, Decision: e.decision, Trace: trace}
	if !res.Decision.Allowed() {
		switch g.cfg.Mode {
		case ModeInline:
			res.Denial = g.denial(ac, res.Decision)
		default:
			res.Redirect = g.redirect(res.Decision)
		}
	}
	return res
}

func (g *Guard) step(state State, e *evaluation) State {
	switch state {
	case StateCheckingAccountStatus:
		return g.checkAccountStatus(e)
	case StateCheckingCustomPredicate:
		return g.checkPredicate(e)
	case StateCheckingRoles:
		return g.checkRoles(e)
	case StateCheckingPermission:
		return g.checkPermission(e)
	case StateCheckingPathDefault:
		return g.checkPathDefault(e)
	default:
		return g.denyAccess(e, nil)
	}
}

func (g *Guard) checkAccountStatus(e *evaluation) State {
	p := e.ac.Principal
	if p == nil {
		e.decision = deny(ReasonUnauthenticated, g.cfg.LoginPath, e.ac.Path)
		return StateDenied
	}
	if !p.IsActive() {
		e.decision = deny(ReasonAccountInactive, g.cfg.LoginPath, "")
		return StateDenied
	}
	return StateCheckingCustomPredicate
}

func (g *Guard) checkPredicate(e *evaluation) State {
	if e.ac.Predicate != nil && !safePredicate(e.ac.Predicate, e.ac.Principal) {
		return g.denyAccess(e, nil)
	}
	return StateCheckingRoles
}

func (g *Guard) checkRoles(e *evaluation) State {
	if len(e.ac.Roles) > 0 && !e.ac.Principal.HasRole(e.ac.Roles...) {
		return g.denyAccess(e, nil)
	}
	return StateCheckingPermission
}

func (g *Guard) checkPermission(e *evaluation) State {
	if e.ac.Permission != nil && !e.ac.Principal.Can(*e.ac.Permission) {
		required := *e.ac.Permission
		return g.denyAccess(e, &required)
	}
	return StateCheckingPathDefault
}

func (g *Guard) checkPathDefault(e *evaluation) State {
	if !e.ac.Checks.empty() {
		e.decision = allow()
		return StateAllowed
	}
	if !g.service.CanAccessPath(e.ac.Principal, e.ac.Path) {
		var required *Permission
		if req, ok := g.service.Registry().Resolve(e.ac.Path); ok {
			perm := req.Permission()
			required = &perm
		}
		return g.denyAccess(e, required)
	}
	e.decision = allow()
	return StateAllowed
}

// denyAccess records an AccessDenied decision targeting the principal's default
// route, or the unauthorized page when that route is the one being refused.
func (g *Guard) denyAccess(e *evaluation, required *Permission) State {
	target := g.service.ResolveDefault(e.ac.Principal)
	if target == e.ac.Path {
		target = g.cfg.UnauthorizedPath
	}
	e.decision = deny(ReasonAccessDenied, target, e.ac.Path)
	e.decision.Required = required
	return StateDenied
}

func safePredicate(fn Predicate, p *Principal) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn(p)
}
