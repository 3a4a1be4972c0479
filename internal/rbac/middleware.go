package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
	"github.com/odyssey-hr/odyssey-hr/internal/observability"
	"github.com/odyssey-hr/odyssey-hr/internal/platform/httpx"
	"github.com/odyssey-hr/odyssey-hr/internal/principals"
	"github.com/odyssey-hr/odyssey-hr/internal/shared"
)

var tracer = otel.Tracer("odyssey-hr/rbac")

// PrincipalLoader resolves the principal behind a session user id.
type PrincipalLoader interface {
	Load(ctx context.Context, id int64) (*access.Principal, error)
}

// Middleware runs the access guard for HTTP handlers.
type Middleware struct {
	Service          *access.Service
	Loader           PrincipalLoader
	Logger           *slog.Logger
	Metrics          *observability.Metrics
	LoginPath        string
	UnauthorizedPath string
}

// Authenticated admits any active signed-in principal.
func Authenticated(*access.Principal) bool { return true }

// RequirePath guards a screen by the route table entry for the request path.
func (m Middleware) RequirePath(mode access.Mode) func(http.Handler) http.Handler {
	return m.Guard(mode, access.Checks{})
}

// RequirePermission guards a handler by an explicit permission.
func (m Middleware) RequirePermission(mode access.Mode, perm access.Permission) func(http.Handler) http.Handler {
	return m.Guard(mode, access.Checks{Permission: &perm})
}

// RequireRoles guards a handler by role labels.
func (m Middleware) RequireRoles(mode access.Mode, roles ...string) func(http.Handler) http.Handler {
	return m.Guard(mode, access.Checks{Roles: roles})
}

// RequireFunc guards a handler by a custom predicate.
func (m Middleware) RequireFunc(mode access.Mode, fn access.Predicate) func(http.Handler) http.Handler {
	return m.Guard(mode, access.Checks{Predicate: fn})
}

// Guard evaluates checks for every request. Denials become a 303 redirect in
// redirect mode and a JSON denial in inline mode.
func (m Middleware) Guard(mode access.Mode, checks access.Checks) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "access.guard",
				trace.WithAttributes(
					attribute.String("http.path", r.URL.Path),
					attribute.String("access.mode", mode.String()),
				),
			)
			defer span.End()

			var (
				principal *access.Principal
				loadErr   error
			)
			session := access.SessionFunc(func(ctx context.Context) (*access.Principal, error) {
				principal, loadErr = m.principal(ctx)
				return principal, loadErr
			})
			guard := access.NewGuard(m.Service, access.GuardConfig{
				Mode:             mode,
				Checks:           checks,
				LoginPath:        m.LoginPath,
				UnauthorizedPath: m.UnauthorizedPath,
			})
			res, ok := guard.Evaluate(ctx, r.URL.Path, session)
			if !ok {
				// The client went away while the principal was loading.
				return
			}
			if loadErr != nil {
				span.RecordError(loadErr)
				span.SetStatus(codes.Error, loadErr.Error())
				m.logger().Error("access guard load principal", slog.String("path", r.URL.Path), slog.Any("error", loadErr))
				httpx.RespondError(w, loadErr)
				return
			}

			outcome := string(res.Decision.Outcome)
			span.SetAttributes(attribute.String("access.outcome", outcome))
			m.Metrics.RecordDecision(outcome, mode.String())

			if res.Decision.Allowed() {
				next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
				return
			}
			m.logger().Info("access denied",
				slog.String("path", r.URL.Path),
				slog.String("reason", string(res.Decision.Reason)),
				slog.Int64("user_id", principalID(principal)))
			switch {
			case res.Redirect != nil:
				http.Redirect(w, r, res.Redirect.Location, http.StatusSeeOther)
			case res.Denial != nil:
				status := http.StatusForbidden
				if res.Decision.Reason == access.ReasonUnauthenticated {
					status = http.StatusUnauthorized
				}
				httpx.JSON(w, status, res.Denial)
			default:
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			}
		})
	}
}

// principal loads the principal for the session user. A missing session, user id
// or account yields a nil principal without error.
func (m Middleware) principal(ctx context.Context) (*access.Principal, error) {
	userID, ok := shared.SessionFromContext(ctx).UserID()
	if !ok {
		return nil, nil
	}
	p, err := m.Loader.Load(ctx, userID)
	switch {
	case err == nil:
		m.Metrics.RecordPrincipalLoad("ok")
		return p, nil
	case errors.Is(err, principals.ErrNotFound):
		m.Metrics.RecordPrincipalLoad("missing")
		return nil, nil
	case ctx.Err() != nil:
		return nil, err
	default:
		m.Metrics.RecordPrincipalLoad("error")
		return nil, err
	}
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m Middleware) loginPath() string {
	if m.LoginPath != "" {
		return m.LoginPath
	}
	return access.PathLogin
}

func principalID(p *access.Principal) int64 {
	if p == nil {
		return 0
	}
	return p.ID
}
