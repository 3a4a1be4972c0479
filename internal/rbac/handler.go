package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
	"github.com/odyssey-hr/odyssey-hr/internal/platform/httpx"
	"github.com/odyssey-hr/odyssey-hr/internal/shared"
)

// InvalidationQueue schedules principal cache invalidation.
type InvalidationQueue interface {
	EnqueuePrincipalsInvalidate(ctx context.Context, userID int64) (*asynq.TaskInfo, error)
}

// AuditRecorder persists administrative actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PermInvalidatePrincipals lets account administrators drop cached principals.
var PermInvalidatePrincipals = access.Permission{
	Module:   access.ModuleUsers,
	Action:   access.ActionUpdate,
	Resource: access.SpecificResource("users"),
}

// Handler serves the access JSON API mounted under /access.
type Handler struct {
	logger  *slog.Logger
	service *access.Service
	menu    []access.MenuEntry
	queue   InvalidationQueue
	csrf    *shared.CSRFManager
	rbac    Middleware
	audit   AuditRecorder
}

// NewHandler builds a Handler. A nil menu uses access.DefaultMenu.
func NewHandler(logger *slog.Logger, service *access.Service, menu []access.MenuEntry, queue InvalidationQueue, csrf *shared.CSRFManager, rbac Middleware) *Handler {
	if menu == nil {
		menu = access.DefaultMenu()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, menu: menu, queue: queue, csrf: csrf, rbac: rbac}
}

// WithAudit records principal invalidations through audit.
func (h *Handler) WithAudit(audit AuditRecorder) *Handler {
	h.audit = audit
	return h
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireFunc(access.ModeInline, Authenticated))
		r.Get("/navigation", h.navigation)
		r.Get("/landing", h.landing)
		r.Get("/check", h.check)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireFunc(access.ModeInline, CanInvalidatePrincipals))
		r.Post("/principals/{id}/invalidate", h.invalidate)
	})
}

// Home redirects a signed-in active principal to its default route and everyone
// else to the login page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	p, err := h.rbac.principal(r.Context())
	if err != nil {
		h.logger.Error("home load principal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	target := h.rbac.loginPath()
	if p.IsActive() {
		target = h.service.ResolveDefault(p)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// CanInvalidatePrincipals admits super admins and holders of PermInvalidatePrincipals.
func CanInvalidatePrincipals(p *access.Principal) bool {
	return p.HasRole(access.RoleSuperAdmin) || p.Can(PermInvalidatePrincipals)
}

type navigationResponse struct {
	Entries   []access.MenuEntry `json:"entries"`
	CSRFToken string             `json:"csrf_token,omitempty"`
}

func (h *Handler) navigation(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	resp := navigationResponse{Entries: access.FilterMenu(h.service, p, h.menu)}
	if h.csrf != nil {
		if token, err := h.csrf.EnsureToken(shared.SessionFromContext(r.Context())); err == nil {
			resp.CSRFToken = token
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type landingResponse struct {
	Path string `json:"path"`
}

func (h *Handler) landing(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, landingResponse{Path: h.service.ResolveDefault(p)})
}

type checkResponse struct {
	Path     string  `json:"path"`
	Allowed  bool    `json:"allowed"`
	Required *string `json:"required,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if !strings.HasPrefix(path, "/") {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "path must be an absolute application path")
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	resp := checkResponse{Path: path, Allowed: h.service.CanAccessPath(p, path)}
	if req, ok := h.service.Registry().Resolve(path); ok {
		required := req.Permission().String()
		resp.Required = &required
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type invalidateResponse struct {
	UserID int64  `json:"user_id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a user id, or 0 for every user")
		return
	}
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "job queue not configured")
		return
	}
	info, err := h.queue.EnqueuePrincipalsInvalidate(r.Context(), id)
	if err != nil {
		h.logger.Error("enqueue principal invalidation", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	actor := principalID(shared.PrincipalFromContext(r.Context()))
	h.logger.Info("principal invalidation queued",
		slog.Int64("user_id", id),
		slog.Int64("requested_by", actor))
	if h.audit != nil {
		entry := shared.AuditLog{
			ActorID:  actor,
			Action:   "principals.invalidate",
			Entity:   "principal",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"task_id": info.ID},
		}
		if err := h.audit.Record(r.Context(), entry); err != nil {
			h.logger.Warn("audit principal invalidation", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusAccepted, invalidateResponse{UserID: id, TaskID: info.ID, Status: "queued"})
}
