package app

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/odyssey-hr/odyssey-hr/internal/access"
	"github.com/odyssey-hr/odyssey-hr/web"
)

// pageData is the view model shared by the public pages.
type pageData struct {
	Title       string
	Message     string
	CallbackURL string
	Attempted   string
	HomePath    string
	LoginPath   string
}

type pages struct {
	tmpl   *template.Template
	logger *slog.Logger
	cfg    *Config
}

func newPages(logger *slog.Logger, cfg *Config) (*pages, error) {
	tmpl, err := template.ParseFS(web.Templates, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &pages{tmpl: tmpl, logger: logger, cfg: cfg}, nil
}

func (p *pages) login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{Title: "Sign in", CallbackURL: q.Get(access.QueryCallbackURL)}
	if access.Reason(q.Get(access.QueryError)) == access.ReasonAccountInactive {
		data.Message = "Your account is not active. Contact an administrator to restore access."
	}
	p.render(w, "login.html", http.StatusOK, data)
}

func (p *pages) unauthorized(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:     "Access denied",
		Message:   "You do not have access to this page.",
		Attempted: r.URL.Query().Get(access.QueryAttempted),
		HomePath:  "/",
		LoginPath: p.cfg.LoginPath,
	}
	p.render(w, "unauthorized.html", http.StatusForbidden, data)
}

func (p *pages) render(w http.ResponseWriter, name string, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := p.tmpl.ExecuteTemplate(w, name, data); err != nil {
		p.logger.Error("render page", slog.String("page", name), slog.Any("error", err))
	}
}
