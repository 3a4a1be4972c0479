package access

import (
	"net/url"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Query parameters carried by redirect instructions.
const (
	QueryError       = "error"
	QueryAttempted   = "attempted"
	QueryCallbackURL = "callbackUrl"
)

// Redirect instructs the caller to navigate elsewhere.
type Redirect struct {
	Location string `json:"location"`
	Reason   Reason `json:"reason"`
}

// Affordance is a suggested next step offered alongside an inline denial.
type Affordance struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Denial is the inline presentation of a refused decision.
type Denial struct {
	Reason  Reason       `json:"reason"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
	Actions []Affordance `json:"actions"`
}

func (g *Guard) redirect(d Decision) *Redirect {
	q := url.Values{}
	switch d.Reason {
	case ReasonUnauthenticated:
		q.Set(QueryCallbackURL, d.AttemptedPath)
	case ReasonAccountInactive:
		q.Set(QueryError, string(ReasonAccountInactive))
	case ReasonAccessDenied:
		q.Set(QueryError, string(ReasonAccessDenied))
		q.Set(QueryAttempted, d.AttemptedPath)
	}
	return &Redirect{Location: withQuery(d.TargetPath, q), Reason: d.Reason}
}

func (g *Guard) denial(ac AccessContext, d Decision) *Denial {
	login := withQuery(g.cfg.LoginPath, url.Values{QueryCallbackURL: {ac.Path}})
	back := d.TargetPath
	if back == "" {
		back = g.service.Landing().Dashboard
	}
	actions := []Affordance{
		{Label: "Go back", Path: back},
		{Label: "Go to login", Path: login},
	}

	switch d.Reason {
	case ReasonUnauthenticated:
		return &Denial{
			Reason:  d.Reason,
			Title:   "Sign in required",
			Message: "You need to sign in to open " + ac.Path + ".",
			Actions: actions,
		}
	case ReasonAccountInactive:
		return &Denial{
			Reason:  d.Reason,
			Title:   "Account inactive",
			Message: "Your account is not active. Contact an administrator to restore access.",
			Actions: actions,
		}
	default:
		msg := "You do not have access to this page."
		if d.Required != nil {
			msg = "You do not have permission to " + describe(*d.Required) + "."
		}
		return &Denial{
			Reason:  d.Reason,
			Title:   "Access denied",
			Message: msg,
			Actions: actions,
		}
	}
}

func describe(p Permission) string {
	verb := p.Action.String()
	if p.Action.IsAll() {
		verb = "manage"
	}
	noun := p.Resource.String()
	if p.Resource.IsAny() {
		noun = p.Module
	}
	return verb + " " + cases.Title(language.English).String(noun)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
