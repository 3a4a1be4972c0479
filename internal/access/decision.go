package access

// Outcome is the result class of one guard evaluation.
type Outcome string

const (
	OutcomeAllow                   Outcome = "Allow"
	OutcomeRedirectAccountInactive Outcome = "RedirectAccountInactive"
	OutcomeRedirectUnauthenticated Outcome = "RedirectUnauthenticated"
	OutcomeRedirectAccessDenied    Outcome = "RedirectAccessDenied"
)

// Reason is the closed set of denial reason codes.
type Reason string

const (
	ReasonUnauthenticated Reason = "Unauthenticated"
	ReasonAccountInactive Reason = "AccountInactive"
	ReasonAccessDenied    Reason = "AccessDenied"
)

var outcomeByReason = map[Reason]Outcome{
	ReasonUnauthenticated: OutcomeRedirectUnauthenticated,
	ReasonAccountInactive: OutcomeRedirectAccountInactive,
	ReasonAccessDenied:    OutcomeRedirectAccessDenied,
}

// Decision is produced fresh by every evaluation.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Reason  Reason  `json:"reason,omitempty"`
	// TargetPath is where the principal should go instead. For access denials it is
	// the principal's default route.
	TargetPath    string `json:"target_path,omitempty"`
	AttemptedPath string `json:"attempted_path,omitempty"`
	// Required is the permission that was not satisfied, when one is known.
	Required *Permission `json:"-"`
}

// Allowed reports whether the decision lets the principal through.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

func allow() Decision { return Decision{Outcome: OutcomeAllow} }

func deny(reason Reason, target, attempted string) Decision {
	return Decision{
		Outcome:       outcomeByReason[reason],
		Reason:        reason,
		TargetPath:    target,
		AttemptedPath: attempted,
	}
}
