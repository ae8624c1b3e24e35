package session

import (
	"sync"

	"volunteerhub.org/internal/auth"
	"volunteerhub.org/internal/obs"
)

// Well-known navigation targets.
const (
	PathAuth      = "/auth"
	PathHome      = "/"
	PathNGOHome   = "/ngo-dashboard"
	PathAdminHome = "/admin-dashboard"
)

// Decision is the derived render/redirect outcome. It is computed fresh from
// every state change, never cached across evaluations: a user whose role was
// just downgraded loses access on the next evaluation.
type Decision string

const (
	DecisionLoading            Decision = "loading"
	DecisionDenyRedirectToAuth Decision = "deny_redirect_to_auth"
	DecisionDenyRoleHome       Decision = "deny_redirect_to_role_home"
	DecisionDenyNoProfile      Decision = "deny_no_profile"
	DecisionAllow              Decision = "allow"
)

// Outcome couples a decision with its navigation target, if any.
type Outcome struct {
	Decision   Decision
	RedirectTo string
}

// RoleHome maps a user's actual role to their home surface. Deny redirects
// route users to *their* correct area, not to a page derived from the
// requirement they violated.
func RoleHome(role auth.Role) string {
	switch role {
	case auth.RoleAdmin:
		return PathAdminHome
	case auth.RoleNGO:
		return PathNGOHome
	default:
		return PathHome
	}
}

// Evaluate computes the authorization outcome for a state snapshot against a
// requirement. Pure and idempotent: equal inputs yield equal outcomes.
//
// Precedence: loading beats everything; an absent session always denies to
// the sign-in entry point; non-role-bound requirements admit any
// authenticated user; a pending profile keeps the gate in loading rather
// than redirecting on incomplete information.
func Evaluate(st State, req auth.Requirement) Outcome {
	if st.Loading {
		return Outcome{Decision: DecisionLoading}
	}
	if st.Session == nil {
		return Outcome{Decision: DecisionDenyRedirectToAuth, RedirectTo: PathAuth}
	}
	if !req.RoleBound() {
		return Outcome{Decision: DecisionAllow}
	}
	if st.Profile == nil {
		if st.ProfileMissing {
			// Session without a profile row is a data inconsistency; deny
			// terminally instead of spinning forever.
			return Outcome{Decision: DecisionDenyNoProfile, RedirectTo: PathAuth}
		}
		return Outcome{Decision: DecisionLoading}
	}
	if req.Satisfied(st.Profile.Role) {
		return Outcome{Decision: DecisionAllow}
	}
	return Outcome{Decision: DecisionDenyRoleHome, RedirectTo: RoleHome(st.Profile.Role)}
}

// Navigator performs the gate's redirect side effect.
type Navigator interface {
	Redirect(path string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) { f(path) }

// Gate wraps a protected surface behind a requirement. Observe re-evaluates
// on every state change and issues at most one navigation per transition
// into a deny outcome: re-observing the same state never double-navigates.
type Gate struct {
	requirement auth.Requirement
	nav         Navigator

	mu   sync.Mutex
	last Outcome
	seen bool
}

// NewGate builds a gate for the given requirement. nav may be nil when the
// caller only needs decisions, not redirects.
func NewGate(requirement auth.Requirement, nav Navigator) *Gate {
	return &Gate{requirement: requirement, nav: nav}
}

// Observe evaluates the snapshot and performs the redirect side effect on
// decision transitions. Navigation is keyed on the outcome's identity
// (decision plus target), not on how many times Observe ran.
func (g *Gate) Observe(st State) Outcome {
	out := Evaluate(st, g.requirement)

	g.mu.Lock()
	changed := !g.seen || out != g.last
	g.seen = true
	g.last = out
	g.mu.Unlock()

	if !changed {
		return out
	}
	obs.CountDecision(string(out.Decision))
	if out.RedirectTo != "" && g.nav != nil {
		g.nav.Redirect(out.RedirectTo)
	}
	return out
}

// Attach subscribes the gate to a provider so every state change is observed.
// The returned function detaches it.
func (g *Gate) Attach(p *Provider) func() {
	return p.Subscribe(func(st State) {
		g.Observe(st)
	})
}
