// Package guard decides whether a navigation to a protected view may proceed
// given the current session state.
package guard

import (
	"errors"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
	"github.com/nazir74680/Tumor-segmeantation/internal/session"
)

// DefaultDeniedPath is where an authenticated user without the required role
// is sent.
const DefaultDeniedPath = "/"

var ErrUnauthorizedRole = errors.New("unauthorized role")

type Action int

const (
	// Suspend means the session has not finished restoring yet.
	Suspend Action = iota
	Redirect
	Allow
)

func (a Action) String() string {
	switch a {
	case Suspend:
		return "suspend"
	case Redirect:
		return "redirect"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

type Decision struct {
	Action   Action
	Location string
	// From is the originally requested path for unauthenticated redirects.
	From string
	Err  error
}

type Guard struct {
	deniedPath string
}

func New(deniedPath string) *Guard {
	if deniedPath == "" {
		deniedPath = DefaultDeniedPath
	}
	return &Guard{deniedPath: deniedPath}
}

// Decide evaluates state against the required roles; an empty role list
// only requires authentication.
func (g *Guard) Decide(state session.State, required []models.UserRole, path string) Decision {
	if state.Loading {
		return Decision{Action: Suspend}
	}

	if !state.IsAuthenticated || state.User == nil {
		return Decision{Action: Redirect, Location: session.LoginPath, From: path}
	}

	if len(required) > 0 && !hasRole(required, state.User.Role) {
		return Decision{Action: Redirect, Location: g.deniedPath, Err: ErrUnauthorizedRole}
	}

	return Decision{Action: Allow}
}

func hasRole(roles []models.UserRole, role models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
