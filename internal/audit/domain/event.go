package domain

import "time"

// Actions recorded against the audit trail.
const (
	ActionRegister     = "register"
	ActionLogin        = "login"
	ActionLoginFailure = "login_failure"
	ActionRefresh      = "refresh"
	ActionLogout       = "logout"
	ActionDeactivate   = "deactivate"
)

// Event is one immutable entry in the auth audit trail. UserID is empty for
// events that could not be tied to an account (e.g. a login attempt against
// an unknown email).
type Event struct {
	ID        string
	UserID    string
	Action    string
	IP        string
	UserAgent string
	Metadata  string
	CreatedAt time.Time
}
