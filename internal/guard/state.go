package guard

import "github.com/MO-RISE/crowsnest/internal/identity"

// Phase is the position of one guarded navigation in its lifecycle.
type Phase string

const (
	PhaseUnchecked   Phase = "unchecked"
	PhaseChecking    Phase = "checking"
	PhaseAuthorized  Phase = "authorized"
	PhaseRedirecting Phase = "redirecting"
)

// State is the full state of one guarded navigation. Each navigation owns
// its own State; nothing is shared between concurrent navigations.
type State struct {
	Phase      Phase
	Session    *identity.Session
	Failure    *identity.Failure
	RedirectTo string
}

// NewState returns the initial state for a fresh navigation.
func NewState() State {
	return State{Phase: PhaseUnchecked}
}

// Event drives the state machine.
type Event interface{ isEvent() }

// CheckStarted fires when a guarded navigation begins.
type CheckStarted struct{}

// CheckSucceeded carries the verified session.
type CheckSucceeded struct{ Session *identity.Session }

// CheckFailed carries the typed failure and the login URL that supersedes
// the navigation.
type CheckFailed struct {
	Failure    *identity.Failure
	RedirectTo string
}

// LoginSucceeded fires after a successful login exchange. It resets the
// machine: the resumed navigation must run its own verification, a session
// is trusted only when produced within the navigation that uses it.
type LoginSucceeded struct{}

// LoggedOut fires after a logout, local state is dropped unconditionally.
type LoggedOut struct{}

func (CheckStarted) isEvent()   {}
func (CheckSucceeded) isEvent() {}
func (CheckFailed) isEvent()    {}
func (LoginSucceeded) isEvent() {}
func (LoggedOut) isEvent()      {}

// Reduce applies an event to a state and returns the next state. Events
// that are not legal in the current phase leave the state untouched; in
// particular a check result arriving outside PhaseChecking is a stale,
// superseded check and must not commit.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case CheckStarted:
		if s.Phase != PhaseUnchecked {
			return s
		}
		return State{Phase: PhaseChecking}

	case CheckSucceeded:
		if s.Phase != PhaseChecking {
			return s
		}
		return State{Phase: PhaseAuthorized, Session: ev.Session}

	case CheckFailed:
		if s.Phase != PhaseChecking {
			return s
		}
		return State{Phase: PhaseRedirecting, Failure: ev.Failure, RedirectTo: ev.RedirectTo}

	case LoginSucceeded:
		return NewState()

	case LoggedOut:
		return NewState()

	default:
		return s
	}
}
