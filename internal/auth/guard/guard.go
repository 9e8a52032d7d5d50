package guard

import (
	"errors"
	"fmt"

	"fled-backend/internal/auth/domain"
)

// State of an authentication session
type State int

const (
	StateUnauthenticated State = iota
	StateVerifying
	StateAuthorized
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateVerifying:
		return "verifying"
	case StateAuthorized:
		return "authorized"
	case StateDenied:
		return "denied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind is an identity-provider signal
type EventKind int

const (
	EventTokenPresented EventKind = iota
	EventTokenMissing
	EventVerified
	EventVerificationFailed
	EventRoleRejected
)

func (k EventKind) String() string {
	switch k {
	case EventTokenPresented:
		return "token_presented"
	case EventTokenMissing:
		return "token_missing"
	case EventVerified:
		return "verified"
	case EventVerificationFailed:
		return "verification_failed"
	case EventRoleRejected:
		return "role_rejected"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event drives a transition. Identity is required for EventVerified.
type Event struct {
	Kind     EventKind
	Identity *domain.Identity
}

// Effect is the single side effect a transition asks the caller to perform
type Effect int

const (
	EffectNone Effect = iota
	EffectReject
	EffectAllow
)

// ErrInvalidTransition is returned when an event is not accepted in the current state
var ErrInvalidTransition = errors.New("guard: invalid transition")

type transitionKey struct {
	from State
	on   EventKind
}

type transition struct {
	to     State
	effect Effect
}

var transitions = map[transitionKey]transition{
	{StateUnauthenticated, EventTokenPresented}: {StateVerifying, EffectNone},
	{StateUnauthenticated, EventTokenMissing}:   {StateDenied, EffectReject},

	{StateVerifying, EventVerified}:           {StateAuthorized, EffectAllow},
	{StateVerifying, EventVerificationFailed}: {StateDenied, EffectReject},
	{StateVerifying, EventRoleRejected}:       {StateDenied, EffectReject},

	// token refresh re-enters verification; sign-out revokes access
	{StateAuthorized, EventTokenPresented}: {StateVerifying, EffectNone},
	{StateAuthorized, EventTokenMissing}:   {StateUnauthenticated, EffectReject},

	{StateDenied, EventTokenPresented}: {StateVerifying, EffectNone},
}

// Session is the per-request authentication state. It is not safe for
// concurrent use.
type Session struct {
	state    State
	identity *domain.Identity
}

// NewSession returns a session in StateUnauthenticated
func NewSession() *Session {
	return &Session{state: StateUnauthenticated}
}

// State returns the current state
func (s *Session) State() State { return s.state }

// Identity returns the verified identity while Authorized, nil otherwise
func (s *Session) Identity() *domain.Identity {
	if s.state != StateAuthorized {
		return nil
	}
	return s.identity
}

// Fire applies ev. On error the session is unchanged and the effect is EffectNone.
func (s *Session) Fire(ev Event) (Effect, error) {
	t, ok := transitions[transitionKey{s.state, ev.Kind}]
	if !ok {
		return EffectNone, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s.state, ev.Kind)
	}
	if ev.Kind == EventVerified && ev.Identity == nil {
		return EffectNone, fmt.Errorf("%w: verified without identity", ErrInvalidTransition)
	}

	s.state = t.to
	s.identity = nil
	if t.to == StateAuthorized {
		s.identity = ev.Identity
	}
	return t.effect, nil
}
