package events

const (
	KindSessionStateChanged Kind = "session.state_changed"
	KindSessionFailed       Kind = "session.failed"
)

// SessionStateChanged reports a state transition.
type SessionStateChanged struct {
	Base
	From string
	To   string
}

func NewSessionStateChanged(from, to string) SessionStateChanged {
	return SessionStateChanged{Base: NewBase(KindSessionStateChanged), From: from, To: to}
}

// SessionFailed carries the error kind that moved the session to its error
// state.
type SessionFailed struct {
	Base
	ErrorKind string
	Err       error
}

func NewSessionFailed(errorKind string, err error) SessionFailed {
	return SessionFailed{Base: NewBase(KindSessionFailed), ErrorKind: errorKind, Err: err}
}
