package events

const (
	KindTurnStarted   Kind = "turn_state.started"
	KindTurnCompleted Kind = "turn_state.completed"
	KindTurnCancelled Kind = "turn_state.cancelled"
)

// TurnStarted carries the ordinal of the user turn that opened the turn.
type TurnStarted struct {
	Base
	Ordinal int
}

func NewTurnStarted(ordinal int) TurnStarted {
	return TurnStarted{Base: NewBase(KindTurnStarted), Ordinal: ordinal}
}

type TurnCompleted struct {
	Base
	Ordinal int
}

func NewTurnCompleted(ordinal int) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), Ordinal: ordinal}
}

type TurnCancelled struct {
	Base
	Ordinal int
}

func NewTurnCancelled(ordinal int) TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled), Ordinal: ordinal}
}
