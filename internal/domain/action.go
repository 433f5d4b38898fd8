package domain

// RequestKind discriminates requester actions on the wire.
type RequestKind string

const (
	KindLowerReq  RequestKind = "LowerReq"
	KindRaiseReq  RequestKind = "RaiseReq"
	KindQualityOK RequestKind = "QualityOK"
	KindQuick     RequestKind = "Quick"
)

func (k RequestKind) Valid() bool {
	switch k {
	case KindLowerReq, KindRaiseReq, KindQualityOK, KindQuick:
		return true
	}
	return false
}

// Action is a typed intent decoded from a client frame. Every variant is
// scoped to a single room.
type Action interface {
	Target() RoomKey
}

type JoinRoom struct {
	Room RoomKey
	Role Role
}

// RequestLevels asks for a unicast snapshot of the room's levels.
type RequestLevels struct {
	Room RoomKey
}

// RequesterAction is a musician-side event. It never mutates levels: lower
// and raise are requests for the operator, not direct writes.
type RequesterAction struct {
	Room       RoomKey
	Instrument InstrumentKey
	Kind       RequestKind
	Text       string
}

// OperatorAdjust moves one instrument's level by a single step.
type OperatorAdjust struct {
	Room       RoomKey
	Instrument InstrumentKey
	Delta      int
	Text       string
}

// OperatorAck acknowledges a request, optionally scoped to one instrument.
type OperatorAck struct {
	Room       RoomKey
	Instrument InstrumentKey
	Text       string
}

type ResetLevels struct {
	Room RoomKey
}

func (a JoinRoom) Target() RoomKey        { return a.Room }
func (a RequestLevels) Target() RoomKey   { return a.Room }
func (a RequesterAction) Target() RoomKey { return a.Room }
func (a OperatorAdjust) Target() RoomKey  { return a.Room }
func (a OperatorAck) Target() RoomKey     { return a.Room }
func (a ResetLevels) Target() RoomKey     { return a.Room }
