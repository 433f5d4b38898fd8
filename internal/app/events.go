package app

import (
	"encoding/json"

	"foldback/internal/core"
	"foldback/internal/domain"
)

// Wire event names. Client to server:
const (
	EvtJoinRoom        = "join-room"
	EvtRequestLevels   = "state:requestLevels"
	EvtRequesterAction = "a:request"
	EvtOperatorAdjust  = "b:adjust"
	EvtOperatorAck     = "b:ack"
	EvtResetLevels     = "reset-levels"
)

// Server to client:
const (
	EvtStateLevels = "state:levels"
	EvtLogAppend   = "log:append"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(event string, v any) (core.Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// LevelsFrame encodes a full levels snapshot; the client replaces its local
// copy wholesale.
func LevelsFrame(levels domain.Levels) (core.Frame, error) {
	return encodeFrame(EvtStateLevels, levels)
}

// LogFrame encodes a single log entry; the client prepends it to its own
// bounded log.
func LogFrame(msg domain.Message) (core.Frame, error) {
	return encodeFrame(EvtLogAppend, msg)
}
