package app

import (
	"fmt"
	"time"

	"foldback/internal/core"
	"foldback/internal/domain"
)

// Codes embedded in operator adjustment messages.
const (
	CodeLower = "LV"
	CodeRaise = "IC"
)

// Apply is the action processor: it maps one action against the room state
// to (stateChanged, log message). Levels are only ever mutated here.
// JoinRoom and RequestLevels never reach this function; they are session
// lifecycle events handled by the broker and stay silent on the log.
func Apply(st *core.RoomState, act domain.Action, now time.Time) (bool, *domain.Message) {
	switch a := act.(type) {
	case domain.RequesterAction:
		return false, requesterMessage(a, now)
	case domain.OperatorAdjust:
		return applyAdjust(st, a, now)
	case domain.OperatorAck:
		return false, ackMessage(a, now)
	case domain.ResetLevels:
		st.Levels.Reset()
		// State-only broadcast: a reset produces no message.
		return true, nil
	}
	return false, nil
}

// requesterMessage renders a musician-side event. Lower and raise are
// requests for the operator, never direct level writes.
func requesterMessage(a domain.RequesterAction, now time.Time) *domain.Message {
	var text string
	switch a.Kind {
	case domain.KindLowerReq:
		text = fmt.Sprintf("lower %s", a.Instrument)
	case domain.KindRaiseReq:
		text = fmt.Sprintf("raise %s", a.Instrument)
	case domain.KindQualityOK:
		if a.Instrument != "" {
			text = fmt.Sprintf("%s sounds good", a.Instrument)
		} else {
			text = "sounds good"
		}
	case domain.KindQuick:
		if a.Text == "" {
			return nil
		}
		text = a.Text
	default:
		return nil
	}
	if a.Kind != domain.KindQuick && a.Text != "" {
		text += ": " + a.Text
	}
	msg := domain.NewMessage(domain.RoleRequester, text, now)
	return &msg
}

func applyAdjust(st *core.RoomState, a domain.OperatorAdjust, now time.Time) (bool, *domain.Message) {
	code := CodeLower
	if a.Delta > 0 {
		code = CodeRaise
	}
	v := st.Levels.Adjust(a.Instrument, a.Delta)
	text := fmt.Sprintf("%s %s %d", code, a.Instrument, v)
	if a.Text != "" {
		text += ": " + a.Text
	}
	msg := domain.NewMessage(domain.RoleOperator, text, now)
	return true, &msg
}

func ackMessage(a domain.OperatorAck, now time.Time) *domain.Message {
	text := "ok"
	if a.Instrument != "" {
		text = fmt.Sprintf("%s ok", a.Instrument)
	}
	if a.Text != "" {
		text += ": " + a.Text
	}
	msg := domain.NewMessage(domain.RoleOperator, text, now)
	return &msg
}
