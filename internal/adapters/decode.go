package adapters

import (
	"encoding/json"
	"errors"
	"fmt"

	"foldback/internal/app"
	"foldback/internal/domain"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("bad payload")
)

// DecodeAction turns an inbound frame into a typed action. A blank room key
// is accepted everywhere and resolves to the default room downstream.
func DecodeAction(data []byte) (domain.Action, error) {
	var env app.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	switch env.Event {
	case app.EvtJoinRoom:
		var p struct {
			Room string `json:"room"`
			Role string `json:"role"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		role := domain.Role(p.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: role %q", ErrBadPayload, p.Role)
		}
		return domain.JoinRoom{Room: domain.RoomKey(p.Room), Role: role}, nil

	case app.EvtRequestLevels:
		var p struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return domain.RequestLevels{Room: domain.RoomKey(p.Room)}, nil

	case app.EvtRequesterAction:
		var p struct {
			Room       string `json:"room"`
			Instrument string `json:"instrumentKey"`
			Action     string `json:"action"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		kind := domain.RequestKind(p.Action)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: action %q", ErrBadPayload, p.Action)
		}
		if (kind == domain.KindLowerReq || kind == domain.KindRaiseReq) && p.Instrument == "" {
			return nil, fmt.Errorf("%w: missing instrumentKey", ErrBadPayload)
		}
		return domain.RequesterAction{
			Room:       domain.RoomKey(p.Room),
			Instrument: domain.InstrumentKey(p.Instrument),
			Kind:       kind,
			Text:       p.Text,
		}, nil

	case app.EvtOperatorAdjust:
		var p struct {
			Room       string `json:"room"`
			Instrument string `json:"instrumentKey"`
			Delta      int    `json:"delta"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		if p.Instrument == "" {
			return nil, fmt.Errorf("%w: missing instrumentKey", ErrBadPayload)
		}
		if p.Delta != 1 && p.Delta != -1 {
			return nil, fmt.Errorf("%w: delta %d", ErrBadPayload, p.Delta)
		}
		return domain.OperatorAdjust{
			Room:       domain.RoomKey(p.Room),
			Instrument: domain.InstrumentKey(p.Instrument),
			Delta:      p.Delta,
			Text:       p.Text,
		}, nil

	case app.EvtOperatorAck:
		var p struct {
			Room       string `json:"room"`
			Instrument string `json:"instrumentKey"`
			Text       string `json:"text"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return domain.OperatorAck{
			Room:       domain.RoomKey(p.Room),
			Instrument: domain.InstrumentKey(p.Instrument),
			Text:       p.Text,
		}, nil

	case app.EvtResetLevels:
		var p struct {
			Room string `json:"room"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return domain.ResetLevels{Room: domain.RoomKey(p.Room)}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
}
