package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"foldback/internal/core"
	"foldback/internal/domain"
)

// Broker routes decoded actions between sessions and rooms: join/leave,
// snapshot unicasts, and the processor-then-broadcast path for everything
// else.
type Broker struct {
	Registry *Registry
	Rooms    core.RoomStore
	Policy   Policy
}

// Connect registers a new session. It has no room and no role until it
// sends a join.
func (b *Broker) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) {
	b.Registry.Bind(sid, sess, cancel)
}

func (b *Broker) OnAction(sid core.SessionID, act domain.Action) {
	switch a := act.(type) {
	case domain.JoinRoom:
		b.join(sid, a)
	case domain.RequestLevels:
		b.sendLevels(sid, a.Room.OrDefault())
	default:
		b.dispatch(sid, act)
	}
}

func (b *Broker) join(sid core.SessionID, a domain.JoinRoom) {
	if !a.Role.Valid() {
		log.Warn().Str("module", "app.broker").Str("sid", string(sid)).Str("role", string(a.Role)).Msg("join with unknown role dropped")
		return
	}
	sess, ok := b.Registry.GetSession(sid)
	if !ok {
		return
	}
	// At-most-one-room: leaving the previous room is silent.
	if prev, _, joined := b.Registry.RoomOf(sid); joined {
		b.Rooms.GetOrCreate(prev).RemoveMember(sid)
	}
	key := a.Room.OrDefault()
	room := b.Rooms.GetOrCreate(key)
	sess.Meta().Role = a.Role
	room.AddMember(sid, sess)
	b.Registry.SetRoom(sid, key, a.Role)
	log.Info().Str("module", "app.broker").Str("sid", string(sid)).Str("room", string(key)).Str("role", string(a.Role)).Msg("joined room")

	// Initial state sync goes to the joiner only.
	b.unicastLevels(sess, room)
}

// sendLevels resynchronizes one session's levels. The log has no catch-up
// path; only levels are idempotent current-state.
func (b *Broker) sendLevels(sid core.SessionID, key domain.RoomKey) {
	sess, ok := b.Registry.GetSession(sid)
	if !ok {
		return
	}
	b.unicastLevels(sess, b.Rooms.GetOrCreate(key))
}

func (b *Broker) unicastLevels(sess core.MemberSession, room core.RoomService) {
	frame, err := LevelsFrame(room.Snapshot())
	if err != nil {
		log.Error().Str("module", "app.broker").Err(err).Msg("encode levels")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Debug().Str("module", "app.broker").Str("room", string(room.Key())).Msg("unicast dropped")
	}
}

// dispatch runs the processor against the room under its lock and fans the
// resulting state and log frames out to every member, the originator
// included.
func (b *Broker) dispatch(sid core.SessionID, act domain.Action) {
	room := b.Rooms.GetOrCreate(act.Target().OrDefault())

	res := room.Dispatch(func(st *core.RoomState) []core.Frame {
		changed, msg := Apply(st, act, time.Now())
		var frames []core.Frame
		if changed {
			if f, err := LevelsFrame(st.Levels); err == nil {
				frames = append(frames, f)
			}
		}
		if msg != nil {
			msg.Origin = string(sid)
			st.AppendLog(*msg)
			if f, err := LogFrame(*msg); err == nil {
				frames = append(frames, f)
			}
		}
		return frames
	})

	if b.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch b.Policy.OnBackPressure(room, slow) {
		case KickMember:
			b.KickBySID(slow)
		case MarkSlow, DropFrame, NoAction:
		}
	}
}

// KickBySID removes a session from its room without closing the connection.
func (b *Broker) KickBySID(sid core.SessionID) {
	key, _, ok := b.Registry.RoomOf(sid)
	if !ok {
		return
	}
	b.Rooms.GetOrCreate(key).RemoveMember(sid)
	b.Registry.ClearRoom(sid)
}

// OnDisconnect drops the session and tears down its connection context.
// Disconnect is silent: no broadcast, no effect on the room's levels or log.
func (b *Broker) OnDisconnect(sid core.SessionID) {
	if key, _, ok := b.Registry.RoomOf(sid); ok {
		b.Rooms.GetOrCreate(key).RemoveMember(sid)
	}
	b.Registry.Cancel(sid)
	b.Registry.Unbind(sid)
}
