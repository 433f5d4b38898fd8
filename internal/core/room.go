package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"foldback/internal/domain"
)

// roomImpl is a threadsafe in-memory room. The mutex is held across the
// mutate + fan-out pair in Dispatch, so actions on one room are totally
// ordered and never interleave; rooms never block each other.
// It never closes adapter-owned resources.
type roomImpl struct {
	key     domain.RoomKey
	mu      sync.Mutex
	state   RoomState
	members map[SessionID]MemberSession
}

func NewRoom(key domain.RoomKey) RoomService {
	return &roomImpl{
		key:     key,
		state:   RoomState{Levels: domain.NewLevels()},
		members: make(map[SessionID]MemberSession),
	}
}

func (r *roomImpl) Key() domain.RoomKey { return r.key }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]MemberDTO, 0, len(r.members))
	for sid, ms := range r.members {
		out = append(out, MemberDTO{SID: sid, Role: ms.Meta().Role})
	}
	return out
}

// Snapshot returns a copy of the current levels, safe to hand to encoders.
func (r *roomImpl) Snapshot() domain.Levels {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Levels.Clone()
}

func (r *roomImpl) AddMember(sid SessionID, ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[sid] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.key)).Str("sid", string(sid)).Msg("member added")
}

func (r *roomImpl) RemoveMember(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.key)).Str("sid", string(sid)).Msg("member removed")
}

// Dispatch runs fn against the room state and broadcasts the returned frames
// to every member, the originator included; echo suppression is a
// receiver-side filter. Sends are fire-and-forget: a full send buffer marks
// the member as dropped and delivery moves on.
func (r *roomImpl) Dispatch(fn ApplyFunc) PublishResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := fn(&r.state)

	res := PublishResult{}
	if len(frames) == 0 {
		return res
	}
	for sid, ms := range r.members {
		delivered := true
		for _, f := range frames {
			if err := ms.Signal().TrySend(f); err != nil {
				delivered = false
				break
			}
		}
		if delivered {
			res.SentTo++
		} else {
			res.Dropped = append(res.Dropped, sid)
		}
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.key)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
