package core

import "foldback/internal/domain"

// Frame is an encoded wire event ready to send.
type Frame []byte

type SessionID string

// SignalConnection abstracts the messaging transport of one session.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the broker.
type PublishResult struct {
	SentTo  int
	Dropped []SessionID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID  SessionID   `json:"sid"`
	Role domain.Role `json:"role"`
}

// RoomState is the mutable state a room owns: the levels map and the
// bounded, newest-first message log.
type RoomState struct {
	Levels domain.Levels
	Log    []domain.Message
}

// AppendLog prepends a message and truncates the log to its cap.
func (st *RoomState) AppendLog(msg domain.Message) {
	st.Log = append([]domain.Message{msg}, st.Log...)
	if len(st.Log) > domain.MaxLogEntries {
		st.Log = st.Log[:domain.MaxLogEntries]
	}
}

// ApplyFunc mutates room state and returns the frames to broadcast. It runs
// under the room lock, so mutate plus fan-out is atomic per room.
type ApplyFunc func(st *RoomState) []Frame

// RoomService is the core-facing API of a room. It owns state and the
// membership set but never touches transport resources.
type RoomService interface {
	Key() domain.RoomKey
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Snapshot() domain.Levels

	AddMember(sid SessionID, ms MemberSession)
	RemoveMember(sid SessionID)
	Dispatch(fn ApplyFunc) PublishResult
}

type RoomInfo struct {
	Key         domain.RoomKey `json:"key"`
	MemberCount int            `json:"member_count"`
}

// RoomStore is the registry of rooms, created lazily on first reference.
// Get is the read-only lookup for surfaces that must not create rooms as
// a side effect.
type RoomStore interface {
	GetOrCreate(key domain.RoomKey) RoomService
	Get(key domain.RoomKey) (RoomService, bool)
	List() []RoomInfo
	Stop(key domain.RoomKey)
}
