package app

import (
	"sync"

	"foldback/internal/core"
	"foldback/internal/domain"
)

// RoomStoreImpl is the process-wide room registry. Rooms are created lazily
// and live until stopped; GetOrCreate never fails.
type RoomStoreImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomKey]core.RoomService
}

func NewRoomStore() core.RoomStore {
	return &RoomStoreImpl{rooms: make(map[domain.RoomKey]core.RoomService)}
}

func (s *RoomStoreImpl) GetOrCreate(key domain.RoomKey) core.RoomService {
	s.mu.RLock()
	room, ok := s.rooms[key]
	s.mu.RUnlock()
	if ok {
		return room
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok = s.rooms[key]; ok {
		return room
	}
	room = core.NewRoom(key)
	s.rooms[key] = room
	return room
}

func (s *RoomStoreImpl) Get(key domain.RoomKey) (core.RoomService, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[key]
	return room, ok
}

func (s *RoomStoreImpl) List() []core.RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(s.rooms))
	for key, r := range s.rooms {
		out = append(out, core.RoomInfo{Key: key, MemberCount: r.MemberCount()})
	}
	return out
}

func (s *RoomStoreImpl) Stop(key domain.RoomKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, key)
}
