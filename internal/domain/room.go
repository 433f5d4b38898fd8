// Package domain contains entity types without transport or lifecycle logic.
package domain

import "strings"

type RoomKey string

// DefaultRoomKey is used when a client sends an empty or blank room key.
const DefaultRoomKey RoomKey = "main"

// OrDefault maps blank keys to DefaultRoomKey. Keys are case-sensitive.
func (k RoomKey) OrDefault() RoomKey {
	if strings.TrimSpace(string(k)) == "" {
		return DefaultRoomKey
	}
	return k
}

type Role string

const (
	RoleRequester Role = "Requester"
	RoleOperator  Role = "Operator"
)

func (r Role) Valid() bool {
	return r == RoleRequester || r == RoleOperator
}

// Member represents a session's participation meta for a room.
type Member struct {
	Role Role
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(role Role) *Member {
	return &Member{Role: role}
}
