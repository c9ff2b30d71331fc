package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/iniduniaku/anon/internal/geo"
)

// Message kinds.
const (
	MessageText  = "text"
	MessageMedia = "media"
	MessageVoice = "voice"
)

// Message is one entry in a room's log: immutable once created, appended and
// broadcast to both members. Payloads are references (text or upload
// metadata), never raw bytes.
type Message struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	SenderID string    `json:"senderId"`
	SentAt   time.Time `json:"sentAt"`

	Text  string               `json:"text,omitempty"`
	Media *MediaMessagePayload `json:"media,omitempty"`
	Voice *VoiceMessagePayload `json:"voice,omitempty"`
}

// Room is an exclusive two-party pairing and its message log.
type Room struct {
	// ID is the unique room id.
	ID string

	// Members are the two (distinct) member profiles, snapshotted at match
	// time.
	Members [2]*Profile

	// CreatedAt is when the pair was made.
	CreatedAt time.Time

	// DistanceKm between the members, nil if either lacks coordinates.
	DistanceKm *int

	// Log holds every message exchanged in this room, in order.
	Log []*Message
}

// Partner returns the other member's profile, or false if id is not a member.
func (r *Room) Partner(id string) (*Profile, bool) {
	switch id {
	case r.Members[0].ID:
		return r.Members[1], true
	case r.Members[1].ID:
		return r.Members[0], true
	}
	return nil, false
}

// RoomDirectory owns the set of active rooms plus the connection-id to room
// index. Room map and index are always updated together, so a lookup by
// member is O(1) and can never point at a room that doesn't list that member.
// Not synchronized; the Hub serializes access.
type RoomDirectory struct {
	rooms    map[string]*Room
	byMember map[string]string
}

// NewRoomDirectory creates an empty directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{
		rooms:    make(map[string]*Room),
		byMember: make(map[string]string),
	}
}

// Create allocates a room for the two profiles, computes their distance and
// indexes the room by both member ids.
func (d *RoomDirectory) Create(a, b *Profile) *Room {
	room := &Room{
		ID:         uuid.New().String(),
		Members:    [2]*Profile{a, b},
		CreatedAt:  time.Now(),
		DistanceKm: geo.DistanceKm(a.Location, b.Location),
	}

	d.rooms[room.ID] = room
	d.byMember[a.ID] = room.ID
	d.byMember[b.ID] = room.ID
	return room
}

// ByMember returns the room a connection id belongs to.
func (d *RoomDirectory) ByMember(connID string) (*Room, bool) {
	roomID, ok := d.byMember[connID]
	if !ok {
		return nil, false
	}
	room, ok := d.rooms[roomID]
	return room, ok
}

// Partner returns the id of the other member of roomID, or false if connID
// is not a member of that room.
func (d *RoomDirectory) Partner(roomID, connID string) (string, bool) {
	room, ok := d.rooms[roomID]
	if !ok {
		return "", false
	}
	p, ok := room.Partner(connID)
	if !ok {
		return "", false
	}
	return p.ID, true
}

// AppendMessage appends a message to the room's log, reporting whether the
// room exists.
func (d *RoomDirectory) AppendMessage(roomID string, m *Message) bool {
	room, ok := d.rooms[roomID]
	if !ok {
		return false
	}
	room.Log = append(room.Log, m)
	return true
}

// Remove deletes the room and both of its index entries together.
func (d *RoomDirectory) Remove(roomID string) {
	room, ok := d.rooms[roomID]
	if !ok {
		return
	}

	delete(d.byMember, room.Members[0].ID)
	delete(d.byMember, room.Members[1].ID)
	delete(d.rooms, roomID)
}

// Len returns the number of active rooms.
func (d *RoomDirectory) Len() int {
	return len(d.rooms)
}
