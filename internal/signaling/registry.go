package signaling

import (
	"errors"
	"sync"
)

// Registry errors. All are scoped to a single connection or room and are
// reported back to the requester only, never fatal to the server.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotAdmin     = errors.New("not an admin of this room")
	ErrNotMember    = errors.New("not a member of this room")
)

// JoinResult distinguishes creating an empty room from joining a live one.
type JoinResult int

const (
	JoinCreated JoinResult = iota
	JoinJoined
)

// Registry is the single in-memory authority for room membership and the
// display-name directory. Every mutation takes the registry lock, so
// concurrent joins, leaves and disconnects are serialized: two connections
// racing to join an empty room can never both observe it empty.
//
// The Registry is purely bookkeeping. Notifying affected members is the
// Hub's job, driven by the snapshots these methods return.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	names map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		names: make(map[string]string),
	}
}

// CreateOrJoin registers connID in roomID, creating the room if it has no
// members. Returns the members that were present before the join, for the
// pairwise ready fan-out. Joining a room the connection is already in is
// idempotent.
func (reg *Registry) CreateOrJoin(roomID, connID string) (JoinResult, []string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		room = newRoom(roomID)
		reg.rooms[roomID] = room
	}

	if room.empty() {
		room.add(connID)
		return JoinCreated, nil
	}

	// On a duplicate join the snapshot must not introduce the joiner to itself.
	var others []string
	for _, id := range room.snapshot() {
		if id != connID {
			others = append(others, id)
		}
	}
	room.add(connID)
	return JoinJoined, others
}

// Leave removes connID from roomID. Idempotent: returns the members remaining
// after removal and whether anything was actually removed.
func (reg *Registry) Leave(roomID, connID string) (remaining []string, removed bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.leaveLocked(roomID, connID)
}

func (reg *Registry) leaveLocked(roomID, connID string) ([]string, bool) {
	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, false
	}
	removed := room.remove(connID)
	if room.empty() {
		delete(reg.rooms, roomID)
		return nil, removed
	}
	return room.snapshot(), removed
}

// Disconnect resolves a dropped transport against all rooms. A connection can
// be in at most one room, but the lookup is by connection, so every room is
// checked. The display-name mapping is removed as well. Returns the room the
// connection was in, the members remaining there, and whether it was in one.
func (reg *Registry) Disconnect(connID string) (roomID string, remaining []string, wasMember bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.names, connID)

	for id, room := range reg.rooms {
		if room.has(connID) {
			rest, _ := reg.leaveLocked(id, connID)
			return id, rest, true
		}
	}
	return "", nil, false
}

// Kick forces target out of roomID, but only when requested by the room
// admin. Returns the members remaining after removal.
func (reg *Registry) Kick(roomID, adminID, targetID string) ([]string, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.admin() != adminID {
		return nil, ErrNotAdmin
	}
	if !room.has(targetID) {
		return nil, ErrNotMember
	}
	rest, _ := reg.leaveLocked(roomID, targetID)
	return rest, nil
}

// Members returns the current member list of roomID, in join order.
func (reg *Registry) Members(roomID string) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	if !ok {
		return nil
	}
	return room.snapshot()
}

// Admin returns the admin of roomID, if the room has members.
func (reg *Registry) Admin(roomID string) (string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[roomID]
	if !ok || room.empty() {
		return "", false
	}
	return room.admin(), true
}

// RoomOf returns the room connID is currently a member of.
func (reg *Registry) RoomOf(connID string) (string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for id, room := range reg.rooms {
		if room.has(connID) {
			return id, true
		}
	}
	return "", false
}

// SetName records the self-reported display name for connID.
func (reg *Registry) SetName(connID, name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.names[connID] = name
}

// Names returns a copy of the display-name directory.
func (reg *Registry) Names() map[string]string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make(map[string]string, len(reg.names))
	for id, name := range reg.names {
		out[id] = name
	}
	return out
}

// Stats reports the number of live rooms and room memberships.
func (reg *Registry) Stats() (rooms, members int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rooms = len(reg.rooms)
	for _, room := range reg.rooms {
		members += len(room.members)
	}
	return rooms, members
}
