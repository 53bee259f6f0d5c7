package signaling

// Room tracks the ordered membership of a single named room. Members are kept
// in insertion order; the first member is the room admin and the primary
// negotiation initiator. All methods must be called with the registry lock
// held.
type Room struct {
	ID      string
	members []string
}

func newRoom(id string) *Room {
	return &Room{ID: id}
}

func (r *Room) has(connID string) bool {
	for _, id := range r.members {
		if id == connID {
			return true
		}
	}
	return false
}

// add appends connID to the member list. Adding an existing member is a no-op
// so a duplicate create-or-join cannot produce duplicate membership.
func (r *Room) add(connID string) {
	if r.has(connID) {
		return
	}
	r.members = append(r.members, connID)
}

// remove deletes connID, preserving the order of the remaining members.
// Returns false if connID was not a member.
func (r *Room) remove(connID string) bool {
	for i, id := range r.members {
		if id == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

// admin returns the current admin, the oldest surviving member. Empty string
// for an empty room.
func (r *Room) admin() string {
	if len(r.members) == 0 {
		return ""
	}
	return r.members[0]
}

func (r *Room) empty() bool {
	return len(r.members) == 0
}

// snapshot returns a copy of the member list.
func (r *Room) snapshot() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}
