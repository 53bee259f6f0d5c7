package signaling

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateOrJoin(t *testing.T) {
	reg := NewRegistry()

	result, existing := reg.CreateOrJoin("r1", "a")
	assert.Equal(t, JoinCreated, result)
	assert.Empty(t, existing)

	result, existing = reg.CreateOrJoin("r1", "b")
	assert.Equal(t, JoinJoined, result)
	assert.Equal(t, []string{"a"}, existing)

	result, existing = reg.CreateOrJoin("r1", "c")
	assert.Equal(t, JoinJoined, result)
	assert.Equal(t, []string{"a", "b"}, existing)

	assert.Equal(t, []string{"a", "b", "c"}, reg.Members("r1"))
}

func TestRegistry_CreateOrJoin_DuplicateJoin(t *testing.T) {
	reg := NewRegistry()
	reg.CreateOrJoin("r1", "a")
	reg.CreateOrJoin("r1", "b")

	// Rejoining must not duplicate membership nor introduce b to itself.
	result, existing := reg.CreateOrJoin("r1", "b")
	assert.Equal(t, JoinJoined, result)
	assert.Equal(t, []string{"a"}, existing)
	assert.Equal(t, []string{"a", "b"}, reg.Members("r1"))
}

func TestRegistry_CreateOrJoin_ConcurrentEmptyRoom(t *testing.T) {
	reg := NewRegistry()

	const n = 32
	results := make(chan JoinResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id byte) {
			defer wg.Done()
			result, _ := reg.CreateOrJoin("r1", string([]byte{'a' + id}))
			results <- result
		}(byte(i))
	}
	wg.Wait()
	close(results)

	created := 0
	for result := range results {
		if result == JoinCreated {
			created++
		}
	}
	assert.Equal(t, 1, created, "exactly one joiner may observe the empty room")
	assert.Len(t, reg.Members("r1"), n)
}

func TestRegistry_Leave(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(*Registry)
		room, conn    string
		wantRemoved   bool
		wantRemaining []string
	}{
		{
			name: "member leaves",
			setup: func(r *Registry) {
				r.CreateOrJoin("r1", "a")
				r.CreateOrJoin("r1", "b")
			},
			room: "r1", conn: "a",
			wantRemoved:   true,
			wantRemaining: []string{"b"},
		},
		{
			name: "leave is idempotent",
			setup: func(r *Registry) {
				r.CreateOrJoin("r1", "a")
				r.Leave("r1", "a")
			},
			room: "r1", conn: "a",
			wantRemoved: false,
		},
		{
			name:  "leave unknown room",
			setup: func(r *Registry) {},
			room:  "nowhere", conn: "a",
			wantRemoved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			tt.setup(reg)

			remaining, removed := reg.Leave(tt.room, tt.conn)

			assert.Equal(t, tt.wantRemoved, removed)
			assert.Equal(t, tt.wantRemaining, remaining)
		})
	}
}

func TestRegistry_MembershipAlgebra(t *testing.T) {
	// Whatever the interleaving, the member set equals joins minus leaves
	// and disconnects.
	reg := NewRegistry()
	reg.CreateOrJoin("r1", "a")
	reg.CreateOrJoin("r1", "b")
	reg.CreateOrJoin("r1", "c")
	reg.Leave("r1", "b")
	reg.CreateOrJoin("r1", "d")
	reg.Disconnect("c")
	reg.Leave("r1", "b") // repeated leave, no effect

	assert.Equal(t, []string{"a", "d"}, reg.Members("r1"))
}

func TestRegistry_AdminSuccession(t *testing.T) {
	reg := NewRegistry()
	reg.CreateOrJoin("r1", "a")
	reg.CreateOrJoin("r1", "b")

	admin, ok := reg.Admin("r1")
	require.True(t, ok)
	assert.Equal(t, "a", admin)

	reg.Leave("r1", "a")
	admin, ok = reg.Admin("r1")
	require.True(t, ok)
	assert.Equal(t, "b", admin, "oldest surviving member becomes admin")

	reg.Leave("r1", "b")
	_, ok = reg.Admin("r1")
	assert.False(t, ok)
}

func TestRegistry_Kick(t *testing.T) {
	tests := []struct {
		name                 string
		admin, target        string
		wantErr              error
		wantMembersUntouched bool
	}{
		{name: "admin kicks member", admin: "a", target: "b"},
		{name: "non-admin denied", admin: "b", target: "a", wantErr: ErrNotAdmin, wantMembersUntouched: true},
		{name: "target not a member", admin: "a", target: "zz", wantErr: ErrNotMember, wantMembersUntouched: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			reg.CreateOrJoin("r1", "a")
			reg.CreateOrJoin("r1", "b")

			remaining, err := reg.Kick("r1", tt.admin, tt.target)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.NotContains(t, remaining, tt.target)
			}
			if tt.wantMembersUntouched {
				assert.Equal(t, []string{"a", "b"}, reg.Members("r1"))
			}
		})
	}
}

func TestRegistry_Kick_UnknownRoom(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Kick("nowhere", "a", "b")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistry_Disconnect(t *testing.T) {
	reg := NewRegistry()
	reg.CreateOrJoin("r1", "a")
	reg.CreateOrJoin("r1", "b")
	reg.SetName("b", "bob")

	roomID, remaining, wasMember := reg.Disconnect("b")

	assert.True(t, wasMember)
	assert.Equal(t, "r1", roomID)
	assert.Equal(t, []string{"a"}, remaining)
	assert.NotContains(t, reg.Names(), "b")

	// Disconnecting a connection that was never in a room.
	_, _, wasMember = reg.Disconnect("ghost")
	assert.False(t, wasMember)
}

func TestRegistry_RoomOf(t *testing.T) {
	reg := NewRegistry()
	reg.CreateOrJoin("r1", "a")

	room, ok := reg.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, "r1", room)

	_, ok = reg.RoomOf("b")
	assert.False(t, ok)
}

func TestRegistry_Stats(t *testing.T) {
	reg := NewRegistry()
	rooms, members := reg.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, members)

	reg.CreateOrJoin("r1", "a")
	reg.CreateOrJoin("r1", "b")
	reg.CreateOrJoin("r2", "c")

	rooms, members = reg.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 3, members)

	// Emptied rooms drop out of the stats.
	reg.Leave("r2", "c")
	rooms, _ = reg.Stats()
	assert.Equal(t, 1, rooms)
}
