package ws

import (
	"testing"
	"time"

	"rummikub-server/internal/room"
)

func TestNormalizeAndValidateRoomID(t *testing.T) {
	m := NewManager(ManagerConfig{CodeLength: 4}, nil)

	if got := m.NormalizeRoomID("  ab2c "); got != "AB2C" {
		t.Fatalf("normalize: got %q", got)
	}
	if !m.IsValidRoomID("AB2C") {
		t.Fatalf("expected AB2C valid")
	}
	for _, bad := range []string{"", "ABC", "ABCDE", "AB0C", "AB1C", "ab2c", "AB C"} {
		if m.IsValidRoomID(bad) {
			t.Fatalf("expected %q invalid", bad)
		}
	}
}

func TestCreateRoomUniqueCodes(t *testing.T) {
	m := NewManager(ManagerConfig{CodeLength: 4}, nil)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		r, err := m.CreateRoom(room.New)
		if err != nil {
			t.Fatalf("create room: %v", err)
		}
		if !m.IsValidRoomID(r.ID) {
			t.Fatalf("invalid code %q", r.ID)
		}
		if seen[r.ID] {
			t.Fatalf("duplicate code %q", r.ID)
		}
		seen[r.ID] = true
		if m.Get(r.ID) != r {
			t.Fatalf("registered room not retrievable")
		}
	}
	if m.Count() != 20 {
		t.Fatalf("count: got %d", m.Count())
	}
}

func TestCreateRoomExhausted(t *testing.T) {
	m := NewManager(ManagerConfig{Alphabet: "A", CodeLength: 1}, nil)
	if _, err := m.CreateRoom(room.New); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := m.CreateRoom(room.New); err != ErrNoFreeRoomCode {
		t.Fatalf("expected ErrNoFreeRoomCode, got %v", err)
	}
}

func TestDeleteRoom(t *testing.T) {
	m := NewManager(ManagerConfig{CodeLength: 4}, nil)
	r, err := m.CreateRoom(room.New)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	m.Delete(r.ID)
	if m.Get(r.ID) != nil {
		t.Fatalf("room still retrievable after delete")
	}
	if m.Count() != 0 {
		t.Fatalf("count after delete: got %d", m.Count())
	}
}

func TestReapIdleRemovesAbandonedRooms(t *testing.T) {
	var deleted []string
	m := NewManager(ManagerConfig{CodeLength: 4, IdleAfter: time.Minute}, func(roomID string) {
		deleted = append(deleted, roomID)
	})

	stale, err := m.CreateRoom(room.New)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	stale.LastActivity = time.Now().Add(-2 * time.Minute)

	fresh, err := m.CreateRoom(room.New)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	occupied, err := m.CreateRoom(room.New)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	occupied.Players["alice"] = &room.Player{Name: "alice", Connected: true}
	occupied.LastActivity = time.Now().Add(-2 * time.Minute)

	if got := m.ReapIdle(time.Now()); got != 1 {
		t.Fatalf("reaped: got %d, want 1", got)
	}
	if m.Get(stale.ID) != nil {
		t.Fatalf("stale room survived reap")
	}
	if m.Get(fresh.ID) == nil || m.Get(occupied.ID) == nil {
		t.Fatalf("reap removed a live room")
	}
	if len(deleted) != 1 || deleted[0] != stale.ID {
		t.Fatalf("onDelete calls: %v", deleted)
	}
}
