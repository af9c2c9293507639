package rummikub

import (
	"testing"

	"rummikub-server/internal/room"
)

func newTestAdapter() *Adapter {
	return New(Config{
		MaxPlayers:        5,
		InitialMeldPoints: 30,
		MaxGroups:         80,
		MaxTableTiles:     120,
	})
}

type recordingSink struct {
	payloads []any
}

func (s *recordingSink) Send(v any) { s.payloads = append(s.payloads, v) }

func seatPlayers(t *testing.T, a *Adapter, r *room.Room, names ...string) map[string]*recordingSink {
	t.Helper()
	sinks := make(map[string]*recordingSink, len(names))
	for _, name := range names {
		sink := &recordingSink{}
		if err := a.AddPlayer(r, name, sink); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		sinks[name] = sink
	}
	return sinks
}

func TestAddPlayerHostAndCapacity(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob", "carol", "dave", "erin")

	if r.HostName != "alice" {
		t.Fatalf("host: got %q", r.HostName)
	}
	if err := a.AddPlayer(r, "frank", &recordingSink{}); err == nil || err.Error() != "Room is full." {
		t.Fatalf("expected capacity rejection, got %v", err)
	}
}

func TestAddPlayerCannotClaimAISeat(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice")
	if err := a.AddAI(r, "alice", room.AIBasic); err != nil {
		t.Fatalf("add ai: %v", err)
	}
	if err := a.AddPlayer(r, "AI-1", &recordingSink{}); err == nil || err.Error() != "Name reserved by AI player." {
		t.Fatalf("expected AI name rejection, got %v", err)
	}
}

func TestAddAINamingAndGating(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob")

	if err := a.AddAI(r, "bob", room.AIBasic); err == nil || err.Error() != "Only host can add AI." {
		t.Fatalf("expected host gate, got %v", err)
	}
	if err := a.AddAI(r, "alice", room.AIAdvanced); err != nil {
		t.Fatalf("add ai: %v", err)
	}
	if err := a.AddAI(r, "alice", room.AILevel("bogus")); err != nil {
		t.Fatalf("add ai: %v", err)
	}

	ai1 := r.Players["AI-1"]
	ai2 := r.Players["AI-2"]
	if ai1 == nil || ai2 == nil {
		t.Fatalf("ai seats missing: %v", r.Order)
	}
	if ai1.AILevel != room.AIAdvanced {
		t.Fatalf("AI-1 level: got %q", ai1.AILevel)
	}
	if ai2.AILevel != room.AIBasic {
		t.Fatalf("unknown level should fall back to basic, got %q", ai2.AILevel)
	}
}

func TestRemoveAI(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice")
	if err := a.AddAI(r, "alice", room.AIBasic); err != nil {
		t.Fatalf("add ai: %v", err)
	}
	if err := a.AddAI(r, "alice", room.AIBasic); err != nil {
		t.Fatalf("add ai: %v", err)
	}

	// No target removes the most recently added AI seat.
	if err := a.RemoveAI(r, "alice", ""); err != nil {
		t.Fatalf("remove ai: %v", err)
	}
	if r.Players["AI-2"] != nil || r.Players["AI-1"] == nil {
		t.Fatalf("wrong seat removed: %v", r.Order)
	}

	if err := a.RemoveAI(r, "alice", "alice"); err == nil || err.Error() != "No AI player to remove." {
		t.Fatalf("expected no-AI rejection for human target, got %v", err)
	}
	if err := a.RemoveAI(r, "alice", "AI-1"); err != nil {
		t.Fatalf("remove ai by name: %v", err)
	}
	if err := a.RemoveAI(r, "alice", ""); err == nil || err.Error() != "No AI player to remove." {
		t.Fatalf("expected empty-room rejection, got %v", err)
	}
}

func TestStartGameGating(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice")

	if err := a.StartGame(r, "alice"); err == nil || err.Error() != "Need at least 2 players to start." {
		t.Fatalf("expected player-count gate, got %v", err)
	}
	seatPlayers(t, a, r, "bob")
	if err := a.StartGame(r, "bob"); err == nil || err.Error() != "Only host can start." {
		t.Fatalf("expected host gate, got %v", err)
	}
	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := a.StartGame(r, "alice"); err == nil || err.Error() != "Game already started." {
		t.Fatalf("expected started gate, got %v", err)
	}
	if err := a.SetRules(r, "alice", true); err == nil || err.Error() != "Game already started." {
		t.Fatalf("expected rules lock after start, got %v", err)
	}
}

func TestSetRulesHostOnly(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob")

	if err := a.SetRules(r, "bob", true); err == nil || err.Error() != "Only host can change rules." {
		t.Fatalf("expected host gate, got %v", err)
	}
	if err := a.SetRules(r, "alice", true); err != nil {
		t.Fatalf("set rules: %v", err)
	}
	if !r.JokerLocked {
		t.Fatalf("joker lock not applied")
	}
}

func TestToggleAutoPlay(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice")
	if err := a.AddAI(r, "alice", room.AIBasic); err != nil {
		t.Fatalf("add ai: %v", err)
	}

	if err := a.ToggleAutoPlay(r, "ghost", true); err == nil || err.Error() != "Player not found." {
		t.Fatalf("expected missing-player rejection, got %v", err)
	}
	if err := a.ToggleAutoPlay(r, "AI-1", true); err == nil || err.Error() != "AI players cannot toggle auto play." {
		t.Fatalf("expected AI rejection, got %v", err)
	}
	if err := a.ToggleAutoPlay(r, "alice", true); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !r.Players["alice"].AutoPlay {
		t.Fatalf("auto play not set")
	}
	if err := a.ToggleAutoPlay(r, "alice", false); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
}

func TestBroadcastSendsPerPlayerSnapshots(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	sinks := seatPlayers(t, a, r, "alice", "bob")
	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	a.Broadcast(r)
	for name, sink := range sinks {
		if len(sink.payloads) == 0 {
			t.Fatalf("%s received no snapshot", name)
		}
		state, ok := sink.payloads[len(sink.payloads)-1].(room.State)
		if !ok {
			t.Fatalf("%s payload type %T", name, sink.payloads[len(sink.payloads)-1])
		}
		if state.You.Name != name {
			t.Fatalf("%s snapshot not personalized: %+v", name, state.You)
		}
		if len(state.You.Hand) != 13 {
			t.Fatalf("%s hand: got %d tiles", name, len(state.You.Hand))
		}
	}
}

func TestBroadcastSkipsDisconnected(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	sinks := seatPlayers(t, a, r, "alice", "bob")

	if !a.Disconnect(r, "bob") {
		t.Fatalf("disconnect failed")
	}
	if a.Disconnect(r, "ghost") {
		t.Fatalf("disconnect of unknown player reported true")
	}

	before := len(sinks["bob"].payloads)
	a.Broadcast(r)
	if len(sinks["bob"].payloads) != before {
		t.Fatalf("disconnected player received a snapshot")
	}
	if len(sinks["alice"].payloads) == 0 {
		t.Fatalf("connected player received nothing")
	}
}

func TestHintGatingMessages(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob")

	hint := a.BuildHint(r, r.Players["alice"])
	if hint.Message != "No moves available right now." {
		t.Fatalf("before start: got %q", hint.Message)
	}

	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	waiter := "alice"
	if r.CurrentPlayer == "alice" {
		waiter = "bob"
	}
	hint = a.BuildHint(r, r.Players[waiter])
	if hint.Message != "Not your turn." {
		t.Fatalf("off turn: got %q", hint.Message)
	}

	current := r.Players[r.CurrentPlayer]
	current.AutoPlay = true
	hint = a.BuildHint(r, current)
	if hint.Message != "Auto play is enabled." {
		t.Fatalf("auto play: got %q", hint.Message)
	}
	current.AutoPlay = false

	// An empty hand has no playable move.
	current.Hand = nil
	hint = a.BuildHint(r, current)
	if hint.Message != "No moves found." {
		t.Fatalf("no moves: got %q", hint.Message)
	}
}

func TestSubmitTurnClearsDraft(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob")
	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	current := r.CurrentPlayer
	r.DraftTable = []room.Group{}
	r.DraftPlayer = current

	// An empty submit is a no-move rearrangement and fails, but the
	// draft preview is discarded either way.
	if _, err := a.SubmitTurn(r, current, nil); err == nil {
		t.Fatalf("expected rejection for empty submit")
	}
	if r.DraftTable != nil || r.DraftPlayer != "" {
		t.Fatalf("draft not cleared")
	}
}

func TestEndTurnAdvances(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob")
	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	first := r.CurrentPlayer
	handBefore := len(r.Players[first].Hand)
	roundOver, err := a.EndTurn(r, first)
	if err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if roundOver {
		t.Fatalf("round should continue")
	}
	if len(r.Players[first].Hand) != handBefore+1 {
		t.Fatalf("draw did not add a tile")
	}
	if r.CurrentPlayer == first {
		t.Fatalf("turn did not advance")
	}
}

func TestSetDraftValidatesOwnership(t *testing.T) {
	a := newTestAdapter()
	r := a.NewRoomState("TEST")
	seatPlayers(t, a, r, "alice", "bob")
	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	current := r.Players[r.CurrentPlayer]

	// A draft may stage any tiles from the current hand plus the table.
	draft := append([]room.Group{}, room.CloneTable(r.Table)...)
	draft = append(draft, room.Group{ID: "g-preview", Tiles: current.Hand[:3]})
	if err := a.SetDraft(r, current.Name, draft); err != nil {
		t.Fatalf("set draft: %v", err)
	}
	if r.DraftPlayer != current.Name || len(r.DraftTable) != len(draft) {
		t.Fatalf("draft not stored")
	}

	if err := a.SetDraft(r, "ghost", draft); err == nil {
		t.Fatalf("expected missing-player rejection")
	}
}

func TestCancelRoomIsIdempotent(t *testing.T) {
	a := newTestAdapter()
	a.CancelRoom("NOPE")
	a.CancelRoom("NOPE")
}
