package rummikub

import (
	"testing"
	"time"

	"rummikub-server/internal/ai"
	"rummikub-server/internal/game"
	"rummikub-server/internal/room"
)

func mustTiles(t *testing.T, ids ...string) []game.Tile {
	t.Helper()
	tiles := make([]game.Tile, 0, len(ids))
	for _, id := range ids {
		tile, err := game.ParseTileID(id)
		if err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
		tiles = append(tiles, tile)
	}
	return tiles
}

// aiTurnRoom builds a started room with the AI seat on turn, one melded
// run on the table and a caller-controlled AI hand.
func aiTurnRoom(t *testing.T) (*Adapter, *room.Room) {
	t.Helper()
	a := newTestAdapter()
	r := a.NewRoomState("SCHED")
	seatPlayers(t, a, r, "alice")
	if err := a.AddAI(r, "alice", room.AIBasic); err != nil {
		t.Fatalf("add ai: %v", err)
	}
	if err := a.StartGame(r, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Players["AI-1"].HasMelded = true
	r.Table = []room.Group{{ID: "g1", Tiles: mustTiles(t, "red-5-0", "red-6-0", "red-7-0")}}
	room.StartTurn(r, "AI-1")
	return a, r
}

func TestRunAITurnSubmitsNewGroup(t *testing.T) {
	a, r := aiTurnRoom(t)
	bot := r.Players["AI-1"]
	bot.Hand = mustTiles(t, "blue-1-0", "blue-2-0", "blue-3-0", "orange-13-0")
	turnBefore := r.TurnID

	r.Mu.Lock()
	a.sched.runAITurn(a, r)
	r.Mu.Unlock()

	if r.CurrentPlayer != "alice" {
		t.Fatalf("turn should pass to alice, got %q", r.CurrentPlayer)
	}
	if r.TurnID == turnBefore {
		t.Fatalf("turn counter did not advance")
	}
	if len(bot.Hand) != 1 || bot.Hand[0].ID != "orange-13-0" {
		t.Fatalf("ai hand after play: %v", bot.Hand)
	}
	if len(r.Table) != 2 {
		t.Fatalf("table groups: got %d, want 2", len(r.Table))
	}
	a.CancelRoom(r.ID)
}

func TestRunAITurnDrawsWhenNoMove(t *testing.T) {
	a, r := aiTurnRoom(t)
	bot := r.Players["AI-1"]
	bot.Hand = mustTiles(t, "orange-13-0")
	deckBefore := len(r.Deck)

	r.Mu.Lock()
	a.sched.runAITurn(a, r)
	r.Mu.Unlock()

	if len(bot.Hand) != 2 {
		t.Fatalf("ai should have drawn, hand: %v", bot.Hand)
	}
	if len(r.Deck) != deckBefore-1 {
		t.Fatalf("deck: got %d, want %d", len(r.Deck), deckBefore-1)
	}
	if r.CurrentPlayer != "alice" {
		t.Fatalf("turn should pass to alice, got %q", r.CurrentPlayer)
	}
	a.CancelRoom(r.ID)
}

func TestStepSequenceAbortsWhenTurnMovesOn(t *testing.T) {
	a, r := aiTurnRoom(t)
	plan := &ai.Plan{
		Table: room.CloneTable(r.Table),
		Steps: [][]room.Group{room.CloneTable(r.Table)},
	}
	a.sched.mu.Lock()
	entry := a.sched.timersFor(r.ID)
	entry.sequenceActive = true
	a.sched.mu.Unlock()

	room.StartTurn(r, "alice")

	r.Mu.Lock()
	a.sched.stepSequence(a, r, "AI-1", plan, 0, time.Millisecond)
	r.Mu.Unlock()

	if r.DraftTable != nil {
		t.Fatalf("draft staged after the turn moved on")
	}
	a.sched.mu.Lock()
	active, seq := entry.sequenceActive, entry.sequence
	a.sched.mu.Unlock()
	if active || seq != nil {
		t.Fatalf("sequence not cleared: active=%v timer=%v", active, seq != nil)
	}
	a.CancelRoom(r.ID)
}

func TestStepSequenceCommitsPlanTable(t *testing.T) {
	a, r := aiTurnRoom(t)
	bot := r.Players["AI-1"]
	bot.Hand = mustTiles(t, "red-8-0", "orange-13-0")

	extended := room.CloneTable(r.Table)
	extended[0].Tiles = append(extended[0].Tiles, mustTiles(t, "red-8-0")...)
	plan := &ai.Plan{Table: extended}

	a.sched.mu.Lock()
	entry := a.sched.timersFor(r.ID)
	entry.sequenceActive = true
	a.sched.mu.Unlock()

	r.Mu.Lock()
	a.sched.stepSequence(a, r, "AI-1", plan, 0, time.Millisecond)
	r.Mu.Unlock()

	if len(r.Table) != 1 || len(r.Table[0].Tiles) != 4 {
		t.Fatalf("table after commit: %v", r.Table)
	}
	if len(bot.Hand) != 1 || bot.Hand[0].ID != "orange-13-0" {
		t.Fatalf("ai hand after commit: %v", bot.Hand)
	}
	if r.CurrentPlayer != "alice" {
		t.Fatalf("turn should pass to alice, got %q", r.CurrentPlayer)
	}
	a.sched.mu.Lock()
	active := entry.sequenceActive
	a.sched.mu.Unlock()
	if active {
		t.Fatalf("sequence still marked active after commit")
	}
	a.CancelRoom(r.ID)
}

func TestScheduleSkipsWhileSequenceActive(t *testing.T) {
	a, r := aiTurnRoom(t)
	a.sched.mu.Lock()
	entry := a.sched.timersFor(r.ID)
	entry.sequenceActive = true
	a.sched.mu.Unlock()

	r.Mu.Lock()
	a.sched.schedule(a, r)
	r.Mu.Unlock()

	a.sched.mu.Lock()
	armed := entry.ai != nil
	a.sched.mu.Unlock()
	if armed {
		t.Fatalf("turn timer armed while a sequence is active")
	}
	a.CancelRoom(r.ID)
}

func TestScheduleArmsForAISeat(t *testing.T) {
	a, r := aiTurnRoom(t)

	r.Mu.Lock()
	a.sched.schedule(a, r)
	r.Mu.Unlock()

	a.sched.mu.Lock()
	entry := a.sched.rooms[r.ID]
	armed := entry != nil && entry.ai != nil && entry.fallback != nil
	a.sched.mu.Unlock()
	if !armed {
		t.Fatalf("expected turn and fallback timers for the AI seat")
	}
	a.CancelRoom(r.ID)
}

func TestFireAfterCancelLeavesRoomUntouched(t *testing.T) {
	a, r := aiTurnRoom(t)
	a.sched.mu.Lock()
	a.sched.timersFor(r.ID)
	a.sched.mu.Unlock()
	a.CancelRoom(r.ID)

	bot := r.Players["AI-1"]
	turnBefore := r.TurnID
	currentBefore := r.CurrentPlayer
	handBefore := len(bot.Hand)

	a.sched.fireAITurn(a, r)
	a.sched.fireFallback(a, r)
	a.sched.fireSequenceStep(a, r, "AI-1", &ai.Plan{}, 0, time.Millisecond)

	if r.TurnID != turnBefore || r.CurrentPlayer != currentBefore {
		t.Fatalf("canceled room advanced: turn %d -> %d, current %q", turnBefore, r.TurnID, r.CurrentPlayer)
	}
	if len(bot.Hand) != handBefore {
		t.Fatalf("canceled room drew a tile")
	}
	a.sched.mu.Lock()
	_, exists := a.sched.rooms[r.ID]
	a.sched.mu.Unlock()
	if exists {
		t.Fatalf("scheduler entry recreated for canceled room")
	}
}
