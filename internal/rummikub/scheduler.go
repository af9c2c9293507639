package rummikub

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rummikub-server/internal/ai"
	"rummikub-server/internal/room"
)

// Pacing constants. AI seats answer a little faster than auto-played
// human seats; both get jitter so rooms do not feel mechanical.
const (
	aiSeatDelay     = 650 * time.Millisecond
	autoPlayDelay   = 900 * time.Millisecond
	delayJitter     = 500 * time.Millisecond
	fallbackDelay   = 10 * time.Second
	stepDelayBase   = 1200 * time.Millisecond
	stepDelayJitter = 600 * time.Millisecond
)

type roomTimers struct {
	ai             *time.Timer
	fallback       *time.Timer
	sequence       *time.Timer
	sequenceActive bool
}

// scheduler owns the per-room AI timers. Timer callbacks revalidate the
// room under its lock before acting, so a timer that outlives its turn
// is a no-op rather than a corruption. Lock order is always room lock
// before scheduler lock.
//
// A room's entry exists only between schedule and cancelAll; the fire
// paths look the entry up without allocating and abort when it is gone,
// so a callback already in flight when its room is canceled does
// nothing.
type scheduler struct {
	mu    sync.Mutex
	rooms map[string]*roomTimers
}

func newScheduler() *scheduler {
	return &scheduler{rooms: make(map[string]*roomTimers)}
}

func (s *scheduler) timersFor(roomID string) *roomTimers {
	t := s.rooms[roomID]
	if t == nil {
		t = &roomTimers{}
		s.rooms[roomID] = t
	}
	return t
}

func isAISeat(p *room.Player) bool {
	return p != nil && (p.IsAI || p.AutoPlay)
}

// schedule arms an AI turn if the current seat needs one. Caller holds
// the room lock.
func (s *scheduler) schedule(a *Adapter, r *room.Room) {
	if !r.Started || r.RoundOver {
		return
	}
	current := r.Players[r.CurrentPlayer]
	if !isAISeat(current) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.timersFor(r.ID)
	if t.ai != nil || t.sequence != nil || t.sequenceActive {
		return
	}
	base := autoPlayDelay
	if current.IsAI {
		base = aiSeatDelay
	}
	delay := base + time.Duration(rand.Int63n(int64(delayJitter)))
	t.ai = time.AfterFunc(delay, func() { s.fireAITurn(a, r) })

	if t.fallback != nil {
		t.fallback.Stop()
	}
	t.fallback = time.AfterFunc(fallbackDelay, func() { s.fireFallback(a, r) })
}

func (s *scheduler) fireAITurn(a *Adapter, r *room.Room) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	s.mu.Lock()
	t := s.rooms[r.ID]
	if t == nil {
		// Room was canceled after this timer fired.
		s.mu.Unlock()
		return
	}
	t.ai = nil
	if t.fallback != nil {
		t.fallback.Stop()
		t.fallback = nil
	}
	s.mu.Unlock()

	s.runAITurn(a, r)
}

func (s *scheduler) runAITurn(a *Adapter, r *room.Room) {
	if !r.Started || r.RoundOver {
		return
	}
	playerName := r.CurrentPlayer
	player := r.Players[playerName]
	if !isAISeat(player) {
		return
	}
	level := player.AILevel
	if level == "" {
		level = room.AIBasic
	}
	plan := ai.BuildPlan(r, player, a.cfg.InitialMeldPoints, level)
	if plan == nil {
		if _, err := a.EndTurn(r, playerName); err != nil {
			log.Warn().Str("room", r.ID).Str("player", playerName).Err(err).Msg("ai draw failed")
		}
		a.Broadcast(r)
		return
	}
	if room.IsTableOnlyExtended(r.Table, plan.Table) {
		if _, err := a.SubmitTurn(r, playerName, plan.Table); err != nil {
			log.Warn().Str("room", r.ID).Str("player", playerName).Err(err).Msg("ai submit rejected, drawing")
			_, _ = a.EndTurn(r, playerName)
		}
		a.Broadcast(r)
		return
	}
	s.runSequence(a, r, playerName, plan)
}

// runSequence plays a rearranging plan back as a series of draft
// broadcasts before the final commit. At most one sequence per room;
// it aborts as soon as the turn owner changes. Caller holds the room
// lock.
func (s *scheduler) runSequence(a *Adapter, r *room.Room, playerName string, plan *ai.Plan) {
	delay := stepDelayBase + time.Duration(rand.Int63n(int64(stepDelayJitter)))

	s.mu.Lock()
	t := s.rooms[r.ID]
	if t == nil {
		s.mu.Unlock()
		return
	}
	if t.sequence != nil {
		t.sequence.Stop()
		t.sequence = nil
	}
	if t.fallback != nil {
		t.fallback.Stop()
		t.fallback = nil
	}
	t.sequenceActive = true
	s.mu.Unlock()

	s.stepSequence(a, r, playerName, plan, 0, delay)
}

func (s *scheduler) stepSequence(a *Adapter, r *room.Room, playerName string, plan *ai.Plan, index int, delay time.Duration) {
	if !r.Started || r.RoundOver || r.CurrentPlayer != playerName {
		s.mu.Lock()
		if t := s.rooms[r.ID]; t != nil {
			t.sequence = nil
			t.sequenceActive = false
		}
		s.mu.Unlock()
		return
	}
	if index < len(plan.Steps) {
		s.mu.Lock()
		t := s.rooms[r.ID]
		if t == nil {
			s.mu.Unlock()
			return
		}
		t.sequence = time.AfterFunc(delay, func() { s.fireSequenceStep(a, r, playerName, plan, index+1, delay) })
		s.mu.Unlock()
		r.DraftTable = room.CloneTable(plan.Steps[index])
		r.DraftPlayer = playerName
		a.Broadcast(r)
		return
	}

	s.mu.Lock()
	t := s.rooms[r.ID]
	if t == nil {
		s.mu.Unlock()
		return
	}
	t.sequence = nil
	t.sequenceActive = false
	s.mu.Unlock()

	r.DraftTable = nil
	r.DraftPlayer = ""
	if _, err := a.SubmitTurn(r, playerName, plan.Table); err != nil {
		log.Warn().Str("room", r.ID).Str("player", playerName).Err(err).Msg("ai plan rejected at commit, drawing")
		_, _ = a.EndTurn(r, playerName)
	}
	a.Broadcast(r)
}

func (s *scheduler) fireSequenceStep(a *Adapter, r *room.Room, playerName string, plan *ai.Plan, index int, delay time.Duration) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	s.mu.Lock()
	t := s.rooms[r.ID]
	if t == nil {
		s.mu.Unlock()
		return
	}
	t.sequence = nil
	s.mu.Unlock()

	s.stepSequence(a, r, playerName, plan, index, delay)
}

// fireFallback force-draws when a scheduled AI turn never committed.
func (s *scheduler) fireFallback(a *Adapter, r *room.Room) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	s.mu.Lock()
	t := s.rooms[r.ID]
	if t == nil {
		s.mu.Unlock()
		return
	}
	t.fallback = nil
	s.mu.Unlock()

	if !r.Started || r.RoundOver {
		return
	}
	if !isAISeat(r.Players[r.CurrentPlayer]) {
		return
	}
	log.Warn().Str("room", r.ID).Str("player", r.CurrentPlayer).Msg("ai turn stalled, forcing draw")
	if _, err := a.EndTurn(r, r.CurrentPlayer); err == nil {
		a.Broadcast(r)
	}
}

// cancelPending stops the armed turn timer, e.g. when auto-play is
// switched off mid-wait.
func (s *scheduler) cancelPending(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.rooms[roomID]
	if t == nil {
		return
	}
	if t.ai != nil {
		t.ai.Stop()
		t.ai = nil
	}
	if t.fallback != nil {
		t.fallback.Stop()
		t.fallback = nil
	}
}

// cancelAll tears down every timer for a room being deleted.
func (s *scheduler) cancelAll(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.rooms[roomID]
	if t == nil {
		return
	}
	for _, timer := range []*time.Timer{t.ai, t.fallback, t.sequence} {
		if timer != nil {
			timer.Stop()
		}
	}
	delete(s.rooms, roomID)
}
