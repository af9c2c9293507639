// Package rummikub is the concrete game adapter: it owns every lobby
// and in-round action for one game variant and drives AI seats. The
// websocket router only sees the adapter interface.
package rummikub

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"rummikub-server/internal/room"
)

type Config struct {
	MaxPlayers        int
	InitialMeldPoints int
	MaxGroups         int
	MaxTableTiles     int
}

type Adapter struct {
	cfg   Config
	sched *scheduler
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg, sched: newScheduler()}
}

func (a *Adapter) InitialMeldPoints() int { return a.cfg.InitialMeldPoints }

func (a *Adapter) NewRoomState(roomID string) *room.Room {
	return room.New(roomID)
}

// All methods below expect the caller to hold the room lock; commands
// and AI timers for one room are serialized through it.

// AddPlayer seats a new player or reconnects a returning one. Names are
// unique per room; AI seat names cannot be claimed.
func (a *Adapter) AddPlayer(r *room.Room, name string, sink room.Sink) error {
	player := r.Players[name]
	if player == nil {
		if len(r.Order) >= a.cfg.MaxPlayers {
			return room.NewViolation(room.KindCapacity, "Room is full.")
		}
		player = &room.Player{Name: name, Connected: true, AILevel: room.AIBasic, Sink: sink}
		r.Players[name] = player
		r.Order = append(r.Order, name)
		if r.HostName == "" {
			r.HostName = name
		}
		if _, ok := r.Scores[name]; !ok {
			r.Scores[name] = 0
		}
		log.Info().Str("room", r.ID).Str("player", name).Msg("player joined")
		return nil
	}
	if player.IsAI {
		return room.NewViolation(room.KindRule, "Name reserved by AI player.")
	}
	player.Sink = sink
	player.Connected = true
	log.Info().Str("room", r.ID).Str("player", name).Msg("player reconnected")
	return nil
}

func (a *Adapter) Disconnect(r *room.Room, name string) bool {
	player := r.Players[name]
	if player == nil {
		return false
	}
	player.Connected = false
	player.Sink = nil
	log.Info().Str("room", r.ID).Str("player", name).Msg("player disconnected")
	return true
}

// Broadcast pushes every seated player their own snapshot, then lets
// the scheduler decide whether an AI turn is due.
func (a *Adapter) Broadcast(r *room.Room) {
	for _, name := range r.Order {
		player := r.Players[name]
		if player == nil || player.Sink == nil || !player.Connected {
			continue
		}
		if state, ok := room.StateFor(r, name, a.cfg.InitialMeldPoints); ok {
			player.Sink.Send(state)
		}
	}
	a.sched.schedule(a, r)
}

func (a *Adapter) StartGame(r *room.Room, playerName string) error {
	if r.Started {
		return room.NewViolation(room.KindRule, "Game already started.")
	}
	if r.HostName != playerName {
		return room.NewViolation(room.KindRule, "Only host can start.")
	}
	if len(r.Order) < 2 {
		return room.NewViolation(room.KindRule, "Need at least 2 players to start.")
	}
	if err := room.StartGame(r); err != nil {
		return err
	}
	log.Info().Str("room", r.ID).Int("round", r.Round).Str("first", r.CurrentPlayer).Msg("round started")
	return nil
}

func (a *Adapter) AddAI(r *room.Room, playerName string, level room.AILevel) error {
	if r.Started {
		return room.NewViolation(room.KindRule, "Game already started.")
	}
	if r.HostName != playerName {
		return room.NewViolation(room.KindRule, "Only host can add AI.")
	}
	if len(r.Order) >= a.cfg.MaxPlayers {
		return room.NewViolation(room.KindCapacity, "Room is full.")
	}
	if level != room.AIAdvanced {
		level = room.AIBasic
	}
	r.AICounter++
	aiName := fmt.Sprintf("AI-%d", r.AICounter)
	for r.Players[aiName] != nil {
		r.AICounter++
		aiName = fmt.Sprintf("AI-%d", r.AICounter)
	}
	r.Players[aiName] = &room.Player{
		Name:      aiName,
		Connected: true,
		IsAI:      true,
		AILevel:   level,
	}
	r.Order = append(r.Order, aiName)
	log.Info().Str("room", r.ID).Str("ai", aiName).Str("level", string(level)).Msg("ai seat added")
	return nil
}

func (a *Adapter) RemoveAI(r *room.Room, playerName, targetName string) error {
	if r.Started {
		return room.NewViolation(room.KindRule, "Game already started.")
	}
	if r.HostName != playerName {
		return room.NewViolation(room.KindRule, "Only host can remove AI.")
	}
	removed := ""
	if targetName != "" {
		if candidate := r.Players[targetName]; candidate != nil && candidate.IsAI {
			removed = targetName
		}
	} else {
		for i := len(r.Order) - 1; i >= 0; i-- {
			if candidate := r.Players[r.Order[i]]; candidate != nil && candidate.IsAI {
				removed = r.Order[i]
				break
			}
		}
	}
	if removed == "" {
		return room.NewViolation(room.KindRule, "No AI player to remove.")
	}
	delete(r.Players, removed)
	order := r.Order[:0]
	for _, name := range r.Order {
		if name != removed {
			order = append(order, name)
		}
	}
	r.Order = order
	return nil
}

func (a *Adapter) SetRules(r *room.Room, playerName string, jokerLocked bool) error {
	if r.Started {
		return room.NewViolation(room.KindRule, "Game already started.")
	}
	if r.HostName != playerName {
		return room.NewViolation(room.KindRule, "Only host can change rules.")
	}
	r.JokerLocked = jokerLocked
	return nil
}

func (a *Adapter) SortTable(r *room.Room, playerName string) error {
	if r.HostName != playerName {
		return room.NewViolation(room.KindRule, "Only host can sort the table.")
	}
	room.SortTable(r)
	return nil
}

func (a *Adapter) ToggleAutoPlay(r *room.Room, playerName string, enabled bool) error {
	player := r.Players[playerName]
	if player == nil {
		return room.NewViolation(room.KindStructural, "Player not found.")
	}
	if player.IsAI {
		return room.NewViolation(room.KindRule, "AI players cannot toggle auto play.")
	}
	player.AutoPlay = enabled
	if !enabled && r.CurrentPlayer == playerName {
		a.sched.cancelPending(r.ID)
	}
	return nil
}

func (a *Adapter) Chat(r *room.Room, playerName, text string) {
	r.AddChat(playerName, text)
}

// DecodeTable applies the configured payload limits before the strict
// per-tile decode.
func (a *Adapter) DecodeTable(payload []room.WireGroup) ([]room.Group, error) {
	return room.DecodeTable(payload, room.Limits{
		MaxGroups:     a.cfg.MaxGroups,
		MaxTableTiles: a.cfg.MaxTableTiles,
	})
}

func (a *Adapter) SubmitTurn(r *room.Room, playerName string, table []room.Group) (bool, error) {
	r.DraftTable = nil
	r.DraftPlayer = ""
	roundOver, err := room.SubmitTurn(r, playerName, table, a.cfg.InitialMeldPoints)
	if err != nil {
		return false, err
	}
	if roundOver {
		log.Info().Str("room", r.ID).Str("winner", r.Winner).Msg("round over")
	}
	return roundOver, nil
}

func (a *Adapter) EndTurn(r *room.Room, playerName string) (bool, error) {
	roundOver, err := room.DrawTurn(r, playerName)
	if err != nil {
		return false, err
	}
	if roundOver {
		log.Info().Str("room", r.ID).Str("winner", r.Winner).Msg("round over by stalemate")
	}
	return roundOver, nil
}

// SetDraft stores the advisory preview after sanitizing it. Failures are
// returned for the router to drop silently.
func (a *Adapter) SetDraft(r *room.Room, playerName string, table []room.Group) error {
	player := r.Players[playerName]
	if player == nil {
		return room.NewViolation(room.KindStructural, "Player not found.")
	}
	if err := room.SanitizeDraft(r, player, table); err != nil {
		return err
	}
	r.DraftTable = room.CloneTable(table)
	r.DraftPlayer = playerName
	return nil
}

// CancelRoom stops every pending AI timer for a reaped room.
func (a *Adapter) CancelRoom(roomID string) {
	a.sched.cancelAll(roomID)
}
