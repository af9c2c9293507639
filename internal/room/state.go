package room

import (
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"rummikub-server/internal/game"
)

// Sink pushes a payload to one seated player. The transport owns the
// implementation; AI seats have none.
type Sink interface {
	Send(v any)
}

type AILevel string

const (
	AIBasic    AILevel = "basic"
	AIAdvanced AILevel = "advanced"
)

type Group struct {
	ID    string      `json:"id"`
	Tiles []game.Tile `json:"tiles"`
}

type Player struct {
	Name      string
	Hand      []game.Tile
	HasMelded bool
	Connected bool
	IsAI      bool
	AILevel   AILevel
	AutoPlay  bool
	Sink      Sink
}

type ChatMessage struct {
	Player string `json:"player"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

type MoveType string

const (
	MoveSubmit MoveType = "submit"
	MoveDraw   MoveType = "draw"
	MovePass   MoveType = "pass"
)

// MoveEntry is the detailed history record. Drawn tiles and played-tile
// identities are redacted for other players at snapshot time.
type MoveEntry struct {
	Text        string      `json:"text"`
	Type        MoveType    `json:"type"`
	Player      string      `json:"player"`
	DrawnTile   *game.Tile  `json:"drawnTile,omitempty"`
	HiddenDraw  bool        `json:"hiddenDraw,omitempty"`
	PlayedTiles []game.Tile `json:"playedTiles,omitempty"`
	TableBefore []Group     `json:"tableBefore,omitempty"`
	TableAfter  []Group     `json:"tableAfter,omitempty"`
}

const historyLimit = 200

// Room is the authoritative per-room aggregate. All fields are guarded
// by Mu: commands and scheduled AI turns for one room are serialized,
// rooms never share state.
type Room struct {
	Mu sync.Mutex

	ID             string
	Players        map[string]*Player
	Order          []string
	HostName       string
	Started        bool
	RoundOver      bool
	Winner         string
	Table          []Group
	Deck           []game.Tile
	CurrentPlayer  string
	TurnID         int64
	TurnStartTable []Group
	NoPlayTurns    int
	Round          int
	Scores         map[string]int
	AICounter      int
	LastMove       string
	DraftTable     []Group
	DraftPlayer    string
	MoveHistory    []string
	MoveDetails    []MoveEntry
	JokerLocked    bool
	ChatHistory    []ChatMessage
	LastActivity   time.Time
}

func New(roomID string) *Room {
	return &Room{
		ID:           roomID,
		Players:      make(map[string]*Player),
		Scores:       make(map[string]int),
		LastActivity: time.Now(),
	}
}

func (r *Room) Touch() {
	r.LastActivity = time.Now()
}

// ConnectedCount reports human players currently connected; AI seats do
// not keep a room alive.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected && !p.IsAI {
			n++
		}
	}
	return n
}

// StartTurn hands the turn to playerName: bumps the turn counter, takes
// the structural table snapshot the turn engine validates against, and
// clears any pending draft.
func StartTurn(r *Room, playerName string) {
	r.CurrentPlayer = playerName
	r.TurnID++
	r.TurnStartTable = CloneTable(r.Table)
	r.DraftTable = nil
	r.DraftPlayer = ""
}

// StartGame shuffles a fresh deck, deals 13 tiles to every seat and
// opens the round with a random starting player.
func StartGame(r *Room) error {
	tiles, err := game.NewDeck()
	if err != nil {
		return err
	}
	game.Shuffle(tiles)
	r.Table = nil
	r.Deck = tiles
	r.Winner = ""
	r.RoundOver = false
	r.Started = true
	r.NoPlayTurns = 0
	r.Round++
	r.LastMove = ""
	r.MoveHistory = nil
	r.MoveDetails = nil

	for _, name := range r.Order {
		p := r.Players[name]
		if p == nil {
			continue
		}
		p.Hand = append([]game.Tile(nil), r.Deck[:13]...)
		r.Deck = r.Deck[13:]
		p.HasMelded = false
		if _, ok := r.Scores[name]; !ok {
			r.Scores[name] = 0
		}
	}

	StartTurn(r, r.Order[rand.Intn(len(r.Order))])
	return nil
}

// ApplyScores settles a finished round: the winner gains the sum of all
// opponents' hand points, each opponent loses their own hand's points.
func ApplyScores(r *Room, winnerName string) {
	total := 0
	for _, name := range r.Order {
		if name == winnerName {
			continue
		}
		p := r.Players[name]
		if p == nil {
			continue
		}
		points := game.HandPoints(p.Hand)
		total += points
		r.Scores[name] -= points
	}
	r.Scores[winnerName] += total
	r.Winner = winnerName
	r.RoundOver = true
	r.Started = false
}

// EndRoundStalemate settles a stuck round in favor of the player holding
// the lowest hand total, with the same point transfer as a normal win.
func EndRoundStalemate(r *Room) {
	winnerName := ""
	bestScore := 0
	for _, name := range r.Order {
		p := r.Players[name]
		if p == nil {
			continue
		}
		points := game.HandPoints(p.Hand)
		if winnerName == "" || points < bestScore {
			bestScore = points
			winnerName = name
		}
	}
	if winnerName != "" {
		ApplyScores(r, winnerName)
	}
}

// FindNextPlayer returns the next connected player after fromName in
// turn order. Disconnected players are skipped but never removed; if
// everyone is gone the turn stalls on the same player.
func FindNextPlayer(r *Room, fromName string) string {
	if len(r.Order) == 0 {
		return ""
	}
	startIndex := 0
	for i, name := range r.Order {
		if name == fromName {
			startIndex = i
			break
		}
	}
	for offset := 1; offset <= len(r.Order); offset++ {
		name := r.Order[(startIndex+offset)%len(r.Order)]
		if p := r.Players[name]; p != nil && p.Connected {
			return name
		}
	}
	return r.Order[startIndex]
}

func CloneTable(table []Group) []Group {
	out := make([]Group, 0, len(table))
	for _, group := range table {
		out = append(out, Group{
			ID:    group.ID,
			Tiles: append([]game.Tile(nil), group.Tiles...),
		})
	}
	return out
}

func TableTileIDs(table []Group) []string {
	ids := make([]string, 0)
	for _, group := range table {
		for _, tile := range group.Tiles {
			ids = append(ids, tile.ID)
		}
	}
	return ids
}

func groupSignature(group Group) string {
	ids := make([]string, 0, len(group.Tiles))
	for _, tile := range group.Tiles {
		ids = append(ids, tile.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// TableSignature is the multiset of per-group tile-id signatures, used
// to decide whether a table was only extended versus rearranged.
func TableSignature(table []Group) map[string]int {
	sig := make(map[string]int, len(table))
	for _, group := range table {
		sig[groupSignature(group)]++
	}
	return sig
}

// SortTable renormalizes every group into canonical display order.
func SortTable(r *Room) {
	next := make([]Group, 0, len(r.Table))
	for _, group := range r.Table {
		next = append(next, Group{ID: group.ID, Tiles: game.NormalizeGroupTiles(group.Tiles)})
	}
	r.Table = next
}

func (r *Room) AddChat(playerName, text string) {
	r.ChatHistory = append(r.ChatHistory, ChatMessage{
		Player: playerName,
		Text:   text,
		TS:     time.Now().UnixMilli(),
	})
	if len(r.ChatHistory) > historyLimit {
		r.ChatHistory = r.ChatHistory[1:]
	}
}

func (r *Room) appendMove(text string, entry MoveEntry) {
	r.LastMove = text
	r.MoveHistory = append(r.MoveHistory, text)
	if len(r.MoveHistory) > historyLimit {
		r.MoveHistory = r.MoveHistory[1:]
	}
	entry.Text = text
	r.MoveDetails = append(r.MoveDetails, entry)
	if len(r.MoveDetails) > historyLimit {
		r.MoveDetails = r.MoveDetails[1:]
	}
}
