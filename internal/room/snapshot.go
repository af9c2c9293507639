package room

import "rummikub-server/internal/game"

// State is the per-player snapshot broadcast after every state change.
// Opponents' hands are never exposed; history is redacted per viewer.
type State struct {
	Type          string        `json:"type"`
	RoomID        string        `json:"roomId"`
	HostName      string        `json:"hostName"`
	Started       bool          `json:"started"`
	RoundOver     bool          `json:"roundOver"`
	Winner        string        `json:"winner,omitempty"`
	CurrentPlayer string        `json:"currentPlayer"`
	DeckCount     int           `json:"deckCount"`
	Round         int           `json:"round"`
	TurnID        int64         `json:"turnId"`
	InitialMeld   int           `json:"initialMeld"`
	JokerLocked   bool          `json:"jokerLocked"`
	Players       []PlayerInfo  `json:"players"`
	Scores        []ScoreInfo   `json:"scores"`
	LastMove      string        `json:"lastMove,omitempty"`
	MoveHistory   []string      `json:"moveHistory"`
	MoveDetails   []MoveEntry   `json:"moveHistoryDetailed"`
	ChatHistory   []ChatMessage `json:"chatHistory"`
	DraftTable    []Group       `json:"draftTable,omitempty"`
	DraftPlayer   string        `json:"draftPlayer,omitempty"`
	Table         []Group       `json:"table"`
	You           YouInfo       `json:"you"`
}

type PlayerInfo struct {
	Name      string  `json:"name"`
	Connected bool    `json:"connected"`
	HandCount int     `json:"handCount"`
	IsAI      bool    `json:"isAi"`
	AutoPlay  bool    `json:"autoPlay"`
	AILevel   AILevel `json:"aiLevel"`
}

type ScoreInfo struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type YouInfo struct {
	Name      string      `json:"name"`
	Hand      []game.Tile `json:"hand"`
	HasMelded bool        `json:"hasMelded"`
	AutoPlay  bool        `json:"autoPlay"`
}

// StateFor builds the snapshot for one seated player.
func StateFor(r *Room, playerName string, meldPoints int) (State, bool) {
	player := r.Players[playerName]
	if player == nil {
		return State{}, false
	}
	players := make([]PlayerInfo, 0, len(r.Order))
	scores := make([]ScoreInfo, 0, len(r.Order))
	for _, name := range r.Order {
		info := PlayerInfo{Name: name, AILevel: AIBasic}
		if p := r.Players[name]; p != nil {
			info.Connected = p.Connected
			info.HandCount = len(p.Hand)
			info.IsAI = p.IsAI
			info.AutoPlay = p.AutoPlay
			if p.AILevel != "" {
				info.AILevel = p.AILevel
			}
		}
		players = append(players, info)
		scores = append(scores, ScoreInfo{Name: name, Score: r.Scores[name]})
	}
	return State{
		Type:          "state",
		RoomID:        r.ID,
		HostName:      r.HostName,
		Started:       r.Started,
		RoundOver:     r.RoundOver,
		Winner:        r.Winner,
		CurrentPlayer: r.CurrentPlayer,
		DeckCount:     len(r.Deck),
		Round:         r.Round,
		TurnID:        r.TurnID,
		InitialMeld:   meldPoints,
		JokerLocked:   r.JokerLocked,
		Players:       players,
		Scores:        scores,
		LastMove:      r.LastMove,
		MoveHistory:   append([]string(nil), r.MoveHistory...),
		MoveDetails:   redactMoveDetails(r, playerName),
		ChatHistory:   append([]ChatMessage(nil), r.ChatHistory...),
		DraftTable:    r.DraftTable,
		DraftPlayer:   r.DraftPlayer,
		Table:         r.Table,
		You: YouInfo{
			Name:      playerName,
			Hand:      append([]game.Tile(nil), player.Hand...),
			HasMelded: player.HasMelded,
			AutoPlay:  player.AutoPlay,
		},
	}, true
}

// redactMoveDetails hides other players' drawn tiles and played-tile
// identities; pass and submit counts stay visible.
func redactMoveDetails(r *Room, playerName string) []MoveEntry {
	out := make([]MoveEntry, 0, len(r.MoveDetails))
	for _, entry := range r.MoveDetails {
		if entry.Type == MoveDraw && entry.Player != playerName {
			entry.DrawnTile = nil
			entry.HiddenDraw = true
		}
		if entry.Type == MoveSubmit && entry.Player != playerName {
			entry.PlayedTiles = nil
		}
		out = append(out, entry)
	}
	return out
}
