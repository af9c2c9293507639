package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"rummikub-server/internal/room"
)

// Adapter is the game behind the router. The router knows connections,
// framing and room lookup; every game decision goes through here, so a
// different variant only needs a different adapter.
type Adapter interface {
	NewRoomState(roomID string) *room.Room
	AddPlayer(r *room.Room, name string, sink room.Sink) error
	Disconnect(r *room.Room, name string) bool
	Broadcast(r *room.Room)
	StartGame(r *room.Room, playerName string) error
	AddAI(r *room.Room, playerName string, level room.AILevel) error
	RemoveAI(r *room.Room, playerName, targetName string) error
	SetRules(r *room.Room, playerName string, jokerLocked bool) error
	SortTable(r *room.Room, playerName string) error
	ToggleAutoPlay(r *room.Room, playerName string, enabled bool) error
	Chat(r *room.Room, playerName, text string)
	Hint(r *room.Room, player *room.Player) any
	DecodeTable(payload []room.WireGroup) ([]room.Group, error)
	SubmitTurn(r *room.Room, playerName string, table []room.Group) (bool, error)
	EndTurn(r *room.Room, playerName string) (bool, error)
	SetDraft(r *room.Room, playerName string, table []room.Group) error
	CancelRoom(roomID string)
}

type ServerConfig struct {
	MaxMessageBytes int64
	MaxNameLen      int
	MaxChatLen      int
}

type Server struct {
	manager  *Manager
	adapter  Adapter
	cfg      ServerConfig
	upgrader websocket.Upgrader
}

func NewServer(manager *Manager, adapter Adapter, cfg ServerConfig) *Server {
	return &Server{
		manager:  manager,
		adapter:  adapter,
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Client is one websocket connection, bound to at most one seat. It
// implements room.Sink; pushes that cannot be buffered are dropped, the
// client catches up from the next snapshot.
type Client struct {
	conn       *websocket.Conn
	send       chan []byte
	roomID     string
	playerName string

	mu     sync.Mutex
	closed bool
}

func (c *Client) Send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound payload")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 16)}
	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.handleClose(c)
		c.shutdown()
		_ = c.conn.Close()
	}()
	// Oversized frames get an error reply, not a dropped connection, so
	// the hard transport limit sits above the protocol limit.
	c.conn.SetReadLimit(2 * s.cfg.MaxMessageBytes)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if int64(len(msg)) > s.cfg.MaxMessageBytes {
			s.sendError(c, "Message too large.")
			continue
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			s.sendError(c, "Invalid message.")
			continue
		}
		s.dispatch(c, base.Type, msg)
	}
}

func (s *Server) sendError(c *Client, message string) {
	c.Send(ErrorMessage{Type: "error", Message: message})
}

func (s *Server) sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > s.cfg.MaxNameLen {
		name = name[:s.cfg.MaxNameLen]
	}
	return name
}

func (s *Server) sanitizeChat(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > s.cfg.MaxChatLen {
		text = text[:s.cfg.MaxChatLen]
	}
	return text
}

func (s *Server) dispatch(c *Client, msgType string, msg []byte) {
	switch msgType {
	case "createRoom":
		s.handleCreateRoom(c, msg)
	case "join":
		s.handleJoin(c, msg)
	default:
		s.handleRoomCommand(c, msgType, msg)
	}
}

func (s *Server) handleCreateRoom(c *Client, msg []byte) {
	var cmd CreateRoomMessage
	if err := json.Unmarshal(msg, &cmd); err != nil {
		s.sendError(c, "Invalid message.")
		return
	}
	name := s.sanitizeName(cmd.Name)
	if name == "" {
		s.sendError(c, "Name required.")
		return
	}
	r, err := s.manager.CreateRoom(s.adapter.NewRoomState)
	if err != nil {
		s.sendError(c, "Could not create room. Try again.")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if err := s.adapter.AddPlayer(r, name, c); err != nil {
		s.sendError(c, err.Error())
		return
	}
	c.roomID = r.ID
	c.playerName = name
	r.Touch()
	s.adapter.Broadcast(r)
}

func (s *Server) handleJoin(c *Client, msg []byte) {
	var cmd JoinMessage
	if err := json.Unmarshal(msg, &cmd); err != nil {
		s.sendError(c, "Invalid message.")
		return
	}
	roomID := s.manager.NormalizeRoomID(cmd.RoomID)
	name := s.sanitizeName(cmd.Name)
	if roomID == "" || name == "" {
		s.sendError(c, "Room ID and name required.")
		return
	}
	if !s.manager.IsValidRoomID(roomID) {
		s.sendError(c, "Invalid room ID.")
		return
	}
	r := s.manager.Get(roomID)
	if r == nil {
		s.sendError(c, "Room not found.")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if err := s.adapter.AddPlayer(r, name, c); err != nil {
		s.sendError(c, err.Error())
		return
	}
	c.roomID = roomID
	c.playerName = name
	r.Touch()
	s.adapter.Broadcast(r)
}

func (s *Server) handleRoomCommand(c *Client, msgType string, msg []byte) {
	if c.roomID == "" || c.playerName == "" {
		s.sendError(c, "Join a room first.")
		return
	}
	r := s.manager.Get(c.roomID)
	if r == nil {
		s.sendError(c, "Room not found.")
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	player := r.Players[c.playerName]
	if player == nil {
		s.sendError(c, "Player not found.")
		return
	}
	r.Touch()

	switch msgType {
	case "startGame":
		if err := s.adapter.StartGame(r, c.playerName); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
		return
	case "addAi":
		var cmd AddAIMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		level := room.AIBasic
		if cmd.Level == string(room.AIAdvanced) {
			level = room.AIAdvanced
		}
		if err := s.adapter.AddAI(r, c.playerName, level); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
		return
	case "removeAi":
		var cmd RemoveAIMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		if err := s.adapter.RemoveAI(r, c.playerName, cmd.Name); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
		return
	case "setRules":
		var cmd SetRulesMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		if err := s.adapter.SetRules(r, c.playerName, cmd.JokerLocked); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
		return
	case "sortTable":
		if err := s.adapter.SortTable(r, c.playerName); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
		return
	case "toggleAutoPlay":
		var cmd ToggleAutoPlayMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		if err := s.adapter.ToggleAutoPlay(r, c.playerName, cmd.Enabled); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
		return
	case "chat":
		var cmd ChatMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		text := s.sanitizeChat(cmd.Text)
		if text == "" {
			return
		}
		s.adapter.Chat(r, c.playerName, text)
		s.adapter.Broadcast(r)
		return
	case "hint":
		var cmd HintMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		// cmd.Step is accepted for wire compatibility but does not
		// change the reply.
		c.Send(s.adapter.Hint(r, player))
		return
	}

	// Everything below commits or previews a turn.
	if !r.Started {
		s.sendError(c, "Game has not started.")
		return
	}
	if r.RoundOver {
		s.sendError(c, "Round ended.")
		return
	}
	if r.CurrentPlayer != c.playerName {
		s.sendError(c, "Not your turn.")
		return
	}
	if player.AutoPlay {
		s.sendError(c, "Auto play is enabled.")
		return
	}

	switch msgType {
	case "submitTurn":
		var cmd SubmitTurnMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			s.sendError(c, "Invalid message.")
			return
		}
		if cmd.TurnID != r.TurnID {
			s.sendError(c, "Turn is out of date.")
			return
		}
		table, err := s.adapter.DecodeTable(cmd.Table)
		if err != nil {
			s.sendError(c, err.Error())
			return
		}
		if _, err := s.adapter.SubmitTurn(r, c.playerName, table); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
	case "endTurn":
		if _, err := s.adapter.EndTurn(r, c.playerName); err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.adapter.Broadcast(r)
	case "draftUpdate":
		// Advisory: every failure is dropped without a reply.
		var cmd DraftUpdateMessage
		if err := json.Unmarshal(msg, &cmd); err != nil {
			return
		}
		if cmd.TurnID != r.TurnID {
			return
		}
		table, err := s.adapter.DecodeTable(cmd.Table)
		if err != nil {
			return
		}
		if err := s.adapter.SetDraft(r, c.playerName, table); err != nil {
			return
		}
		s.adapter.Broadcast(r)
	default:
		s.sendError(c, "Unknown action.")
	}
}

func (s *Server) handleClose(c *Client) {
	if c.roomID == "" || c.playerName == "" {
		return
	}
	r := s.manager.Get(c.roomID)
	if r == nil {
		return
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	// A stale socket may close after the same player reconnected on a
	// fresh one; only the socket that still owns the seat disconnects it.
	if p := r.Players[c.playerName]; p == nil || p.Sink != c {
		return
	}
	if !s.adapter.Disconnect(r, c.playerName) {
		return
	}
	r.Touch()
	s.adapter.Broadcast(r)
}
