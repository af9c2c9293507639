package ws

import "rummikub-server/internal/room"

// Commands arrive as JSON with a type discriminator; tiles travel as id
// strings only and are rebuilt through the strict decoder.

type CreateRoomMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type JoinMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Name   string `json:"name"`
}

type AddAIMessage struct {
	Type  string `json:"type"`
	Level string `json:"level"`
}

type RemoveAIMessage struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type SetRulesMessage struct {
	Type        string `json:"type"`
	JokerLocked bool   `json:"jokerLocked"`
}

type ToggleAutoPlayMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type ChatMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type HintMessage struct {
	Type string `json:"type"`
	Step int    `json:"step,omitempty"`
}

type SubmitTurnMessage struct {
	Type   string           `json:"type"`
	TurnID int64            `json:"turnId"`
	Table  []room.WireGroup `json:"table"`
}

type DraftUpdateMessage struct {
	Type   string           `json:"type"`
	TurnID int64            `json:"turnId"`
	Table  []room.WireGroup `json:"table"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
