package ws

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rummikub-server/internal/room"
)

// DefaultAlphabet avoids ambiguous characters in room codes.
const DefaultAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// codeAttempts caps rejection sampling for a free room code; running
// out is a capacity condition, not a reason to loop forever.
const codeAttempts = 40

var ErrNoFreeRoomCode = errors.New("no free room code")

type ManagerConfig struct {
	Alphabet   string
	CodeLength int
	IdleAfter  time.Duration
}

// Manager owns the process-wide room registry. It is the only shared
// mutable state between rooms; everything per-room lives behind the
// room's own lock.
type Manager struct {
	mu       sync.Mutex
	rooms    map[string]*room.Room
	alphabet string
	codeLen  int
	idle     time.Duration
	onDelete func(roomID string)
}

func NewManager(cfg ManagerConfig, onDelete func(roomID string)) *Manager {
	alphabet := cfg.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	codeLen := cfg.CodeLength
	if codeLen <= 0 {
		codeLen = 4
	}
	return &Manager{
		rooms:    make(map[string]*room.Room),
		alphabet: alphabet,
		codeLen:  codeLen,
		idle:     cfg.IdleAfter,
		onDelete: onDelete,
	}
}

func (m *Manager) NormalizeRoomID(roomID string) string {
	return strings.ToUpper(strings.TrimSpace(roomID))
}

func (m *Manager) IsValidRoomID(roomID string) bool {
	if len(roomID) != m.codeLen {
		return false
	}
	for _, char := range roomID {
		if !strings.ContainsRune(m.alphabet, char) {
			return false
		}
	}
	return true
}

// CreateRoom samples an unused code and registers a fresh room built by
// newState.
func (m *Manager) CreateRoom(newState func(roomID string) *room.Room) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := make([]byte, m.codeLen)
		for i := range code {
			code[i] = m.alphabet[rand.Intn(len(m.alphabet))]
		}
		candidate := string(code)
		if _, taken := m.rooms[candidate]; taken {
			continue
		}
		r := newState(candidate)
		m.rooms[candidate] = r
		log.Info().Str("room", candidate).Msg("room created")
		return r, nil
	}
	return nil, ErrNoFreeRoomCode
}

func (m *Manager) Get(roomID string) *room.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[roomID]
}

func (m *Manager) Delete(roomID string) {
	m.mu.Lock()
	_, existed := m.rooms[roomID]
	delete(m.rooms, roomID)
	m.mu.Unlock()
	if existed && m.onDelete != nil {
		m.onDelete(roomID)
	}
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// StartJanitor reaps idle rooms on an interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ReapIdle(time.Now())
			}
		}
	}()
}

// ReapIdle deletes rooms with no connected human player whose last
// activity is older than the idle window. Rooms with anyone connected
// are retained indefinitely.
func (m *Manager) ReapIdle(now time.Time) int {
	m.mu.Lock()
	var stale []string
	for roomID, r := range m.rooms {
		r.Mu.Lock()
		idle := r.ConnectedCount() == 0 && now.Sub(r.LastActivity) > m.idle
		r.Mu.Unlock()
		if idle {
			stale = append(stale, roomID)
		}
	}
	for _, roomID := range stale {
		delete(m.rooms, roomID)
	}
	m.mu.Unlock()

	for _, roomID := range stale {
		if m.onDelete != nil {
			m.onDelete(roomID)
		}
		log.Info().Str("room", roomID).Msg("idle room reaped")
	}
	return len(stale)
}
