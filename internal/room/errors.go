package room

// Kind classifies a rejection so the transport can decide whether to
// report it or drop it silently.
type Kind int

const (
	// KindStructural: malformed payload; no state change, sender only.
	KindStructural Kind = iota
	// KindRule: a game-rule violation with a specific reason.
	KindRule
	// KindTurn: wrong turn, stale turn id or auto-play active.
	KindTurn
	// KindCapacity: payload or room over a configured limit, rejected
	// before any per-tile work.
	KindCapacity
)

// Violation is a player-facing rejection. Engine functions are total:
// they return violations, they never panic across room boundaries.
type Violation struct {
	Kind    Kind
	Message string
}

func (v *Violation) Error() string { return v.Message }

// NewViolation builds a rejection for callers outside the turn engine,
// such as lobby actions enforced by the game adapter.
func NewViolation(kind Kind, message string) *Violation {
	return &Violation{Kind: kind, Message: message}
}

func structural(message string) *Violation {
	return &Violation{Kind: KindStructural, Message: message}
}

func ruleViolation(message string) *Violation {
	return &Violation{Kind: KindRule, Message: message}
}

func capacity(message string) *Violation {
	return &Violation{Kind: KindCapacity, Message: message}
}
