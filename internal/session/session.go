package session

import (
	"context"
	"fmt"
	"strings"
)

// Exchange is one completed user/assistant turn pair.
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Store keeps bounded per-session conversation history. Distinct sessions
// never block each other; ordering of concurrent queries on one session id
// is the caller's concern.
type Store interface {
	// Create returns a new session id with empty history.
	Create(ctx context.Context) (string, error)

	// HistoryText renders the stored exchanges as flattened text for the
	// agent's system prompt. Unknown ids yield empty history.
	HistoryText(ctx context.Context, id string) (string, error)

	// AddExchange appends one exchange, evicting the oldest FIFO when the
	// cap is exceeded.
	AddExchange(ctx context.Context, id, user, assistant string) error

	// Clear removes a session's history.
	Clear(ctx context.Context, id string) error
}

// FlattenExchanges renders exchanges as "User:/Assistant:" lines, the only
// shape the agent loop consumes.
func FlattenExchanges(exchanges []Exchange) string {
	var lines []string
	for _, e := range exchanges {
		lines = append(lines, fmt.Sprintf("User: %s", e.User))
		lines = append(lines, fmt.Sprintf("Assistant: %s", e.Assistant))
	}
	return strings.Join(lines, "\n")
}
