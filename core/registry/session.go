package registry

import (
	"sync"
	"time"

	"github.com/sleekcode-io/ibot/core/llms"
	"github.com/sleekcode-io/ibot/core/roles"
)

// session is one active conversation. All mutation happens under mu, which
// also serializes gateway calls targeting this session: history is
// order-sensitive and two concurrent turns would interleave unpredictably.
type session struct {
	mu sync.Mutex

	id   int64
	role roles.Role

	language string
	voice    string

	jobContext   string
	systemPrompt string

	// history is append-only while the session is active. It is the exact
	// context forwarded to the completion gateway.
	history []llms.Message

	createdAt time.Time
	// ended flips once under mu; every operation checks it after acquiring
	// the lock so an id can never be used again after EndSession.
	ended bool
}

func (s *session) snapshotHistory() []llms.Message {
	history := make([]llms.Message, len(s.history))
	copy(history, s.history)
	return history
}

// EndedSession is the tombstone kept for a conversation after EndSession.
// The id is never reassigned while the registry runs.
type EndedSession struct {
	ID        int64
	Role      roles.Role
	Language  string
	Voice     string
	CreatedAt time.Time
	EndedAt   time.Time
	Rating    int
	Comments  string
	Turns     int
	Feedback  *llms.Feedback
}
