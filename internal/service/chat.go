package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/creditlens/creditlens/internal/domain"
	"github.com/creditlens/creditlens/internal/telemetry"
)

// SessionState is the lifecycle state of a chat session.
type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionProcessing SessionState = "processing"
)

// DefaultHistoryLimit caps session history at the two most recent complete
// turns (a turn is a query entry plus an answer entry).
const DefaultHistoryLimit = 4

// ChatSession is a stateful conversation over the corpus. History and the
// previous turn's retrieved passages are folded into every query so the model
// can resolve follow-ups. A session accepts one query at a time: a second Ask
// while one is in flight is rejected, never queued.
type ChatSession struct {
	ID        string
	CreatedAt time.Time

	retriever ChunkRetriever
	completer Completer

	mu           sync.Mutex
	state        SessionState
	history      []string
	lastContext  []string
	historyLimit int
}

// NewChatSession creates an idle ChatSession instance.
func NewChatSession(id string, retriever ChunkRetriever, completer Completer, historyLimit int) *ChatSession {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &ChatSession{
		ID:           id,
		CreatedAt:    time.Now().UTC(),
		retriever:    retriever,
		completer:    completer,
		state:        SessionIdle,
		history:      []string{},
		lastContext:  []string{},
		historyLimit: historyLimit,
	}
}

// State returns the current session state.
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns a copy of the session history.
func (s *ChatSession) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Ask answers one query. The augmented query carries the prior turns and the
// previous turn's retrieved passages; after a successful answer the session
// overwrites its last context with the fresh retrieval, appends the turn, and
// evicts the oldest entries past the history limit.
//
// State mutation is atomic: when retrieval or the completion call fails, both
// history and last context keep their pre-call values and the session returns
// to idle.
func (s *ChatSession) Ask(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", domain.ErrEmptyQuery
	}

	s.mu.Lock()
	if s.state == SessionProcessing {
		s.mu.Unlock()
		return "", domain.ErrSessionBusy
	}
	s.state = SessionProcessing
	history := make([]string, len(s.history))
	copy(history, s.history)
	lastContext := make([]string, len(s.lastContext))
	copy(lastContext, s.lastContext)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = SessionIdle
		s.mu.Unlock()
	}()

	ctx, span := telemetry.StartSpan(ctx, "ChatSession.Ask", telemetry.SpanAttributes{
		SessionID: s.ID,
		Operation: "ask",
	})
	defer span.End()

	input := FormatChatInput(history, lastContext, query)

	retrieved, err := s.retriever.Retrieve(ctx, input)
	if err != nil {
		span.SetError(err)
		return "", err
	}

	prompt := FormatChatPrompt(domain.JoinChunks(retrieved), input)

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeLLMInvocation,
			"completion call failed", err)
	}

	s.mu.Lock()
	s.lastContext = make([]string, len(retrieved))
	for i, chunk := range retrieved {
		s.lastContext[i] = chunk.Content
	}
	s.history = append(s.history, query, answer)
	for len(s.history) > s.historyLimit {
		s.history = s.history[1:]
	}
	s.mu.Unlock()

	return answer, nil
}

// SessionManager owns the live chat sessions for the process.
type SessionManager struct {
	retriever    ChunkRetriever
	completer    Completer
	historyLimit int

	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

// NewSessionManager creates a new SessionManager instance.
func NewSessionManager(retriever ChunkRetriever, completer Completer, historyLimit int) *SessionManager {
	return &SessionManager{
		retriever:    retriever,
		completer:    completer,
		historyLimit: historyLimit,
		sessions:     make(map[string]*ChatSession),
	}
}

// Create starts a new session and returns it.
func (m *SessionManager) Create() *ChatSession {
	session := NewChatSession(uuid.New().String(), m.retriever, m.completer, m.historyLimit)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session
}

// Get returns the session with the given ID.
func (m *SessionManager) Get(id string) (*ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Delete removes a session.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}
