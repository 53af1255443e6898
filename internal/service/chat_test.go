package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/creditlens/creditlens/internal/domain"
)

func newTestSession(retriever ChunkRetriever, completer Completer) *ChatSession {
	return NewChatSession("session-1", retriever, completer, DefaultHistoryLimit)
}

func TestChatSession_Ask_AppendsTurn(t *testing.T) {
	mockRetriever := new(MockChunkRetriever)
	mockCompleter := new(MockCompleter)

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{domain.NewChunk("passage")}, nil)
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("first answer", nil)

	session := newTestSession(mockRetriever, mockCompleter)
	answer, err := session.Ask(context.Background(), "first question")

	require.NoError(t, err)
	assert.Equal(t, "first answer", answer)
	assert.Equal(t, []string{"first question", "first answer"}, session.History())
	assert.Equal(t, SessionIdle, session.State())
}

func TestChatSession_Ask_HistoryCappedAtTwoTurns(t *testing.T) {
	mockRetriever := new(MockChunkRetriever)
	mockCompleter := new(MockCompleter)

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{}, nil)
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a1", nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a2", nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a3", nil).Once()

	session := newTestSession(mockRetriever, mockCompleter)

	for _, q := range []string{"q1", "q2", "q3"} {
		_, err := session.Ask(context.Background(), q)
		require.NoError(t, err)
	}

	// After 3 turns only the last 2 remain, oldest evicted first.
	assert.Equal(t, []string{"q2", "a2", "q3", "a3"}, session.History())
}

func TestChatSession_Ask_FoldsHistoryAndLastContextIntoQuery(t *testing.T) {
	mockRetriever := new(MockChunkRetriever)
	mockCompleter := new(MockCompleter)

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{domain.NewChunk("ctx-1")}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a1", nil).Once()

	session := newTestSession(mockRetriever, mockCompleter)
	_, err := session.Ask(context.Background(), "q1")
	require.NoError(t, err)

	// The second retrieval query must carry the first turn and its passages.
	mockRetriever.On("Retrieve", mock.Anything, mock.MatchedBy(func(input string) bool {
		return strings.Contains(input, "q1") &&
			strings.Contains(input, "a1") &&
			strings.Contains(input, "ctx-1") &&
			strings.Contains(input, "q2")
	})).Return([]domain.Chunk{domain.NewChunk("ctx-2")}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a2", nil).Once()

	_, err = session.Ask(context.Background(), "q2")
	require.NoError(t, err)
	mockRetriever.AssertExpectations(t)
}

func TestChatSession_Ask_LastContextOverwritten(t *testing.T) {
	mockRetriever := new(MockChunkRetriever)
	mockCompleter := new(MockCompleter)

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{domain.NewChunk("old passage")}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a1", nil).Once()

	session := newTestSession(mockRetriever, mockCompleter)
	_, err := session.Ask(context.Background(), "q1")
	require.NoError(t, err)

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{domain.NewChunk("new passage")}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a2", nil).Once()

	_, err = session.Ask(context.Background(), "q2")
	require.NoError(t, err)

	// Third turn sees only the new passage, the old one was discarded.
	mockRetriever.On("Retrieve", mock.Anything, mock.MatchedBy(func(input string) bool {
		return strings.Contains(input, "new passage") && !strings.Contains(input, "old passage")
	})).Return([]domain.Chunk{}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a3", nil).Once()

	_, err = session.Ask(context.Background(), "q3")
	require.NoError(t, err)
	mockRetriever.AssertExpectations(t)
}

func TestChatSession_Ask_FailureLeavesStateUntouched(t *testing.T) {
	mockRetriever := new(MockChunkRetriever)
	mockCompleter := new(MockCompleter)

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{domain.NewChunk("passage")}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a1", nil).Once()

	session := newTestSession(mockRetriever, mockCompleter)
	_, err := session.Ask(context.Background(), "q1")
	require.NoError(t, err)
	historyBefore := session.History()

	t.Run("retrieval failure", func(t *testing.T) {
		mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return(nil, errors.New("index down")).Once()

		_, err := session.Ask(context.Background(), "q2")
		assert.Error(t, err)
		assert.Equal(t, historyBefore, session.History())
		assert.Equal(t, SessionIdle, session.State())
	})

	t.Run("completion failure", func(t *testing.T) {
		mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Return([]domain.Chunk{domain.NewChunk("fresh")}, nil).Once()
		mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("llm down")).Once()

		_, err := session.Ask(context.Background(), "q2")
		assert.Error(t, err)
		assert.Equal(t, historyBefore, session.History())
		assert.Equal(t, SessionIdle, session.State())

		// The failed turn's retrieval must not leak into the next query.
		mockRetriever.On("Retrieve", mock.Anything, mock.MatchedBy(func(input string) bool {
			return !strings.Contains(input, "fresh")
		})).Return([]domain.Chunk{}, nil).Once()
		mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("a3", nil).Once()

		_, err = session.Ask(context.Background(), "q3")
		assert.NoError(t, err)
	})
}

func TestChatSession_Ask_RejectsConcurrentQueries(t *testing.T) {
	mockRetriever := new(MockChunkRetriever)
	mockCompleter := new(MockCompleter)

	started := make(chan struct{})
	release := make(chan struct{})

	mockRetriever.On("Retrieve", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
	}).Return([]domain.Chunk{}, nil).Once()
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("slow answer", nil).Once()

	session := newTestSession(mockRetriever, mockCompleter)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := session.Ask(context.Background(), "slow question")
		assert.NoError(t, err)
	}()

	<-started
	assert.Equal(t, SessionProcessing, session.State())

	_, err := session.Ask(context.Background(), "second question")
	assert.ErrorIs(t, err, domain.ErrSessionBusy)

	close(release)
	wg.Wait()
	assert.Equal(t, SessionIdle, session.State())
}

func TestChatSession_Ask_EmptyQuery(t *testing.T) {
	session := newTestSession(new(MockChunkRetriever), new(MockCompleter))

	_, err := session.Ask(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestSessionManager_Lifecycle(t *testing.T) {
	manager := NewSessionManager(new(MockChunkRetriever), new(MockCompleter), DefaultHistoryLimit)

	session := manager.Create()
	require.NotEmpty(t, session.ID)

	got, err := manager.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)

	require.NoError(t, manager.Delete(session.ID))

	_, err = manager.Get(session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, manager.Delete(session.ID), domain.ErrSessionNotFound)
}
