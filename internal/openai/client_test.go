package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI is a mock implementation of EmbeddingAPI
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCompletionAPI is a mock implementation of CompletionAPI
type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateCompletion(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestClient(embedAPI EmbeddingAPI, chatAPI CompletionAPI, dimensions int) *Client {
	return &Client{embedAPI: embedAPI, chatAPI: chatAPI, dimensions: dimensions}
}

func TestGenerateEmbedding(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		want := []float32{0.1, 0.2, 0.3}
		mockAPI.On("CreateEmbeddings", mock.Anything, "credit exposure").Return(want, nil)

		client := newTestClient(mockAPI, nil, 3)
		got, err := client.GenerateEmbedding(context.Background(), "credit exposure")

		require.NoError(t, err)
		assert.Equal(t, want, got)
		mockAPI.AssertExpectations(t)
	})

	t.Run("empty text", func(t *testing.T) {
		client := newTestClient(new(MockEmbeddingAPI), nil, 3)

		_, err := client.GenerateEmbedding(context.Background(), "")

		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("wrong dimensions", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2}, nil)

		client := newTestClient(mockAPI, nil, 3)
		_, err := client.GenerateEmbedding(context.Background(), "text")

		assert.ErrorIs(t, err, ErrWrongDimensions)
	})

	t.Run("api error", func(t *testing.T) {
		mockAPI := new(MockEmbeddingAPI)
		mockAPI.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

		client := newTestClient(mockAPI, nil, 3)
		_, err := client.GenerateEmbedding(context.Background(), "text")

		assert.ErrorContains(t, err, "failed to create embedding")
	})
}

func TestComplete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mockAPI := new(MockCompletionAPI)
		mockAPI.On("CreateCompletion", mock.Anything, "prompt").Return("answer", nil)

		client := newTestClient(nil, mockAPI, 3)
		got, err := client.Complete(context.Background(), "prompt")

		require.NoError(t, err)
		assert.Equal(t, "answer", got)
	})

	t.Run("empty prompt", func(t *testing.T) {
		client := newTestClient(nil, new(MockCompletionAPI), 3)

		_, err := client.Complete(context.Background(), "")

		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("api error", func(t *testing.T) {
		mockAPI := new(MockCompletionAPI)
		mockAPI.On("CreateCompletion", mock.Anything, mock.Anything).Return("", errors.New("overloaded"))

		client := newTestClient(nil, mockAPI, 3)
		_, err := client.Complete(context.Background(), "prompt")

		assert.ErrorContains(t, err, "failed to create completion")
	})
}

func TestNewClientFromEnv(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")

		_, err := NewClientFromEnv()

		assert.ErrorIs(t, err, ErrNoAPIKey)
	})

	t.Run("key present", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")

		client, err := NewClientFromEnv()

		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestNewClientWithConfig_DefaultDimensions(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "sk-test"})
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)

	client = NewClientWithConfig(Config{APIKey: "sk-test", EmbeddingDimensions: 256})
	assert.Equal(t, 256, client.dimensions)
}
