package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditlens/creditlens/internal/domain"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()

	Success(rec, http.StatusCreated, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, map[string]interface{}{"id": "abc"}, resp.Data)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()

	Error(rec, http.StatusBadRequest, "company_name is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "company_name is required", resp.Error)
}

func TestDomainErrorToHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", domain.NewDomainError(domain.ErrCodeValidation, "bad input"), http.StatusBadRequest},
		{"not found", domain.NewDomainError(domain.ErrCodeNotFound, "missing"), http.StatusNotFound},
		{"unsupported", domain.NewDomainError(domain.ErrCodeUnsupported, "image"), http.StatusUnsupportedMediaType},
		{"extraction", domain.NewDomainError(domain.ErrCodeExtraction, "bad pdf"), http.StatusUnprocessableEntity},
		{"session busy", domain.NewDomainError(domain.ErrCodeSessionBusy, "busy"), http.StatusConflict},
		{"index not found", domain.NewDomainError(domain.ErrCodeIndexNotFound, "absent"), http.StatusServiceUnavailable},
		{"index corrupt", domain.NewDomainError(domain.ErrCodeIndexCorrupt, "corrupt"), http.StatusServiceUnavailable},
		{"index build", domain.NewDomainError(domain.ErrCodeIndexBuild, "build failed"), http.StatusServiceUnavailable},
		{"embedding", domain.NewDomainError(domain.ErrCodeEmbedding, "embed failed"), http.StatusServiceUnavailable},
		{"llm invocation", domain.NewDomainError(domain.ErrCodeLLMInvocation, "llm down"), http.StatusBadGateway},
		{"internal", domain.NewDomainError(domain.ErrCodeInternalError, "boom"), http.StatusInternalServerError},
		{"plain error", errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainErrorToHTTP(tt.err))
		})
	}
}

func TestHandleError(t *testing.T) {
	rec := httptest.NewRecorder()

	HandleError(rec, domain.ErrSessionBusy)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Error)
}
