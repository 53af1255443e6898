package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creditlens/creditlens/internal/api"
	"github.com/creditlens/creditlens/internal/service"
)

type SessionManager interface {
	Create() *service.ChatSession
	Get(id string) (*service.ChatSession, error)
	Delete(id string) error
}

type ChatHandler struct {
	sessions SessionManager
}

func NewChatHandler(sessions SessionManager) *ChatHandler {
	return &ChatHandler{sessions: sessions}
}

type SessionResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

type AskRequest struct {
	Query string `json:"query"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

func sessionToResponse(s *service.ChatSession) *SessionResponse {
	return &SessionResponse{
		ID:        s.ID,
		State:     string(s.State()),
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// CreateSession starts a new conversation session.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Create()
	api.Success(w, http.StatusCreated, sessionToResponse(session))
}

// GetSession returns the state of an existing session.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, sessionToResponse(session))
}

// Ask submits one query to a session and returns the answer. A session with a
// query already in flight answers 409.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := session.Ask(r.Context(), req.Query)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{Answer: answer})
}

// DeleteSession removes a session.
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusNoContent, nil)
}
