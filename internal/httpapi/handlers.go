// Package httpapi is the JSON request/response surface around the
// real-time core: group and student management, story and score
// persistence, and the generation endpoints. Collaborator failures come
// back as a JSON error body with a non-2xx status; they never touch the
// socket layer.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pairboard/pairboard/internal/groups"
)

// Generator is the AI collaborator as the handlers need it.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GenerateImage(ctx context.Context, prompt, size string) (string, error)
}

// Handler serves the JSON API.
type Handler struct {
	groups    *groups.Service
	generator Generator
}

// NewHandler creates the API handler.
func NewHandler(groupService *groups.Service, generator Generator) *Handler {
	return &Handler{groups: groupService, generator: generator}
}

// RegisterRoutes mounts the API endpoints.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("POST /api/image", h.Image)
	mux.HandleFunc("POST /api/groups", h.CreateGroup)
	mux.HandleFunc("GET /api/groups", h.ListGroups)
	mux.HandleFunc("GET /api/groups/{id}", h.GetGroup)
	mux.HandleFunc("POST /api/groups/{id}/students", h.AssignStudents)
	mux.HandleFunc("POST /api/groups/{id}/urls", h.AppendImageURL)
	mux.HandleFunc("POST /api/groups/{id}/story", h.SaveStory)
	mux.HandleFunc("POST /api/groups/{id}/finishQuiz", h.FinishQuiz)
	mux.HandleFunc("POST /api/students", h.RegisterStudent)
	mux.HandleFunc("GET /api/students", h.ListStudents)
}

// Chat generates a text answer for a prompt.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	text, err := h.generator.Complete(r.Context(), req.Prompt)
	if err != nil {
		log.Error().Err(err).Msg("completion failed")
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bot": text})
}

// Image generates an image and returns its URL.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
		Size   string `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	url, err := h.generator.GenerateImage(r.Context(), req.Prompt, req.Size)
	if err != nil {
		log.Error().Err(err).Msg("image generation failed")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "image not generated",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    url,
	})
}

// CreateGroup adds a group.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	group, err := h.groups.CreateGroup(r.Context(), req.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

// ListGroups returns all groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	list, err := h.groups.ListGroups(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetGroup returns one group.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	group, err := h.groups.GetGroup(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// AssignStudents pairs two students into the group.
func (h *Handler) AssignStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Student1 string `json:"student1"`
		Student2 string `json:"student2"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.groups.AssignStudents(r.Context(), id, req.Student1, req.Student2); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendImageURL stores a generated image URL on the group.
func (h *Handler) AppendImageURL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		ImageURL string `json:"imageUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.groups.AppendImageURL(r.Context(), id, req.ImageURL); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveStory stores the group's story text.
func (h *Handler) SaveStory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Story string `json:"story"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.groups.SaveStory(r.Context(), id, req.Story); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FinishQuiz stores the final score and time taken.
func (h *Handler) FinishQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Score   int `json:"score"`
		Minutes int `json:"minutes"`
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result := groups.QuizResult{Score: req.Score, Minutes: req.Minutes, Seconds: req.Seconds}
	if err := h.groups.FinishQuiz(r.Context(), id, result); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterStudent creates a student record.
func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	student, err := h.groups.RegisterStudent(r.Context(), req.Name, req.Username)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

// ListStudents returns all registered students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	list, err := h.groups.ListStudents(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, groups.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
