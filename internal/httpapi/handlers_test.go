package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairboard/pairboard/internal/groups"
	"github.com/pairboard/pairboard/internal/models"
)

// stubStore backs the groups service with in-memory state.
type stubStore struct {
	group    *models.Group
	students map[string]*models.Student
	results  []groups.QuizResult
}

func (s *stubStore) CreateGroup(_ context.Context, req groups.CreateGroupRequest) (*models.Group, error) {
	s.group = &models.Group{ID: uuid.New(), Name: req.Name}
	return s.group, nil
}

func (s *stubStore) GetGroup(_ context.Context, id uuid.UUID) (*models.Group, error) {
	if s.group == nil || s.group.ID != id {
		return nil, groups.ErrNotFound
	}
	return s.group, nil
}

func (s *stubStore) ListGroups(context.Context) ([]*models.Group, error) {
	if s.group == nil {
		return nil, nil
	}
	return []*models.Group{s.group}, nil
}

func (s *stubStore) AssignStudents(_ context.Context, groupID, s1, s2 uuid.UUID) error {
	if s.group == nil || s.group.ID != groupID {
		return groups.ErrNotFound
	}
	s.group.Student1, s.group.Student2 = &s1, &s2
	return nil
}

func (s *stubStore) AppendImageURL(_ context.Context, groupID uuid.UUID, url string) error {
	if s.group == nil || s.group.ID != groupID {
		return groups.ErrNotFound
	}
	s.group.ImageURLs = append(s.group.ImageURLs, url)
	return nil
}

func (s *stubStore) SaveStory(_ context.Context, groupID uuid.UUID, story string) error {
	if s.group == nil || s.group.ID != groupID {
		return groups.ErrNotFound
	}
	s.group.Story = story
	return nil
}

func (s *stubStore) SaveQuizResult(_ context.Context, groupID uuid.UUID, result groups.QuizResult) error {
	if s.group == nil || s.group.ID != groupID {
		return groups.ErrNotFound
	}
	s.results = append(s.results, result)
	return nil
}

func (s *stubStore) CreateStudent(_ context.Context, name, username string) (*models.Student, error) {
	student := &models.Student{ID: uuid.New(), Name: name, Username: username}
	if s.students == nil {
		s.students = make(map[string]*models.Student)
	}
	s.students[username] = student
	return student, nil
}

func (s *stubStore) ListStudents(context.Context) ([]*models.Student, error) {
	var out []*models.Student
	for _, student := range s.students {
		out = append(out, student)
	}
	return out, nil
}

func (s *stubStore) GetStudentByUsername(_ context.Context, username string) (*models.Student, error) {
	student, exists := s.students[username]
	if !exists {
		return nil, groups.ErrNotFound
	}
	return student, nil
}

// stubGenerator returns canned AI responses.
type stubGenerator struct {
	text     string
	imageURL string
	err      error
}

func (g *stubGenerator) Complete(context.Context, string) (string, error) {
	return g.text, g.err
}

func (g *stubGenerator) GenerateImage(context.Context, string, string) (string, error) {
	return g.imageURL, g.err
}

func newTestAPI(t *testing.T, store *stubStore, gen *stubGenerator) *httptest.Server {
	t.Helper()
	if store == nil {
		store = &stubStore{}
	}
	if gen == nil {
		gen = &stubGenerator{}
	}
	mux := http.NewServeMux()
	NewHandler(groups.NewService(store), gen).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestChatEndpoint(t *testing.T) {
	server := newTestAPI(t, nil, &stubGenerator{text: "Paris is the capital."})

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/chat", `{"prompt":"capital of France?"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Paris is the capital.", body["bot"])

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/chat", `{"prompt":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImageEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := newTestAPI(t, nil, &stubGenerator{imageURL: "https://img.example/cat.png"})
		resp, body := doJSON(t, http.MethodPost, server.URL+"/api/image", `{"prompt":"a cat","size":"small"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "https://img.example/cat.png", body["data"])
	})

	t.Run("generation failure", func(t *testing.T) {
		server := newTestAPI(t, nil, &stubGenerator{err: errors.New("content policy")})
		resp, body := doJSON(t, http.MethodPost, server.URL+"/api/image", `{"prompt":"a cat"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "image not generated", body["error"])
	})
}

func TestGroupLifecycle(t *testing.T) {
	store := &stubStore{}
	server := newTestAPI(t, store, nil)

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/groups", `{"name":"team rocket"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	groupID := body["id"].(string)

	// Register the pair and assign them.
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/students", `{"name":"Alice","username":"alice"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/students", `{"name":"Bob","username":"bob"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/groups/"+groupID+"/students",
		`{"student1":"alice","student2":"bob"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Story, image URL and final score land on the group.
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/groups/"+groupID+"/story", `{"story":"once upon a time"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/groups/"+groupID+"/urls", `{"imageUrl":"https://img.example/1.png"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/groups/"+groupID+"/finishQuiz",
		`{"score":2,"minutes":4,"seconds":15}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Len(t, store.results, 1)
	assert.Equal(t, groups.QuizResult{Score: 2, Minutes: 4, Seconds: 15}, store.results[0])

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/groups/"+groupID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "team rocket", body["name"])
}

func TestGroupErrors(t *testing.T) {
	server := newTestAPI(t, &stubStore{}, nil)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/groups/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/groups/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/groups", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/groups", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
