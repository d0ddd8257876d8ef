package groups

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pairboard/pairboard/internal/models"
)

// Store defines what the service needs from the data layer.
type Store interface {
	CreateGroup(ctx context.Context, req CreateGroupRequest) (*models.Group, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)
	AssignStudents(ctx context.Context, groupID, student1, student2 uuid.UUID) error
	AppendImageURL(ctx context.Context, groupID uuid.UUID, url string) error
	SaveStory(ctx context.Context, groupID uuid.UUID, story string) error
	SaveQuizResult(ctx context.Context, groupID uuid.UUID, result QuizResult) error
	CreateStudent(ctx context.Context, name, username string) (*models.Student, error)
	ListStudents(ctx context.Context) ([]*models.Student, error)
	GetStudentByUsername(ctx context.Context, username string) (*models.Student, error)
}

// Service wraps the store with input validation.
type Service struct {
	store Store
}

// NewService creates a groups service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateGroup validates and creates a new group.
func (s *Service) CreateGroup(ctx context.Context, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	return s.store.CreateGroup(ctx, CreateGroupRequest{Name: name})
}

// GetGroup fetches a group by ID.
func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	return s.store.GetGroup(ctx, id)
}

// ListGroups returns all groups.
func (s *Service) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.store.ListGroups(ctx)
}

// AssignStudents pairs two students, looked up by username, into a group.
func (s *Service) AssignStudents(ctx context.Context, groupID uuid.UUID, username1, username2 string) error {
	if username1 == username2 {
		return fmt.Errorf("a group needs two distinct students")
	}
	student1, err := s.store.GetStudentByUsername(ctx, username1)
	if err != nil {
		return fmt.Errorf("student %q: %w", username1, err)
	}
	student2, err := s.store.GetStudentByUsername(ctx, username2)
	if err != nil {
		return fmt.Errorf("student %q: %w", username2, err)
	}
	return s.store.AssignStudents(ctx, groupID, student1.ID, student2.ID)
}

// AppendImageURL records a generated image for the group.
func (s *Service) AppendImageURL(ctx context.Context, groupID uuid.UUID, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("image url is required")
	}
	return s.store.AppendImageURL(ctx, groupID, url)
}

// SaveStory stores the co-authored story text.
func (s *Service) SaveStory(ctx context.Context, groupID uuid.UUID, story string) error {
	return s.store.SaveStory(ctx, groupID, story)
}

// FinishQuiz stores the final score and elapsed time for the group.
func (s *Service) FinishQuiz(ctx context.Context, groupID uuid.UUID, result QuizResult) error {
	if result.Score < 0 {
		return fmt.Errorf("score must not be negative")
	}
	return s.store.SaveQuizResult(ctx, groupID, result)
}

// RegisterStudent creates a student record.
func (s *Service) RegisterStudent(ctx context.Context, name, username string) (*models.Student, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	if name == "" || username == "" {
		return nil, fmt.Errorf("name and username are required")
	}
	return s.store.CreateStudent(ctx, name, username)
}

// ListStudents returns all registered students.
func (s *Service) ListStudents(ctx context.Context) ([]*models.Student, error) {
	return s.store.ListStudents(ctx)
}
