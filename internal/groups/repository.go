package groups

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairboard/pairboard/internal/models"
)

// ErrNotFound is returned when a group or student does not exist.
var ErrNotFound = errors.New("not found")

// Repository implements group and student data access on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository over the connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateGroupRequest carries the fields for a new group.
type CreateGroupRequest struct {
	Name string
}

// QuizResult records a finished quiz round for a group.
type QuizResult struct {
	Score   int
	Minutes int
	Seconds int
}

const groupColumns = `id, name, student1, student2, image_urls, story, quiz_score, time_minutes, time_seconds, created_at`

// CreateGroup inserts a new group.
func (r *Repository) CreateGroup(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO groups (id, name)
		VALUES ($1, $2)
		RETURNING `+groupColumns,
		uuid.New(), req.Name,
	)
	group, err := scanGroup(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

// GetGroup retrieves a group by ID.
func (r *Repository) GetGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+groupColumns+` FROM groups WHERE id = $1`, id)
	group, err := scanGroup(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroups returns every group, oldest first.
func (r *Repository) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+groupColumns+` FROM groups ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

// AssignStudents pairs two students into a group.
func (r *Repository) AssignStudents(ctx context.Context, groupID, student1, student2 uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE groups SET student1 = $2, student2 = $3 WHERE id = $1`,
		groupID, student1, student2,
	)
	if err != nil {
		return fmt.Errorf("failed to assign students: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendImageURL adds a generated image URL to the group's collection.
func (r *Repository) AppendImageURL(ctx context.Context, groupID uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE groups SET image_urls = array_append(image_urls, $2) WHERE id = $1`,
		groupID, url,
	)
	if err != nil {
		return fmt.Errorf("failed to append image url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveStory stores the group's co-authored story.
func (r *Repository) SaveStory(ctx context.Context, groupID uuid.UUID, story string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE groups SET story = $2 WHERE id = $1`, groupID, story)
	if err != nil {
		return fmt.Errorf("failed to save story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveQuizResult stores the final score and time taken.
func (r *Repository) SaveQuizResult(ctx context.Context, groupID uuid.UUID, result QuizResult) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE groups
		SET quiz_score = $2, time_minutes = $3, time_seconds = $4
		WHERE id = $1`,
		groupID, result.Score, result.Minutes, result.Seconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateStudent inserts a new student.
func (r *Repository) CreateStudent(ctx context.Context, name, username string) (*models.Student, error) {
	var student models.Student
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (id, name, username)
		VALUES ($1, $2, $3)
		RETURNING id, name, username, created_at`,
		uuid.New(), name, username,
	).Scan(&student.ID, &student.Name, &student.Username, &student.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return &student, nil
}

// ListStudents returns every registered student.
func (r *Repository) ListStudents(ctx context.Context) ([]*models.Student, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, username, created_at FROM students ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		var student models.Student
		if err := rows.Scan(&student.ID, &student.Name, &student.Username, &student.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, &student)
	}
	return students, rows.Err()
}

// GetStudentByUsername looks a student up by login name.
func (r *Repository) GetStudentByUsername(ctx context.Context, username string) (*models.Student, error) {
	var student models.Student
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, username, created_at FROM students WHERE username = $1`,
		username,
	).Scan(&student.ID, &student.Name, &student.Username, &student.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		group    models.Group
		score    *int
		minutes  *int
		seconds  *int
		imageURL []string
	)
	if err := row.Scan(
		&group.ID, &group.Name, &group.Student1, &group.Student2,
		&imageURL, &group.Story, &score, &minutes, &seconds, &group.CreatedAt,
	); err != nil {
		return nil, err
	}
	group.ImageURLs = imageURL
	group.QuizScore = score
	if minutes != nil && seconds != nil {
		group.TimeTaken = &models.TimeTaken{Minutes: *minutes, Seconds: *seconds}
	}
	return &group, nil
}
