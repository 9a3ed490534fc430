package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harmonyhq/lesson-scheduler/internal/model"
)

// UserRepository persists teachers and students in the shared users table
// (role column is the discriminator). All lookups skip soft-deleted rows.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const teacherColumns = `id, first_name, last_name, instrument, experience, created_at, updated_at, deleted_at`
const studentColumns = `id, first_name, last_name, instrument, created_at, updated_at, deleted_at`

// CreateTeacher inserts a new teacher row.
func (r *UserRepository) CreateTeacher(ctx context.Context, teacher *model.Teacher) error {
	query := `
		INSERT INTO users (role, first_name, last_name, instrument, experience)
		VALUES ('teacher', $1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		teacher.FirstName,
		teacher.LastName,
		teacher.Instrument,
		teacher.Experience,
	).Scan(&teacher.ID, &teacher.CreatedAt, &teacher.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}

	return nil
}

// CreateStudent inserts a new student row.
func (r *UserRepository) CreateStudent(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO users (role, first_name, last_name, instrument)
		VALUES ('student', $1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		student.FirstName,
		student.LastName,
		student.Instrument,
	).Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

// GetTeacherByID fetches a teacher, optionally with the assigned-student set
// loaded. Returns nil if the teacher does not exist or is soft-deleted.
func (r *UserRepository) GetTeacherByID(ctx context.Context, id uuid.UUID, withStudents bool) (*model.Teacher, error) {
	query := `
		SELECT ` + teacherColumns + `
		FROM users
		WHERE id = $1 AND role = 'teacher' AND deleted_at IS NULL
	`

	var teacher model.Teacher
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&teacher.ID,
		&teacher.FirstName,
		&teacher.LastName,
		&teacher.Instrument,
		&teacher.Experience,
		&teacher.CreatedAt,
		&teacher.UpdatedAt,
		&teacher.DeletedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get teacher by id: %w", err)
	}

	if withStudents {
		students, err := r.GetTeacherStudents(ctx, id)
		if err != nil {
			return nil, err
		}
		teacher.Students = students
	}

	return &teacher, nil
}

// GetStudentByID fetches a student. Returns nil if the student does not
// exist or is soft-deleted.
func (r *UserRepository) GetStudentByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM users
		WHERE id = $1 AND role = 'student' AND deleted_at IS NULL
	`

	var student model.Student
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Instrument,
		&student.CreatedAt,
		&student.UpdatedAt,
		&student.DeletedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get student by id: %w", err)
	}

	return &student, nil
}

// GetTeacherStudents returns the students assigned to a teacher, ordered by
// last then first name.
func (r *UserRepository) GetTeacherStudents(ctx context.Context, teacherID uuid.UUID) ([]model.Student, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.instrument, u.created_at, u.updated_at, u.deleted_at
		FROM users u
		JOIN teacher_students ts ON ts.student_id = u.id
		WHERE ts.teacher_id = $1 AND u.deleted_at IS NULL
		ORDER BY u.last_name, u.first_name
	`

	rows, err := r.pool.Query(ctx, query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var student model.Student
		err := rows.Scan(
			&student.ID,
			&student.FirstName,
			&student.LastName,
			&student.Instrument,
			&student.CreatedAt,
			&student.UpdatedAt,
			&student.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teacher students: %w", err)
	}

	return students, nil
}

// IsStudentAssigned checks whether the assignment relation exists.
func (r *UserRepository) IsStudentAssigned(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM teacher_students
			WHERE teacher_id = $1 AND student_id = $2
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, teacherID, studentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}

	return exists, nil
}

// AssignStudent adds the student to the teacher's assigned set. Assigning an
// already-assigned pair is a no-op at this level.
func (r *UserRepository) AssignStudent(ctx context.Context, teacherID, studentID uuid.UUID) error {
	query := `
		INSERT INTO teacher_students (teacher_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (teacher_id, student_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, teacherID, studentID)
	if err != nil {
		return fmt.Errorf("assign student: %w", err)
	}

	return nil
}

// UnassignStudent removes the student from the teacher's assigned set.
func (r *UserRepository) UnassignStudent(ctx context.Context, teacherID, studentID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM teacher_students
		WHERE teacher_id = $1 AND student_id = $2
	`, teacherID, studentID)
	if err != nil {
		return fmt.Errorf("unassign student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("unassign student: %w", model.ErrNotFound)
	}

	return nil
}

// ListTeachers returns all active teachers ordered by last then first name.
func (r *UserRepository) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	query := `
		SELECT ` + teacherColumns + `
		FROM users
		WHERE role = 'teacher' AND deleted_at IS NULL
		ORDER BY last_name, first_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var teachers []model.Teacher
	for rows.Next() {
		var teacher model.Teacher
		err := rows.Scan(
			&teacher.ID,
			&teacher.FirstName,
			&teacher.LastName,
			&teacher.Instrument,
			&teacher.Experience,
			&teacher.CreatedAt,
			&teacher.UpdatedAt,
			&teacher.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, teacher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teachers: %w", err)
	}

	return teachers, nil
}

// ListStudents returns all active students ordered by last then first name.
func (r *UserRepository) ListStudents(ctx context.Context) ([]model.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM users
		WHERE role = 'student' AND deleted_at IS NULL
		ORDER BY last_name, first_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var student model.Student
		err := rows.Scan(
			&student.ID,
			&student.FirstName,
			&student.LastName,
			&student.Instrument,
			&student.CreatedAt,
			&student.UpdatedAt,
			&student.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}

// SoftDelete marks a user of the given role as deleted.
func (r *UserRepository) SoftDelete(ctx context.Context, id uuid.UUID, role model.Role) error {
	query := `
		UPDATE users
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND role = $2 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, string(role))
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("soft delete user: %w", model.ErrNotFound)
	}

	return nil
}
