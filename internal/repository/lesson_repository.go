package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harmonyhq/lesson-scheduler/internal/model"
)

const lessonColumns = `id, teacher_id, student_id, start_time, end_time, status, created_by, created_at, updated_at`

var dialect = goqu.Dialect("postgres")

type LessonRepository struct {
	pool *pgxpool.Pool
}

func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{pool: pool}
}

// Create inserts a lesson inside a transaction, re-checking both
// participants' availability right before the insert. The lessons table
// additionally carries exclusion constraints on (participant, time range)
// for active statuses, so a write that slips past the re-check under a
// concurrent commit still fails instead of double-booking.
func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	conflict, err := findOverlapping(ctx, tx, model.RoleTeacher, lesson.TeacherID, lesson.StartTime, lesson.EndTime, nil)
	if err != nil {
		return err
	}
	if conflict != nil {
		return model.ErrTeacherConflict
	}

	conflict, err = findOverlapping(ctx, tx, model.RoleStudent, lesson.StudentID, lesson.StartTime, lesson.EndTime, nil)
	if err != nil {
		return err
	}
	if conflict != nil {
		return model.ErrStudentConflict
	}

	query := `
		INSERT INTO lessons (teacher_id, student_id, start_time, end_time, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(
		ctx, query,
		lesson.TeacherID,
		lesson.StudentID,
		lesson.StartTime,
		lesson.EndTime,
		lesson.Status,
		lesson.CreatedBy,
	).Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: create lesson rejected by constraint", model.ErrValidation)
		}
		return fmt.Errorf("create lesson: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID fetches a lesson. Returns nil if it does not exist.
func (r *LessonRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE id = $1
	`

	lesson, err := scanLesson(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// FindMany lists lessons matching the filter, newest start time first. The
// WHERE clause is composed dynamically since every filter field is optional.
func (r *LessonRepository) FindMany(ctx context.Context, filter model.LessonFilter) ([]model.Lesson, error) {
	stmt := dialect.
		From("lessons").
		Select(
			goqu.C("id"), goqu.C("teacher_id"), goqu.C("student_id"),
			goqu.C("start_time"), goqu.C("end_time"), goqu.C("status"),
			goqu.C("created_by"), goqu.C("created_at"), goqu.C("updated_at"),
		).
		Order(goqu.I("start_time").Desc())

	if filter.Status != nil {
		stmt = stmt.Where(goqu.C("status").Eq(string(*filter.Status)))
	}
	if filter.TeacherID != nil {
		stmt = stmt.Where(goqu.C("teacher_id").Eq(filter.TeacherID.String()))
	}
	if filter.StudentID != nil {
		stmt = stmt.Where(goqu.C("student_id").Eq(filter.StudentID.String()))
	}

	query, args, err := stmt.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build lesson list query: %w", err)
	}

	return r.queryLessons(ctx, query, args...)
}

// GetByTeacherID returns all lessons for a teacher, newest start time first.
func (r *LessonRepository) GetByTeacherID(ctx context.Context, teacherID uuid.UUID) ([]model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE teacher_id = $1
		ORDER BY start_time DESC
	`

	return r.queryLessons(ctx, query, teacherID)
}

// GetByStudentID returns all lessons for a student, newest start time first.
func (r *LessonRepository) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]model.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE student_id = $1
		ORDER BY start_time DESC
	`

	return r.queryLessons(ctx, query, studentID)
}

// UpdateStatus moves a lesson from one status to another as a single
// compare-and-set update, so a transition validated against a stale read
// cannot clobber a concurrent change. Returns the updated lesson.
func (r *LessonRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.LessonStatus) (*model.Lesson, error) {
	query := `
		UPDATE lessons
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING ` + lessonColumns + `
	`

	lesson, err := scanLesson(r.pool.QueryRow(ctx, query, to, id, from))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: lesson status changed concurrently", model.ErrValidation)
		}
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("%w: status update rejected by constraint", model.ErrValidation)
		}
		return nil, fmt.Errorf("update lesson status: %w", err)
	}

	return lesson, nil
}

// Delete hard-deletes a lesson regardless of status.
func (r *LessonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete lesson: %w", model.ErrNotFound)
	}

	return nil
}

// FindOverlapping returns one active lesson for the participant whose
// half-open window intersects [start, end), or nil if there is none.
// excludeID removes a specific lesson from consideration.
func (r *LessonRepository) FindOverlapping(ctx context.Context, role model.Role, participantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*model.Lesson, error) {
	return findOverlapping(ctx, r.pool, role, participantID, start, end, excludeID)
}

func findOverlapping(ctx context.Context, q Querier, role model.Role, participantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*model.Lesson, error) {
	column := "teacher_id"
	if role == model.RoleStudent {
		column = "student_id"
	}

	// Half-open intervals: touching boundaries are not a conflict.
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE ` + column + ` = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
	`
	args := []any{participantID, start, end}

	if excludeID != nil {
		query += ` AND id != $4`
		args = append(args, *excludeID)
	}

	query += ` LIMIT 1`

	lesson, err := scanLesson(q.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping lesson: %w", err)
	}

	return lesson, nil
}

func (r *LessonRepository) queryLessons(ctx context.Context, query string, args ...any) ([]model.Lesson, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	var lessons []model.Lesson
	for rows.Next() {
		var lesson model.Lesson
		err := rows.Scan(
			&lesson.ID,
			&lesson.TeacherID,
			&lesson.StudentID,
			&lesson.StartTime,
			&lesson.EndTime,
			&lesson.Status,
			&lesson.CreatedBy,
			&lesson.CreatedAt,
			&lesson.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}

	return lessons, nil
}

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	var lesson model.Lesson
	err := row.Scan(
		&lesson.ID,
		&lesson.TeacherID,
		&lesson.StudentID,
		&lesson.StartTime,
		&lesson.EndTime,
		&lesson.Status,
		&lesson.CreatedBy,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

// isConstraintViolation reports whether err is a Postgres integrity error
// (check, foreign key, unique or exclusion violation).
func isConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "23503", "23505", "23514", "23P01":
		return true
	}
	return false
}
