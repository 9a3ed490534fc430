package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonyhq/lesson-scheduler/internal/cache"
	"github.com/harmonyhq/lesson-scheduler/internal/model"
	"github.com/harmonyhq/lesson-scheduler/internal/timeslot"
)

// ParticipantStore is the lookup surface the scheduling service needs for
// teachers and students.
type ParticipantStore interface {
	GetTeacherByID(ctx context.Context, id uuid.UUID, withStudents bool) (*model.Teacher, error)
	GetStudentByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	GetTeacherStudents(ctx context.Context, teacherID uuid.UUID) ([]model.Student, error)
}

// LessonStore persists lessons. Create must be atomic with respect to other
// writers touching the same participants: it re-validates availability in
// the same transaction that inserts (see LessonRepository).
type LessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error)
	FindMany(ctx context.Context, filter model.LessonFilter) ([]model.Lesson, error)
	GetByTeacherID(ctx context.Context, teacherID uuid.UUID) ([]model.Lesson, error)
	GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]model.Lesson, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.LessonStatus) (*model.Lesson, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindOverlapping(ctx context.Context, role model.Role, participantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*model.Lesson, error)
}

// LessonService owns the lesson scheduling rules: slot validation,
// double-booking detection for both participants, the dual create workflow
// and the status state machine.
type LessonService struct {
	users    ParticipantStore
	lessons  LessonStore
	schedule *cache.ScheduleCache // optional, may be nil
	logger   *zap.Logger
}

func NewLessonService(
	users ParticipantStore,
	lessons LessonStore,
	schedule *cache.ScheduleCache,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		users:    users,
		lessons:  lessons,
		schedule: schedule,
		logger:   logger,
	}
}

// CreateLessonParams is the input for CreateLesson.
type CreateLessonParams struct {
	TeacherID   uuid.UUID
	StudentID   uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	CreatorRole model.Role
}

// CreateLesson books a lesson between a mutually assigned teacher and
// student. Teacher-created lessons start confirmed, student-created ones
// start pending and wait for the teacher.
func (s *LessonService) CreateLesson(ctx context.Context, params CreateLessonParams) (*model.Lesson, error) {
	if !model.IsValidRole(params.CreatorRole) {
		return nil, fmt.Errorf("%w: Creator role must be either \"teacher\" or \"student\"", model.ErrValidation)
	}

	teacher, err := s.users.GetTeacherByID(ctx, params.TeacherID, true)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, fmt.Errorf("%w: Teacher with id %s not found", model.ErrNotFound, params.TeacherID)
	}

	student, err := s.users.GetStudentByID(ctx, params.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: Student with id %s not found", model.ErrNotFound, params.StudentID)
	}

	if !teacher.HasStudent(params.StudentID) {
		return nil, model.ErrNotAssigned
	}

	// Request binding is expected to have rejected malformed input already;
	// the slot rules are domain invariants, so they are enforced here again.
	if err := timeslot.Validate(params.StartTime, params.EndTime); err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrValidation, err)
	}

	conflict, err := s.HasConflict(ctx, model.RoleTeacher, params.TeacherID, params.StartTime, params.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, model.ErrTeacherConflict
	}

	conflict, err = s.HasConflict(ctx, model.RoleStudent, params.StudentID, params.StartTime, params.EndTime, nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, model.ErrStudentConflict
	}

	status := model.LessonStatusPending
	if params.CreatorRole == model.RoleTeacher {
		status = model.LessonStatusConfirmed
	}

	lesson := &model.Lesson{
		TeacherID: params.TeacherID,
		StudentID: params.StudentID,
		StartTime: params.StartTime,
		EndTime:   params.EndTime,
		Status:    status,
		CreatedBy: params.CreatorRole,
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		// The store re-checks availability in its transaction; a conflict
		// found there reads the same as one found above.
		if errors.Is(err, model.ErrTeacherConflict) || errors.Is(err, model.ErrStudentConflict) {
			return nil, err
		}
		if model.IsValidation(err) {
			return nil, fmt.Errorf("%w: Failed to create lesson", model.ErrValidation)
		}
		return nil, fmt.Errorf("create lesson: %w", err)
	}

	s.invalidateSchedules(ctx, lesson)

	s.logger.Info("Lesson created",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("teacher_id", lesson.TeacherID.String()),
		zap.String("student_id", lesson.StudentID.String()),
		zap.Time("start_time", lesson.StartTime),
		zap.String("status", string(lesson.Status)),
		zap.String("created_by", string(lesson.CreatedBy)),
	)

	return lesson, nil
}

// HasConflict reports whether the participant already has an active lesson
// overlapping [start, end). excludeID removes one lesson from consideration,
// for a future reschedule flow; no current caller supplies it.
func (s *LessonService) HasConflict(ctx context.Context, role model.Role, participantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	lesson, err := s.lessons.FindOverlapping(ctx, role, participantID, start, end, excludeID)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return lesson != nil, nil
}

// ListLessons returns lessons matching the optional filters, newest start
// time first.
func (s *LessonService) ListLessons(ctx context.Context, filter model.LessonFilter) ([]model.Lesson, error) {
	if filter.Status != nil && !model.IsValidLessonStatus(*filter.Status) {
		return nil, fmt.Errorf("%w: Status must be one of: pending, confirmed, cancelled, completed", model.ErrValidation)
	}
	return s.lessons.FindMany(ctx, filter)
}

// GetLesson fetches a single lesson by id.
func (s *LessonService) GetLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, fmt.Errorf("%w: Lesson with id %s not found", model.ErrNotFound, id)
	}
	return lesson, nil
}

// ListByTeacher returns all lessons of a teacher, newest start time first.
func (s *LessonService) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]model.Lesson, error) {
	if s.schedule != nil {
		lessons, err := s.schedule.GetTeacherSchedule(ctx, teacherID)
		if err == nil {
			return lessons, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Schedule cache read failed", zap.Error(err))
		}
	}

	lessons, err := s.lessons.GetByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list lessons by teacher: %w", err)
	}

	if s.schedule != nil {
		if err := s.schedule.SetTeacherSchedule(ctx, teacherID, lessons); err != nil {
			s.logger.Warn("Schedule cache write failed", zap.Error(err))
		}
	}

	return lessons, nil
}

// ListByStudent returns all lessons of a student, newest start time first.
func (s *LessonService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Lesson, error) {
	if s.schedule != nil {
		lessons, err := s.schedule.GetStudentSchedule(ctx, studentID)
		if err == nil {
			return lessons, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Schedule cache read failed", zap.Error(err))
		}
	}

	lessons, err := s.lessons.GetByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list lessons by student: %w", err)
	}

	if s.schedule != nil {
		if err := s.schedule.SetStudentSchedule(ctx, studentID, lessons); err != nil {
			s.logger.Warn("Schedule cache write failed", zap.Error(err))
		}
	}

	return lessons, nil
}

// ConfirmLesson moves a pending lesson to confirmed (teacher accepts the
// student's request).
func (s *LessonService) ConfirmLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if lesson.Status != model.LessonStatusPending {
		return nil, fmt.Errorf("%w: Only pending lessons can be confirmed", model.ErrValidation)
	}

	return s.transition(ctx, lesson, model.LessonStatusConfirmed, "Lesson confirmed")
}

// RejectLesson moves a pending lesson to cancelled (teacher declines the
// student's request).
func (s *LessonService) RejectLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if lesson.Status != model.LessonStatusPending {
		return nil, fmt.Errorf("%w: Only pending lessons can be rejected", model.ErrValidation)
	}

	return s.transition(ctx, lesson, model.LessonStatusCancelled, "Lesson rejected")
}

// CompleteLesson moves a confirmed lesson to completed.
func (s *LessonService) CompleteLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if lesson.Status != model.LessonStatusConfirmed {
		return nil, fmt.Errorf("%w: Only confirmed lessons can be completed", model.ErrValidation)
	}

	return s.transition(ctx, lesson, model.LessonStatusCompleted, "Lesson completed")
}

// CancelLesson cancels a lesson in any non-terminal status.
func (s *LessonService) CancelLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if lesson.Status == model.LessonStatusCancelled {
		return nil, fmt.Errorf("%w: Lesson is already cancelled", model.ErrValidation)
	}
	if lesson.Status == model.LessonStatusCompleted {
		return nil, fmt.Errorf("%w: Cannot cancel a completed lesson", model.ErrValidation)
	}

	return s.transition(ctx, lesson, model.LessonStatusCancelled, "Lesson cancelled")
}

// SetLessonStatus applies a generic status transition, validated against the
// state machine.
func (s *LessonService) SetLessonStatus(ctx context.Context, id uuid.UUID, newStatus model.LessonStatus) (*model.Lesson, error) {
	if !model.IsValidLessonStatus(newStatus) {
		return nil, fmt.Errorf("%w: Status must be one of: pending, confirmed, cancelled, completed", model.ErrValidation)
	}

	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	if lesson.Status == newStatus {
		return nil, fmt.Errorf("%w: Lesson is already %s", model.ErrValidation, newStatus)
	}
	if lesson.Status == model.LessonStatusCompleted {
		return nil, fmt.Errorf("%w: Cannot modify a completed lesson", model.ErrValidation)
	}
	if !model.CanTransition(lesson.Status, newStatus) {
		return nil, fmt.Errorf("%w: Cannot transition from %s to %s", model.ErrValidation, lesson.Status, newStatus)
	}

	return s.transition(ctx, lesson, newStatus, "Lesson status updated")
}

// DeleteLesson hard-deletes a lesson regardless of status. Distinct from
// cancellation: the record is gone.
func (s *LessonService) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return err
	}

	if err := s.lessons.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateSchedules(ctx, lesson)

	s.logger.Info("Lesson deleted",
		zap.String("lesson_id", id.String()),
		zap.String("teacher_id", lesson.TeacherID.String()),
		zap.String("student_id", lesson.StudentID.String()),
	)

	return nil
}

func (s *LessonService) transition(ctx context.Context, lesson *model.Lesson, to model.LessonStatus, logMsg string) (*model.Lesson, error) {
	updated, err := s.lessons.UpdateStatus(ctx, lesson.ID, lesson.Status, to)
	if err != nil {
		return nil, err
	}

	s.invalidateSchedules(ctx, updated)

	s.logger.Info(logMsg,
		zap.String("lesson_id", updated.ID.String()),
		zap.String("from", string(lesson.Status)),
		zap.String("to", string(updated.Status)),
	)

	return updated, nil
}

// invalidateSchedules drops both participants' cached schedules. Cache
// failures are logged, never surfaced: the store remains the source of truth
// and entries expire by TTL anyway.
func (s *LessonService) invalidateSchedules(ctx context.Context, lesson *model.Lesson) {
	if s.schedule == nil {
		return
	}
	if err := s.schedule.Invalidate(ctx, lesson.TeacherID, lesson.StudentID); err != nil {
		s.logger.Warn("Schedule cache invalidation failed",
			zap.String("lesson_id", lesson.ID.String()),
			zap.Error(err),
		)
	}
}
