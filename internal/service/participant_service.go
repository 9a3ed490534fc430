package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonyhq/lesson-scheduler/internal/model"
)

// Teacher experience sanity bounds, in years.
const (
	minExperienceYears = 0
	maxExperienceYears = 80
)

// UserStore is the full participant persistence surface, including the
// assignment relation and lifecycle of teacher/student records.
type UserStore interface {
	ParticipantStore
	CreateTeacher(ctx context.Context, teacher *model.Teacher) error
	CreateStudent(ctx context.Context, student *model.Student) error
	ListTeachers(ctx context.Context) ([]model.Teacher, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	IsStudentAssigned(ctx context.Context, teacherID, studentID uuid.UUID) (bool, error)
	AssignStudent(ctx context.Context, teacherID, studentID uuid.UUID) error
	UnassignStudent(ctx context.Context, teacherID, studentID uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID, role model.Role) error
}

// ParticipantService manages teacher and student records and the
// teacher-student assignment relation a lesson requires.
type ParticipantService struct {
	users  UserStore
	logger *zap.Logger
}

func NewParticipantService(users UserStore, logger *zap.Logger) *ParticipantService {
	return &ParticipantService{users: users, logger: logger}
}

// CreateTeacherParams is the input for CreateTeacher.
type CreateTeacherParams struct {
	FirstName  string
	LastName   string
	Instrument string
	Experience int
}

// CreateStudentParams is the input for CreateStudent.
type CreateStudentParams struct {
	FirstName  string
	LastName   string
	Instrument string
}

func (s *ParticipantService) CreateTeacher(ctx context.Context, params CreateTeacherParams) (*model.Teacher, error) {
	if err := validateName(params.FirstName, "First name"); err != nil {
		return nil, err
	}
	if err := validateName(params.LastName, "Last name"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Instrument) == "" {
		return nil, fmt.Errorf("%w: Instrument is required", model.ErrValidation)
	}
	if params.Experience < minExperienceYears || params.Experience > maxExperienceYears {
		return nil, fmt.Errorf("%w: Experience must be between %d and %d years", model.ErrValidation, minExperienceYears, maxExperienceYears)
	}

	teacher := &model.Teacher{
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Instrument: params.Instrument,
		Experience: params.Experience,
	}

	if err := s.users.CreateTeacher(ctx, teacher); err != nil {
		return nil, fmt.Errorf("%w: Failed to create teacher", model.ErrValidation)
	}

	s.logger.Info("Teacher created",
		zap.String("teacher_id", teacher.ID.String()),
		zap.String("instrument", teacher.Instrument),
	)

	return teacher, nil
}

func (s *ParticipantService) CreateStudent(ctx context.Context, params CreateStudentParams) (*model.Student, error) {
	if err := validateName(params.FirstName, "First name"); err != nil {
		return nil, err
	}
	if err := validateName(params.LastName, "Last name"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Instrument) == "" {
		return nil, fmt.Errorf("%w: Instrument is required", model.ErrValidation)
	}

	student := &model.Student{
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Instrument: params.Instrument,
	}

	if err := s.users.CreateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("%w: Failed to create student", model.ErrValidation)
	}

	s.logger.Info("Student created",
		zap.String("student_id", student.ID.String()),
		zap.String("instrument", student.Instrument),
	)

	return student, nil
}

// GetTeacher fetches a teacher with the assigned-student set loaded.
func (s *ParticipantService) GetTeacher(ctx context.Context, id uuid.UUID) (*model.Teacher, error) {
	teacher, err := s.users.GetTeacherByID(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("get teacher: %w", err)
	}
	if teacher == nil {
		return nil, fmt.Errorf("%w: Teacher with id %s not found", model.ErrNotFound, id)
	}
	return teacher, nil
}

func (s *ParticipantService) GetStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.users.GetStudentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: Student with id %s not found", model.ErrNotFound, id)
	}
	return student, nil
}

func (s *ParticipantService) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	return s.users.ListTeachers(ctx)
}

func (s *ParticipantService) ListStudents(ctx context.Context) ([]model.Student, error) {
	return s.users.ListStudents(ctx)
}

// ListTeacherStudents returns the students assigned to a teacher.
func (s *ParticipantService) ListTeacherStudents(ctx context.Context, teacherID uuid.UUID) ([]model.Student, error) {
	if _, err := s.GetTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	return s.users.GetTeacherStudents(ctx, teacherID)
}

// AssignStudent adds a student to a teacher's assigned set. Both must exist
// and the pair must not be assigned yet.
func (s *ParticipantService) AssignStudent(ctx context.Context, teacherID, studentID uuid.UUID) error {
	if _, err := s.GetTeacher(ctx, teacherID); err != nil {
		return err
	}
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return err
	}

	assigned, err := s.users.IsStudentAssigned(ctx, teacherID, studentID)
	if err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if assigned {
		return fmt.Errorf("%w: Student is already assigned to this teacher", model.ErrValidation)
	}

	if err := s.users.AssignStudent(ctx, teacherID, studentID); err != nil {
		return fmt.Errorf("assign student: %w", err)
	}

	s.logger.Info("Student assigned",
		zap.String("teacher_id", teacherID.String()),
		zap.String("student_id", studentID.String()),
	)

	return nil
}

// UnassignStudent removes a student from a teacher's assigned set.
func (s *ParticipantService) UnassignStudent(ctx context.Context, teacherID, studentID uuid.UUID) error {
	if _, err := s.GetTeacher(ctx, teacherID); err != nil {
		return err
	}
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return err
	}

	assigned, err := s.users.IsStudentAssigned(ctx, teacherID, studentID)
	if err != nil {
		return fmt.Errorf("check assignment: %w", err)
	}
	if !assigned {
		return fmt.Errorf("%w: Student is not assigned to this teacher", model.ErrValidation)
	}

	if err := s.users.UnassignStudent(ctx, teacherID, studentID); err != nil {
		return fmt.Errorf("unassign student: %w", err)
	}

	s.logger.Info("Student unassigned",
		zap.String("teacher_id", teacherID.String()),
		zap.String("student_id", studentID.String()),
	)

	return nil
}

// DeleteTeacher soft-deletes a teacher; lessons stay in place but the
// teacher disappears from every lookup.
func (s *ParticipantService) DeleteTeacher(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetTeacher(ctx, id); err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, id, model.RoleTeacher); err != nil {
		return err
	}

	s.logger.Info("Teacher deleted", zap.String("teacher_id", id.String()))
	return nil
}

// DeleteStudent soft-deletes a student.
func (s *ParticipantService) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetStudent(ctx, id); err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, id, model.RoleStudent); err != nil {
		return err
	}

	s.logger.Info("Student deleted", zap.String("student_id", id.String()))
	return nil
}

func validateName(value, field string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: %s is required", model.ErrValidation, field)
	}
	if len(value) < 2 || len(value) > 100 {
		return fmt.Errorf("%w: %s must be between 2 and 100 characters", model.ErrValidation, field)
	}
	return nil
}
