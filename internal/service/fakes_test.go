package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/harmonyhq/lesson-scheduler/internal/model"
)

// In-memory store fakes mirroring the persistence contracts, including the
// transactional availability re-check the real lesson store performs.

type fakeUserStore struct {
	teachers    map[uuid.UUID]*model.Teacher
	students    map[uuid.UUID]*model.Student
	assignments map[uuid.UUID]map[uuid.UUID]bool // teacher -> student set
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		teachers:    make(map[uuid.UUID]*model.Teacher),
		students:    make(map[uuid.UUID]*model.Student),
		assignments: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (f *fakeUserStore) addTeacher(instrument string) *model.Teacher {
	teacher := &model.Teacher{
		ID:         uuid.New(),
		FirstName:  "Nora",
		LastName:   "Keys",
		Instrument: instrument,
		Experience: 5,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.teachers[teacher.ID] = teacher
	return teacher
}

func (f *fakeUserStore) addStudent(instrument string) *model.Student {
	student := &model.Student{
		ID:         uuid.New(),
		FirstName:  "Liam",
		LastName:   "Strings",
		Instrument: instrument,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.students[student.ID] = student
	return student
}

func (f *fakeUserStore) assign(teacherID, studentID uuid.UUID) {
	if f.assignments[teacherID] == nil {
		f.assignments[teacherID] = make(map[uuid.UUID]bool)
	}
	f.assignments[teacherID][studentID] = true
}

func (f *fakeUserStore) GetTeacherByID(_ context.Context, id uuid.UUID, withStudents bool) (*model.Teacher, error) {
	teacher, ok := f.teachers[id]
	if !ok || teacher.DeletedAt != nil {
		return nil, nil
	}
	out := *teacher
	if withStudents {
		students, _ := f.GetTeacherStudents(context.Background(), id)
		out.Students = students
	}
	return &out, nil
}

func (f *fakeUserStore) GetStudentByID(_ context.Context, id uuid.UUID) (*model.Student, error) {
	student, ok := f.students[id]
	if !ok || student.DeletedAt != nil {
		return nil, nil
	}
	out := *student
	return &out, nil
}

func (f *fakeUserStore) GetTeacherStudents(_ context.Context, teacherID uuid.UUID) ([]model.Student, error) {
	var students []model.Student
	for studentID := range f.assignments[teacherID] {
		if student, ok := f.students[studentID]; ok && student.DeletedAt == nil {
			students = append(students, *student)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID.String() < students[j].ID.String() })
	return students, nil
}

func (f *fakeUserStore) CreateTeacher(_ context.Context, teacher *model.Teacher) error {
	teacher.ID = uuid.New()
	teacher.CreatedAt = time.Now()
	teacher.UpdatedAt = teacher.CreatedAt
	stored := *teacher
	f.teachers[teacher.ID] = &stored
	return nil
}

func (f *fakeUserStore) CreateStudent(_ context.Context, student *model.Student) error {
	student.ID = uuid.New()
	student.CreatedAt = time.Now()
	student.UpdatedAt = student.CreatedAt
	stored := *student
	f.students[student.ID] = &stored
	return nil
}

func (f *fakeUserStore) ListTeachers(_ context.Context) ([]model.Teacher, error) {
	var teachers []model.Teacher
	for _, teacher := range f.teachers {
		if teacher.DeletedAt == nil {
			teachers = append(teachers, *teacher)
		}
	}
	return teachers, nil
}

func (f *fakeUserStore) ListStudents(_ context.Context) ([]model.Student, error) {
	var students []model.Student
	for _, student := range f.students {
		if student.DeletedAt == nil {
			students = append(students, *student)
		}
	}
	return students, nil
}

func (f *fakeUserStore) IsStudentAssigned(_ context.Context, teacherID, studentID uuid.UUID) (bool, error) {
	return f.assignments[teacherID][studentID], nil
}

func (f *fakeUserStore) AssignStudent(_ context.Context, teacherID, studentID uuid.UUID) error {
	f.assign(teacherID, studentID)
	return nil
}

func (f *fakeUserStore) UnassignStudent(_ context.Context, teacherID, studentID uuid.UUID) error {
	if !f.assignments[teacherID][studentID] {
		return fmt.Errorf("unassign student: %w", model.ErrNotFound)
	}
	delete(f.assignments[teacherID], studentID)
	return nil
}

func (f *fakeUserStore) SoftDelete(_ context.Context, id uuid.UUID, role model.Role) error {
	now := time.Now()
	switch role {
	case model.RoleTeacher:
		if teacher, ok := f.teachers[id]; ok && teacher.DeletedAt == nil {
			teacher.DeletedAt = &now
			return nil
		}
	case model.RoleStudent:
		if student, ok := f.students[id]; ok && student.DeletedAt == nil {
			student.DeletedAt = &now
			return nil
		}
	}
	return fmt.Errorf("soft delete user: %w", model.ErrNotFound)
}

type fakeLessonStore struct {
	lessons map[uuid.UUID]*model.Lesson
}

func newFakeLessonStore() *fakeLessonStore {
	return &fakeLessonStore{lessons: make(map[uuid.UUID]*model.Lesson)}
}

func (f *fakeLessonStore) Create(_ context.Context, lesson *model.Lesson) error {
	// Same re-check the real store runs inside its insert transaction.
	if l := f.overlapping(model.RoleTeacher, lesson.TeacherID, lesson.StartTime, lesson.EndTime, nil); l != nil {
		return model.ErrTeacherConflict
	}
	if l := f.overlapping(model.RoleStudent, lesson.StudentID, lesson.StartTime, lesson.EndTime, nil); l != nil {
		return model.ErrStudentConflict
	}

	lesson.ID = uuid.New()
	lesson.CreatedAt = time.Now()
	lesson.UpdatedAt = lesson.CreatedAt
	stored := *lesson
	f.lessons[lesson.ID] = &stored
	return nil
}

func (f *fakeLessonStore) GetByID(_ context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, ok := f.lessons[id]
	if !ok {
		return nil, nil
	}
	out := *lesson
	return &out, nil
}

func (f *fakeLessonStore) FindMany(_ context.Context, filter model.LessonFilter) ([]model.Lesson, error) {
	var lessons []model.Lesson
	for _, lesson := range f.lessons {
		if filter.Status != nil && lesson.Status != *filter.Status {
			continue
		}
		if filter.TeacherID != nil && lesson.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.StudentID != nil && lesson.StudentID != *filter.StudentID {
			continue
		}
		lessons = append(lessons, *lesson)
	}
	sortByStartDesc(lessons)
	return lessons, nil
}

func (f *fakeLessonStore) GetByTeacherID(ctx context.Context, teacherID uuid.UUID) ([]model.Lesson, error) {
	return f.FindMany(ctx, model.LessonFilter{TeacherID: &teacherID})
}

func (f *fakeLessonStore) GetByStudentID(ctx context.Context, studentID uuid.UUID) ([]model.Lesson, error) {
	return f.FindMany(ctx, model.LessonFilter{StudentID: &studentID})
}

func (f *fakeLessonStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.LessonStatus) (*model.Lesson, error) {
	lesson, ok := f.lessons[id]
	if !ok || lesson.Status != from {
		return nil, fmt.Errorf("%w: lesson status changed concurrently", model.ErrValidation)
	}
	lesson.Status = to
	lesson.UpdatedAt = time.Now()
	out := *lesson
	return &out, nil
}

func (f *fakeLessonStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.lessons[id]; !ok {
		return fmt.Errorf("delete lesson: %w", model.ErrNotFound)
	}
	delete(f.lessons, id)
	return nil
}

func (f *fakeLessonStore) FindOverlapping(_ context.Context, role model.Role, participantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*model.Lesson, error) {
	return f.overlapping(role, participantID, start, end, excludeID), nil
}

func (f *fakeLessonStore) overlapping(role model.Role, participantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) *model.Lesson {
	for _, lesson := range f.lessons {
		if excludeID != nil && lesson.ID == *excludeID {
			continue
		}
		if !lesson.Status.IsActive() {
			continue
		}
		owner := lesson.TeacherID
		if role == model.RoleStudent {
			owner = lesson.StudentID
		}
		if owner != participantID {
			continue
		}
		if lesson.Overlaps(start, end) {
			out := *lesson
			return &out
		}
	}
	return nil
}

func sortByStartDesc(lessons []model.Lesson) {
	sort.Slice(lessons, func(i, j int) bool {
		return lessons[i].StartTime.After(lessons[j].StartTime)
	})
}
