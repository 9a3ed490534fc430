package model

import (
	"time"

	"github.com/google/uuid"
)

type LessonStatus string

const (
	LessonStatusPending   LessonStatus = "pending"   // student requested, waiting for teacher
	LessonStatusConfirmed LessonStatus = "confirmed" // scheduled and agreed by both sides
	LessonStatusCancelled LessonStatus = "cancelled" // terminal
	LessonStatusCompleted LessonStatus = "completed" // terminal
)

// validTransitions is the full status state machine. Terminal statuses have
// no outgoing transitions.
var validTransitions = map[LessonStatus][]LessonStatus{
	LessonStatusPending:   {LessonStatusConfirmed, LessonStatusCancelled},
	LessonStatusConfirmed: {LessonStatusCompleted, LessonStatusCancelled},
	LessonStatusCancelled: {},
	LessonStatusCompleted: {},
}

// IsValidLessonStatus reports whether s is one of the known statuses.
func IsValidLessonStatus(s LessonStatus) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransition reports whether the state machine allows moving from one
// status to another. Same-status "transitions" are not allowed.
func CanTransition(from, to LessonStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s LessonStatus) IsTerminal() bool {
	return s == LessonStatusCancelled || s == LessonStatusCompleted
}

// IsActive reports whether a lesson in this status occupies its time window
// for conflict detection purposes.
func (s LessonStatus) IsActive() bool {
	return s == LessonStatusPending || s == LessonStatusConfirmed
}

type Lesson struct {
	ID        uuid.UUID    `json:"id"`
	TeacherID uuid.UUID    `json:"teacher_id"`
	StudentID uuid.UUID    `json:"student_id"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Status    LessonStatus `json:"status"`
	CreatedBy Role         `json:"created_by"` // who initiated the request; set once at creation
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// LessonFilter narrows a lesson listing. Nil fields are ignored.
type LessonFilter struct {
	Status    *LessonStatus
	TeacherID *uuid.UUID
	StudentID *uuid.UUID
}

// DurationMinutes returns the lesson length in whole minutes.
func (l *Lesson) DurationMinutes() int {
	return int(l.EndTime.Sub(l.StartTime) / time.Minute)
}

// Overlaps reports whether the lesson's half-open window [StartTime, EndTime)
// intersects [start, end). Touching boundaries do not overlap.
func (l *Lesson) Overlaps(start, end time.Time) bool {
	return l.StartTime.Before(end) && start.Before(l.EndTime)
}
