package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies which side of a lesson a user is on.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	return r == RoleTeacher || r == RoleStudent
}

// Well-known instrument names. The column is free-form varchar, these are
// just the values the school actually teaches.
const (
	InstrumentPiano   = "Piano"
	InstrumentGuitar  = "Guitar"
	InstrumentBass    = "Bass"
	InstrumentDrums   = "Drums"
	InstrumentVoice   = "Voice"
	InstrumentUkulele = "Ukulele"
)

type Teacher struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Instrument string     `json:"instrument"`
	Experience int        `json:"experience"` // years of teaching
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`

	// Assigned students, populated only when explicitly requested.
	Students []Student `json:"students,omitempty"`
}

type Student struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Instrument string     `json:"instrument"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// HasStudent reports whether the given student is in the teacher's assigned
// set. Only meaningful when Students has been loaded.
func (t *Teacher) HasStudent(studentID uuid.UUID) bool {
	for _, s := range t.Students {
		if s.ID == studentID {
			return true
		}
	}
	return false
}
