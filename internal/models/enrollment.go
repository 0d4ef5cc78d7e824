package models

import (
	"fmt"
	"sync"
	"time"

	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// Marks bounds.
const (
	MinMarks = 0
	MaxMarks = 100
)

// Enrollment links one student to one course. Only marks and status change after creation.
type Enrollment struct {
	ID         string    `json:"id"`
	Student    *Student  `json:"-"`
	Course     *Course   `json:"-"`
	EnrolledOn time.Time `json:"enrolled_on"`

	mu     sync.RWMutex
	marks  *int
	status EnrollmentStatus
}

// NewEnrollment builds an active, ungraded enrollment.
func NewEnrollment(id string, student *Student, course *Course, now time.Time) *Enrollment {
	return &Enrollment{ID: id, Student: student, Course: course, EnrolledOn: now, status: EnrollmentStatusActive}
}

// Marks returns the recorded marks and whether any were recorded.
func (e *Enrollment) Marks() (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.marks == nil {
		return 0, false
	}
	return *e.marks, true
}

// SetMarks overwrites the marks. Out-of-range values leave the enrollment untouched.
func (e *Enrollment) SetMarks(marks int) error {
	if marks < MinMarks || marks > MaxMarks {
		return appErrors.Clone(appErrors.ErrInvalidMarks, fmt.Sprintf("marks must be 0-100, got %d", marks))
	}
	e.mu.Lock()
	e.marks = &marks
	e.mu.Unlock()
	return nil
}

// Status returns the lifecycle status.
func (e *Enrollment) Status() EnrollmentStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Withdraw flips the status to WITHDRAWN and reports whether it was active before.
func (e *Enrollment) Withdraw() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == EnrollmentStatusWithdrawn {
		return false
	}
	e.status = EnrollmentStatusWithdrawn
	return true
}

// Grade derives the letter grade; ungraded enrollments are Incomplete.
func (e *Enrollment) Grade(scale GradeScale) Grade {
	marks, ok := e.Marks()
	if !ok {
		return GradeIncomplete
	}
	return scale.GradeFor(marks)
}

// TranscriptLine renders the enrollment for a transcript.
func (e *Enrollment) TranscriptLine(scale GradeScale) string {
	marks := "N/A"
	if m, ok := e.Marks(); ok {
		marks = fmt.Sprintf("%d", m)
	}
	line := fmt.Sprintf("%s | %s | %dcr | Marks=%s | Grade=%s", e.Course.Code(), e.Course.Title, e.Course.Credits, marks, e.Grade(scale))
	if e.Status() == EnrollmentStatusWithdrawn {
		line += " | WITHDRAWN"
	}
	return line
}

func (e *Enrollment) String() string {
	return fmt.Sprintf("Enrollment[%s -> %s] on %s", e.Student.RegNo, e.Course.Code(), e.EnrolledOn.Format("2006-01-02"))
}
