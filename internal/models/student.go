package models

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// StudentStatus represents whether a student is still on the rolls.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Student represents a learner registered in the institution.
type Student struct {
	PersonInfo
	RegNo         string    `json:"reg_no"`
	AdmissionDate time.Time `json:"admission_date"`

	mu       sync.RWMutex
	status   StudentStatus
	enrolled map[CourseCode]struct{}
}

// NewStudent builds an active student with an empty enrollment set.
func NewStudent(id, regNo, fullName, email string, now time.Time) (*Student, error) {
	info, err := newPersonInfo(id, fullName, email, now)
	if err != nil {
		return nil, err
	}
	return &Student{
		PersonInfo:    info,
		RegNo:         regNo,
		AdmissionDate: now,
		status:        StudentStatusActive,
		enrolled:      make(map[CourseCode]struct{}),
	}, nil
}

// Status returns the current status.
func (s *Student) Status() StudentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Active reports whether the student is ACTIVE.
func (s *Student) Active() bool {
	return s.Status() == StudentStatusActive
}

// Deactivate marks the student inactive. There is no way back.
func (s *Student) Deactivate() {
	s.mu.Lock()
	s.status = StudentStatusInactive
	s.mu.Unlock()
}

// EnrolledCourseCodes returns the codes of the student's non-withdrawn enrollments, sorted.
func (s *Student) EnrolledCourseCodes() []CourseCode {
	s.mu.RLock()
	codes := make([]CourseCode, 0, len(s.enrolled))
	for code := range s.enrolled {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	sort.Slice(codes, func(i, j int) bool { return codes[i].String() < codes[j].String() })
	return codes
}

// HoldsCourse reports whether code is among the enrolled course codes.
func (s *Student) HoldsCourse(code CourseCode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.enrolled[code]
	return ok
}

// AttachCourse adds code to the enrolled set. Only the enrollment engine calls this,
// while holding the student's enrollment lock.
func (s *Student) AttachCourse(code CourseCode) {
	s.mu.Lock()
	s.enrolled[code] = struct{}{}
	s.mu.Unlock()
}

// DetachCourse removes code from the enrolled set. Same caller contract as AttachCourse.
func (s *Student) DetachCourse(code CourseCode) {
	s.mu.Lock()
	delete(s.enrolled, code)
	s.mu.Unlock()
}

// Profile renders a one-line description.
func (s *Student) Profile() string {
	return fmt.Sprintf("%s [%s] email=%s status=%s", s.FullName, s.RegNo, s.Email, s.Status())
}

func (s *Student) String() string {
	return s.Profile()
}
