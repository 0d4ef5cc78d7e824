package repository

import (
	"fmt"

	"github.com/noah-isme/ccrm/internal/models"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// AddEnrollment appends an enrollment. The (student, course) pair must not be recorded yet.
func (s *RecordStore) AddEnrollment(enrollment *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.enrollmentIDs[enrollment.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("enrollment %s already exists", enrollment.ID))
	}
	if _, exists := s.findEnrollmentLocked(enrollment.Student.ID, enrollment.Course.Code()); exists {
		return appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("student %s already has an enrollment in %s", enrollment.Student.RegNo, enrollment.Course.Code()))
	}
	s.enrollments = append(s.enrollments, enrollment)
	s.enrollmentIDs[enrollment.ID] = enrollment
	return nil
}

// FindEnrollment returns the enrollment of a student in a course, withdrawn or not.
func (s *RecordStore) FindEnrollment(studentID string, code models.CourseCode) (*models.Enrollment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findEnrollmentLocked(studentID, code)
}

func (s *RecordStore) findEnrollmentLocked(studentID string, code models.CourseCode) (*models.Enrollment, bool) {
	for _, e := range s.enrollments {
		if e.Student.ID == studentID && e.Course.Code() == code {
			return e, true
		}
	}
	return nil, false
}

// ListEnrollments returns every enrollment in insertion order.
func (s *RecordStore) ListEnrollments() []*models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Enrollment, len(s.enrollments))
	copy(out, s.enrollments)
	return out
}

// ListEnrollmentsForStudent filters enrollments by student identity, keeping insertion order.
func (s *RecordStore) ListEnrollmentsForStudent(student *models.Student) []*models.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Enrollment, 0)
	for _, e := range s.enrollments {
		if e.Student.ID == student.ID {
			out = append(out, e)
		}
	}
	return out
}
