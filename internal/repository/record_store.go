package repository

import (
	"fmt"
	"strings"
	"sync"

	"github.com/noah-isme/ccrm/internal/models"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// RecordStore is the canonical in-memory registry of students, courses, instructors and
// enrollments. It enforces key uniqueness only; business rules live in the services.
// All list methods return copies taken under the read lock.
type RecordStore struct {
	mu sync.RWMutex

	students     map[string]*models.Student
	studentOrder []string

	courses     map[models.CourseCode]*models.Course
	courseOrder []models.CourseCode

	instructors     map[string]*models.Instructor
	instructorOrder []string

	enrollments   []*models.Enrollment
	enrollmentIDs map[string]*models.Enrollment
}

// NewRecordStore constructs an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		students:      make(map[string]*models.Student),
		courses:       make(map[models.CourseCode]*models.Course),
		instructors:   make(map[string]*models.Instructor),
		enrollmentIDs: make(map[string]*models.Enrollment),
	}
}

// AddStudent inserts a student. Duplicate ids or registration numbers are rejected.
func (s *RecordStore) AddStudent(student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.students[student.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student id %s already exists", student.ID))
	}
	if _, exists := s.findStudentByRegNoLocked(student.RegNo); exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("regNo %s already used", student.RegNo))
	}
	s.students[student.ID] = student
	s.studentOrder = append(s.studentOrder, student.ID)
	return nil
}

// FindStudentByID looks a student up by internal id.
func (s *RecordStore) FindStudentByID(id string) (*models.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	student, ok := s.students[id]
	return student, ok
}

// FindStudentByRegNo scans the student set for a registration number.
func (s *RecordStore) FindStudentByRegNo(regNo string) (*models.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findStudentByRegNoLocked(regNo)
}

func (s *RecordStore) findStudentByRegNoLocked(regNo string) (*models.Student, bool) {
	for _, id := range s.studentOrder {
		if student := s.students[id]; student.RegNo == regNo {
			return student, true
		}
	}
	return nil, false
}

// ListStudents returns students in insertion order.
func (s *RecordStore) ListStudents() []*models.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Student, 0, len(s.studentOrder))
	for _, id := range s.studentOrder {
		out = append(out, s.students[id])
	}
	return out
}

// AddCourse inserts a course. Codes are unique regardless of the case they were typed in.
func (s *RecordStore) AddCourse(course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := course.Code()
	if _, exists := s.courses[code]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course %s already exists", code))
	}
	s.courses[code] = course
	s.courseOrder = append(s.courseOrder, code)
	return nil
}

// FindCourseByCode resolves a course from a raw code in any case.
func (s *RecordStore) FindCourseByCode(raw string) (*models.Course, bool) {
	code, err := models.NewCourseCode(raw)
	if err != nil {
		return nil, false
	}
	return s.FindCourse(code)
}

// FindCourse resolves a course from a normalised code.
func (s *RecordStore) FindCourse(code models.CourseCode) (*models.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[code]
	return course, ok
}

// ListCourses returns courses in insertion order.
func (s *RecordStore) ListCourses() []*models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Course, 0, len(s.courseOrder))
	for _, code := range s.courseOrder {
		out = append(out, s.courses[code])
	}
	return out
}

// SearchCoursesByDepartment matches the department name case-insensitively.
func (s *RecordStore) SearchCoursesByDepartment(dept string) []*models.Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Course, 0)
	for _, code := range s.courseOrder {
		if course := s.courses[code]; strings.EqualFold(course.Department, dept) {
			out = append(out, course)
		}
	}
	return out
}

// AddInstructor inserts an instructor.
func (s *RecordStore) AddInstructor(instructor *models.Instructor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instructors[instructor.ID]; exists {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("instructor id %s already exists", instructor.ID))
	}
	s.instructors[instructor.ID] = instructor
	s.instructorOrder = append(s.instructorOrder, instructor.ID)
	return nil
}

// FindInstructorByID looks an instructor up by id.
func (s *RecordStore) FindInstructorByID(id string) (*models.Instructor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instructor, ok := s.instructors[id]
	return instructor, ok
}

// ListInstructors returns instructors in insertion order.
func (s *RecordStore) ListInstructors() []*models.Instructor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Instructor, 0, len(s.instructorOrder))
	for _, id := range s.instructorOrder {
		out = append(out, s.instructors[id])
	}
	return out
}
