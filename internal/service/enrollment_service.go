package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/models"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// MaxCreditsPerSemester is the credit ceiling a student may hold at once.
const MaxCreditsPerSemester = 18

type enrollmentStore interface {
	FindStudentByRegNo(regNo string) (*models.Student, bool)
	FindCourseByCode(code string) (*models.Course, bool)
	FindCourse(code models.CourseCode) (*models.Course, bool)
	FindEnrollment(studentID string, code models.CourseCode) (*models.Enrollment, bool)
	AddEnrollment(enrollment *models.Enrollment) error
	ListEnrollmentsForStudent(student *models.Student) []*models.Enrollment
}

// EnrollmentService enforces enrollment rules and records marks. Enrollment changes for
// one student are serialised on a per-student lock; different students run in parallel.
type EnrollmentService struct {
	store   enrollmentStore
	scale   models.GradeScale
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time

	locks sync.Map
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(store enrollmentStore, scale models.GradeScale, metrics *MetricsService, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{store: store, scale: scale, metrics: metrics, logger: logger, now: time.Now}
}

// GradeScale returns the scale used to derive grades.
func (s *EnrollmentService) GradeScale() models.GradeScale {
	return s.scale
}

func (s *EnrollmentService) lockStudent(studentID string) func() {
	value, _ := s.locks.LoadOrStore(studentID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	start := time.Now()
	mu.Lock()
	s.metrics.ObserveLockWait(time.Since(start))
	return mu.Unlock
}

// Enroll registers student in course. All checks run before anything is mutated.
func (s *EnrollmentService) Enroll(ctx context.Context, student *models.Student, course *models.Course) (*models.Enrollment, error) {
	unlock := s.lockStudent(student.ID)
	defer unlock()

	code := course.Code()
	if student.HoldsCourse(code) {
		s.metrics.RecordRejection(RejectDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("student already enrolled in %s", code))
	}
	if _, exists := s.store.FindEnrollment(student.ID, code); exists {
		s.metrics.RecordRejection(RejectDuplicate)
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, fmt.Sprintf("student already has a withdrawn enrollment in %s", code))
	}

	current := s.currentCredits(student)
	if current+course.Credits > MaxCreditsPerSemester {
		s.metrics.RecordRejection(RejectCreditCeiling)
		return nil, appErrors.Clone(appErrors.ErrMaxCreditLimitExceeded,
			fmt.Sprintf("enrolling in %s would take %d credits past the limit of %d", code, current+course.Credits, MaxCreditsPerSemester))
	}

	enrollment := models.NewEnrollment(uuid.NewString(), student, course, s.now())
	if err := s.store.AddEnrollment(enrollment); err != nil {
		return nil, err
	}
	student.AttachCourse(code)
	s.metrics.RecordEnrollment()
	s.logger.Info("student enrolled",
		zap.String("reg_no", student.RegNo),
		zap.String("course", code.String()),
		zap.Int("credits", current+course.Credits),
	)
	return enrollment, nil
}

// currentCredits sums the credits of the student's enrolled courses. A code that no longer
// resolves to a course counts as zero.
func (s *EnrollmentService) currentCredits(student *models.Student) int {
	total := 0
	for _, code := range student.EnrolledCourseCodes() {
		course, ok := s.store.FindCourse(code)
		if !ok {
			s.logger.Warn("enrolled course no longer resolves", zap.String("reg_no", student.RegNo), zap.String("course", code.String()))
			continue
		}
		total += course.Credits
	}
	return total
}

// CurrentCredits reports the credits the student currently holds.
func (s *EnrollmentService) CurrentCredits(student *models.Student) int {
	return s.currentCredits(student)
}

// EnrollByKeys resolves a student by regNo and a course by code, then enrolls.
func (s *EnrollmentService) EnrollByKeys(ctx context.Context, regNo, courseCode string) (*models.Enrollment, error) {
	student, course, err := s.resolve(regNo, courseCode)
	if err != nil {
		return nil, err
	}
	return s.Enroll(ctx, student, course)
}

// RecordMarks overwrites the marks of an enrollment. Out-of-range marks are rejected and
// the previous value is kept.
func (s *EnrollmentService) RecordMarks(ctx context.Context, enrollment *models.Enrollment, marks int) error {
	if err := enrollment.SetMarks(marks); err != nil {
		s.metrics.RecordRejection(RejectInvalidMarks)
		return err
	}
	s.metrics.RecordMarks()
	s.logger.Info("marks recorded",
		zap.String("enrollment_id", enrollment.ID),
		zap.Int("marks", marks),
		zap.String("grade", string(enrollment.Grade(s.scale))),
	)
	return nil
}

// RecordMarksByKeys looks up the active enrollment for regNo and courseCode and records marks.
func (s *EnrollmentService) RecordMarksByKeys(ctx context.Context, regNo, courseCode string, marks int) (*models.Enrollment, error) {
	enrollment, err := s.findEnrollment(regNo, courseCode)
	if err != nil {
		return nil, err
	}
	if enrollment.Status() == models.EnrollmentStatusWithdrawn {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment withdrawn")
	}
	if err := s.RecordMarks(ctx, enrollment, marks); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Withdraw ends an active enrollment and frees its credits.
func (s *EnrollmentService) Withdraw(ctx context.Context, enrollment *models.Enrollment) error {
	unlock := s.lockStudent(enrollment.Student.ID)
	defer unlock()

	if !enrollment.Withdraw() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment already withdrawn")
	}
	enrollment.Student.DetachCourse(enrollment.Course.Code())
	s.metrics.RecordWithdrawal()
	s.logger.Info("enrollment withdrawn",
		zap.String("reg_no", enrollment.Student.RegNo),
		zap.String("course", enrollment.Course.Code().String()),
	)
	return nil
}

// WithdrawByKeys withdraws the enrollment identified by regNo and courseCode.
func (s *EnrollmentService) WithdrawByKeys(ctx context.Context, regNo, courseCode string) (*models.Enrollment, error) {
	enrollment, err := s.findEnrollment(regNo, courseCode)
	if err != nil {
		return nil, err
	}
	if err := s.Withdraw(ctx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// ListEnrollmentsForStudent returns the student's enrollments in the order they were made.
func (s *EnrollmentService) ListEnrollmentsForStudent(student *models.Student) []*models.Enrollment {
	return s.store.ListEnrollmentsForStudent(student)
}

func (s *EnrollmentService) resolve(regNo, courseCode string) (*models.Student, *models.Course, error) {
	student, ok := s.store.FindStudentByRegNo(regNo)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", regNo))
	}
	course, ok := s.store.FindCourseByCode(courseCode)
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseCode))
	}
	return student, course, nil
}

func (s *EnrollmentService) findEnrollment(regNo, courseCode string) (*models.Enrollment, error) {
	student, course, err := s.resolve(regNo, courseCode)
	if err != nil {
		return nil, err
	}
	enrollment, ok := s.store.FindEnrollment(student.ID, course.Code())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s is not enrolled in %s", regNo, course.Code()))
	}
	return enrollment, nil
}
