package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/models"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

type courseStore interface {
	AddCourse(course *models.Course) error
	FindCourseByCode(code string) (*models.Course, bool)
	ListCourses() []*models.Course
	SearchCoursesByDepartment(dept string) []*models.Course
	FindInstructorByID(id string) (*models.Instructor, bool)
}

// CreateCourseRequest holds payload for creating courses. Zero or blank optional fields fall
// back to the course defaults.
type CreateCourseRequest struct {
	Code       string `json:"code" validate:"required"`
	Title      string `json:"title"`
	Credits    int    `json:"credits" validate:"omitempty,gt=0"`
	Department string `json:"department"`
	Semester   string `json:"semester"`
}

// CourseService handles course use-cases.
type CourseService struct {
	store     courseStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(store courseStore, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: store, validator: validate, logger: logger}
}

// Create builds and registers a course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.Semester = strings.TrimSpace(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid course payload")
	}
	course, err := BuildCourse(req)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddCourse(course); err != nil {
		return nil, err
	}
	s.logger.Info("course created", zap.String("code", course.Code().String()), zap.Int("credits", course.Credits))
	return course, nil
}

// BuildCourse applies the request onto a CourseBuilder without registering the result.
func BuildCourse(req CreateCourseRequest) (*models.Course, error) {
	builder := models.NewCourseBuilder(req.Code)
	if title := strings.TrimSpace(req.Title); title != "" {
		builder.Title(title)
	}
	if req.Credits != 0 {
		builder.Credits(req.Credits)
	}
	if dept := strings.TrimSpace(req.Department); dept != "" {
		builder.Department(dept)
	}
	if strings.TrimSpace(req.Semester) != "" {
		semester, err := models.ParseSemester(req.Semester)
		if err != nil {
			return nil, err
		}
		builder.Semester(semester)
	}
	return builder.Build()
}

// List returns every course in insertion order.
func (s *CourseService) List(ctx context.Context) []*models.Course {
	return s.store.ListCourses()
}

// FindByCode looks a course up by code in any case.
func (s *CourseService) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	course, ok := s.store.FindCourseByCode(code)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", strings.TrimSpace(code)))
	}
	return course, nil
}

// FindByDepartment returns courses whose department matches dept ignoring case.
func (s *CourseService) FindByDepartment(ctx context.Context, dept string) []*models.Course {
	return s.store.SearchCoursesByDepartment(strings.TrimSpace(dept))
}

// Deactivate marks the course inactive. Existing enrollments are left untouched.
func (s *CourseService) Deactivate(ctx context.Context, code string) error {
	course, err := s.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	course.Deactivate()
	s.logger.Info("course deactivated", zap.String("code", course.Code().String()))
	return nil
}

// AssignInstructor sets the instructor teaching the course, replacing any previous one.
func (s *CourseService) AssignInstructor(ctx context.Context, code, instructorID string) (*models.Course, error) {
	course, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	instructor, ok := s.store.FindInstructorByID(strings.TrimSpace(instructorID))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	course.AssignInstructor(instructor)
	s.logger.Info("instructor assigned",
		zap.String("code", course.Code().String()),
		zap.String("instructor_id", instructor.ID),
	)
	return course, nil
}
