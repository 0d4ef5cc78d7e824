package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/models"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

type studentStore interface {
	AddStudent(student *models.Student) error
	FindStudentByID(id string) (*models.Student, bool)
	FindStudentByRegNo(regNo string) (*models.Student, bool)
	ListStudents() []*models.Student
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	RegNo    string `json:"reg_no" validate:"required"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// StudentService handles student use-cases.
type StudentService struct {
	store     studentStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(store studentStore, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: store, validator: validate, logger: logger, now: time.Now}
}

// Create registers a new active student with a generated id.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	req.RegNo = strings.TrimSpace(req.RegNo)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid student payload")
	}
	if _, exists := s.store.FindStudentByRegNo(req.RegNo); exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "regNo already used")
	}
	student, err := models.NewStudent(uuid.NewString(), req.RegNo, req.FullName, req.Email, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.AddStudent(student); err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("id", student.ID), zap.String("reg_no", student.RegNo))
	return student, nil
}

// List returns every student in insertion order.
func (s *StudentService) List(ctx context.Context) []*models.Student {
	return s.store.ListStudents()
}

// FindByRegNo looks a student up by registration number.
func (s *StudentService) FindByRegNo(ctx context.Context, regNo string) (*models.Student, error) {
	student, ok := s.store.FindStudentByRegNo(strings.TrimSpace(regNo))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// FindByID looks a student up by id.
func (s *StudentService) FindByID(ctx context.Context, id string) (*models.Student, error) {
	student, ok := s.store.FindStudentByID(strings.TrimSpace(id))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Deactivate marks the student inactive. An unknown id is ignored and reported as false.
func (s *StudentService) Deactivate(ctx context.Context, id string) bool {
	student, ok := s.store.FindStudentByID(strings.TrimSpace(id))
	if !ok {
		return false
	}
	student.Deactivate()
	s.logger.Info("student deactivated", zap.String("id", student.ID))
	return true
}
