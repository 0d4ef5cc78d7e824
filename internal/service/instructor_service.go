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

type instructorStore interface {
	AddInstructor(instructor *models.Instructor) error
	FindInstructorByID(id string) (*models.Instructor, bool)
	ListInstructors() []*models.Instructor
}

// CreateInstructorRequest holds payload for creating instructors.
type CreateInstructorRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department" validate:"required"`
}

// InstructorService handles instructor use-cases.
type InstructorService struct {
	store     instructorStore
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewInstructorService constructs the instructor service.
func NewInstructorService(store instructorStore, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{store: store, validator: validate, logger: logger, now: time.Now}
}

// Create registers an instructor with a generated id.
func (s *InstructorService) Create(ctx context.Context, req CreateInstructorRequest) (*models.Instructor, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid instructor payload")
	}
	instructor, err := models.NewInstructor(uuid.NewString(), req.FullName, req.Email, req.Department, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.AddInstructor(instructor); err != nil {
		return nil, err
	}
	s.logger.Info("instructor created", zap.String("id", instructor.ID), zap.String("department", instructor.Department))
	return instructor, nil
}

// List returns every instructor in insertion order.
func (s *InstructorService) List(ctx context.Context) []*models.Instructor {
	return s.store.ListInstructors()
}

// FindByID looks an instructor up by id.
func (s *InstructorService) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, ok := s.store.FindInstructorByID(strings.TrimSpace(id))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}
	return instructor, nil
}
