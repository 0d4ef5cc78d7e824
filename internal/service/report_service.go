package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/models"
	"github.com/noah-isme/ccrm/internal/repository"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
	"github.com/noah-isme/ccrm/pkg/export"
)

type reportStore interface {
	FindStudentByRegNo(regNo string) (*models.Student, bool)
	ListEnrollmentsForStudent(student *models.Student) []*models.Enrollment
	StudentGPA(student *models.Student, scale models.GradeScale) float64
	TopStudentsByGPA(limit int, scale models.GradeScale) []repository.RankedStudent
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, summary ...string) ([]byte, error)
}

type fileSaver interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

// StudentRanking is one row of the top students report.
type StudentRanking struct {
	Rank    int
	Student *models.Student
	GPA     float64
}

// Transcript is a student's enrollment history with derived grades.
type Transcript struct {
	Student     *models.Student
	Enrollments []*models.Enrollment
	Lines       []string
	GPA         float64
}

// ReportService computes GPA rankings and transcripts on read.
type ReportService struct {
	store        reportStore
	scale        models.GradeScale
	pdf          pdfRenderer
	storage      fileSaver
	metrics      *MetricsService
	logger       *zap.Logger
	defaultLimit int
	now          func() time.Time
}

// NewReportService constructs the report service. defaultLimit applies when TopStudents is
// called with a non-positive limit.
func NewReportService(store reportStore, scale models.GradeScale, pdf pdfRenderer, storage fileSaver, metrics *MetricsService, logger *zap.Logger, defaultLimit int) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &ReportService{
		store:        store,
		scale:        scale,
		pdf:          pdf,
		storage:      storage,
		metrics:      metrics,
		logger:       logger,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// DefaultLimit is the ranking size used when none is requested.
func (s *ReportService) DefaultLimit() int {
	return s.defaultLimit
}

// TopStudents ranks students by GPA, best first.
func (s *ReportService) TopStudents(ctx context.Context, limit int) []StudentRanking {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	ranked := s.store.TopStudentsByGPA(limit, s.scale)
	rankings := make([]StudentRanking, 0, len(ranked))
	for i, r := range ranked {
		rankings = append(rankings, StudentRanking{Rank: i + 1, Student: r.Student, GPA: r.GPA})
	}
	return rankings
}

// Transcript lists every enrollment of the student identified by regNo together with its GPA.
func (s *ReportService) Transcript(ctx context.Context, regNo string) (*Transcript, error) {
	student, ok := s.store.FindStudentByRegNo(strings.TrimSpace(regNo))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", strings.TrimSpace(regNo)))
	}
	enrollments := s.store.ListEnrollmentsForStudent(student)
	lines := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		lines = append(lines, e.TranscriptLine(s.scale))
	}
	return &Transcript{
		Student:     student,
		Enrollments: enrollments,
		Lines:       lines,
		GPA:         s.store.StudentGPA(student, s.scale),
	}, nil
}

// ExportTranscriptPDF renders the transcript as a PDF into storage and returns its path.
func (s *ReportService) ExportTranscriptPDF(ctx context.Context, regNo string) (string, error) {
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage not configured")
	}
	transcript, err := s.Transcript(ctx, regNo)
	if err != nil {
		return "", err
	}

	dataset := export.Dataset{Headers: []string{"Course", "Title", "Credits", "Marks", "Grade", "Status"}}
	for _, e := range transcript.Enrollments {
		marks := "N/A"
		if m, ok := e.Marks(); ok {
			marks = strconv.Itoa(m)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course":  e.Course.Code().String(),
			"Title":   e.Course.Title,
			"Credits": strconv.Itoa(e.Course.Credits),
			"Marks":   marks,
			"Grade":   string(e.Grade(s.scale)),
			"Status":  string(e.Status()),
		})
	}
	summary := []string{
		transcript.Student.Profile(),
		fmt.Sprintf("GPA: %.2f", transcript.GPA),
		"Generated: " + s.now().UTC().Format(time.RFC3339),
	}
	content, err := s.pdf.Render(dataset, "Transcript "+transcript.Student.RegNo, summary...)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render transcript")
	}

	filename := fmt.Sprintf("transcripts/%s-%s.pdf", safeName(transcript.Student.RegNo), s.now().UTC().Format("20060102T150405"))
	if _, err := s.storage.Save(filename, content); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to store transcript")
	}
	s.metrics.RecordExport("transcript_pdf")
	s.logger.Info("transcript exported", zap.String("reg_no", transcript.Student.RegNo), zap.String("file", filename))
	return s.storage.Path(filename), nil
}

func safeName(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
}
