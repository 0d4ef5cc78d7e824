package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/models"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
	"github.com/noah-isme/ccrm/pkg/export"
	"github.com/noah-isme/ccrm/pkg/jobs"
	"github.com/noah-isme/ccrm/pkg/storage"
)

// Entities handled by import and export.
const (
	EntityStudents = "students"
	EntityCourses  = "courses"
)

var (
	studentHeaders = []string{"id", "regNo", "fullName", "email"}
	courseHeaders  = []string{"code", "title", "credits", "department", "semester"}
)

type importStore interface {
	AddStudent(student *models.Student) error
	AddCourse(course *models.Course) error
	ListStudents() []*models.Student
	ListCourses() []*models.Course
}

type csvCodec interface {
	Render(data export.Dataset) ([]byte, error)
	Parse(r io.Reader, required ...string) (export.Dataset, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
	CleanupOlderThan(ttl time.Duration) ([]string, error)
	List() ([]storage.StoredFile, error)
}

// ImportFailure describes one rejected data row. Row counts data rows from 1.
type ImportFailure struct {
	Row    int
	Reason string
}

// ImportResult summarises one CSV import.
type ImportResult struct {
	Entity   string
	Source   string
	Imported int
	Failures []ImportFailure
}

// ImportOutcome is delivered once per background import.
type ImportOutcome struct {
	Entity string
	Source string
	Result *ImportResult
	Err    error
}

// ImportExportConfig tunes the background import queue.
type ImportExportConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

type studentRow struct {
	RegNo    string `validate:"required"`
	FullName string `validate:"required"`
	Email    string `validate:"omitempty,email"`
}

type importTask struct {
	entity string
	path   string
	done   chan ImportOutcome
}

// ImportExportService moves students and courses between CSV files and the record store.
// Imports insert straight into the store without going through enrollment rules.
type ImportExportService struct {
	store     importStore
	csv       csvCodec
	storage   exportStorage
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	queue     *jobs.Queue
	now       func() time.Time
}

// NewImportExportService constructs the service and its background import queue.
func NewImportExportService(store importStore, csv csvCodec, files exportStorage, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg ImportExportConfig) *ImportExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ImportExportService{
		store:     store,
		csv:       csv,
		storage:   files,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	svc.queue = jobs.NewQueue("imports", svc.handleImport, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		OnGiveUp:   svc.giveUp,
		Logger:     logger,
	})
	return svc
}

// Start launches the background import workers.
func (s *ImportExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the import workers to exit.
func (s *ImportExportService) Stop() {
	s.queue.Stop()
}

// QueueStats reports background import activity.
func (s *ImportExportService) QueueStats() jobs.Stats {
	return s.queue.Stats()
}

// ImportStudents reads students from r. Rows that fail are collected and the rest imported.
// A blank id is replaced with a generated one.
func (s *ImportExportService) ImportStudents(ctx context.Context, r io.Reader, source string) (*ImportResult, error) {
	data, err := s.csv.Parse(r, "regNo", "fullName")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid students csv")
	}
	result := &ImportResult{Entity: EntityStudents, Source: source}
	for i, row := range data.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.importStudent(row); err != nil {
			result.Failures = append(result.Failures, ImportFailure{Row: i + 1, Reason: err.Error()})
			continue
		}
		result.Imported++
	}
	s.finishImport(result)
	return result, nil
}

func (s *ImportExportService) importStudent(row map[string]string) error {
	fields := studentRow{RegNo: row["regNo"], FullName: row["fullName"], Email: row["email"]}
	if err := s.validator.Struct(fields); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid student row")
	}
	id := row["id"]
	if id == "" {
		id = uuid.NewString()
	}
	student, err := models.NewStudent(id, fields.RegNo, fields.FullName, fields.Email, s.now())
	if err != nil {
		return err
	}
	return s.store.AddStudent(student)
}

// ImportCourses reads courses from r. Semester is matched case-insensitively; blank optional
// columns take the course defaults.
func (s *ImportExportService) ImportCourses(ctx context.Context, r io.Reader, source string) (*ImportResult, error) {
	data, err := s.csv.Parse(r, "code")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, "invalid courses csv")
	}
	result := &ImportResult{Entity: EntityCourses, Source: source}
	for i, row := range data.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.importCourse(row); err != nil {
			result.Failures = append(result.Failures, ImportFailure{Row: i + 1, Reason: err.Error()})
			continue
		}
		result.Imported++
	}
	s.finishImport(result)
	return result, nil
}

func (s *ImportExportService) importCourse(row map[string]string) error {
	req := CreateCourseRequest{
		Code:       row["code"],
		Title:      row["title"],
		Department: row["department"],
		Semester:   row["semester"],
	}
	if raw := row["credits"]; raw != "" {
		credits, err := strconv.Atoi(raw)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("credits %q is not a number", raw))
		}
		if credits <= 0 {
			return appErrors.Clone(appErrors.ErrValidation, "course credits must be positive")
		}
		req.Credits = credits
	}
	course, err := BuildCourse(req)
	if err != nil {
		return err
	}
	return s.store.AddCourse(course)
}

func (s *ImportExportService) finishImport(result *ImportResult) {
	s.metrics.RecordImportRows(result.Entity, result.Imported, len(result.Failures))
	s.logger.Info("import finished",
		zap.String("entity", result.Entity),
		zap.String("source", result.Source),
		zap.Int("imported", result.Imported),
		zap.Int("failed", len(result.Failures)),
	)
}

// ImportFile imports the given entity from a CSV file on disk.
func (s *ImportExportService) ImportFile(ctx context.Context, entity, path string) (*ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, fmt.Sprintf("import file %s not found", path))
		}
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	switch entity {
	case EntityStudents:
		return s.ImportStudents(ctx, file, path)
	case EntityCourses:
		return s.ImportCourses(ctx, file, path)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown import entity %q", entity))
	}
}

// ImportAsync queues a file import on the worker pool. The returned channel receives exactly
// one outcome once the import finishes or is abandoned.
func (s *ImportExportService) ImportAsync(entity, path string) (<-chan ImportOutcome, error) {
	task := importTask{entity: entity, path: path, done: make(chan ImportOutcome, 1)}
	if _, err := s.queue.Enqueue(jobs.Job{Type: "import_" + entity, Payload: task}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to queue import")
	}
	return task.done, nil
}

func (s *ImportExportService) handleImport(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(importTask)
	if !ok {
		s.logger.Error("unexpected import payload", zap.String("job_id", job.ID))
		return nil
	}
	result, err := s.ImportFile(ctx, task.entity, task.path)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			task.done <- ImportOutcome{Entity: task.entity, Source: task.path, Err: err}
			return nil
		}
		return err
	}
	task.done <- ImportOutcome{Entity: task.entity, Source: task.path, Result: result}
	return nil
}

func (s *ImportExportService) giveUp(job jobs.Job, err error) {
	task, ok := job.Payload.(importTask)
	if !ok {
		return
	}
	task.done <- ImportOutcome{
		Entity: task.entity,
		Source: task.path,
		Err:    appErrors.Wrap(err, appErrors.ErrInternal.Code, "import abandoned"),
	}
}

// ExportStudents writes every student to students.csv in export storage and returns its path.
func (s *ImportExportService) ExportStudents(ctx context.Context) (string, error) {
	data := export.Dataset{Headers: studentHeaders}
	for _, student := range s.store.ListStudents() {
		data.Rows = append(data.Rows, map[string]string{
			"id":       student.ID,
			"regNo":    student.RegNo,
			"fullName": student.FullName,
			"email":    student.Email,
		})
	}
	return s.write(EntityStudents, data)
}

// ExportCourses writes every course to courses.csv in export storage and returns its path.
func (s *ImportExportService) ExportCourses(ctx context.Context) (string, error) {
	data := export.Dataset{Headers: courseHeaders}
	for _, course := range s.store.ListCourses() {
		data.Rows = append(data.Rows, map[string]string{
			"code":       course.Code().String(),
			"title":      course.Title,
			"credits":    strconv.Itoa(course.Credits),
			"department": course.Department,
			"semester":   string(course.Semester),
		})
	}
	return s.write(EntityCourses, data)
}

func (s *ImportExportService) write(entity string, data export.Dataset) (string, error) {
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage not configured")
	}
	content, err := s.csv.Render(data)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to render "+entity)
	}
	filename := entity + ".csv"
	if _, err := s.storage.Save(filename, content); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to store "+entity)
	}
	s.metrics.RecordExport(entity + "_csv")
	s.logger.Info("export written", zap.String("entity", entity), zap.Int("rows", len(data.Rows)))
	return s.storage.Path(filename), nil
}

// PruneExports deletes exported files older than ttl. A non-positive ttl keeps everything.
func (s *ImportExportService) PruneExports(ttl time.Duration) ([]string, error) {
	if ttl <= 0 || s.storage == nil {
		return nil, nil
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to prune exports")
	}
	if len(removed) > 0 {
		s.logger.Info("pruned exports", zap.Strings("files", removed))
	}
	return removed, nil
}

// ListExports reports every file currently held in export storage, transcripts included.
func (s *ImportExportService) ListExports(ctx context.Context) ([]storage.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "export storage not configured")
	}
	files, err := s.storage.List()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "failed to list exports")
	}
	return files, nil
}

// SummariseFailures renders failures one per line for display.
func SummariseFailures(failures []ImportFailure) string {
	var b strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&b, "row %d: %s\n", f.Row, f.Reason)
	}
	return b.String()
}
