package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/models"
	"github.com/noah-isme/ccrm/internal/repository"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
	"github.com/noah-isme/ccrm/pkg/storage"
)

func newImportExportService(t *testing.T, store *repository.RecordStore, metrics *MetricsService) *ImportExportService {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewImportExportService(store, nil, files, nil, metrics, zap.NewNop(), ImportExportConfig{
		Workers:    1,
		MaxRetries: 1,
		RetryDelay: 5 * time.Millisecond,
	})
}

func TestImportStudentsCollectsRowFailures(t *testing.T) {
	store := repository.NewRecordStore()
	metrics := NewMetricsService()
	svc := newImportExportService(t, store, metrics)

	input := strings.Join([]string{
		"id,regNo,fullName,email",
		"s-1,R1,Ada Lovelace,ada@campus.edu",
		",R2,Alan Turing,",
		"s-3,R1,Duplicate Reg,",
		"s-4,,No Reg,",
		"s-5,R5,Bad Email,not-an-email",
	}, "\n")

	result, err := svc.ImportStudents(context.Background(), strings.NewReader(input), "inline")
	require.NoError(t, err)
	assert.Equal(t, EntityStudents, result.Entity)
	assert.Equal(t, 2, result.Imported)
	require.Len(t, result.Failures, 3)
	assert.Equal(t, 3, result.Failures[0].Row)
	assert.Contains(t, SummariseFailures(result.Failures), "row 4:")

	generated, ok := store.FindStudentByRegNo("R2")
	require.True(t, ok)
	assert.NotEmpty(t, generated.ID)
	assert.Equal(t, models.StudentStatusActive, generated.Status())

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.importRows.WithLabelValues(EntityStudents, "imported")))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.importRows.WithLabelValues(EntityStudents, "failed")))
}

func TestImportStudentsMissingHeader(t *testing.T) {
	svc := newImportExportService(t, repository.NewRecordStore(), nil)
	_, err := svc.ImportStudents(context.Background(), strings.NewReader("id,fullName\n1,Ada\n"), "inline")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestImportCourses(t *testing.T) {
	store := repository.NewRecordStore()
	svc := newImportExportService(t, store, nil)

	input := "code,title,credits,department,semester\n" +
		"cs101,Intro,4,CS,spring\n" +
		"ma101,Calculus,,Math,\n" +
		"bad1,Broken,x,Math,FALL\n" +
		"bad2,Broken,0,Math,FALL\n" +
		"bad3,Broken,3,Math,WINTER\n"

	result, err := svc.ImportCourses(context.Background(), strings.NewReader(input), "inline")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Len(t, result.Failures, 3)

	cs, ok := store.FindCourseByCode("CS101")
	require.True(t, ok)
	assert.Equal(t, 4, cs.Credits)
	assert.Equal(t, models.SemesterSpring, cs.Semester)

	ma, ok := store.FindCourseByCode("MA101")
	require.True(t, ok)
	assert.Equal(t, 3, ma.Credits)
	assert.Equal(t, models.SemesterFall, ma.Semester)
}

func TestExportImportRoundTrip(t *testing.T) {
	source := repository.NewRecordStore()
	metrics := NewMetricsService()
	svc := newImportExportService(t, source, metrics)

	students := NewStudentService(source, nil, nil)
	_, err := students.Create(context.Background(), CreateStudentRequest{RegNo: "R1", FullName: "Ada, Countess", Email: "ada@campus.edu"})
	require.NoError(t, err)
	_, err = students.Create(context.Background(), CreateStudentRequest{RegNo: "R2", FullName: "Alan \"Prof\" Turing"})
	require.NoError(t, err)
	courses := NewCourseService(source, nil, nil)
	_, err = courses.Create(context.Background(), CreateCourseRequest{Code: "CS101", Title: "Intro", Credits: 4, Department: "CS", Semester: "SUMMER"})
	require.NoError(t, err)

	studentPath, err := svc.ExportStudents(context.Background())
	require.NoError(t, err)
	coursePath, err := svc.ExportCourses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "courses.csv", filepath.Base(coursePath))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.exports.WithLabelValues("students_csv")))

	target := repository.NewRecordStore()
	reimport := newImportExportService(t, target, nil)
	result, err := reimport.ImportFile(context.Background(), EntityStudents, studentPath)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	result, err = reimport.ImportFile(context.Background(), EntityCourses, coursePath)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	for _, original := range source.ListStudents() {
		copied, ok := target.FindStudentByRegNo(original.RegNo)
		require.True(t, ok)
		assert.Equal(t, original.ID, copied.ID)
		assert.Equal(t, original.FullName, copied.FullName)
		assert.Equal(t, original.Email, copied.Email)
	}
	original, _ := source.FindCourseByCode("CS101")
	copied, ok := target.FindCourseByCode("CS101")
	require.True(t, ok)
	assert.Equal(t, original.Title, copied.Title)
	assert.Equal(t, original.Credits, copied.Credits)
	assert.Equal(t, original.Department, copied.Department)
	assert.Equal(t, original.Semester, copied.Semester)
}

func TestImportFileMissing(t *testing.T) {
	svc := newImportExportService(t, repository.NewRecordStore(), nil)
	_, err := svc.ImportFile(context.Background(), EntityStudents, filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.ImportFile(context.Background(), "grades", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestImportAsync(t *testing.T) {
	store := repository.NewRecordStore()
	svc := newImportExportService(t, store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	path := filepath.Join(t.TempDir(), "students.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,regNo,fullName,email\n,R9,Async Student,\n"), 0o644))

	done, err := svc.ImportAsync(EntityStudents, path)
	require.NoError(t, err)
	select {
	case outcome := <-done:
		require.NoError(t, outcome.Err)
		assert.Equal(t, 1, outcome.Result.Imported)
	case <-time.After(2 * time.Second):
		t.Fatal("background import did not finish")
	}
	_, ok := store.FindStudentByRegNo("R9")
	assert.True(t, ok)

	missing, err := svc.ImportAsync(EntityCourses, filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	select {
	case outcome := <-missing:
		assert.True(t, errors.Is(outcome.Err, appErrors.ErrNotFound))
	case <-time.After(2 * time.Second):
		t.Fatal("background import did not report failure")
	}
}

func TestImportAsyncBeforeStart(t *testing.T) {
	svc := newImportExportService(t, repository.NewRecordStore(), nil)
	_, err := svc.ImportAsync(EntityStudents, "students.csv")
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestPruneExports(t *testing.T) {
	svc := newImportExportService(t, repository.NewRecordStore(), nil)
	path, err := svc.ExportStudents(context.Background())
	require.NoError(t, err)

	removed, err := svc.PruneExports(0)
	require.NoError(t, err)
	assert.Empty(t, removed)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	removed, err = svc.PruneExports(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"students.csv"}, removed)
}

func TestListExports(t *testing.T) {
	svc := newImportExportService(t, repository.NewRecordStore(), nil)
	files, err := svc.ListExports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = svc.ExportStudents(context.Background())
	require.NoError(t, err)
	_, err = svc.ExportCourses(context.Background())
	require.NoError(t, err)

	files, err = svc.ListExports(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "courses.csv", files[0].Name)
	assert.Equal(t, "students.csv", files[1].Name)

	bare := NewImportExportService(repository.NewRecordStore(), nil, nil, nil, nil, nil, ImportExportConfig{})
	_, err = bare.ListExports(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))
}
