// Package cli implements the interactive text menu over the records services.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ccrm/internal/service"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

var errInputClosed = errors.New("input closed")

// Services bundles the use-cases the menu drives.
type Services struct {
	Students    *service.StudentService
	Courses     *service.CourseService
	Instructors *service.InstructorService
	Enrollments *service.EnrollmentService
	Reports     *service.ReportService
	Transfers   *service.ImportExportService
	Backups     *service.BackupService
	Metrics     *service.MetricsService
}

// Options carries display and file-location settings.
type Options struct {
	DataDir string
	Banner  string
}

// App reads menu choices from an input stream and writes results to an output stream.
type App struct {
	in     *bufio.Scanner
	out    io.Writer
	svc    Services
	opts   Options
	logger *zap.Logger
}

// New constructs the CLI.
func New(in io.Reader, out io.Writer, svc Services, opts Options, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DataDir == "" {
		opts.DataDir = "test-data"
	}
	return &App{in: bufio.NewScanner(in), out: out, svc: svc, opts: opts, logger: logger}
}

// Run shows the main menu until the user exits, the input ends or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.println("Welcome to Campus Course & Records Manager (CCRM)")
	if a.opts.Banner != "" {
		a.println(a.opts.Banner)
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		a.printMenu("MAIN MENU", "1) Manage Students", "2) Manage Courses", "3) Manage Instructors",
			"4) Enrollment & Grades", "5) Import / Export", "6) Backup Data", "7) Reports", "8) Stats", "0) Exit")
		choice, err := a.prompt("Select> ")
		if err != nil {
			return a.finish(err)
		}
		switch choice {
		case "1":
			err = a.studentsMenu(ctx)
		case "2":
			err = a.coursesMenu(ctx)
		case "3":
			err = a.instructorsMenu(ctx)
		case "4":
			err = a.enrollmentMenu(ctx)
		case "5":
			err = a.transferMenu(ctx)
		case "6":
			a.backup(ctx)
		case "7":
			err = a.reports(ctx)
		case "8":
			a.stats()
		case "0":
			a.println("Exiting. Goodbye!")
			return nil
		default:
			a.println("Invalid option.")
		}
		if err != nil {
			return a.finish(err)
		}
	}
}

func (a *App) finish(err error) error {
	if errors.Is(err, errInputClosed) {
		a.println("")
		a.println("Input closed. Goodbye!")
		return nil
	}
	return err
}

func (a *App) printMenu(title string, items ...string) {
	a.println("")
	a.printf("--- %s ---\n", title)
	for _, item := range items {
		a.println(item)
	}
}

func (a *App) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	if !a.in.Scan() {
		if err := a.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(a.in.Text()), nil
}

func (a *App) promptInt(label string) (int, bool, error) {
	raw, err := a.prompt(label)
	if err != nil {
		return 0, false, err
	}
	value, convErr := strconv.Atoi(raw)
	if convErr != nil {
		a.printf("Not a number: %q\n", raw)
		return 0, false, nil
	}
	return value, true, nil
}

func (a *App) println(line string) {
	fmt.Fprintln(a.out, line)
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

// report prints a service error in a user-facing form.
func (a *App) report(err error) {
	appErr := appErrors.FromError(err)
	a.printf("Error [%s]: %s\n", appErr.Code, appErr.Error())
	a.logger.Debug("operation failed", zap.Error(err))
}

func (a *App) dataFile(name string) string {
	return filepath.Join(a.opts.DataDir, name)
}
