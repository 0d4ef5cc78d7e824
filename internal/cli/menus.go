package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/ccrm/internal/service"
)

func (a *App) studentsMenu(ctx context.Context) error {
	for {
		a.printMenu("STUDENTS", "1) Add Student", "2) List Students", "3) Deactivate Student", "0) Back")
		choice, err := a.prompt("choice> ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			var req service.CreateStudentRequest
			if req.RegNo, err = a.prompt("RegNo: "); err != nil {
				return err
			}
			if req.FullName, err = a.prompt("Full name: "); err != nil {
				return err
			}
			if req.Email, err = a.prompt("Email: "); err != nil {
				return err
			}
			student, err := a.svc.Students.Create(ctx, req)
			if err != nil {
				a.report(err)
				continue
			}
			a.printf("Created: %s (id=%s)\n", student, student.ID)
		case "2":
			students := a.svc.Students.List(ctx)
			if len(students) == 0 {
				a.println("No students.")
			}
			for _, s := range students {
				a.println(s.Profile())
			}
		case "3":
			id, err := a.prompt("Student ID to deactivate: ")
			if err != nil {
				return err
			}
			a.svc.Students.Deactivate(ctx, id)
			a.println("If exists, deactivated.")
		case "0":
			return nil
		default:
			a.println("Invalid.")
		}
	}
}

func (a *App) coursesMenu(ctx context.Context) error {
	for {
		a.printMenu("COURSES", "1) Add Course", "2) List Courses", "3) Search by Department",
			"4) Deactivate Course", "5) Assign Instructor", "0) Back")
		choice, err := a.prompt("choice> ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			if err := a.addCourse(ctx); err != nil {
				return err
			}
		case "2":
			courses := a.svc.Courses.List(ctx)
			if len(courses) == 0 {
				a.println("No courses.")
			}
			for _, c := range courses {
				a.println(c.String())
			}
		case "3":
			dept, err := a.prompt("Department: ")
			if err != nil {
				return err
			}
			courses := a.svc.Courses.FindByDepartment(ctx, dept)
			if len(courses) == 0 {
				a.println("No matching courses.")
			}
			for _, c := range courses {
				a.println(c.String())
			}
		case "4":
			code, err := a.prompt("Course code: ")
			if err != nil {
				return err
			}
			if err := a.svc.Courses.Deactivate(ctx, code); err != nil {
				a.report(err)
				continue
			}
			a.println("Course deactivated.")
		case "5":
			code, err := a.prompt("Course code: ")
			if err != nil {
				return err
			}
			instructorID, err := a.prompt("Instructor ID: ")
			if err != nil {
				return err
			}
			course, err := a.svc.Courses.AssignInstructor(ctx, code, instructorID)
			if err != nil {
				a.report(err)
				continue
			}
			a.printf("Assigned: %s\n", course)
		case "0":
			return nil
		default:
			a.println("Invalid.")
		}
	}
}

func (a *App) addCourse(ctx context.Context) error {
	var (
		req service.CreateCourseRequest
		err error
	)
	if req.Code, err = a.prompt("Code (e.g. CS101): "); err != nil {
		return err
	}
	if req.Title, err = a.prompt("Title: "); err != nil {
		return err
	}
	rawCredits, err := a.prompt("Credits: ")
	if err != nil {
		return err
	}
	if req.Department, err = a.prompt("Department: "); err != nil {
		return err
	}
	if req.Semester, err = a.prompt("Semester (SPRING/SUMMER/FALL): "); err != nil {
		return err
	}
	credits, convErr := strconv.Atoi(rawCredits)
	if convErr != nil {
		a.printf("Not a number: %q\n", rawCredits)
		return nil
	}
	if credits <= 0 {
		a.println("Credits must be positive.")
		return nil
	}
	req.Credits = credits
	course, err := a.svc.Courses.Create(ctx, req)
	if err != nil {
		a.report(err)
		return nil
	}
	a.printf("Course created: %s\n", course)
	return nil
}

func (a *App) instructorsMenu(ctx context.Context) error {
	for {
		a.printMenu("INSTRUCTORS", "1) Add Instructor", "2) List Instructors", "0) Back")
		choice, err := a.prompt("choice> ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			var req service.CreateInstructorRequest
			if req.FullName, err = a.prompt("Full name: "); err != nil {
				return err
			}
			if req.Email, err = a.prompt("Email: "); err != nil {
				return err
			}
			if req.Department, err = a.prompt("Department: "); err != nil {
				return err
			}
			instructor, err := a.svc.Instructors.Create(ctx, req)
			if err != nil {
				a.report(err)
				continue
			}
			a.printf("Created: %s (id=%s)\n", instructor.Profile(), instructor.ID)
		case "2":
			instructors := a.svc.Instructors.List(ctx)
			if len(instructors) == 0 {
				a.println("No instructors.")
			}
			for _, i := range instructors {
				a.printf("%s (id=%s)\n", i.Profile(), i.ID)
			}
		case "0":
			return nil
		default:
			a.println("Invalid.")
		}
	}
}

func (a *App) enrollmentMenu(ctx context.Context) error {
	for {
		a.printMenu("ENROLLMENT", "1) Enroll student to course", "2) Record marks", "3) Withdraw enrollment",
			"4) Print transcript for student", "5) Export transcript PDF", "0) Back")
		choice, err := a.prompt("choice> ")
		if err != nil {
			return err
		}
		switch choice {
		case "1":
			regNo, code, err := a.promptEnrollmentKeys()
			if err != nil {
				return err
			}
			enrollment, err := a.svc.Enrollments.EnrollByKeys(ctx, regNo, code)
			if err != nil {
				a.report(err)
				continue
			}
			a.printf("Enrolled: %s\n", enrollment)
		case "2":
			regNo, code, err := a.promptEnrollmentKeys()
			if err != nil {
				return err
			}
			marks, ok, err := a.promptInt("Marks (0-100): ")
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			enrollment, err := a.svc.Enrollments.RecordMarksByKeys(ctx, regNo, code, marks)
			if err != nil {
				a.report(err)
				continue
			}
			a.printf("Marks recorded. Grade: %s\n", enrollment.Grade(a.svc.Enrollments.GradeScale()))
		case "3":
			regNo, code, err := a.promptEnrollmentKeys()
			if err != nil {
				return err
			}
			if _, err := a.svc.Enrollments.WithdrawByKeys(ctx, regNo, code); err != nil {
				a.report(err)
				continue
			}
			a.println("Enrollment withdrawn.")
		case "4":
			regNo, err := a.prompt("Student RegNo: ")
			if err != nil {
				return err
			}
			a.printTranscript(ctx, regNo)
		case "5":
			regNo, err := a.prompt("Student RegNo: ")
			if err != nil {
				return err
			}
			path, err := a.svc.Reports.ExportTranscriptPDF(ctx, regNo)
			if err != nil {
				a.report(err)
				continue
			}
			a.printf("Transcript written to %s\n", path)
		case "0":
			return nil
		default:
			a.println("Invalid.")
		}
	}
}

func (a *App) promptEnrollmentKeys() (string, string, error) {
	regNo, err := a.prompt("Student RegNo: ")
	if err != nil {
		return "", "", err
	}
	code, err := a.prompt("Course code: ")
	if err != nil {
		return "", "", err
	}
	return regNo, code, nil
}

func (a *App) printTranscript(ctx context.Context, regNo string) {
	transcript, err := a.svc.Reports.Transcript(ctx, regNo)
	if err != nil {
		a.report(err)
		return
	}
	a.println("")
	a.println("Transcript for: " + transcript.Student.Profile())
	if len(transcript.Lines) == 0 {
		a.println("No enrollments.")
		return
	}
	for _, line := range transcript.Lines {
		a.println(line)
	}
	a.printf("GPA: %.2f\n", transcript.GPA)
}

func (a *App) transferMenu(ctx context.Context) error {
	studentsFile := a.dataFile("students.csv")
	coursesFile := a.dataFile("courses.csv")
	a.printMenu("IMPORT/EXPORT",
		"1) Import students from "+studentsFile,
		"2) Import courses from "+coursesFile,
		"3) Import both in the background",
		"4) Export students",
		"5) Export courses",
		"6) List exported files",
		"0) Back")
	choice, err := a.prompt("choice> ")
	if err != nil {
		return err
	}
	switch choice {
	case "1":
		a.importFile(ctx, service.EntityStudents, studentsFile)
	case "2":
		a.importFile(ctx, service.EntityCourses, coursesFile)
	case "3":
		a.importBackground(ctx, studentsFile, coursesFile)
	case "4":
		a.exportWith(ctx, a.svc.Transfers.ExportStudents)
	case "5":
		a.exportWith(ctx, a.svc.Transfers.ExportCourses)
	case "6":
		a.listExports(ctx)
	case "0":
	default:
		a.println("Invalid.")
	}
	return nil
}

func (a *App) importFile(ctx context.Context, entity, path string) {
	result, err := a.svc.Transfers.ImportFile(ctx, entity, path)
	if err != nil {
		a.report(err)
		return
	}
	a.printImportResult(result)
}

func (a *App) importBackground(ctx context.Context, studentsFile, coursesFile string) {
	pending := make([]<-chan service.ImportOutcome, 0, 2)
	for _, job := range []struct{ entity, path string }{
		{service.EntityStudents, studentsFile},
		{service.EntityCourses, coursesFile},
	} {
		done, err := a.svc.Transfers.ImportAsync(job.entity, job.path)
		if err != nil {
			a.report(err)
			continue
		}
		a.printf("Queued %s import from %s\n", job.entity, job.path)
		pending = append(pending, done)
	}
	for _, done := range pending {
		select {
		case <-ctx.Done():
			a.println("Cancelled while waiting for imports.")
			return
		case outcome := <-done:
			if outcome.Err != nil {
				a.report(outcome.Err)
				continue
			}
			a.printImportResult(outcome.Result)
		}
	}
}

func (a *App) printImportResult(result *service.ImportResult) {
	a.printf("Imported %d %s from %s", result.Imported, result.Entity, result.Source)
	if n := len(result.Failures); n > 0 {
		a.printf(", %d rows skipped:\n%s", n, service.SummariseFailures(result.Failures))
		return
	}
	a.println("")
}

func (a *App) exportWith(ctx context.Context, export func(context.Context) (string, error)) {
	path, err := export(ctx)
	if err != nil {
		a.report(err)
		return
	}
	a.printf("Exported to %s\n", path)
}

func (a *App) listExports(ctx context.Context) {
	files, err := a.svc.Transfers.ListExports(ctx)
	if err != nil {
		a.report(err)
		return
	}
	if len(files) == 0 {
		a.println("No exported files.")
		return
	}
	for _, f := range files {
		a.printf("%s %d bytes %s\n", f.Name, f.Size, f.ModTime.Format("2006-01-02 15:04:05"))
	}
}

func (a *App) backup(ctx context.Context) {
	result, err := a.svc.Backups.Run(ctx)
	if err != nil {
		a.println("Backup failed: " + err.Error())
		return
	}
	a.printf("Backup created at: %s\n", result.Dir)
	a.printf("Backup total size (bytes): %d\n", result.Bytes)
	a.printf("Files copied: %d, manifest: %s\n", result.Files, result.Manifest)
	if result.Archive != "" {
		a.printf("Archive: %s (%d bytes)\n", result.Archive, result.ArchiveBytes)
	}
	if err := a.svc.Backups.Verify(result); err != nil {
		a.report(err)
		return
	}
	a.println("Backup verified against manifest.")
}

func (a *App) reports(ctx context.Context) error {
	a.printMenu("REPORTS")
	raw, err := a.prompt(fmt.Sprintf("How many top students? [%d]: ", a.svc.Reports.DefaultLimit()))
	if err != nil {
		return err
	}
	limit, convErr := strconv.Atoi(raw)
	if raw != "" && convErr != nil {
		a.printf("Not a number: %q\n", raw)
		return nil
	}
	rankings := a.svc.Reports.TopStudents(ctx, limit)
	a.println("Top students by GPA:")
	if len(rankings) == 0 {
		a.println("No students.")
	}
	for _, r := range rankings {
		a.printf("%d. %s GPA=%.2f\n", r.Rank, r.Student.Profile(), r.GPA)
	}
	return nil
}

func (a *App) stats() {
	samples, err := a.svc.Metrics.Snapshot()
	if err != nil {
		a.report(err)
		return
	}
	a.printMenu("STATS")
	if len(samples) == 0 {
		a.println("No activity recorded yet.")
	}
	for _, s := range samples {
		a.printf("%s%s %g\n", s.Name, s.Labels, s.Value)
	}
	if a.svc.Transfers != nil {
		q := a.svc.Transfers.QueueStats()
		a.printf("import queue: pending=%d completed=%d retried=%d abandoned=%d\n", q.Pending, q.Completed, q.Retried, q.Abandoned)
	}
}
