package repository

import (
	"sort"

	"github.com/noah-isme/ccrm/internal/models"
)

// StudentGPA averages grade points over the student's graded, non-withdrawn enrollments.
// A student with nothing graded has GPA 0.
func (s *RecordStore) StudentGPA(student *models.Student, scale models.GradeScale) float64 {
	return gpa(s.ListEnrollmentsForStudent(student), scale)
}

// RankedStudent pairs a student with the GPA the ranking was sorted by.
type RankedStudent struct {
	Student *models.Student
	GPA     float64
}

// TopStudentsByGPA ranks students by descending GPA, ties broken by regNo ascending. Students
// and enrollments come from one snapshot and each GPA is computed once, so the reported
// scores always agree with the order.
func (s *RecordStore) TopStudentsByGPA(limit int, scale models.GradeScale) []RankedStudent {
	if limit <= 0 {
		return []RankedStudent{}
	}
	s.mu.RLock()
	byStudent := make(map[string][]*models.Enrollment, len(s.studentOrder))
	for _, e := range s.enrollments {
		byStudent[e.Student.ID] = append(byStudent[e.Student.ID], e)
	}
	ranked := make([]RankedStudent, 0, len(s.studentOrder))
	for _, id := range s.studentOrder {
		ranked = append(ranked, RankedStudent{Student: s.students[id]})
	}
	s.mu.RUnlock()

	for i := range ranked {
		ranked[i].GPA = gpa(byStudent[ranked[i].Student.ID], scale)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].GPA != ranked[j].GPA {
			return ranked[i].GPA > ranked[j].GPA
		}
		return ranked[i].Student.RegNo < ranked[j].Student.RegNo
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func gpa(enrollments []*models.Enrollment, scale models.GradeScale) float64 {
	total, count := 0, 0
	for _, e := range enrollments {
		if e.Status() == models.EnrollmentStatusWithdrawn {
			continue
		}
		grade := e.Grade(scale)
		if !grade.Counted() {
			continue
		}
		total += grade.Points()
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}
