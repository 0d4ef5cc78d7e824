package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

func TestNewStudentRejectsBlankID(t *testing.T) {
	_, err := NewStudent("  ", "R1", "Ada", "ada@example.com", time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentEnrolledCodes(t *testing.T) {
	s, err := NewStudent("s1", "R1", "Ada", "ada@example.com", time.Now())
	require.NoError(t, err)
	assert.True(t, s.Active())

	cs102, _ := NewCourseCode("cs102")
	cs101, _ := NewCourseCode("CS101")
	s.AttachCourse(cs102)
	s.AttachCourse(cs101)
	assert.Equal(t, []CourseCode{cs101, cs102}, s.EnrolledCourseCodes())
	assert.True(t, s.HoldsCourse(cs101))

	s.DetachCourse(cs101)
	assert.False(t, s.HoldsCourse(cs101))

	s.Deactivate()
	assert.Equal(t, StudentStatusInactive, s.Status())
	assert.Contains(t, s.Profile(), "status=INACTIVE")
}

func TestPersonVariants(t *testing.T) {
	now := time.Now()
	s, err := NewStudent("s1", "R1", "Ada", "ada@example.com", now)
	require.NoError(t, err)
	i, err := NewInstructor("i1", "Grace", "grace@example.com", "CS", now)
	require.NoError(t, err)

	people := []Person{s, i}
	assert.Equal(t, "s1", people[0].Identity().ID)
	assert.Equal(t, "Instructor: Grace (grace@example.com) Dept: CS", people[1].Profile())
}

func TestCourseCodeNormalisation(t *testing.T) {
	a, err := NewCourseCode(" cs101 ")
	require.NoError(t, err)
	b, err := NewCourseCode("CS101")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "CS101", a.String())

	_, err = NewCourseCode("   ")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCourseBuilderDefaults(t *testing.T) {
	c, err := NewCourseBuilder("ma201").Build()
	require.NoError(t, err)
	assert.Equal(t, "MA201", c.Code().String())
	assert.Equal(t, "Untitled", c.Title)
	assert.Equal(t, 3, c.Credits)
	assert.Equal(t, SemesterFall, c.Semester)
	assert.Equal(t, "General", c.Department)
	assert.True(t, c.Active())
	assert.Nil(t, c.Instructor())
	assert.Contains(t, c.String(), "Instr:TBD")

	_, err = NewCourseBuilder("MA201").Credits(0).Build()
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = NewCourseBuilder("MA201").Semester("WINTER").Build()
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestParseSemester(t *testing.T) {
	sem, err := ParseSemester("spring")
	require.NoError(t, err)
	assert.Equal(t, SemesterSpring, sem)

	_, err = ParseSemester("autumn")
	assert.Error(t, err)
}

func TestDefaultGradeScalePartition(t *testing.T) {
	scale := DefaultGradeScale()
	cases := map[int]Grade{
		100: GradeS, 95: GradeS, 90: GradeS,
		89: GradeA, 80: GradeA,
		79: GradeB, 70: GradeB,
		69: GradeC, 60: GradeC,
		59: GradeD, 55: GradeD, 50: GradeD,
		49: GradeE, 40: GradeE,
		39: GradeF, 0: GradeF,
	}
	for marks, want := range cases {
		assert.Equal(t, want, scale.GradeFor(marks), "marks %d", marks)
	}

	prev := scale.GradeFor(0).Points()
	for marks := 0; marks <= 100; marks++ {
		g := scale.GradeFor(marks)
		assert.True(t, g.Counted())
		assert.GreaterOrEqual(t, g.Points(), prev)
		assert.Equal(t, g, scale.GradeFor(marks))
		prev = g.Points()
	}
}

func TestParseGradeScale(t *testing.T) {
	scale, err := ParseGradeScale("A:85, B:70, C:50, F:0")
	require.NoError(t, err)
	assert.Equal(t, GradeA, scale.GradeFor(85))
	assert.Equal(t, GradeB, scale.GradeFor(84))
	assert.Equal(t, GradeF, scale.GradeFor(49))
	assert.Len(t, scale.Bands(), 4)

	for _, raw := range []string{"", "S:90,A:95,F:0", "S:90,A:80", "S:90,I:50,F:0", "F:50,S:10,E:0", "S:x,F:0", "S90,F:0", "S:101,F:0"} {
		_, err := ParseGradeScale(raw)
		assert.Error(t, err, raw)
	}
}

func TestEnrollmentMarksAndGrade(t *testing.T) {
	now := time.Now()
	s, _ := NewStudent("s1", "R1", "Ada", "ada@example.com", now)
	c, _ := NewCourseBuilder("CS101").Title("Intro").Build()
	e := NewEnrollment("e1", s, c, now)
	scale := DefaultGradeScale()

	assert.Equal(t, GradeIncomplete, e.Grade(scale))
	assert.False(t, GradeIncomplete.Counted())
	assert.Contains(t, e.TranscriptLine(scale), "Marks=N/A | Grade=I")

	require.NoError(t, e.SetMarks(95))
	assert.Equal(t, GradeS, e.Grade(scale))

	err := e.SetMarks(101)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidMarks))
	marks, ok := e.Marks()
	assert.True(t, ok)
	assert.Equal(t, 95, marks)

	require.NoError(t, e.SetMarks(55))
	assert.Equal(t, GradeD, e.Grade(scale))

	assert.True(t, e.Withdraw())
	assert.False(t, e.Withdraw())
	assert.Contains(t, e.TranscriptLine(scale), "WITHDRAWN")
}
