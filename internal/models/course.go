package models

import (
	"fmt"
	"strings"
	"sync"

	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// Semester identifies the term a course runs in.
type Semester string

// Supported semesters.
const (
	SemesterSpring Semester = "SPRING"
	SemesterSummer Semester = "SUMMER"
	SemesterFall   Semester = "FALL"
)

// ParseSemester accepts a semester name in any case.
func ParseSemester(raw string) (Semester, error) {
	switch sem := Semester(strings.ToUpper(strings.TrimSpace(raw))); sem {
	case SemesterSpring, SemesterSummer, SemesterFall:
		return sem, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown semester %q", raw))
	}
}

// CourseCode is the normalised, uppercase identifier of a course. Compare with ==.
type CourseCode struct {
	value string
}

// NewCourseCode trims and uppercases raw.
func NewCourseCode(raw string) (CourseCode, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return CourseCode{}, appErrors.Clone(appErrors.ErrValidation, "course code must not be blank")
	}
	return CourseCode{value: value}, nil
}

func (c CourseCode) String() string {
	return c.value
}

// Course is an offering identified by its code.
type Course struct {
	code       CourseCode
	Title      string   `json:"title"`
	Credits    int      `json:"credits"`
	Semester   Semester `json:"semester"`
	Department string   `json:"department"`

	mu         sync.RWMutex
	instructor *Instructor
	active     bool
}

// Code returns the immutable course code.
func (c *Course) Code() CourseCode {
	return c.code
}

// Instructor returns the assigned instructor, or nil.
func (c *Course) Instructor() *Instructor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instructor
}

// AssignInstructor replaces the course instructor.
func (c *Course) AssignInstructor(instructor *Instructor) {
	c.mu.Lock()
	c.instructor = instructor
	c.mu.Unlock()
}

// Active reports whether the course is still offered.
func (c *Course) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Deactivate withdraws the course from the catalogue without removing it.
func (c *Course) Deactivate() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

func (c *Course) String() string {
	instructor := "TBD"
	if i := c.Instructor(); i != nil {
		instructor = i.FullName
	}
	return fmt.Sprintf("%s - %s (%dcr) [%s] Dept:%s Instr:%s", c.code, c.Title, c.Credits, c.Semester, c.Department, instructor)
}

// CourseBuilder assembles a Course with catalogue defaults.
type CourseBuilder struct {
	code       string
	title      string
	credits    int
	instructor *Instructor
	semester   Semester
	department string
}

// NewCourseBuilder starts a builder for the given code.
func NewCourseBuilder(code string) *CourseBuilder {
	return &CourseBuilder{
		code:       code,
		title:      "Untitled",
		credits:    3,
		semester:   SemesterFall,
		department: "General",
	}
}

func (b *CourseBuilder) Title(title string) *CourseBuilder {
	b.title = title
	return b
}

func (b *CourseBuilder) Credits(credits int) *CourseBuilder {
	b.credits = credits
	return b
}

func (b *CourseBuilder) Instructor(instructor *Instructor) *CourseBuilder {
	b.instructor = instructor
	return b
}

func (b *CourseBuilder) Semester(semester Semester) *CourseBuilder {
	b.semester = semester
	return b
}

func (b *CourseBuilder) Department(department string) *CourseBuilder {
	b.department = department
	return b
}

// Build validates the accumulated fields and returns an active course.
func (b *CourseBuilder) Build() (*Course, error) {
	code, err := NewCourseCode(b.code)
	if err != nil {
		return nil, err
	}
	if b.credits <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course credits must be positive")
	}
	if _, err := ParseSemester(string(b.semester)); err != nil {
		return nil, err
	}
	return &Course{
		code:       code,
		Title:      b.title,
		Credits:    b.credits,
		Semester:   b.semester,
		Department: b.department,
		instructor: b.instructor,
		active:     true,
	}, nil
}
