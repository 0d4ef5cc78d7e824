package models

import (
	"fmt"
	"time"
)

// Instructor is a person who teaches courses.
type Instructor struct {
	PersonInfo
	Department string `json:"department"`
}

// NewInstructor builds an instructor record.
func NewInstructor(id, fullName, email, department string, now time.Time) (*Instructor, error) {
	info, err := newPersonInfo(id, fullName, email, now)
	if err != nil {
		return nil, err
	}
	return &Instructor{PersonInfo: info, Department: department}, nil
}

// Profile renders a one-line description.
func (i *Instructor) Profile() string {
	return fmt.Sprintf("Instructor: %s (%s) Dept: %s", i.FullName, i.Email, i.Department)
}

func (i *Instructor) String() string {
	return i.Profile()
}
