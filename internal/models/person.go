package models

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

// Person is the identity contract shared by students and instructors.
type Person interface {
	Identity() PersonInfo
	Profile() string
}

// PersonInfo holds the identity and contact fields common to every person.
type PersonInfo struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the embedded identity record.
func (p PersonInfo) Identity() PersonInfo {
	return p
}

func newPersonInfo(id, fullName, email string, now time.Time) (PersonInfo, error) {
	if strings.TrimSpace(id) == "" {
		return PersonInfo{}, appErrors.Clone(appErrors.ErrValidation, "person id must not be blank")
	}
	return PersonInfo{ID: id, FullName: fullName, Email: email, CreatedAt: now}, nil
}
