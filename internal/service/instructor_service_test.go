package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ccrm/internal/models"
	"github.com/noah-isme/ccrm/internal/repository"
	appErrors "github.com/noah-isme/ccrm/pkg/errors"
)

func TestInstructorServiceCreateAndList(t *testing.T) {
	svc := NewInstructorService(repository.NewRecordStore(), nil, nil)

	first, err := svc.Create(context.Background(), CreateInstructorRequest{FullName: "Grace Hopper", Email: "grace@campus.edu", Department: "CS"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInstructorRequest{FullName: "Emmy Noether", Department: "Math"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list := svc.List(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, "Instructor: Grace Hopper (grace@campus.edu) Dept: CS", list[0].Profile())

	var person models.Person = second
	assert.Equal(t, second.ID, person.Identity().ID)

	found, err := svc.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Same(t, first, found)
}

func TestInstructorServiceValidation(t *testing.T) {
	svc := NewInstructorService(repository.NewRecordStore(), nil, nil)

	_, err := svc.Create(context.Background(), CreateInstructorRequest{FullName: "No Dept"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
