package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load campaign: %w", NewNotFoundError("Campaign"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidState))
	assert.True(t, IsNotFound(err))
}

func TestValidationErrors(t *testing.T) {
	var v ValidationErrors
	assert.NoError(t, v.Err())

	v.Add("name", "Name is required")
	v.Add("email", "Please provide a valid email")

	err := v.Err()
	var de *DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, CodeValidation, de.Code)
	assert.Len(t, de.Details, 2)
	assert.Equal(t, "Validation failed: Name is required; Please provide a valid email", de.Message)
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2, 3}, 23, 3, 10)
	assert.Equal(t, 3, p.Pages)
	assert.Equal(t, 3, p.Count())

	empty := NewPaginated([]int{}, 0, 1, 10)
	assert.Equal(t, 0, empty.Pages)
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("donor@example.org"))
	assert.False(t, IsValidEmail("donor@"))
	assert.False(t, IsValidEmail(""))
}
