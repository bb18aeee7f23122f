package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Status(Validation("missing %s", "name")))
	assert.Equal(t, http.StatusBadRequest, Status(Unsupported("sharpen")))
	assert.Equal(t, http.StatusNotFound, Status(NotFound("album %d", 3)))
	assert.Equal(t, http.StatusUnauthorized, Status(ErrUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, Status(Integrity("parent %d", 7)))
	assert.Equal(t, http.StatusInternalServerError, Status(Storage("write", errors.New("disk full"))))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
}

func TestUnsupportedMatchesBoth(t *testing.T) {
	err := Unsupported("sharpen")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "sharpen")
}
