package pixelcargo_test

import (
	"errors"
	"testing"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/stretchr/testify/assert"
)

func TestCodecErrorWithMessage(t *testing.T) {
	newErr := pixelcargo.ErrCapacityExceeded.WithMessage("asdfqwerty")
	assert.Equal(
		t,
		"Payload exceeds carrier capacity: asdfqwerty",
		newErr.Error(),
		"error message is wrong")
	assert.ErrorIs(t, newErr, pixelcargo.ErrCapacityExceeded)
}

func TestCodecErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := pixelcargo.ErrCorruptFrame.Wrap(originalErr)
	expectedMessage := "Corrupt or missing frame: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, pixelcargo.ErrCorruptFrame, "codec error not set as parent")
}
