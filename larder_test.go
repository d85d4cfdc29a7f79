package larder_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/larder"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := larder.Errorf(larder.ENOTFOUND, "source %q not found", "example.com")

	assert.Equal(t, larder.ENOTFOUND, larder.ErrorCode(err))
	assert.Equal(t, "source \"example.com\" not found", larder.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, larder.ErrorCode(nil))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, larder.ErrorMessage(nil))
}

func TestErrorCode_WrappedError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("loading: %w", larder.Errorf(larder.EUNAVAILABLE, "ranker offline"))

	assert.Equal(t, larder.EUNAVAILABLE, larder.ErrorCode(err))
	assert.Equal(t, "ranker offline", larder.ErrorMessage(err))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	err := errors.New("disk full")

	assert.Equal(t, larder.EINTERNAL, larder.ErrorCode(err))
	assert.Equal(t, "Internal error.", larder.ErrorMessage(err))
}
