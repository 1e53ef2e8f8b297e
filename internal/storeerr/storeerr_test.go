package storeerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesTaggedCode(t *testing.T) {
	err := NotFoundf("path %q", "/a")
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, StorageCorrupt))
}

func TestIsFalseForPlainError(t *testing.T) {
	err := errors.New("plain")
	assert.False(t, Is(err, NotFound))
}

func TestCodeOfDefaultsToIoErrorForPlainError(t *testing.T) {
	assert.Equal(t, IoError, CodeOf(errors.New("plain")))
}

func TestCodeOfExtractsTaggedCode(t *testing.T) {
	err := Corruptf("deadbeef")
	assert.Equal(t, StorageCorrupt, CodeOf(err))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(IoError, "write chunk", cause)
	require.Error(t, wrapped)
	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, Is(wrapped, IoError))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(IoError, "no-op", nil))
}

func TestErrorMessageIncludesContextAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(DbError, "open recipe store", cause)
	assert.Contains(t, err.Error(), "open recipe store")
	assert.Contains(t, err.Error(), "boom")
}

func TestCodeStringsAreHumanReadable(t *testing.T) {
	cases := map[Code]string{
		NotFound:            "not found",
		StorageCorrupt:      "storage corrupt",
		SerializationError:  "serialization error",
		IoError:             "i/o error",
		DbError:             "db error",
		Code(99):            "unknown error",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
}
