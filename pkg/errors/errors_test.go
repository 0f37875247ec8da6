package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/kamerwatch/kamerwatch/pkg/errors"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestMissingFieldError(t *testing.T) {
	t.Run("with record", func(t *testing.T) {
		err := &pkgerrors.MissingFieldError{
			Field:  "OVERHEIDop.dossiernummer",
			Record: "kst-25124-84",
		}
		assert.Equal(t, "metadata field OVERHEIDop.dossiernummer missing in kst-25124-84", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrMissingField))
	})

	t.Run("without record", func(t *testing.T) {
		err := pkgerrors.NewMissingFieldError("DC.title", "")
		assert.Equal(t, "metadata field DC.title missing", err.Error())
		assert.True(t, pkgerrors.IsMissingField(err))
	})
}

func TestInvalidRecordError(t *testing.T) {
	err := pkgerrors.NewInvalidRecordError("kst-36200-1", "no availability date")
	assert.Equal(t, "invalid record kst-36200-1: no availability date", err.Error())
	assert.True(t, pkgerrors.IsInvalidRecord(err))
	assert.False(t, pkgerrors.IsNotFound(err))
}

func TestUnknownDocumentTypeError(t *testing.T) {
	err := pkgerrors.NewUnknownDocumentTypeError("blg-1234", "Agenda")
	assert.Equal(t, `document blg-1234 has unknown type "Agenda"`, err.Error())
	assert.True(t, pkgerrors.IsUnknownDocumentType(err))
}

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("publication", "kst-25124-84")
	assert.Equal(t, "publication with ID kst-25124-84 not found", err.Error())
	assert.True(t, pkgerrors.IsNotFound(err))

	wrapped := errors.Join(errors.New("fetch failed"), err)
	assert.True(t, pkgerrors.IsNotFound(wrapped))
}

func TestAPIError(t *testing.T) {
	t.Run("server error maps to unavailable", func(t *testing.T) {
		err := pkgerrors.NewAPIError("gazette", 503, "https://example.org/resultaten")
		assert.True(t, pkgerrors.IsRegistryUnavailable(err))
		assert.False(t, pkgerrors.IsNotFound(err))
	})

	t.Run("404 maps to not found", func(t *testing.T) {
		err := pkgerrors.NewAPIError("repository", 404, "https://example.org/frbr")
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestIsDiscardable(t *testing.T) {
	assert.True(t, pkgerrors.IsDiscardable(pkgerrors.NewInvalidRecordError("x", "")))
	assert.True(t, pkgerrors.IsDiscardable(pkgerrors.NewMissingFieldError("f", "")))
	assert.True(t, pkgerrors.IsDiscardable(pkgerrors.NewUnknownDocumentTypeError("x", "")))
	assert.False(t, pkgerrors.IsDiscardable(pkgerrors.ErrRegistryUnavailable))
	assert.False(t, pkgerrors.IsDiscardable(pkgerrors.ErrSyncInProgress))
}

func TestWrapHelpers(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapIO("write", "/tmp/x", nil))
	assert.Nil(t, pkgerrors.WrapParse("xml", "metadata.xml", nil))

	base := errors.New("disk full")
	err := pkgerrors.WrapIO("write", "/tmp/x", base)
	var ioErr *pkgerrors.IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Operation)
	assert.True(t, errors.Is(err, base))
}
