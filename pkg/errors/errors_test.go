package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeStorage, "save", 2, fs.ErrPermission)
	assert.Equal(t, "storage error during save (worker 2): permission denied", err.Error())

	err = New(ErrorTypeConfig, "open store", NoWorker, fmt.Errorf("bad backend"))
	assert.Equal(t, "config error during open store: bad backend", err.Error())
}

func TestUnwrap(t *testing.T) {
	err := New(ErrorTypeStorage, "load", 0, fs.ErrPermission)
	assert.ErrorIs(t, err, fs.ErrPermission)

	wrapped := fmt.Errorf("worker failed: %w", err)
	assert.Equal(t, ErrorTypeStorage, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeStorage, true},
		{ErrorTypeDecode, false},
		{ErrorTypeConfig, false},
		{ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}
