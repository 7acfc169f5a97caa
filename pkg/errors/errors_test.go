package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypePredicates(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidation("bad input"), IsValidation},
		{"not found", NewNotFound("missing"), IsNotFound},
		{"precondition", NewPrecondition("too few capabilities"), IsPrecondition},
		{"generation parse", NewGenerationParse("garbage", "raw", nil), IsGenerationParse},
		{"remote service", NewRemoteService("timeout", nil), IsRemoteService},
		{"persistence", NewPersistence("write failed", nil), IsPersistence},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.check(tc.err))
			assert.False(t, tc.check(stderrors.New("plain")))
		})
	}
}

func TestWrapPreservesType(t *testing.T) {
	inner := NewPersistence("put failed", stderrors.New("throttled"))
	wrapped := Wrap(inner, "saving suggestion")

	assert.True(t, IsPersistence(wrapped))
	assert.Contains(t, wrapped.Error(), "saving suggestion")
	assert.Contains(t, wrapped.Error(), "put failed")
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	wrapped := Wrap(stderrors.New("boom"), "loading profile")

	var appErr *AppError
	assert.True(t, stderrors.As(wrapped, &appErr))
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
}

func TestRawResponse(t *testing.T) {
	raw := `{"title": incomplete`
	err := NewGenerationParse("unparseable", raw, nil)
	assert.Equal(t, raw, RawResponse(err))

	// Wrapping keeps the raw payload.
	assert.Equal(t, raw, RawResponse(Wrap(err, "slot 2")))

	assert.Equal(t, "", RawResponse(stderrors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := NewRemoteService("call failed", fmt.Errorf("attempt 1: %w", cause))
	assert.True(t, stderrors.Is(err, cause))
}
