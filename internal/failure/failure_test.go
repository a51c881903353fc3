package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(BackendFailure, "bad json"))
	assert.Equal(t, BackendFailure, KindOf(err))
	assert.True(t, Is(err, BackendFailure))
	assert.False(t, Is(err, NetworkFailure))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(NetworkFailure, "x", nil))
}

func TestWithStep(t *testing.T) {
	base := New(ValidationFailure, "repository URL is required")
	err := WithStep(base, "initialize")
	assert.Equal(t, "initialize: validation failure: repository URL is required", err.Error())
	assert.Empty(t, base.Step, "original must not be mutated")

	plain := errors.New("plain")
	assert.Same(t, plain, WithStep(plain, "analyze"))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(ConfigurationMissing, "N8N_WEBHOOK_BASE is not set"), "Configuration missing: N8N_WEBHOOK_BASE is not set"},
		{New(ValidationFailure, "topics must not be empty"), "topics must not be empty"},
		{&Error{Kind: BackendFailure, Status: 502}, "The server rejected the request (HTTP 502). Try again."},
		{&Error{Kind: BackendFailure}, "The server returned an unexpected response. Try again."},
		{&Error{Kind: BackendFailure, Status: 502, Message: "POST push: HTTP 502: bad gateway"}, "The server rejected the request (HTTP 502). Try again."},
		{&Error{Kind: BackendFailure, Status: 200, Message: "push: backend reported failure: branch main is protected"}, "push: backend reported failure: branch main is protected"},
		{New(BackendFailure, "generate: empty document"), "generate: empty document"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.UserMessage())
	}
}

func TestError_UnwrapChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(NetworkFailure, "POST analyze", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "Could not reach the server. Check your connection and try again.", Message(err))
}
