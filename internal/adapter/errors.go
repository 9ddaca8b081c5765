package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMessageRole is returned for a message role outside
	// user, assistant, function and system.
	ErrUnsupportedMessageRole = errors.New("unsupported message role")

	// ErrMalformedFunctionCallArguments is returned when an assistant
	// function call carries arguments that are not a JSON object.
	ErrMalformedFunctionCallArguments = errors.New("malformed function call arguments")

	// ErrEmptyConversation is returned when nothing but the system message
	// was sent.
	ErrEmptyConversation = errors.New("conversation has no message after the system message")

	// ErrMissingCredential is returned by New when neither a chat starter
	// nor an API key is available.
	ErrMissingCredential = errors.New("missing " + CredentialEnv)
)

// UpstreamStreamError reports a failure of the model's streaming call. It is
// the error a consumer reads from a failed response stream.
type UpstreamStreamError struct {
	Err error
}

func (e *UpstreamStreamError) Error() string {
	return fmt.Sprintf("upstream stream: %v", e.Err)
}

func (e *UpstreamStreamError) Unwrap() error {
	return e.Err
}
