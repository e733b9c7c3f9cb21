package mcpservice

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a registry lookup miss: an unknown prompt name,
// resource URI or template string. Error messages wrapping it name the
// missing key and how to discover valid ones, since the message itself is
// read by agent callers deciding what to do next.
var ErrNotFound = errors.New("mcpservice: not found")

// ErrInvalidArguments indicates the caller supplied arguments that do not
// satisfy the component's declared contract, such as a missing required
// prompt argument.
var ErrInvalidArguments = errors.New("mcpservice: invalid arguments")

// PromptError wraps an unexpected failure raised by a prompt render handler,
// preserving the original cause. Validation and not-found errors are never
// wrapped in it; they already carry the right semantics.
type PromptError struct {
	Prompt string
	Err    error
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("prompt %q: render handler failed: %v", e.Prompt, e.Err)
}

func (e *PromptError) Unwrap() error { return e.Err }
