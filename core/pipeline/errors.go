package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a stage failure. Handlers map kinds to user-facing
// messages; nothing downstream matches on error text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConfig
	KindAuth
	KindNetwork
	KindTimeout
	KindClip
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindClip:
		return "clip"
	default:
		return "unknown"
	}
}

// UserMessage returns the message shown to the user for this kind.
func (k Kind) UserMessage() string {
	switch k {
	case KindValidation:
		return "Please fill in all required fields before generating."
	case KindConfig:
		return "Generation is not configured yet. Please contact support."
	case KindAuth:
		return "The generation service rejected our credentials. Please contact support."
	case KindNetwork:
		return "Could not reach the generation service. Please try again."
	case KindTimeout:
		return "Generation took too long. Please try again."
	case KindClip:
		return "Could not prepare the selected audio clip. Generation was stopped to avoid extra cost."
	default:
		return "Something went wrong during generation. Please try again."
	}
}

// StageError is a failure in a named pipeline stage.
type StageError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// stageErr builds a StageError.
func stageErr(stage string, kind Kind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf extracts the kind from an error, defaulting to KindUnknown.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
